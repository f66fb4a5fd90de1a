// Package schema infers column types for datasets loaded from CSV files.
//
// Every CSV value arrives as text. Before a new table is created the columns
// are classified so the store can choose a sensible SQL type; values that do
// not fit a narrower type keep the column as text.
package schema

import "github.com/JonMunkholm/csvbridge/internal/core"

// FieldType is the inferred data type of a column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInteger
	FieldNumeric
	FieldBool
	FieldDate
)

func (ft FieldType) String() string {
	switch ft {
	case FieldInteger:
		return "integer"
	case FieldNumeric:
		return "numeric"
	case FieldBool:
		return "bool"
	case FieldDate:
		return "date"
	default:
		return "text"
	}
}

// FieldSpec describes one column of a table to be created.
type FieldSpec struct {
	Name string    // Column name as it appears in the CSV header
	Type FieldType // Inferred type
}

// Infer returns one FieldSpec per column of ds, in column order. Short rows
// contribute nothing to the columns they lack.
func Infer(ds *core.Dataset) []FieldSpec {
	specs := make([]FieldSpec, len(ds.Columns))
	for i, name := range ds.Columns {
		values := make([]string, 0, ds.Len())
		for _, row := range ds.Rows {
			if i < len(row) {
				values = append(values, row[i])
			}
		}
		specs[i] = FieldSpec{Name: name, Type: InferType(values)}
	}
	return specs
}
