package postgres

// convert.go turns CSV text into pgtype values for COPY into a freshly
// created table. The column types come from schema.Infer, so a value that
// does not parse means the data changed between inference and conversion.
//
// Empty values become NULL (Valid=false) for every type.

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/csvbridge/internal/schema"
)

// sqlType returns the column type used when creating a table.
func sqlType(ft schema.FieldType) string {
	switch ft {
	case schema.FieldInteger:
		return "bigint"
	case schema.FieldNumeric:
		return "numeric"
	case schema.FieldBool:
		return "boolean"
	case schema.FieldDate:
		return "date"
	default:
		return "text"
	}
}

// ToPgValue converts s to the pgtype value matching ft.
func ToPgValue(ft schema.FieldType, s string) (any, error) {
	switch ft {
	case schema.FieldInteger:
		return ToPgInt8(s)
	case schema.FieldNumeric:
		return ToPgNumeric(s)
	case schema.FieldBool:
		return ToPgBool(s)
	case schema.FieldDate:
		return ToPgDate(s)
	default:
		return ToPgText(s), nil
	}
}

// ToPgText converts a string to pgtype.Text. Text is stored as given;
// only the empty string is NULL.
func ToPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgInt8 converts a string to pgtype.Int8.
func ToPgInt8(s string) (pgtype.Int8, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Int8{Valid: false}, nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pgtype.Int8{}, fmt.Errorf("invalid integer %q: %w", s, err)
	}
	return pgtype.Int8{Int64: i, Valid: true}, nil
}

// ToPgNumeric converts a plain decimal string to pgtype.Numeric, keeping its scale.
func ToPgNumeric(s string) (pgtype.Numeric, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{Valid: false}, nil
	}
	if !schema.IsNumeric(s) {
		return pgtype.Numeric{}, fmt.Errorf("invalid numeric %q", s)
	}

	// Scan does not understand exponents; apply them to Exp afterwards.
	mantissa, exp := s, int64(0)
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		var err error
		mantissa = s[:i]
		if exp, err = strconv.ParseInt(s[i+1:], 10, 32); err != nil {
			return pgtype.Numeric{}, fmt.Errorf("invalid numeric %q: %w", s, err)
		}
	}

	var n pgtype.Numeric
	if err := n.Scan(mantissa); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("invalid numeric %q: %w", s, err)
	}
	n.Exp += int32(exp)
	return n, nil
}

// ToPgBool converts "true" or "false" in any case to pgtype.Bool.
func ToPgBool(s string) (pgtype.Bool, error) {
	if strings.TrimSpace(s) == "" {
		return pgtype.Bool{Valid: false}, nil
	}
	b, ok := schema.ParseBool(s)
	if !ok {
		return pgtype.Bool{}, fmt.Errorf("invalid boolean %q", s)
	}
	return pgtype.Bool{Bool: b, Valid: true}, nil
}

// ToPgDate converts an ISO date to pgtype.Date.
func ToPgDate(s string) (pgtype.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}, nil
	}
	t, err := time.Parse(schema.DateLayout, s)
	if err != nil {
		return pgtype.Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

// textParam converts a CSV value to a query parameter for a column of
// unknown type. Strings are sent in text format and parsed by the server.
func textParam(s string) any {
	if s == "" {
		return nil
	}
	return s
}
