package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// SplitStrategy selects how a dataset is partitioned.
type SplitStrategy int

const (
	// SplitByRowCount cuts consecutive chunks of a fixed number of rows.
	SplitByRowCount SplitStrategy = iota
	// SplitByColumnValue groups rows sharing a value in one column.
	SplitByColumnValue
)

func (s SplitStrategy) String() string {
	if s == SplitByColumnValue {
		return "column_value"
	}
	return "row_count"
}

// SplitSpec describes one split request. Rows is used by SplitByRowCount,
// Column by SplitByColumnValue.
type SplitSpec struct {
	Strategy SplitStrategy
	Rows     int
	Column   string
}

// Validate checks the spec against the dataset it will be applied to.
func (s SplitSpec) Validate(ds *Dataset) error {
	switch s.Strategy {
	case SplitByRowCount:
		if s.Rows <= 0 {
			return fmt.Errorf("%w: row count must be greater than zero, got %d", ErrInvalidSplitSpec, s.Rows)
		}
	case SplitByColumnValue:
		if ds.ColumnIndex(s.Column) < 0 {
			return fmt.Errorf("%w: column %q not found", ErrInvalidSplitSpec, s.Column)
		}
	default:
		return fmt.Errorf("%w: unsupported strategy %d", ErrInvalidSplitSpec, s.Strategy)
	}
	return nil
}

// Chunk is one labeled partition of a dataset.
type Chunk struct {
	Name string
	Data *Dataset
}

// PartitionRows cuts ds into consecutive chunks of size rows. The last chunk
// may be shorter; an empty dataset yields no chunks.
func PartitionRows(ds *Dataset, baseName string, size int) []Chunk {
	var chunks []Chunk
	for i := 0; i < ds.Len(); i += size {
		end := min(i+size, ds.Len())
		chunks = append(chunks, Chunk{
			Name: chunkName(baseName, "part_"+strconv.Itoa(i/size+1)),
			Data: ds.Slice(i, end),
		})
	}
	return chunks
}

// PartitionByColumn groups the rows of ds by the value in column col, in order
// of first appearance. Each chunk is named after the normalized value, so
// distinct values that normalize alike share a name.
func PartitionByColumn(ds *Dataset, baseName string, col int) []Chunk {
	var order []string
	groups := make(map[string]*Dataset)

	for _, row := range ds.Rows {
		var val string
		if col < len(row) {
			val = row[col]
		}
		g, ok := groups[val]
		if !ok {
			g = &Dataset{Columns: ds.Columns}
			groups[val] = g
			order = append(order, val)
		}
		g.Rows = append(g.Rows, row)
	}

	chunks := make([]Chunk, 0, len(order))
	for _, val := range order {
		chunks = append(chunks, Chunk{
			Name: chunkName(baseName, Normalize(val)),
			Data: groups[val],
		})
	}
	return chunks
}

// Split partitions ds according to spec and writes every chunk as
// <outputDir>/<name>.csv. It returns the paths written, in write order.
//
// Chunks are independent: when a write fails, earlier chunks stay on disk and
// the error names the chunk that failed.
func Split(ctx context.Context, ds *Dataset, outputDir, baseName string, spec SplitSpec, w ChunkWriter) ([]string, error) {
	if err := spec.Validate(ds); err != nil {
		return nil, err
	}

	var chunks []Chunk
	switch spec.Strategy {
	case SplitByRowCount:
		chunks = PartitionRows(ds, baseName, spec.Rows)
	case SplitByColumnValue:
		chunks = PartitionByColumn(ds, baseName, ds.ColumnIndex(spec.Column))
	}

	written := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path := filepath.Join(outputDir, c.Name+CSVExt)
		if err := w.WriteCSV(path, c.Data); err != nil {
			return written, fmt.Errorf("write chunk %q: %w", c.Name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// chunkName joins an identifier base and label the way Normalize would, so an
// empty label collapses to the base name.
func chunkName(base, label string) string {
	return strings.Trim(base+"_"+label, "_")
}
