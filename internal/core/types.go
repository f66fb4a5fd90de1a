package core

import (
	"context"
	"time"
)

// CSVExt is the extension of every file this package writes.
const CSVExt = ".csv"

// Dataset is an in-memory table: an ordered list of column names and the rows
// beneath them. Values are kept as text; an empty string stands for NULL.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Slice returns a dataset sharing the columns and holding rows[from:to].
func (d *Dataset) Slice(from, to int) *Dataset {
	return &Dataset{Columns: d.Columns, Rows: d.Rows[from:to]}
}

// WriteMode controls what happens to an existing destination table.
type WriteMode int

const (
	// WriteReplace drops any existing table and recreates it from the dataset.
	WriteReplace WriteMode = iota
	// WriteAppend inserts the dataset's rows after the existing ones.
	WriteAppend
)

func (m WriteMode) String() string {
	switch m {
	case WriteAppend:
		return "append"
	default:
		return "replace"
	}
}

// Store is the relational storage collaborator. A Store is an explicitly
// owned session: it is created at login, carries the selected schema, and is
// closed exactly once.
type Store interface {
	TableExists(ctx context.Context, name string) (bool, error)
	WriteTable(ctx context.Context, ds *Dataset, name string, mode WriteMode) error
	ReadTable(ctx context.Context, name string) (*Dataset, error)
	ListTables(ctx context.Context) ([]string, error)

	SchemaExists(ctx context.Context, name string) (bool, error)
	CreateSchema(ctx context.Context, name string) error
	UseSchema(ctx context.Context, name string) error
	ListSchemas(ctx context.Context) ([]string, error)
	CurrentSchema() string

	Close() error
}

// Files is the CSV file collaborator.
type Files interface {
	ReadCSV(path string) (*Dataset, error)
	WriteCSV(path string, ds *Dataset) error
	Exists(path string) bool
	ListMatching(dirOrFile, ext string) ([]string, error)
}

// ChunkWriter writes one split chunk. *csvfile.Handler satisfies it.
type ChunkWriter interface {
	WriteCSV(path string, ds *Dataset) error
}

// ItemStatus is the recorded outcome of one batch item.
type ItemStatus string

const (
	StatusSucceeded ItemStatus = "succeeded"
	StatusFailed    ItemStatus = "failed"
	StatusSkipped   ItemStatus = "skipped"
)

// ItemResult records what happened to a single source item in a batch.
type ItemResult struct {
	Source      string     // File path (upload) or table name (download)
	Destination string     // Table name (upload) or file path (download); empty when skipped early
	Mode        WriteMode  // Upload only
	Status      ItemStatus // Outcome
	Rows        int        // Rows transferred on success
	Err         error      // Cause when failed, ErrConflictAbort when skipped
}

// BatchReport is the result of an upload or download batch.
type BatchReport struct {
	Items    []ItemResult
	Duration time.Duration
}

func (r *BatchReport) count(s ItemStatus) int {
	n := 0
	for _, it := range r.Items {
		if it.Status == s {
			n++
		}
	}
	return n
}

// Succeeded returns the number of items written.
func (r *BatchReport) Succeeded() int { return r.count(StatusSucceeded) }

// Failed returns the number of items whose collaborator call failed.
func (r *BatchReport) Failed() int { return r.count(StatusFailed) }

// Skipped returns the number of items the operator skipped.
func (r *BatchReport) Skipped() int { return r.count(StatusSkipped) }
