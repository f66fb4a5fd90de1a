package core

import "errors"

// Error kinds. Collaborators wrap the underlying cause together with one of
// these so callers can branch with errors.Is:
//
//	return fmt.Errorf("%w: table %q: %w", core.ErrWrite, name, err)
var (
	// ErrInvalidName is returned when normalization leaves nothing usable.
	ErrInvalidName = errors.New("invalid name")

	// ErrConflictAbort is returned when the operator skips a conflicting destination.
	ErrConflictAbort = errors.New("skipped by operator")

	// ErrInvalidSplitSpec is returned for a non-positive row count or an unknown column.
	ErrInvalidSplitSpec = errors.New("invalid split spec")

	// ErrWrite is reported by a store when a table write fails.
	ErrWrite = errors.New("write table")

	// ErrRead is reported by a store when a table read fails.
	ErrRead = errors.New("read table")

	// ErrSchema is reported by a store when a schema operation fails.
	ErrSchema = errors.New("schema")

	// ErrParse is reported when a CSV file is malformed.
	ErrParse = errors.New("invalid csv")

	// ErrIO is reported when a file cannot be read or written.
	ErrIO = errors.New("file i/o")
)
