package core

import (
	"context"
	"fmt"
	"path/filepath"
)

// TablePolicy is the operator's answer to an existing destination table.
type TablePolicy int

const (
	TableSkip TablePolicy = iota
	TableRename
	TableAppend
	TableReplace
)

// TablePolicies lists the selectable upload policies in menu order.
// TableSkip is the menu's cancel option.
var TablePolicies = []TablePolicy{TableRename, TableAppend, TableReplace}

func (p TablePolicy) String() string {
	switch p {
	case TableRename:
		return "Rename"
	case TableAppend:
		return "Append"
	case TableReplace:
		return "Replace"
	default:
		return "Skip"
	}
}

// PathPolicy is the operator's answer to an existing destination file.
type PathPolicy int

const (
	PathSkip PathPolicy = iota
	PathRename
	PathReplace
	PathChangeDir
)

// PathPolicies lists the selectable path policies in menu order.
var PathPolicies = []PathPolicy{PathRename, PathReplace, PathChangeDir}

func (p PathPolicy) String() string {
	switch p {
	case PathRename:
		return "Rename"
	case PathReplace:
		return "Replace"
	case PathChangeDir:
		return "Change Path"
	default:
		return "Skip"
	}
}

// Decider supplies operator decisions. Returning "" from TableName, FileName,
// or Directory means "nothing given" (the operator chose 0 / cancel).
// A non-nil error means the operator channel itself failed and ends resolution.
type Decider interface {
	// TableConflict asks what to do about an existing table.
	TableConflict(ctx context.Context, table string) (TablePolicy, error)
	// TableName asks for a table name for source, already normalized.
	TableName(ctx context.Context, source string) (string, error)
	// ConfirmReplace asks whether table may be overwritten.
	ConfirmReplace(ctx context.Context, table string) (bool, error)

	// PathConflict asks what to do about an existing file.
	PathConflict(ctx context.Context, path string) (PathPolicy, error)
	// FileName asks for a new file base name for source, already normalized.
	FileName(ctx context.Context, source string) (string, error)
	// Directory asks for an existing directory.
	Directory(ctx context.Context) (string, error)
}

// ExistsFunc reports whether a candidate destination is already taken.
type ExistsFunc func(candidate string) (bool, error)

// Outcome tags a resolver step.
type Outcome int

const (
	// Retry means the candidate changed or the operator backed out of a
	// sub-prompt; the caller should evaluate the (possibly new) candidate again.
	Retry Outcome = iota
	// Accept means the destination is final.
	Accept
	// Abort means the operator skipped this item.
	Abort
)

func (o Outcome) String() string {
	switch o {
	case Accept:
		return "accept"
	case Abort:
		return "abort"
	default:
		return "retry"
	}
}

// Resolution is the tagged result of a resolver step. Target holds the
// candidate (table name or file path) to continue with or to use.
type Resolution struct {
	Outcome Outcome
	Target  string
	Mode    WriteMode
}

// TableStep applies one operator decision to an existing table candidate.
// source is the original item name handed to the rename prompt.
func TableStep(ctx context.Context, d Decider, source, candidate string, policy TablePolicy) (Resolution, error) {
	switch policy {
	case TableRename:
		name, err := d.TableName(ctx, source)
		if err != nil {
			return Resolution{}, err
		}
		if name == "" {
			return Resolution{Outcome: Retry, Target: candidate}, nil
		}
		return Resolution{Outcome: Retry, Target: name}, nil

	case TableAppend:
		return Resolution{Outcome: Accept, Target: candidate, Mode: WriteAppend}, nil

	case TableReplace:
		ok, err := d.ConfirmReplace(ctx, candidate)
		if err != nil {
			return Resolution{}, err
		}
		if !ok {
			return Resolution{Outcome: Retry, Target: candidate}, nil
		}
		return Resolution{Outcome: Accept, Target: candidate, Mode: WriteReplace}, nil

	default:
		return Resolution{Outcome: Abort, Target: candidate}, nil
	}
}

// ResolveTable settles a destination table name. A name that does not exist
// is accepted with WriteReplace; otherwise the operator picks Rename, Append,
// Replace (confirmed), or Skip until a terminal outcome is reached.
// The returned Resolution is never Retry.
func ResolveTable(ctx context.Context, d Decider, source, name string, exists ExistsFunc) (Resolution, error) {
	candidate := name
	for {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}

		taken, err := exists(candidate)
		if err != nil {
			return Resolution{}, fmt.Errorf("check table %q: %w", candidate, err)
		}
		if !taken {
			return Resolution{Outcome: Accept, Target: candidate, Mode: WriteReplace}, nil
		}

		policy, err := d.TableConflict(ctx, candidate)
		if err != nil {
			return Resolution{}, err
		}

		res, err := TableStep(ctx, d, source, candidate, policy)
		if err != nil {
			return Resolution{}, err
		}
		if res.Outcome != Retry {
			return res, nil
		}
		candidate = res.Target
	}
}

// PathStep applies one operator decision to an existing file path.
func PathStep(ctx context.Context, d Decider, path string, policy PathPolicy) (Resolution, error) {
	switch policy {
	case PathRename:
		name, err := d.FileName(ctx, filepath.Base(path))
		if err != nil {
			return Resolution{}, err
		}
		if name == "" {
			return Resolution{Outcome: Retry, Target: path}, nil
		}
		return Resolution{Outcome: Retry, Target: filepath.Join(filepath.Dir(path), name+CSVExt)}, nil

	case PathReplace:
		return Resolution{Outcome: Accept, Target: path}, nil

	case PathChangeDir:
		dir, err := d.Directory(ctx)
		if err != nil {
			return Resolution{}, err
		}
		if dir == "" {
			return Resolution{Outcome: Retry, Target: path}, nil
		}
		return Resolution{Outcome: Retry, Target: filepath.Join(dir, filepath.Base(path))}, nil

	default:
		return Resolution{Outcome: Abort, Target: path}, nil
	}
}

// ResolvePath settles a destination file path. A path that does not exist is
// accepted; otherwise the operator picks Rename, Replace (no confirmation),
// Change Path, or Skip until a terminal outcome is reached.
func ResolvePath(ctx context.Context, d Decider, path string, exists ExistsFunc) (Resolution, error) {
	candidate := path
	for {
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}

		taken, err := exists(candidate)
		if err != nil {
			return Resolution{}, fmt.Errorf("check path %q: %w", candidate, err)
		}
		if !taken {
			return Resolution{Outcome: Accept, Target: candidate}, nil
		}

		policy, err := d.PathConflict(ctx, candidate)
		if err != nil {
			return Resolution{}, err
		}

		res, err := PathStep(ctx, d, candidate, policy)
		if err != nil {
			return Resolution{}, err
		}
		if res.Outcome != Retry {
			return res, nil
		}
		candidate = res.Target
	}
}
