package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jonboulle/clockwork"
)

// UploadPlan is a batch of CSV files to load into tables. RenameEach is the
// batch-level answer to "Rename each table?"; when false, table names are
// derived from the file names.
type UploadPlan struct {
	Files      []string
	RenameEach bool
}

// DownloadPlan is a batch of tables to export. When SharedDir is empty the
// Decider is asked for a directory per table.
type DownloadPlan struct {
	Tables     []string
	SharedDir  string
	RenameEach bool
}

// ItemFunc is called after each batch item is recorded.
type ItemFunc func(ItemResult)

// Transfer runs upload and download batches. Items are processed one at a
// time in order; a failing item is recorded and the batch moves on.
type Transfer struct {
	Store   Store
	Files   Files
	Decider Decider
	Clock   clockwork.Clock
	Log     *slog.Logger

	// OnItem, when set, receives each result as soon as it is known.
	OnItem ItemFunc
}

// NewTransfer creates a Transfer with the real clock and the default logger.
func NewTransfer(store Store, files Files, d Decider) *Transfer {
	return &Transfer{
		Store:   store,
		Files:   files,
		Decider: d,
		Clock:   clockwork.NewRealClock(),
		Log:     slog.Default(),
	}
}

// Upload loads every file of the plan into a table of the current schema.
//
// The returned error is non-nil only when the operator channel fails or ctx is
// cancelled; per-item failures are reported in the BatchReport.
func (t *Transfer) Upload(ctx context.Context, plan UploadPlan) (*BatchReport, error) {
	start := t.clock().Now()
	report := &BatchReport{}

	for _, path := range plan.Files {
		if err := ctx.Err(); err != nil {
			report.Duration = t.clock().Since(start)
			return report, err
		}

		res, err := t.uploadOne(ctx, path, plan.RenameEach)
		if err != nil {
			report.Duration = t.clock().Since(start)
			return report, err
		}
		t.record(report, res)
	}

	report.Duration = t.clock().Since(start)
	t.logger().Info("upload batch finished",
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"skipped", report.Skipped(),
		"duration", report.Duration,
	)
	return report, nil
}

func (t *Transfer) uploadOne(ctx context.Context, path string, rename bool) (ItemResult, error) {
	res := ItemResult{Source: path}
	log := t.logger().With("file", path)

	ds, err := t.Files.ReadCSV(path)
	if err != nil {
		return failed(res, err), nil
	}

	var name string
	if rename {
		name, err = t.Decider.TableName(ctx, filepath.Base(path))
		if err != nil {
			return res, err
		}
		if name == "" {
			return skipped(res), nil
		}
	} else {
		name = TableNameFromPath(path)
		if name == "" {
			return failed(res, fmt.Errorf("%w: %q has no usable characters", ErrInvalidName, filepath.Base(path))), nil
		}
	}

	var checkErr error
	exists := func(candidate string) (bool, error) {
		ok, err := t.Store.TableExists(ctx, candidate)
		if err != nil {
			checkErr = err
		}
		return ok, err
	}
	resolved, err := ResolveTable(ctx, t.Decider, filepath.Base(path), name, exists)
	if err != nil {
		if checkErr != nil {
			return failed(res, err), nil
		}
		return res, err
	}
	if resolved.Outcome == Abort {
		log.Debug("upload skipped", "table", resolved.Target)
		return skipped(res), nil
	}

	res.Destination = resolved.Target
	res.Mode = resolved.Mode
	if err := t.Store.WriteTable(ctx, ds, resolved.Target, resolved.Mode); err != nil {
		return failed(res, err), nil
	}

	res.Status = StatusSucceeded
	res.Rows = ds.Len()
	log.Info("uploaded", "table", res.Destination, "mode", res.Mode.String(), "rows", res.Rows)
	return res, nil
}

// Download exports every table of the plan from the current schema to CSV.
// Error semantics match Upload.
func (t *Transfer) Download(ctx context.Context, plan DownloadPlan) (*BatchReport, error) {
	start := t.clock().Now()
	report := &BatchReport{}

	for _, table := range plan.Tables {
		if err := ctx.Err(); err != nil {
			report.Duration = t.clock().Since(start)
			return report, err
		}

		res, err := t.downloadOne(ctx, table, plan)
		if err != nil {
			report.Duration = t.clock().Since(start)
			return report, err
		}
		t.record(report, res)
	}

	report.Duration = t.clock().Since(start)
	t.logger().Info("download batch finished",
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"skipped", report.Skipped(),
		"duration", report.Duration,
	)
	return report, nil
}

func (t *Transfer) downloadOne(ctx context.Context, table string, plan DownloadPlan) (ItemResult, error) {
	res := ItemResult{Source: table}

	dir := plan.SharedDir
	if dir == "" {
		var err error
		dir, err = t.Decider.Directory(ctx)
		if err != nil {
			return res, err
		}
		if dir == "" {
			return skipped(res), nil
		}
	}

	name := Normalize(table)
	if plan.RenameEach || name == "" {
		var err error
		name, err = t.Decider.FileName(ctx, table)
		if err != nil {
			return res, err
		}
		if name == "" {
			return skipped(res), nil
		}
	}

	exists := func(candidate string) (bool, error) {
		return t.Files.Exists(candidate), nil
	}
	resolved, err := ResolvePath(ctx, t.Decider, filepath.Join(dir, name+CSVExt), exists)
	if err != nil {
		return res, err
	}
	if resolved.Outcome == Abort {
		return skipped(res), nil
	}
	res.Destination = resolved.Target

	ds, err := t.Store.ReadTable(ctx, table)
	if err != nil {
		return failed(res, err), nil
	}
	if err := t.Files.WriteCSV(resolved.Target, ds); err != nil {
		return failed(res, err), nil
	}

	res.Status = StatusSucceeded
	res.Rows = ds.Len()
	t.logger().Info("downloaded", "table", table, "path", res.Destination, "rows", res.Rows)
	return res, nil
}

func (t *Transfer) record(report *BatchReport, res ItemResult) {
	if res.Status == StatusFailed {
		t.logger().Error("transfer item failed", "item", res.Source, "destination", res.Destination, "error", res.Err)
	}
	report.Items = append(report.Items, res)
	if t.OnItem != nil {
		t.OnItem(res)
	}
}

func (t *Transfer) logger() *slog.Logger {
	if t.Log == nil {
		return slog.Default()
	}
	return t.Log
}

func failed(res ItemResult, err error) ItemResult {
	res.Status = StatusFailed
	res.Err = err
	return res
}

func skipped(res ItemResult) ItemResult {
	res.Status = StatusSkipped
	res.Err = ErrConflictAbort
	return res
}

func (t *Transfer) clock() clockwork.Clock {
	if t.Clock == nil {
		return clockwork.NewRealClock()
	}
	return t.Clock
}
