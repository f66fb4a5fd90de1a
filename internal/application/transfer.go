package application

import (
	"context"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/csvbridge/internal/core"
	"github.com/JonMunkholm/csvbridge/internal/logging"
)

func (a *App) newTransfer(ctx context.Context) *core.Transfer {
	t := core.NewTransfer(a.store, a.files, operator{shell: a.shell})
	t.Clock = a.clock
	t.Log = logging.WithFields(ctx, "schema", a.store.CurrentSchema())
	return t
}

// chooseFiles asks for a file or folder until it yields at least one CSV
// file. It returns nil when the operator cancels.
func (a *App) chooseFiles(ctx context.Context) ([]string, error) {
	for {
		path, err := a.shell.Path(ctx)
		if err != nil || path == "" {
			return nil, err
		}

		files, err := a.files.ListMatching(path, core.CSVExt)
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			return files, nil
		}
		a.shell.Println("No files found.")
	}
}

func pick[T any](items []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}

/* ----------------------------------------
	UPLOAD
---------------------------------------- */

func (a *App) upload(ctx context.Context) error {
	found, err := a.chooseFiles(ctx)
	if err != nil || found == nil {
		return err
	}

	plan := core.UploadPlan{Files: found, RenameEach: true}
	for {
		if len(found) > 1 {
			idx, err := a.shell.ChooseMany(ctx, "Select files to upload", found, "Cancel")
			if err != nil || idx == nil {
				return err
			}
			plan.Files = pick(found, idx)
		}

		if len(plan.Files) == 1 {
			break
		}
		rename, ok, err := a.shell.ConfirmOrCancel(ctx, "Rename each table?")
		if err != nil {
			return err
		}
		if ok {
			plan.RenameEach = rename
			break
		}
	}

	t := a.newTransfer(ctx)
	t.OnItem = func(res core.ItemResult) {
		file := filepath.Base(res.Source)
		switch res.Status {
		case core.StatusSucceeded:
			a.shell.Printf("Uploaded '%s' to table '%s' (%s, %d rows).\n", file, res.Destination, res.Mode, res.Rows)
		case core.StatusSkipped:
			a.shell.Printf("Skipping '%s'.\n", file)
		case core.StatusFailed:
			a.shell.Printf("Failed to upload '%s': %s\n", file, core.FormatUserError(res.Err))
		}
	}

	report, err := t.Upload(ctx, plan)
	a.printSummary(report)
	return err
}

/* ----------------------------------------
	DOWNLOAD
---------------------------------------- */

func (a *App) download(ctx context.Context) error {
	tables, err := a.store.ListTables(ctx)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		a.shell.Printf("No tables found in schema '%s'.\n", a.store.CurrentSchema())
		return nil
	}

	idx, err := a.shell.ChooseMany(ctx, "Select table(s) to download", tables, "Cancel")
	if err != nil || idx == nil {
		return err
	}

	plan := core.DownloadPlan{Tables: pick(tables, idx), RenameEach: true}
	if len(plan.Tables) > 1 {
		same, ok, err := a.shell.ConfirmOrCancel(ctx, "Same path for each file?")
		if err != nil || !ok {
			return err
		}
		if same {
			dir, err := a.shell.Dir(ctx)
			if err != nil || dir == "" {
				return err
			}
			plan.SharedDir = dir
		}

		rename, ok, err := a.shell.ConfirmOrCancel(ctx, "Rename each file?")
		if err != nil || !ok {
			return err
		}
		plan.RenameEach = rename
	}

	t := a.newTransfer(ctx)
	t.OnItem = func(res core.ItemResult) {
		switch res.Status {
		case core.StatusSucceeded:
			a.shell.Printf("Downloaded '%s' to '%s' (%d rows).\n", res.Source, res.Destination, res.Rows)
		case core.StatusSkipped:
			a.shell.Printf("Skipping '%s'.\n", res.Source)
		case core.StatusFailed:
			a.shell.Printf("Failed to download '%s': %s\n", res.Source, core.FormatUserError(res.Err))
		}
	}

	report, err := t.Download(ctx, plan)
	a.printSummary(report)
	return err
}

func (a *App) printSummary(r *core.BatchReport) {
	if r == nil || len(r.Items) < 2 {
		return
	}
	a.shell.Printf("Done: %d succeeded, %d failed, %d skipped in %s.\n",
		r.Succeeded(), r.Failed(), r.Skipped(), r.Duration.Round(time.Millisecond))
}
