package application

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/csvbridge/internal/core"
	"github.com/JonMunkholm/csvbridge/internal/logging"
	"github.com/JonMunkholm/csvbridge/internal/prompt"
)

var splitMethods = []core.SplitStrategy{core.SplitByRowCount, core.SplitByColumnValue}

var splitMethodLabels = []string{"Row Count", "Column Value"}

// split cuts one CSV file into smaller files in a chosen folder. Chunk files
// already in that folder are replaced.
func (a *App) split(ctx context.Context) error {
	found, err := a.chooseFiles(ctx)
	if err != nil || found == nil {
		return err
	}

	file := found[0]
	if len(found) > 1 {
		i, err := a.shell.Choose(ctx, "Select file to split", found, "Cancel")
		if err != nil || i == prompt.Cancel {
			return err
		}
		file = found[i]
	}

	base := core.TableNameFromPath(file)
	if base == "" {
		return fmt.Errorf("%w: %q has no usable characters", core.ErrInvalidName, filepath.Base(file))
	}

	ds, err := a.files.ReadCSV(file)
	if err != nil {
		return err
	}
	a.shell.Printf("\nTotal Rows: %d\n", ds.Len())
	a.shell.Printf("Columns: %s\n", strings.Join(ds.Columns, ", "))

	for {
		spec, ok, err := a.askSplitSpec(ctx, ds)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if spec == nil {
			continue
		}

		dir, err := a.shell.Dir(ctx)
		if err != nil || dir == "" {
			return err
		}

		log := logging.WithFields(ctx, "file", file, "strategy", spec.Strategy.String(), "dir", dir)
		paths, err := core.Split(ctx, ds, dir, base, *spec, a.files)
		if err != nil {
			log.Error("split failed", "written", len(paths), "error", err)
			return fmt.Errorf("split %s: %w", filepath.Base(file), err)
		}

		log.Info("split finished", "chunks", len(paths))
		a.shell.Printf("Split completed successfully: %d files written to '%s'.\n", len(paths), dir)
		return nil
	}
}

// askSplitSpec asks for a method and its value. ok is false when the operator
// cancels the split; a nil spec with ok means "back to the method menu".
func (a *App) askSplitSpec(ctx context.Context, ds *core.Dataset) (*core.SplitSpec, bool, error) {
	i, err := a.shell.Choose(ctx, "Choose a split method", splitMethodLabels, "Cancel")
	if err != nil || i == prompt.Cancel {
		return nil, false, err
	}

	spec := &core.SplitSpec{Strategy: splitMethods[i]}
	switch spec.Strategy {
	case core.SplitByRowCount:
		for {
			raw, err := a.shell.Text(ctx, "Enter row batch size (0 to cancel): ")
			if err != nil {
				return nil, false, err
			}
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				a.shell.Println("Invalid input. Must be a positive integer.")
				continue
			}
			if n == 0 {
				return nil, true, nil
			}
			spec.Rows = n
			return spec, true, nil
		}

	case core.SplitByColumnValue:
		c, err := a.shell.Choose(ctx, "Choose column to split by", ds.Columns, "Cancel")
		if err != nil {
			return nil, false, err
		}
		if c == prompt.Cancel {
			return nil, true, nil
		}
		spec.Column = ds.Columns[c]
	}
	return spec, true, nil
}
