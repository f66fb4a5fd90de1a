package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransfer(store *memStore, files *memFiles, d Decider) *Transfer {
	tr := NewTransfer(store, files, d)
	tr.Clock = clockwork.NewFakeClock()
	tr.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	return tr
}

// =============================================================================
// Upload
// =============================================================================

func TestUploadBatchIsolation(t *testing.T) {
	store := newMemStore()
	store.failOn["b"] = errors.New("disk full")
	files := newMemFiles()
	for _, name := range []string{"a", "b", "c"} {
		files.files["/in/"+name+".csv"] = sampleDataset(2)
	}

	tr := newTestTransfer(store, files, &scriptedDecider{})
	report, err := tr.Upload(context.Background(), UploadPlan{
		Files: []string{"/in/a.csv", "/in/b.csv", "/in/c.csv"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 0, report.Skipped())

	require.Len(t, report.Items, 3)
	assert.Equal(t, StatusFailed, report.Items[1].Status)
	assert.ErrorIs(t, report.Items[1].Err, ErrWrite)
	assert.Equal(t, StatusSucceeded, report.Items[2].Status, "the batch continues after a failure")
}

func TestUploadAppendScenario(t *testing.T) {
	store := newMemStore("sales")
	files := newMemFiles()
	files.files["/in/sales.csv"] = sampleDataset(4)
	d := &scriptedDecider{tablePolicies: []TablePolicy{TableAppend}}

	tr := newTestTransfer(store, files, d)
	report, err := tr.Upload(context.Background(), UploadPlan{Files: []string{"/in/sales.csv"}})
	require.NoError(t, err)

	require.Len(t, store.writes, 1)
	assert.Equal(t, writeCall{name: "sales", mode: WriteAppend, rows: 4}, store.writes[0])
	assert.Zero(t, d.asked("TableName:"), "append never asks for a new name")

	item := report.Items[0]
	assert.Equal(t, StatusSucceeded, item.Status)
	assert.Equal(t, "sales", item.Destination)
	assert.Equal(t, WriteAppend, item.Mode)
	assert.Equal(t, 4, item.Rows)
	assert.Equal(t, 5, store.tables["sales"].Len())
}

func TestUploadNaming(t *testing.T) {
	t.Run("derived from file name", func(t *testing.T) {
		store := newMemStore()
		files := newMemFiles()
		files.files["/in/My Report 2024.csv"] = sampleDataset(1)

		tr := newTestTransfer(store, files, &scriptedDecider{})
		_, err := tr.Upload(context.Background(), UploadPlan{Files: []string{"/in/My Report 2024.csv"}})
		require.NoError(t, err)
		require.Len(t, store.writes, 1)
		assert.Equal(t, writeCall{name: "my_report_2024", mode: WriteReplace, rows: 1}, store.writes[0])
	})

	t.Run("rename each asks per file", func(t *testing.T) {
		store := newMemStore()
		files := newMemFiles()
		files.files["/in/a.csv"] = sampleDataset(1)
		files.files["/in/b.csv"] = sampleDataset(1)
		d := &scriptedDecider{tableNames: []string{"first", "second"}}

		tr := newTestTransfer(store, files, d)
		_, err := tr.Upload(context.Background(), UploadPlan{
			Files:      []string{"/in/a.csv", "/in/b.csv"},
			RenameEach: true,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"TableName:a.csv", "TableName:b.csv"}, d.calls)
		assert.Contains(t, store.tables, "first")
		assert.Contains(t, store.tables, "second")
	})

	t.Run("cancelled rename skips item", func(t *testing.T) {
		store := newMemStore()
		files := newMemFiles()
		files.files["/in/a.csv"] = sampleDataset(1)

		tr := newTestTransfer(store, files, &scriptedDecider{tableNames: []string{""}})
		report, err := tr.Upload(context.Background(), UploadPlan{Files: []string{"/in/a.csv"}, RenameEach: true})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Skipped())
		assert.ErrorIs(t, report.Items[0].Err, ErrConflictAbort)
		assert.Empty(t, store.writes)
	})

	t.Run("unusable file name fails item", func(t *testing.T) {
		store := newMemStore()
		files := newMemFiles()
		files.files["/in/---.csv"] = sampleDataset(1)

		tr := newTestTransfer(store, files, &scriptedDecider{})
		report, err := tr.Upload(context.Background(), UploadPlan{Files: []string{"/in/---.csv"}})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed())
		assert.ErrorIs(t, report.Items[0].Err, ErrInvalidName)
	})
}

func TestUploadSkipNeverWrites(t *testing.T) {
	store := newMemStore("sales")
	files := newMemFiles()
	files.files["/in/sales.csv"] = sampleDataset(3)

	tr := newTestTransfer(store, files, &scriptedDecider{tablePolicies: []TablePolicy{TableSkip}})
	report, err := tr.Upload(context.Background(), UploadPlan{Files: []string{"/in/sales.csv"}})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped())
	assert.Empty(t, store.writes)
	assert.Equal(t, 1, store.tables["sales"].Len(), "existing table untouched")
}

func TestUploadCollaboratorFailures(t *testing.T) {
	t.Run("read failure", func(t *testing.T) {
		files := newMemFiles()
		files.readErr["/in/bad.csv"] = fmt.Errorf("%w: missing header row", ErrParse)

		tr := newTestTransfer(newMemStore(), files, &scriptedDecider{})
		report, err := tr.Upload(context.Background(), UploadPlan{Files: []string{"/in/bad.csv"}})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed())
		assert.ErrorIs(t, report.Items[0].Err, ErrParse)
	})

	t.Run("exists check failure", func(t *testing.T) {
		store := newMemStore()
		store.existErr = errors.New("connection reset")
		files := newMemFiles()
		files.files["/in/a.csv"] = sampleDataset(1)

		tr := newTestTransfer(store, files, &scriptedDecider{})
		report, err := tr.Upload(context.Background(), UploadPlan{Files: []string{"/in/a.csv"}})
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed())
	})
}

func TestUploadOperatorFailureEndsBatch(t *testing.T) {
	store := newMemStore("a")
	files := newMemFiles()
	files.files["/in/a.csv"] = sampleDataset(1)
	files.files["/in/b.csv"] = sampleDataset(1)

	tr := newTestTransfer(store, files, &scriptedDecider{})
	report, err := tr.Upload(context.Background(), UploadPlan{Files: []string{"/in/a.csv", "/in/b.csv"}})
	require.ErrorIs(t, err, errOperatorGone)
	assert.Empty(t, report.Items)
	assert.Empty(t, store.writes)
}

func TestUploadReportsEachItemAndDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	files := newMemFiles()
	files.files["/in/a.csv"] = sampleDataset(1)
	files.files["/in/b.csv"] = sampleDataset(1)

	tr := newTestTransfer(newMemStore(), files, &scriptedDecider{})
	tr.Clock = clock

	var seen []string
	tr.OnItem = func(res ItemResult) {
		seen = append(seen, res.Source)
		clock.Advance(2 * time.Second)
	}

	report, err := tr.Upload(context.Background(), UploadPlan{Files: []string{"/in/a.csv", "/in/b.csv"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/in/a.csv", "/in/b.csv"}, seen)
	assert.Equal(t, 4*time.Second, report.Duration)
}

// =============================================================================
// Download
// =============================================================================

func TestDownloadSharedDirectory(t *testing.T) {
	store := newMemStore("orders", "sales")
	files := newMemFiles()

	tr := newTestTransfer(store, files, &scriptedDecider{})
	report, err := tr.Download(context.Background(), DownloadPlan{
		Tables:    []string{"orders", "sales"},
		SharedDir: "/out",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, []string{
		filepath.Join("/out", "orders.csv"),
		filepath.Join("/out", "sales.csv"),
	}, files.written)
}

func TestDownloadChangePathScenario(t *testing.T) {
	store := newMemStore("sales")
	files := newMemFiles()
	taken := filepath.Join("/out", "sales.csv")
	files.files[taken] = sampleDataset(9)
	d := &scriptedDecider{
		pathPolicies: []PathPolicy{PathChangeDir},
		dirs:         []string{"/archive"},
	}

	tr := newTestTransfer(store, files, d)
	report, err := tr.Download(context.Background(), DownloadPlan{Tables: []string{"sales"}, SharedDir: "/out"})
	require.NoError(t, err)

	want := filepath.Join("/archive", "sales.csv")
	assert.Equal(t, want, report.Items[0].Destination)
	assert.Equal(t, []string{want}, files.written)
	assert.Equal(t, 9, files.files[taken].Len(), "original file untouched")
}

func TestDownloadPerItemDirectoryAndRename(t *testing.T) {
	store := newMemStore("orders", "sales")
	files := newMemFiles()
	d := &scriptedDecider{
		dirs:      []string{"/a", ""},
		fileNames: []string{"orders_export"},
	}

	tr := newTestTransfer(store, files, d)
	report, err := tr.Download(context.Background(), DownloadPlan{
		Tables:     []string{"orders", "sales"},
		RenameEach: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded())
	assert.Equal(t, 1, report.Skipped(), "cancelled directory skips the item")
	assert.Equal(t, []string{filepath.Join("/a", "orders_export.csv")}, files.written)
}

func TestDownloadReadFailureContinues(t *testing.T) {
	store := newMemStore("sales")
	files := newMemFiles()

	tr := newTestTransfer(store, files, &scriptedDecider{})
	report, err := tr.Download(context.Background(), DownloadPlan{
		Tables:    []string{"missing", "sales"},
		SharedDir: "/out",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed())
	assert.ErrorIs(t, report.Items[0].Err, ErrRead)
	assert.Equal(t, StatusSucceeded, report.Items[1].Status)
}

func TestDownloadCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := newTestTransfer(newMemStore("a"), newMemFiles(), &scriptedDecider{})
	report, err := tr.Download(ctx, DownloadPlan{Tables: []string{"a"}, SharedDir: "/out"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Items)
}
