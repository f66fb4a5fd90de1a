package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvbridge/internal/core"
	"github.com/JonMunkholm/csvbridge/internal/schema"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), t.TempDir(), "main_data")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesDefaultSchema(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := Open(context.Background(), dir, "public")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "public", s.CurrentSchema())
	assert.FileExists(t, filepath.Join(dir, "public.db"))
}

func TestSchemas(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.CreateSchema(ctx, "main_data")
	require.ErrorIs(t, err, core.ErrSchema)
	assert.Equal(t, "SCHEMA001", core.MapError(err).Code)

	require.NoError(t, s.CreateSchema(ctx, "archive"))
	for _, bad := range []string{"", "main", "Temp", "has space", "../escape"} {
		assert.ErrorIs(t, s.CreateSchema(ctx, bad), core.ErrSchema, bad)
	}

	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "notes.txt"), []byte("x"), 0o644))
	names, err := s.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"archive", "main_data"}, names)

	require.ErrorIs(t, s.UseSchema(ctx, "missing"), core.ErrSchema)
	assert.Equal(t, "main_data", s.CurrentSchema(), "failed switch keeps the current schema")

	// Tables are scoped to their schema.
	ds := &core.Dataset{Columns: []string{"id"}, Rows: [][]string{{"1"}}}
	require.NoError(t, s.WriteTable(ctx, ds, "only_here", core.WriteReplace))
	require.NoError(t, s.UseSchema(ctx, "archive"))

	ok, err := s.TableExists(ctx, "only_here")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.UseSchema(ctx, "main_data"))
	ok, err = s.TableExists(ctx, "only_here")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWriteReplaceAndRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ds := &core.Dataset{
		Columns: []string{"id", "Amount", "active", "signed up", "note"},
		Rows: [][]string{
			{"1", "9.25", "true", "2024-01-31", "first"},
			{"2", "", "false", "", ""},
			{"3", "1e2", "TRUE", "2023-06-01", "  padded "},
		},
	}
	require.NoError(t, s.WriteTable(ctx, ds, "sales", core.WriteReplace))

	got, err := s.ReadTable(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, ds.Columns, got.Columns)
	assert.Equal(t, [][]string{
		{"1", "9.25", "true", "2024-01-31", "first"},
		{"2", "", "false", "", ""},
		{"3", "100", "true", "2023-06-01", "  padded "},
	}, got.Rows)

	require.NoError(t, s.WriteTable(ctx, &core.Dataset{Columns: []string{"x"}, Rows: [][]string{{"a"}}}, "sales", core.WriteReplace))
	got, err = s.ReadTable(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got.Columns)
	assert.Equal(t, [][]string{{"a"}}, got.Rows)
}

func TestWriteAppend(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &core.Dataset{Columns: []string{"id", "region"}, Rows: [][]string{{"1", "north"}}}
	require.NoError(t, s.WriteTable(ctx, first, "orders", core.WriteAppend), "append to a missing table creates it")

	more := &core.Dataset{Columns: []string{"id", "region"}, Rows: [][]string{{"2", "south"}, {"3", ""}}}
	require.NoError(t, s.WriteTable(ctx, more, "orders", core.WriteAppend))

	got, err := s.ReadTable(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "north"}, {"2", "south"}, {"3", ""}}, got.Rows)
}

func TestWriteAppendRollsBackOnColumnMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteTable(ctx, &core.Dataset{Columns: []string{"id"}, Rows: [][]string{{"1"}}}, "t", core.WriteReplace))

	bad := &core.Dataset{Columns: []string{"id", "extra"}, Rows: [][]string{{"2", "x"}}}
	err := s.WriteTable(ctx, bad, "t", core.WriteAppend)
	require.ErrorIs(t, err, core.ErrWrite)
	assert.Equal(t, "DB001", core.MapError(err).Code)

	got, err := s.ReadTable(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1"}}, got.Rows)
}

func TestTableExistsIgnoresCase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `CREATE TABLE "main_data"."Sales" (id INTEGER)`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `INSERT INTO "main_data"."Sales" VALUES (1), (2), (3)`)
	require.NoError(t, err)

	for _, name := range []string{"sales", "SALES", "Sales"} {
		ok, err := s.TableExists(ctx, name)
		require.NoError(t, err)
		assert.True(t, ok, "%s resolves to the existing Sales table", name)
	}

	ok, err := s.TableExists(ctx, "sale")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.ReadTable(ctx, "Sales")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Len(), "nothing dropped by the lookup")
}

func TestListTablesAndMissingRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"b_table", "a_table"} {
		require.NoError(t, s.WriteTable(ctx, &core.Dataset{Columns: []string{"c"}}, name, core.WriteReplace))
	}

	names, err := s.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_table", "b_table"}, names)

	_, err = s.ReadTable(ctx, "nope")
	require.ErrorIs(t, err, core.ErrRead)

	err = s.WriteTable(ctx, &core.Dataset{}, "empty", core.WriteReplace)
	require.ErrorIs(t, err, core.ErrWrite)
}

func TestToValue(t *testing.T) {
	tests := []struct {
		name    string
		ft      schema.FieldType
		in      string
		want    any
		wantErr bool
	}{
		{"text keeps spaces", schema.FieldText, " a ", " a ", false},
		{"empty is null", schema.FieldInteger, "  ", nil, false},
		{"integer", schema.FieldInteger, "42", int64(42), false},
		{"bad integer", schema.FieldInteger, "4x", nil, true},
		{"numeric", schema.FieldNumeric, "2.5", 2.5, false},
		{"bool normalized", schema.FieldBool, "TRUE", "true", false},
		{"bad date", schema.FieldDate, "2024-13-01", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toValue(tt.ft, tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
