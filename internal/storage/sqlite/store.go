// Package sqlite implements core.Store on a directory of SQLite files.
//
// Each <name>.db file in the directory is one schema. The store keeps a single
// connection whose main database is in memory and attaches the current schema
// file under its own name, so statements read "schema"."table" exactly like
// the PostgreSQL store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JonMunkholm/csvbridge/internal/core"
	"github.com/JonMunkholm/csvbridge/internal/logging"
	"github.com/JonMunkholm/csvbridge/internal/schema"
	"github.com/JonMunkholm/csvbridge/internal/storage"
)

// FileExt is the extension of schema files.
const FileExt = ".db"

// reserved names cannot be attached.
var reserved = map[string]bool{"main": true, "temp": true}

// Store is a core.Store over SQLite schema files.
type Store struct {
	db     *sql.DB
	dir    string
	schema string
}

var _ core.Store = (*Store)(nil)

// Open prepares dir (creating it when needed) and selects defaultSchema,
// creating its file when it does not exist yet.
func Open(ctx context.Context, dir, defaultSchema string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", core.ErrSchema, dir, err)
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// ATTACH is per connection; keep exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db, dir: dir}

	exists, err := s.SchemaExists(ctx, defaultSchema)
	if err != nil {
		db.Close()
		return nil, err
	}
	if !exists {
		if err := s.CreateSchema(ctx, defaultSchema); err != nil {
			db.Close()
			return nil, err
		}
	}
	if err := s.UseSchema(ctx, defaultSchema); err != nil {
		db.Close()
		return nil, err
	}

	logging.FromContext(ctx).Info("opened sqlite store", "dir", dir, "schema", s.schema)
	return s, nil
}

// CurrentSchema returns the attached schema.
func (s *Store) CurrentSchema() string { return s.schema }

// Close closes the connection and with it every attached file.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// Schemas
// =============================================================================

func (s *Store) schemaPath(name string) string {
	return filepath.Join(s.dir, name+FileExt)
}

func checkSchemaName(name string) error {
	if name == "" || reserved[strings.ToLower(name)] || core.Normalize(name) != name {
		return fmt.Errorf("%w: %q is not a valid schema name", core.ErrSchema, name)
	}
	return nil
}

// SchemaExists reports whether the schema file exists.
func (s *Store) SchemaExists(_ context.Context, name string) (bool, error) {
	if checkSchemaName(name) != nil {
		return false, nil
	}
	info, err := os.Stat(s.schemaPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: check %q: %w", core.ErrSchema, name, err)
	}
	return info.Mode().IsRegular(), nil
}

// CreateSchema creates an empty schema file. A zero-length file is a valid
// empty SQLite database.
func (s *Store) CreateSchema(ctx context.Context, name string) error {
	if err := checkSchemaName(name); err != nil {
		return err
	}
	f, err := os.OpenFile(s.schemaPath(name), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: schema %q already exists", core.ErrSchema, name)
	}
	if err != nil {
		return fmt.Errorf("%w: create %q: %w", core.ErrSchema, name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: create %q: %w", core.ErrSchema, name, err)
	}
	logging.FromContext(ctx).Info("schema created", "schema", name)
	return nil
}

// UseSchema detaches the current schema and attaches name.
func (s *Store) UseSchema(ctx context.Context, name string) error {
	if name == s.schema {
		return nil
	}
	ok, err := s.SchemaExists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: schema %q does not exist", core.ErrSchema, name)
	}

	if s.schema != "" {
		if _, err := s.db.ExecContext(ctx, "DETACH DATABASE "+quoteIdent(s.schema)); err != nil {
			return fmt.Errorf("%w: detach %q: %w", core.ErrSchema, s.schema, err)
		}
		s.schema = ""
	}
	if _, err := s.db.ExecContext(ctx, "ATTACH DATABASE ? AS "+quoteIdent(name), s.schemaPath(name)); err != nil {
		return fmt.Errorf("%w: attach %q: %w", core.ErrSchema, name, err)
	}
	s.schema = name
	return nil
}

// ListSchemas returns the schema files in the directory, sorted.
func (s *Store) ListSchemas(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", core.ErrSchema, s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), FileExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if checkSchemaName(name) == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// =============================================================================
// Tables
// =============================================================================

func (s *Store) qualified(table string) string {
	return quoteIdent(s.schema) + "." + quoteIdent(table)
}

// TableExists reports whether name exists in the current schema.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	ok, err := s.tableExists(ctx, s.db, name)
	if err != nil {
		return false, fmt.Errorf("%w: check %q: %w", core.ErrRead, name, err)
	}
	return ok, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// tableExists matches names without regard to case, the way SQLite resolves
// table names in statements.
func (s *Store) tableExists(ctx context.Context, q queryer, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT count(*) FROM "+quoteIdent(s.schema)+".sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE", name,
	).Scan(&n)
	return n > 0, err
}

// ListTables returns the tables of the current schema, sorted.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM "+quoteIdent(s.schema)+".sqlite_master "+
			`WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: list tables in %q: %w", core.ErrRead, s.schema, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: list tables in %q: %w", core.ErrRead, s.schema, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list tables in %q: %w", core.ErrRead, s.schema, err)
	}
	return names, nil
}

// ReadTable returns every row of name with values rendered as text.
func (s *Store) ReadTable(ctx context.Context, name string) (*core.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+s.qualified(name))
	if err != nil {
		return nil, fmt.Errorf("%w: table %q: %w", core.ErrRead, name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: table %q: %w", core.ErrRead, name, err)
	}

	ds := &core.Dataset{Columns: cols}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: table %q: %w", core.ErrRead, name, err)
		}
		ds.Rows = append(ds.Rows, storage.FormatRow(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: table %q: %w", core.ErrRead, name, err)
	}
	return ds, nil
}

// WriteTable writes ds into name in one transaction. WriteReplace recreates
// the table; WriteAppend inserts into an existing table or creates it.
func (s *Store) WriteTable(ctx context.Context, ds *core.Dataset, name string, mode core.WriteMode) error {
	if len(ds.Columns) == 0 {
		return fmt.Errorf("%w: table %q: dataset has no columns", core.ErrWrite, name)
	}

	log := logging.WithFields(ctx, "schema", s.schema, "table", name, "mode", mode.String())
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: table %q: begin: %w", core.ErrWrite, name, err)
	}
	defer tx.Rollback() // No-op if already committed

	create := true
	if mode == core.WriteAppend {
		exists, err := s.tableExists(ctx, tx, name)
		if err != nil {
			return fmt.Errorf("%w: table %q: %w", core.ErrWrite, name, err)
		}
		create = !exists
	} else if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.qualified(name)); err != nil {
		return fmt.Errorf("%w: table %q: drop: %w", core.ErrWrite, name, err)
	}

	var convert func(col int, cell string) (any, error)
	if create {
		specs := schema.Infer(ds)
		if _, err := tx.ExecContext(ctx, createTableSQL(s.qualified(name), specs)); err != nil {
			return fmt.Errorf("%w: table %q: create: %w", core.ErrWrite, name, err)
		}
		convert = func(col int, cell string) (any, error) { return toValue(specs[col].Type, cell) }
	} else {
		convert = func(_ int, cell string) (any, error) { return textParam(cell), nil }
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(s.qualified(name), ds.Columns))
	if err != nil {
		return fmt.Errorf("%w: table %q: %w", core.ErrWrite, name, err)
	}
	defer stmt.Close()

	args := make([]any, len(ds.Columns))
	for i, row := range ds.Rows {
		for j := range ds.Columns {
			var cell string
			if j < len(row) {
				cell = row[j]
			}
			if args[j], err = convert(j, cell); err != nil {
				return fmt.Errorf("%w: table %q: row %d, column %q: %w", core.ErrWrite, name, i+1, ds.Columns[j], err)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("%w: table %q: insert row %d: %w", core.ErrWrite, name, i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: table %q: commit: %w", core.ErrWrite, name, err)
	}

	log.Debug("table written", "rows", ds.Len(), "duration", time.Since(start))
	return nil
}

// =============================================================================
// SQL helpers
// =============================================================================

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlType returns the declared column type. BOOLEAN and DATE keep their text
// values ("true", "2024-01-31") since neither looks numeric.
func sqlType(ft schema.FieldType) string {
	switch ft {
	case schema.FieldInteger:
		return "INTEGER"
	case schema.FieldNumeric:
		return "REAL"
	case schema.FieldBool:
		return "BOOLEAN"
	case schema.FieldDate:
		return "DATE"
	default:
		return "TEXT"
	}
}

func createTableSQL(table string, specs []schema.FieldSpec) string {
	cols := make([]string, len(specs))
	for i, spec := range specs {
		cols[i] = quoteIdent(spec.Name) + " " + sqlType(spec.Type)
	}
	return "CREATE TABLE " + table + " (" + strings.Join(cols, ", ") + ")"
}

func insertSQL(table string, columns []string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quoteIdent(c)
	}
	params := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + params + ")"
}

// toValue converts a CSV value for a column created from inferred types.
func toValue(ft schema.FieldType, s string) (any, error) {
	if ft == schema.FieldText {
		return textParam(s), nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	switch ft {
	case schema.FieldInteger:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", s, err)
		}
		return i, nil
	case schema.FieldNumeric:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric %q: %w", s, err)
		}
		return f, nil
	case schema.FieldBool:
		b, ok := schema.ParseBool(s)
		if !ok {
			return nil, fmt.Errorf("invalid boolean %q", s)
		}
		return strconv.FormatBool(b), nil
	case schema.FieldDate:
		if !schema.IsDate(s) {
			return nil, fmt.Errorf("invalid date %q", s)
		}
		return s, nil
	default:
		return s, nil
	}
}

func textParam(s string) any {
	if s == "" {
		return nil
	}
	return s
}
