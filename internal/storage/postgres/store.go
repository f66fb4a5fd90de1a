// Package postgres implements core.Store on a PostgreSQL database through a
// pgx connection pool.
//
// Every statement is schema-qualified with the store's current schema, so the
// connection search_path is never changed. Replacing a table drops it,
// recreates it with inferred column types and loads it with COPY, all in one
// transaction. Appending to an existing table uses batched INSERTs with text
// parameters so the server converts values to whatever the columns are.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/csvbridge/internal/config"
	"github.com/JonMunkholm/csvbridge/internal/core"
	"github.com/JonMunkholm/csvbridge/internal/logging"
	"github.com/JonMunkholm/csvbridge/internal/schema"
	"github.com/JonMunkholm/csvbridge/internal/storage"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Options tunes the pool and the write path.
type Options struct {
	Schema          string
	BatchSize       int
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// OptionsFromConfig maps the application configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Schema:          cfg.Database.Schema,
		BatchSize:       cfg.Transfer.BatchSize,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	}
}

// Store is a core.Store backed by a pgx pool. It is not safe for concurrent
// schema changes; the shell drives it from one goroutine.
type Store struct {
	pool      *pgxpool.Pool
	schema    string
	batchSize int
}

var _ core.Store = (*Store)(nil)

// Connect opens a pool for dsn, verifies it with a ping and selects
// opts.Schema. When that schema does not exist the connection's default
// schema is used instead.
func Connect(ctx context.Context, dsn string, opts Options) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	poolConfig.MinConns = opts.MinConns
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}

	s := New(pool, opts.BatchSize)
	if err := s.selectInitialSchema(ctx, opts.Schema); err != nil {
		pool.Close()
		return nil, err
	}

	logging.FromContext(ctx).Info("connected to database",
		"database", poolConfig.ConnConfig.Database,
		"host", poolConfig.ConnConfig.Host,
		"schema", s.schema,
	)
	return s, nil
}

// New wraps an existing pool. The schema starts empty; call UseSchema.
func New(pool *pgxpool.Pool, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Store{pool: pool, batchSize: batchSize}
}

func (s *Store) selectInitialSchema(ctx context.Context, want string) error {
	if want != "" {
		ok, err := s.SchemaExists(ctx, want)
		if err != nil {
			return err
		}
		if ok {
			s.schema = want
			return nil
		}
		logging.FromContext(ctx).Warn("configured schema not found, using default", "schema", want)
	}

	var current string
	if err := s.pool.QueryRow(ctx, "SELECT current_schema()").Scan(&current); err != nil {
		return fmt.Errorf("%w: current schema: %w", core.ErrSchema, err)
	}
	s.schema = current
	return nil
}

// CurrentSchema returns the schema all table operations use.
func (s *Store) CurrentSchema() string { return s.schema }

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// =============================================================================
// Schemas
// =============================================================================

const listSchemasSQL = `
SELECT nspname
FROM pg_catalog.pg_namespace
WHERE nspname NOT LIKE 'pg\_%' AND nspname <> 'information_schema'
ORDER BY nspname`

// SchemaExists reports whether a schema named name exists.
func (s *Store) SchemaExists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_namespace WHERE nspname = $1)`, name,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("%w: check %q: %w", core.ErrSchema, name, err)
	}
	return ok, nil
}

// CreateSchema creates a new schema. It fails if the schema exists.
func (s *Store) CreateSchema(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("%w: create %q: %w", core.ErrSchema, name, err)
	}
	logging.FromContext(ctx).Info("schema created", "schema", name)
	return nil
}

// UseSchema makes name the current schema after checking it exists.
func (s *Store) UseSchema(ctx context.Context, name string) error {
	ok, err := s.SchemaExists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: schema %q does not exist", core.ErrSchema, name)
	}
	s.schema = name
	return nil
}

// ListSchemas returns the user schemas, sorted.
func (s *Store) ListSchemas(ctx context.Context) ([]string, error) {
	names, err := queryStrings(ctx, s.pool, listSchemasSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", core.ErrSchema, err)
	}
	return names, nil
}

// =============================================================================
// Tables
// =============================================================================

// TableExists reports whether name exists in the current schema.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	ok, err := tableExists(ctx, s.pool, s.schema, name)
	if err != nil {
		return false, fmt.Errorf("%w: check %q: %w", core.ErrRead, name, err)
	}
	return ok, nil
}

// ListTables returns the base tables of the current schema, sorted.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	names, err := queryStrings(ctx, s.pool, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, s.schema)
	if err != nil {
		return nil, fmt.Errorf("%w: list tables in %q: %w", core.ErrRead, s.schema, err)
	}
	return names, nil
}

// ReadTable returns every row of name with values rendered as text.
func (s *Store) ReadTable(ctx context.Context, name string) (*core.Dataset, error) {
	rows, err := s.pool.Query(ctx, "SELECT * FROM "+s.ident(name).Sanitize())
	if err != nil {
		return nil, fmt.Errorf("%w: table %q: %w", core.ErrRead, name, err)
	}
	defer rows.Close()

	ds := &core.Dataset{}
	for _, fd := range rows.FieldDescriptions() {
		ds.Columns = append(ds.Columns, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("%w: table %q: %w", core.ErrRead, name, err)
		}
		ds.Rows = append(ds.Rows, storage.FormatRow(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: table %q: %w", core.ErrRead, name, err)
	}
	return ds, nil
}

// WriteTable writes ds into name. WriteReplace recreates the table from ds;
// WriteAppend adds the rows to an existing table, or creates it when missing.
// Either way the write is a single transaction.
func (s *Store) WriteTable(ctx context.Context, ds *core.Dataset, name string, mode core.WriteMode) error {
	if len(ds.Columns) == 0 {
		return fmt.Errorf("%w: table %q: dataset has no columns", core.ErrWrite, name)
	}

	log := logging.WithFields(ctx, "schema", s.schema, "table", name, "mode", mode.String())
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: table %q: begin: %w", core.ErrWrite, name, err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	var n int64
	switch mode {
	case core.WriteAppend:
		exists, err := tableExists(ctx, tx, s.schema, name)
		if err != nil {
			return fmt.Errorf("%w: table %q: %w", core.ErrWrite, name, err)
		}
		if exists {
			n, err = s.insertBatches(ctx, tx, ds, name)
		} else {
			n, err = s.createAndCopy(ctx, tx, ds, name)
		}
		if err != nil {
			return fmt.Errorf("%w: table %q: %w", core.ErrWrite, name, err)
		}
	default:
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+s.ident(name).Sanitize()); err != nil {
			return fmt.Errorf("%w: table %q: drop: %w", core.ErrWrite, name, err)
		}
		if n, err = s.createAndCopy(ctx, tx, ds, name); err != nil {
			return fmt.Errorf("%w: table %q: %w", core.ErrWrite, name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: table %q: commit: %w", core.ErrWrite, name, err)
	}

	log.Debug("table written", "rows", n, "duration", time.Since(start))
	return nil
}

// createAndCopy creates name with inferred column types and loads ds with COPY.
func (s *Store) createAndCopy(ctx context.Context, tx pgx.Tx, ds *core.Dataset, name string) (int64, error) {
	specs := schema.Infer(ds)

	if _, err := tx.Exec(ctx, createTableSQL(s.ident(name), specs)); err != nil {
		return 0, fmt.Errorf("create: %w", err)
	}

	rows := make([][]any, 0, ds.Len())
	for i, row := range ds.Rows {
		values := make([]any, len(specs))
		for j, spec := range specs {
			var cell string
			if j < len(row) {
				cell = row[j]
			}
			v, err := ToPgValue(spec.Type, cell)
			if err != nil {
				return 0, fmt.Errorf("row %d, column %q: %w", i+1, spec.Name, err)
			}
			values[j] = v
		}
		rows = append(rows, values)
	}

	n, err := tx.CopyFrom(ctx, s.ident(name), ds.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy: %w", err)
	}
	return n, nil
}

// insertBatches appends ds to an existing table in batches of s.batchSize.
func (s *Store) insertBatches(ctx context.Context, tx pgx.Tx, ds *core.Dataset, name string) (int64, error) {
	query := insertSQL(s.ident(name), ds.Columns)

	var total int64
	for start := 0; start < ds.Len(); start += s.batchSize {
		end := min(start+s.batchSize, ds.Len())

		batch := &pgx.Batch{}
		for _, row := range ds.Rows[start:end] {
			args := make([]any, len(ds.Columns))
			for j := range ds.Columns {
				var cell string
				if j < len(row) {
					cell = row[j]
				}
				args[j] = textParam(cell)
			}
			batch.Queue(query, args...)
		}

		br := tx.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return total, fmt.Errorf("insert row %d: %w", i+1, err)
			}
			total++
		}
		if err := br.Close(); err != nil {
			return total, fmt.Errorf("insert: %w", err)
		}
	}
	return total, nil
}

func (s *Store) ident(table string) pgx.Identifier {
	return pgx.Identifier{s.schema, table}
}

// =============================================================================
// SQL helpers
// =============================================================================

func createTableSQL(table pgx.Identifier, specs []schema.FieldSpec) string {
	cols := make([]string, len(specs))
	for i, spec := range specs {
		cols[i] = pgx.Identifier{spec.Name}.Sanitize() + " " + sqlType(spec.Type)
	}
	return "CREATE TABLE " + table.Sanitize() + " (" + strings.Join(cols, ", ") + ")"
}

func insertSQL(table pgx.Identifier, columns []string) string {
	cols := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return "INSERT INTO " + table.Sanitize() + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(params, ", ") + ")"
}

func tableExists(ctx context.Context, db DBTX, schemaName, table string) (bool, error) {
	var ok bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)`, schemaName, table,
	).Scan(&ok)
	return ok, err
}

func queryStrings(ctx context.Context, db DBTX, query string, args ...any) ([]string, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
