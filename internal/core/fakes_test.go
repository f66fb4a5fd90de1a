package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// errOperatorGone simulates a closed input stream.
var errOperatorGone = errors.New("operator input closed")

// scriptedDecider answers prompts from queues. An empty queue fails the test
// through errOperatorGone, so unexpected prompts surface as errors.
type scriptedDecider struct {
	tablePolicies []TablePolicy
	tableNames    []string
	confirms      []bool
	pathPolicies  []PathPolicy
	fileNames     []string
	dirs          []string

	calls []string
}

func (d *scriptedDecider) TableConflict(_ context.Context, table string) (TablePolicy, error) {
	d.calls = append(d.calls, "TableConflict:"+table)
	if len(d.tablePolicies) == 0 {
		return TableSkip, errOperatorGone
	}
	p := d.tablePolicies[0]
	d.tablePolicies = d.tablePolicies[1:]
	return p, nil
}

func (d *scriptedDecider) TableName(_ context.Context, source string) (string, error) {
	d.calls = append(d.calls, "TableName:"+source)
	if len(d.tableNames) == 0 {
		return "", errOperatorGone
	}
	n := d.tableNames[0]
	d.tableNames = d.tableNames[1:]
	return n, nil
}

func (d *scriptedDecider) ConfirmReplace(_ context.Context, table string) (bool, error) {
	d.calls = append(d.calls, "ConfirmReplace:"+table)
	if len(d.confirms) == 0 {
		return false, errOperatorGone
	}
	c := d.confirms[0]
	d.confirms = d.confirms[1:]
	return c, nil
}

func (d *scriptedDecider) PathConflict(_ context.Context, path string) (PathPolicy, error) {
	d.calls = append(d.calls, "PathConflict:"+path)
	if len(d.pathPolicies) == 0 {
		return PathSkip, errOperatorGone
	}
	p := d.pathPolicies[0]
	d.pathPolicies = d.pathPolicies[1:]
	return p, nil
}

func (d *scriptedDecider) FileName(_ context.Context, source string) (string, error) {
	d.calls = append(d.calls, "FileName:"+source)
	if len(d.fileNames) == 0 {
		return "", errOperatorGone
	}
	n := d.fileNames[0]
	d.fileNames = d.fileNames[1:]
	return n, nil
}

func (d *scriptedDecider) Directory(_ context.Context) (string, error) {
	d.calls = append(d.calls, "Directory")
	if len(d.dirs) == 0 {
		return "", errOperatorGone
	}
	dir := d.dirs[0]
	d.dirs = d.dirs[1:]
	return dir, nil
}

func (d *scriptedDecider) asked(prefix string) int {
	n := 0
	for _, c := range d.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type writeCall struct {
	name string
	mode WriteMode
	rows int
}

// memStore is an in-memory Store for a single schema.
type memStore struct {
	mu       sync.Mutex
	tables   map[string]*Dataset
	writes   []writeCall
	failOn   map[string]error // table name -> WriteTable error
	existErr error
}

func newMemStore(existing ...string) *memStore {
	s := &memStore{tables: make(map[string]*Dataset), failOn: make(map[string]error)}
	for _, name := range existing {
		s.tables[name] = &Dataset{Columns: []string{"id"}, Rows: [][]string{{"1"}}}
	}
	return s
}

func (s *memStore) TableExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existErr != nil {
		return false, s.existErr
	}
	_, ok := s.tables[name]
	return ok, nil
}

func (s *memStore) WriteTable(_ context.Context, ds *Dataset, name string, mode WriteMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn[name]; err != nil {
		return fmt.Errorf("%w: table %q: %w", ErrWrite, name, err)
	}
	s.writes = append(s.writes, writeCall{name: name, mode: mode, rows: ds.Len()})
	if cur, ok := s.tables[name]; ok && mode == WriteAppend {
		cur.Rows = append(cur.Rows, ds.Rows...)
		return nil
	}
	s.tables[name] = &Dataset{Columns: ds.Columns, Rows: append([][]string(nil), ds.Rows...)}
	return nil
}

func (s *memStore) ReadTable(_ context.Context, name string) (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: table %q does not exist", ErrRead, name)
	}
	return ds, nil
}

func (s *memStore) ListTables(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tables))
	for n := range s.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memStore) SchemaExists(_ context.Context, name string) (bool, error) {
	return name == "public", nil
}
func (s *memStore) CreateSchema(context.Context, string) error { return nil }
func (s *memStore) UseSchema(context.Context, string) error    { return nil }
func (s *memStore) ListSchemas(context.Context) ([]string, error) {
	return []string{"public"}, nil
}
func (s *memStore) CurrentSchema() string { return "public" }
func (s *memStore) Close() error          { return nil }

// memFiles is an in-memory Files collaborator keyed by path.
type memFiles struct {
	files   map[string]*Dataset
	readErr map[string]error
	written []string
}

func newMemFiles() *memFiles {
	return &memFiles{files: make(map[string]*Dataset), readErr: make(map[string]error)}
}

func (f *memFiles) ReadCSV(path string) (*Dataset, error) {
	if err := f.readErr[path]; err != nil {
		return nil, err
	}
	ds, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: open %s: no such file or directory", ErrIO, path)
	}
	return ds, nil
}

func (f *memFiles) WriteCSV(path string, ds *Dataset) error {
	f.files[path] = ds
	f.written = append(f.written, path)
	return nil
}

func (f *memFiles) Exists(path string) bool {
	_, ok := f.files[path]
	return ok
}

func (f *memFiles) ListMatching(dir, ext string) ([]string, error) {
	var out []string
	for p := range f.files {
		if strings.HasPrefix(p, dir) && strings.HasSuffix(p, ext) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func sampleDataset(rows int) *Dataset {
	ds := &Dataset{Columns: []string{"id", "region"}}
	for i := 0; i < rows; i++ {
		ds.Rows = append(ds.Rows, []string{fmt.Sprint(i + 1), "north"})
	}
	return ds
}
