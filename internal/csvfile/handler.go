// Package csvfile reads and writes the CSV files a transfer moves in and out
// of the database. Files ending in .gz, .bz2, .xz or .zst are decompressed
// on read; .gz, .xz and .zst are compressed on write.
package csvfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/csvbridge/internal/core"
)

// DefaultMaxFileSize is used when Handler.MaxFileSize is zero.
const DefaultMaxFileSize int64 = 100 << 20

// Handler implements core.Files on the local filesystem.
type Handler struct {
	// MaxFileSize bounds both the file on disk and its decompressed content.
	// Negative disables the limit.
	MaxFileSize int64
}

var (
	_ core.Files       = (*Handler)(nil)
	_ core.ChunkWriter = (*Handler)(nil)
)

// New creates a Handler with the given size limit.
func New(maxFileSize int64) *Handler {
	return &Handler{MaxFileSize: maxFileSize}
}

func (h *Handler) limit() int64 {
	if h.MaxFileSize == 0 {
		return DefaultMaxFileSize
	}
	return h.MaxFileSize
}

// ReadCSV loads path into a Dataset. The first record is the header; blank
// header cells become unnamed_<index>. Short rows are padded with empty
// values and rows wider than the header are a parse error.
func (h *Handler) ReadCSV(path string) (*core.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIO, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", core.ErrIO, path)
	}
	if limit := h.limit(); limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%w: %s: %w: %d bytes, limit %d", core.ErrIO, path, errTooLarge, info.Size(), limit)
	}

	r, closeReader, err := newReader(f, DetectCompression(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrParse, path, err)
	}
	defer closeReader()

	data, err := readLimited(r, h.limit())
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return nil, fmt.Errorf("%w: %s: %w", core.ErrIO, path, err)
		}
		return nil, fmt.Errorf("%w: %s: %w", core.ErrParse, path, err)
	}

	ds, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrParse, path, err)
	}
	return ds, nil
}

func parse(data []byte) (*core.Dataset, error) {
	r := csv.NewReader(bytes.NewReader(cleanText(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, err
	}

	ds := &core.Dataset{Columns: make([]string, len(header))}
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			name = "unnamed_" + strconv.Itoa(i)
		}
		ds.Columns[i] = name
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) > len(header) {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, found %d", line, len(header), len(rec))
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		ds.Rows = append(ds.Rows, rec)
	}
	return ds, nil
}

// WriteCSV writes ds to path, header first, replacing any existing file.
// The content is compressed when path ends in .gz, .xz or .zst.
func (h *Handler) WriteCSV(path string, ds *core.Dataset) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrIO, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", core.ErrIO, cerr)
		}
	}()

	w, closeWriter, err := newWriter(f, DetectCompression(path))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrIO, path, err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrIO, path, err)
	}
	if err := cw.WriteAll(ds.Rows); err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrIO, path, err)
	}
	if err := closeWriter(); err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrIO, path, err)
	}
	return nil
}

// Exists reports whether path is an existing regular file.
func (h *Handler) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ListMatching returns dirOrFile itself when it is a matching file, or the
// matching files directly inside it when it is a directory, sorted by name.
// ext is compared case-insensitively and also matches compressed variants
// such as ".csv.gz". A missing path yields no files.
func (h *Handler) ListMatching(dirOrFile, ext string) ([]string, error) {
	info, err := os.Stat(dirOrFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIO, err)
	}

	if info.Mode().IsRegular() {
		if Matches(dirOrFile, ext) {
			return []string{dirOrFile}, nil
		}
		return nil, nil
	}
	if !info.IsDir() {
		return nil, nil
	}

	entries, err := os.ReadDir(dirOrFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIO, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !Matches(e.Name(), ext) {
			continue
		}
		p := filepath.Join(dirOrFile, e.Name())
		if h.Exists(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Matches reports whether name ends in ext, optionally followed by a
// compression suffix.
func Matches(name, ext string) bool {
	lower := strings.ToLower(name)
	ext = strings.ToLower(ext)
	if strings.HasSuffix(lower, ext) {
		return true
	}
	for _, ce := range compressionExts {
		if strings.HasSuffix(lower, ext+ce.ext) {
			return true
		}
	}
	return false
}
