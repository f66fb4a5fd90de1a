package csvfile

import (
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression identifies a file's compression by its suffix.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGZ
	CompressionBZ2
	CompressionXZ
	CompressionZSTD
)

var compressionExts = []struct {
	ext string
	c   Compression
}{
	{".gz", CompressionGZ},
	{".bz2", CompressionBZ2},
	{".xz", CompressionXZ},
	{".zst", CompressionZSTD},
}

// Extension returns the suffix for c, or "" for CompressionNone.
func (c Compression) Extension() string {
	for _, ce := range compressionExts {
		if ce.c == c {
			return ce.ext
		}
	}
	return ""
}

func (c Compression) String() string {
	if c == CompressionNone {
		return "none"
	}
	return strings.TrimPrefix(c.Extension(), ".")
}

// DetectCompression returns the compression implied by path's suffix.
func DetectCompression(path string) Compression {
	lower := strings.ToLower(path)
	for _, ce := range compressionExts {
		if strings.HasSuffix(lower, ce.ext) {
			return ce.c
		}
	}
	return CompressionNone
}

// newReader wraps r with a decompressor. The returned close func releases the
// decompressor only; r is closed by the caller.
func newReader(r io.Reader, c Compression) (io.Reader, func() error, error) {
	noop := func() error { return nil }

	switch c {
	case CompressionNone:
		return r, noop, nil

	case CompressionGZ:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gz, gz.Close, nil

	case CompressionBZ2:
		return bzip2.NewReader(r), noop, nil

	case CompressionXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("xz reader: %w", err)
		}
		return xr, noop, nil

	case CompressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd reader: %w", err)
		}
		return dec, func() error {
			dec.Close()
			return nil
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported compression %v", c)
	}
}

// newWriter wraps w with a compressor. The close func flushes the compressor
// and must run before w is closed.
func newWriter(w io.Writer, c Compression) (io.Writer, func() error, error) {
	switch c {
	case CompressionNone:
		return w, func() error { return nil }, nil

	case CompressionGZ:
		gz := gzip.NewWriter(w)
		return gz, gz.Close, nil

	case CompressionBZ2:
		return nil, nil, errors.New("bzip2 is read-only")

	case CompressionXZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, nil, fmt.Errorf("xz writer: %w", err)
		}
		return xw, xw.Close, nil

	case CompressionZSTD:
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd writer: %w", err)
		}
		return enc, enc.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported compression %v", c)
	}
}
