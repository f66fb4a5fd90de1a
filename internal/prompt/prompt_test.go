package prompt

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// session runs fn in a Shell reading input and returns what was written.
func session(t *testing.T, input string, fn func(ctx context.Context, s *Shell) error) string {
	t.Helper()
	var out bytes.Buffer
	s := New(strings.NewReader(input), &out)
	require.NoError(t, s.Run(context.Background(), func(ctx context.Context) error {
		return fn(ctx, s)
	}))
	return out.String()
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		count   int
		multi   bool
		want    []int
		wantErr string
	}{
		{"single", "2", 3, false, []int{1}, ""},
		{"cancel", "0", 3, false, nil, ""},
		{"spaces", " 3 ", 3, false, []int{2}, ""},
		{"empty", "", 3, false, nil, "no selection made"},
		{"not a number", "two", 3, false, nil, "enter numbers only"},
		{"out of range", "4", 3, false, nil, "selection out of range"},
		{"negative", "-1", 3, false, nil, "selection out of range"},
		{"all only in multi", "4", 3, false, nil, "selection out of range"},
		{"several in single", "1,2", 3, false, nil, "select only one option"},
		{"multi list", "3, 1", 3, true, []int{2, 0}, ""},
		{"multi all", "4", 3, true, []int{0, 1, 2}, ""},
		{"multi cancel", "0", 3, true, nil, ""},
		{"all mixed", "1,4", 3, true, nil, "cannot mix 'All' or 'Cancel' with others"},
		{"cancel mixed", "0,2", 3, true, nil, "cannot mix 'All' or 'Cancel' with others"},
		{"trailing comma", "1,", 3, true, nil, "enter numbers only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelection(tt.raw, tt.count, tt.multi)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChooseReasksUntilValid(t *testing.T) {
	var got int
	text := session(t, "\n9\n2\n", func(ctx context.Context, s *Shell) (err error) {
		got, err = s.Choose(ctx, "Pick", []string{"a", "b"}, "Back")
		return err
	})

	assert.Equal(t, 1, got)
	assert.Contains(t, text, "Pick:\n1. a\n2. b\n0. Back\nSelect: ")
	assert.Contains(t, text, "Invalid selection: no selection made.")
	assert.Contains(t, text, "Invalid selection: selection out of range.")
	assert.NotContains(t, text, "All")
}

func TestChooseCancel(t *testing.T) {
	var got int
	session(t, "0\n", func(ctx context.Context, s *Shell) (err error) {
		got, err = s.Choose(ctx, "Pick", []string{"a"}, "Cancel")
		return err
	})
	assert.Equal(t, Cancel, got)
}

func TestChooseMany(t *testing.T) {
	var got []int
	text := session(t, "3\n", func(ctx context.Context, s *Shell) (err error) {
		got, err = s.ChooseMany(ctx, "Files", []string{"x", "y"}, "Cancel")
		return err
	})
	assert.Equal(t, []int{0, 1}, got)
	assert.Contains(t, text, "3. All\n")
}

func TestClosedInput(t *testing.T) {
	var out bytes.Buffer
	s := New(strings.NewReader(""), &out)
	err := s.Run(context.Background(), func(ctx context.Context) error {
		_, err := s.Choose(ctx, "Pick", []string{"a"}, "Back")
		return err
	})
	assert.ErrorIs(t, err, ErrClosed)

	// A final line without newline is still an answer.
	var got int
	session(t, "1", func(ctx context.Context, s *Shell) (err error) {
		got, err = s.Choose(ctx, "Pick", []string{"a"}, "Back")
		return err
	})
	assert.Equal(t, 0, got)
}

func TestWindowsLineEndings(t *testing.T) {
	var first, second string
	session(t, "north\r\n\r\nsouth\r\n", func(ctx context.Context, s *Shell) (err error) {
		if first, err = s.Text(ctx, "a: "); err != nil {
			return err
		}
		if _, err = s.Text(ctx, "b: "); err != nil {
			return err
		}
		second, err = s.Text(ctx, "c: ")
		return err
	})
	assert.Equal(t, "north", first)
	assert.Equal(t, "south", second, "CRLF ends one line, not two")
}

func TestPromptOutsideSession(t *testing.T) {
	s := New(strings.NewReader("y\n"), &bytes.Buffer{})
	_, err := s.Confirm(context.Background(), "Sure?")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(strings.NewReader("y\n"), &bytes.Buffer{})
	err := s.Run(ctx, func(ctx context.Context) error {
		_, err := s.Confirm(ctx, "Sure?")
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfirm(t *testing.T) {
	var first, second bool
	session(t, "maybe\nYES\nn\n", func(ctx context.Context, s *Shell) (err error) {
		if first, err = s.Confirm(ctx, "Sure?"); err != nil {
			return err
		}
		second, err = s.Confirm(ctx, "Sure?")
		return err
	})
	assert.True(t, first)
	assert.False(t, second)
}

func TestConfirmOrCancel(t *testing.T) {
	var yes, cancelledOK, answeredOK bool
	text := session(t, "0\ny\n", func(ctx context.Context, s *Shell) (err error) {
		if _, cancelledOK, err = s.ConfirmOrCancel(ctx, "Rename each table?"); err != nil {
			return err
		}
		yes, answeredOK, err = s.ConfirmOrCancel(ctx, "Rename each table?")
		return err
	})

	assert.False(t, cancelledOK)
	assert.Contains(t, text, "Rename each table? (y/n, 0 to cancel): ")
	assert.True(t, answeredOK)
	assert.True(t, yes)
}

func TestSecretWithoutTerminal(t *testing.T) {
	var got string
	session(t, "  hunter2 \n", func(ctx context.Context, s *Shell) (err error) {
		got, err = s.Secret(ctx, "Password: ")
		return err
	})
	assert.Equal(t, "hunter2", got)
}

func TestPathAndDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(file, []byte("a\n"), 0o644))
	missing := filepath.Join(dir, "missing")

	var got string
	text := session(t, "\n"+missing+"\n"+file+"\n", func(ctx context.Context, s *Shell) (err error) {
		got, err = s.Path(ctx)
		return err
	})
	assert.Equal(t, file, got)
	assert.Contains(t, text, "Path cannot be empty.")
	assert.Contains(t, text, "'"+missing+"' was not found.")

	session(t, file+"\n"+dir+"\n", func(ctx context.Context, s *Shell) (err error) {
		got, err = s.Dir(ctx)
		return err
	})
	assert.Equal(t, dir, got, "a file is not accepted as a directory")

	session(t, "0\n", func(ctx context.Context, s *Shell) (err error) {
		got, err = s.Dir(ctx)
		return err
	})
	assert.Empty(t, got)
}
