package core

import (
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Normalize Tests
// =============================================================================

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"report file", "My Report 2024.csv", "my_report_2024"},
		{"directory stripped", "/data/in/Sales-Q1.csv", "sales_q1"},
		{"windows directory stripped", `C:\exports\Sales Q1.csv`, "sales_q1"},
		{"separator runs fold", "a - b :: c..d.csv", "a_b_c_d"},
		{"unsafe characters dropped", "Héllo (wörld)!", "hllo_wrld"},
		{"leading and trailing underscores trimmed", "__x__", "x"},
		{"only last extension removed", "archive.tar.csv", "archive_tar"},
		{"dotfile keeps name", ".env", "env"},
		{"no usable characters", "---.csv", ""},
		{"empty", "", ""},
		{"already normalized", "sales_2024", "sales_2024"},
		{"upper case", "ORDERS", "orders"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"My Report 2024.csv",
		"a - b :: c..d",
		"__x__",
		strings.Repeat("ab cd ", 40),
		"Ünïcode Fïle.CSV",
		"...",
		"x.y.z",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeBound(t *testing.T) {
	long := strings.Repeat("abcdefghij", 30)

	for _, max := range []int{1, 5, 10, 100, 250} {
		got := NormalizeN(long, max)
		assert.LessOrEqual(t, len(got), max)
	}

	// Truncation can expose a separator, which is then trimmed.
	assert.Equal(t, "abcd", NormalizeN("abcd efgh", 5))
	assert.Equal(t, long, NormalizeN(long, 0), "non-positive bound disables truncation")
}

// normalizeHolds checks the properties every normalized name must have.
func normalizeHolds(raw string, maxLength int) bool {
	once := NormalizeN(raw, maxLength)
	if NormalizeN(once, maxLength) != once {
		return false
	}
	if maxLength > 0 && len(once) > maxLength {
		return false
	}
	if strings.HasPrefix(once, "_") || strings.HasSuffix(once, "_") {
		return false
	}
	for _, r := range once {
		if r != '_' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func TestNormalizeProperties(t *testing.T) {
	cfg := &quick.Config{MaxCount: 5000}

	t.Run("default bound", func(t *testing.T) {
		f := func(raw string) bool { return normalizeHolds(raw, MaxNameLength) }
		if err := quick.Check(f, cfg); err != nil {
			t.Error(err)
		}
	})

	t.Run("any bound", func(t *testing.T) {
		f := func(raw string, n uint8) bool { return normalizeHolds(raw, int(n)) }
		if err := quick.Check(f, cfg); err != nil {
			t.Error(err)
		}
	})

	// quick generates mostly non-ASCII runes; bias toward separators and
	// path characters, where the interesting cases are.
	t.Run("separator heavy", func(t *testing.T) {
		const alphabet = "aZ9_ -:./\\"
		f := func(picks []uint8) bool {
			var b strings.Builder
			for _, p := range picks {
				b.WriteByte(alphabet[int(p)%len(alphabet)])
			}
			return normalizeHolds(b.String(), MaxNameLength) && normalizeHolds(b.String(), 3)
		}
		if err := quick.Check(f, cfg); err != nil {
			t.Error(err)
		}
	})
}

func FuzzNormalize(f *testing.F) {
	for _, seed := range []string{"My Report 2024.csv", "a - b :: c..d", "...", `C:\x\y.csv`, "Héllo", ""} {
		f.Add(seed, 100)
	}
	f.Fuzz(func(t *testing.T, raw string, maxLength int) {
		if maxLength > 1000 {
			maxLength = 1000
		}
		if !normalizeHolds(raw, maxLength) {
			t.Errorf("NormalizeN(%q, %d) = %q breaks a name invariant", raw, maxLength, NormalizeN(raw, maxLength))
		}
	})
}

func TestNormalizeOutputAlphabet(t *testing.T) {
	got := Normalize(`Weird/Path\Name -- with: "quotes" & $ymbols.txt`)
	for _, r := range got {
		ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		assert.True(t, ok, "unexpected rune %q in %q", r, got)
	}
	assert.False(t, strings.HasPrefix(got, "_"))
	assert.False(t, strings.HasSuffix(got, "_"))
}

// =============================================================================
// TableNameFromPath Tests
// =============================================================================

func TestTableNameFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/tmp/sales.csv", "sales"},
		{"/tmp/sales.csv.gz", "sales"},
		{"/tmp/Sales.CSV.ZST", "sales"},
		{"/tmp/events.csv.bz2", "events"},
		{"/tmp/events.csv.xz", "events"},
		{"/tmp/notes.gz", "notes"},
		{"/tmp/My Report 2024.csv", "my_report_2024"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, TableNameFromPath(tt.path))
		})
	}
}
