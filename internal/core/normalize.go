package core

import (
	"regexp"
	"strings"
)

// MaxNameLength is the default upper bound for a normalized identifier.
const MaxNameLength = 100

var (
	separatorRun = regexp.MustCompile(`[ \-:.]+`)
	unsafeChars  = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// compressionSuffixes are stripped before a file name is turned into a table name.
var compressionSuffixes = []string{".gz", ".bz2", ".xz", ".zst"}

// Normalize turns arbitrary text into a table or file base name.
// It is NormalizeN with MaxNameLength.
func Normalize(raw string) string {
	return NormalizeN(raw, MaxNameLength)
}

// NormalizeN drops any directory and trailing extension, lowercases, folds runs
// of space, hyphen, colon, or period into one underscore, removes everything
// outside [A-Za-z0-9_], truncates to maxLength, and trims underscores.
//
// An empty result means the input has no usable characters; callers must treat
// it as ErrInvalidName.
//
//	NormalizeN("My Report 2024.csv", 100) == "my_report_2024"
func NormalizeN(raw string, maxLength int) string {
	name := baseName(raw)
	name = trimExt(name)
	name = strings.ToLower(name)
	name = separatorRun.ReplaceAllString(name, "_")
	name = unsafeChars.ReplaceAllString(name, "")
	if maxLength > 0 && len(name) > maxLength {
		name = name[:maxLength]
	}
	return strings.Trim(name, "_")
}

// TableNameFromPath derives a table name from a CSV file path, removing a
// compression suffix first so "sales.csv.gz" becomes "sales".
func TableNameFromPath(path string) string {
	name := baseName(path)
	lower := strings.ToLower(name)
	for _, ext := range compressionSuffixes {
		if strings.HasSuffix(lower, ".csv"+ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	return Normalize(name)
}

// baseName returns the last element of a path written with either separator,
// so Windows-style names typed on another platform are handled the same way.
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

// trimExt removes a trailing extension. Leading dots belong to the name, so
// ".env" and "..." are returned unchanged.
func trimExt(name string) string {
	i := strings.LastIndex(name, ".")
	if i <= 0 || strings.Trim(name[:i], ".") == "" {
		return name
	}
	return name[:i]
}
