package schema

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex matches plain decimal numbers, optionally in scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// DateLayout is the only layout recognized as a date. Other layouts are
// ambiguous between regions and stay text.
const DateLayout = "2006-01-02"

// InferType classifies a column from its values. Empty values are ignored;
// a column with no values at all is text.
//
// Priority: TEXT > NUMERIC > INTEGER. Booleans and dates only win when every
// non-empty value is of that kind.
func InferType(values []string) FieldType {
	var hasInteger, hasNumeric, hasBool, hasDate bool

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		switch {
		case IsInteger(v):
			hasInteger = true
		case IsNumeric(v):
			hasNumeric = true
		case IsBool(v):
			hasBool = true
		case IsDate(v):
			hasDate = true
		default:
			return FieldText
		}
	}

	numbers := hasInteger || hasNumeric
	switch {
	case hasBool && !numbers && !hasDate:
		return FieldBool
	case hasDate && !numbers && !hasBool:
		return FieldDate
	case hasBool || hasDate:
		return FieldText
	case hasNumeric:
		return FieldNumeric
	case hasInteger:
		return FieldInteger
	default:
		return FieldText
	}
}

// IsInteger reports whether s fits a 64-bit integer. Values with leading
// zeros ("007", "-01") are identifiers, not numbers.
func IsInteger(s string) bool {
	if hasLeadingZero(s) {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// IsNumeric reports whether s is a plain decimal number that fits a
// float64. "1e400" is text.
func IsNumeric(s string) bool {
	if hasLeadingZero(s) || !numericRegex.MatchString(s) {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// IsBool reports whether s is "true" or "false" in any case.
func IsBool(s string) bool {
	_, ok := ParseBool(s)
	return ok
}

// ParseBool parses the values accepted by IsBool.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// IsDate reports whether s is an ISO calendar date.
func IsDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func hasLeadingZero(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}
