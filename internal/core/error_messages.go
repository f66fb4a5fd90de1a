// Package core provides the transfer and conflict-resolution logic.
//
// # Error Codes Reference
//
// Operator-facing messages carry a code so a failure can be quoted when asking
// for help. Codes are grouped by category:
//
// # Name and Split Errors
//
//	NAME001 - Invalid name: the name has no letters, digits or underscores
//	          Action: Choose a name containing letters or digits
//	          Kind: ErrInvalidName
//
//	SPLIT001 - Invalid split: the row count is not positive or the column is missing
//	           Action: Enter a positive row count or pick an existing column
//	           Kind: ErrInvalidSplitSpec
//
// # Schema Errors (SCHEMA001-SCHEMA099)
//
//	SCHEMA001 - Schema exists: a schema with this name already exists
//	            Patterns: "already exists" (ErrSchema only)
//
//	SCHEMA002 - Schema operation failed
//	            Kind: ErrSchema
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Column mismatch: the CSV columns do not match the existing table
//	        Patterns: "has no column", "SQLSTATE 42703" (ErrWrite only)
//
//	DB002 - Type mismatch: a value does not fit the existing column type
//	        Patterns: "invalid input syntax", "out of range"
//
//	DB003 - Duplicate column: the CSV header repeats a column name
//	        Patterns: "specified more than once", "duplicate column"
//
//	DB004 - Connection refused: unable to connect to database
//	        Patterns: "connection refused"
//
//	DB005 - Connection reset: database connection was interrupted
//	        Patterns: "connection reset", "broken pipe"
//
//	DB006 - Permission denied
//	        Patterns: "permission denied"
//
//	DB007 - Authentication failed
//	        Patterns: "password authentication failed", "no pg_hba.conf entry"
//
//	DB008 - Write failed / DB009 - Read failed
//	        Kinds: ErrWrite, ErrRead (fallback when no pattern matches)
//
//	DB010 - Database not found
//	        Patterns: "SQLSTATE 3D000"
//
//	DB011 - Table not found
//	        Patterns: "SQLSTATE 42P01", "no such table"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: exceeds the configured size limit
//	          Patterns: "file too large"
//
//	FILE002 - Invalid CSV: malformed file or missing header row
//	          Kind: ErrParse
//
//	FILE003 - File not found
//	          Patterns: "no such file"
//
//	FILE004 - File I/O failed
//	          Kind: ErrIO
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the log for the technical error.
//
// # Matching
//
// Patterns are matched case-insensitively with strings.Contains, first match
// wins, so specific patterns come before general ones. A pattern bound to a
// kind only matches errors of that kind. Error kinds alone are consulted after
// the patterns, as the category fallback.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides operator-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
// When kind is set the error must also wrap it.
type errorPattern struct {
	pattern string
	kind    error
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Files
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks first",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "File not found",
			Action:  "Check the path and try again",
			Code:    "FILE003",
		},
	},

	// =========================================================================
	// Schema
	// =========================================================================
	{
		pattern: "already exists",
		kind:    ErrSchema,
		msg: UserMessage{
			Message: "A schema with this name already exists",
			Action:  "Choose another name or switch to the existing schema",
			Code:    "SCHEMA001",
		},
	},

	// =========================================================================
	// Table shape
	// =========================================================================
	{
		pattern: "specified more than once",
		msg: UserMessage{
			Message: "The CSV header repeats a column name",
			Action:  "Make column names unique and try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "duplicate column",
		msg: UserMessage{
			Message: "The CSV header repeats a column name",
			Action:  "Make column names unique and try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "has no column",
		msg: UserMessage{
			Message: "The CSV columns do not match the existing table",
			Action:  "Use Replace, or rename the columns to match the table",
			Code:    "DB001",
		},
	},
	{
		pattern: "sqlstate 42703", // undefined_column
		kind:    ErrWrite,
		msg: UserMessage{
			Message: "The CSV columns do not match the existing table",
			Action:  "Use Replace, or rename the columns to match the table",
			Code:    "DB001",
		},
	},
	{
		pattern: "sqlstate 42p01", // undefined_table
		msg: UserMessage{
			Message: "The table does not exist",
			Action:  "Choose the table again from the current list",
			Code:    "DB011",
		},
	},
	{
		pattern: "no such table",
		msg: UserMessage{
			Message: "The table does not exist",
			Action:  "Choose the table again from the current list",
			Code:    "DB011",
		},
	},
	{
		pattern: "invalid input syntax",
		msg: UserMessage{
			Message: "A value does not fit the existing column type",
			Action:  "Use Replace to recreate the table from this file",
			Code:    "DB002",
		},
	},
	{
		pattern: "out of range",
		msg: UserMessage{
			Message: "A value does not fit the existing column type",
			Action:  "Use Replace to recreate the table from this file",
			Code:    "DB002",
		},
	},

	// =========================================================================
	// Connection and access
	// =========================================================================
	{
		pattern: "sqlstate 3d000", // invalid_catalog_name
		msg: UserMessage{
			Message: "The database does not exist",
			Action:  "Check the database name and try again",
			Code:    "DB010",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check the host and port, then try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "broken pipe",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "password authentication failed",
		msg: UserMessage{
			Message: "Authentication failed",
			Action:  "Check the username and password",
			Code:    "DB007",
		},
	},
	{
		pattern: "no pg_hba.conf entry",
		msg: UserMessage{
			Message: "Authentication failed",
			Action:  "Check the username and password",
			Code:    "DB007",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "Permission denied",
			Action:  "Ask for access to the schema or choose another location",
			Code:    "DB006",
		},
	},
}

// kindMessages is consulted, in order, when no pattern matches.
var kindMessages = []struct {
	kind error
	msg  UserMessage
}{
	{ErrInvalidName, UserMessage{
		Message: "The name has no letters, digits or underscores",
		Action:  "Choose a name containing letters or digits",
		Code:    "NAME001",
	}},
	{ErrInvalidSplitSpec, UserMessage{
		Message: "The split settings are not valid for this file",
		Action:  "Enter a positive row count or pick an existing column",
		Code:    "SPLIT001",
	}},
	{ErrSchema, UserMessage{
		Message: "The schema operation failed",
		Action:  "Check the schema name and your permissions",
		Code:    "SCHEMA002",
	}},
	{ErrParse, UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure the file is comma-separated with a header row",
		Code:    "FILE002",
	}},
	{ErrIO, UserMessage{
		Message: "The file could not be read or written",
		Action:  "Check the path and permissions",
		Code:    "FILE004",
	}},
	{ErrWrite, UserMessage{
		Message: "Writing the table failed",
		Action:  "Check the log for details and try again",
		Code:    "DB008",
	}},
	{ErrRead, UserMessage{
		Message: "Reading the table failed",
		Action:  "Check the log for details and try again",
		Code:    "DB009",
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the log for details",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator-friendly message.
//
//	err := fmt.Errorf("%w: %w", ErrWrite, errors.New("dial tcp: connection refused"))
//	msg := MapError(err)
//	// msg.Code == "DB004"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if ep.kind != nil && !errors.Is(err, ep.kind) {
			continue
		}
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	for _, km := range kindMessages {
		if errors.Is(err, km.kind) {
			return km.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
