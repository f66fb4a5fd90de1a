// Package core provides the transfer and conflict-resolution logic for moving
// tables between CSV files and a relational store.
//
// The package has no UI, driver or file-system dependencies. Storage, files
// and operator decisions are reached through the [Store], [Files] and
// [Decider] interfaces, so the same logic runs behind the interactive shell
// and in tests.
//
// # Names
//
// Every table and file name the package derives goes through [Normalize]:
// lowercase, path and extension stripped, separators collapsed to "_", only
// [a-z0-9_] kept, at most [MaxNameLength] characters. A name that normalizes to
// the empty string is rejected with [ErrInvalidName].
//
// # Conflict Resolution
//
// [ResolveTable] and [ResolvePath] settle a destination that may already
// exist. Each operator decision is applied by [TableStep] or [PathStep], which
// return a [Resolution] tagged Accept, Abort or Retry; the loop repeats while
// the tag is Retry:
//
//	res, err := core.ResolveTable(ctx, decider, "sales.csv", "sales", store.TableExists)
//	if res.Outcome == core.Abort {
//	    // operator skipped the item
//	}
//
// # Batches
//
// [Transfer.Upload] and [Transfer.Download] process items one at a time. A
// failing item is recorded in the [BatchReport] and the batch moves on; only a
// failure of the operator channel or a cancelled context ends a batch early.
//
// # Split
//
// [Split] partitions a [Dataset] by row count or by the values of one column
// and writes every chunk through a [ChunkWriter].
//
// # Error Handling
//
// Collaborators wrap causes with one of the error kinds in errors.go.
// [MapError] turns any error into a [UserMessage] with a support code:
//
//   - NAME001, SPLIT001: invalid names and split settings
//   - SCHEMA001-SCHEMA002: schema creation and selection
//   - DB001-DB011: table writes, reads and connections
//   - FILE001-FILE004: file size, format and access
package core
