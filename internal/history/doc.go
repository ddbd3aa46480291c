// Package history persists one metadata row per finished predict request in
// SQLite.
//
// Rows record timing, outcome, HTTP status, the original upload filenames and
// sizes, both diagnoses on success, and the error classification otherwise.
// File contents are never stored. The CLI reads the same database directly, so
// the ledger is usable while the daemon is stopped.
//
// Schema changes bump schemaVersion in schema.go; operators delete history.db
// to adopt a new schema.
package history
