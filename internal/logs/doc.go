// Package logs reads the daemon log file for `respira logs`.
//
// Tail returns the last N lines (optionally only those mentioning a request
// ID) together with the byte offset reached, and can poll for new lines from
// that offset in follow mode. Memory use is bounded by the requested line
// count, not the file size.
package logs
