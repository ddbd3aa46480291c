// Package daemon coordinates the long-running respira process.
//
// It wires configuration, the history ledger, the scratch workspace manager,
// and the inference runner behind a single HTTP server, with flock-based
// locking to prevent multiple instances. The daemon serves the upload page,
// the predict endpoint, and the health, status, and history endpoints, and
// periodically sweeps stale scratch directories.
//
// Keep request orchestration here: result parsing and process management
// live in the inference package, file handling in scratch.
package daemon
