// Package preflight provides readiness checks for the inference toolchain
// and filesystem paths that respira depends on.
//
// These checks run in two contexts:
//   - The daemon reports them from GET /api/status and logs failures at start.
//   - The CLI "respira status" command runs them locally and probes the
//     daemon's health endpoint with CheckDaemon.
package preflight
