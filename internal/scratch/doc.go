// Package scratch owns the per-request upload directories.
//
// Every predict request gets a directory under the configured scratch root
// named by its request ID. Uploaded parts are stored there under fixed base
// names ("image", "audio") with an extension taken from the normalized client
// filename, so client input never chooses a path. Finish applies the cleanup
// policy; CleanStale and ListDirectories support the periodic sweep and the
// CLI's scratch commands.
package scratch
