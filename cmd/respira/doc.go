// Package main hosts the respira CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon in the foreground, submits an
// image and audio pair to a running daemon, and inspects the local history
// ledger, scratch directories and daemon log. It centralizes configuration resolution and
// server URL discovery so subcommands can focus on output.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
