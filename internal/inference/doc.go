// Package inference runs the external model process for one uploaded pair and
// turns its output into a Prediction.
//
// The Runner launches the configured command with the audio and image paths
// as the final two arguments, streams stdout line by line, keeps a bounded
// tail of stderr, and enforces the configured timeout by killing the whole
// process group. How the JSON result is located depends on the output mode:
// scanned out of noisy stdout, read as the whole of stdout, or read from a
// result file the process writes.
//
// Errors are tagged with the markers from internal/services so the HTTP layer
// can map them to status codes without inspecting strings.
package inference
