// Package client implements the upload form contract for Go callers.
//
// A Form holds one image and one WAV audio selection and submits them as a
// single multipart POST to a respira daemon. Selections that fail the form's
// checks are rejected without disturbing the previous choice, and only one
// submission may be in flight at a time.
package client
