// Package web renders the browser upload form served at the daemon root.
//
// The page posts the image and audio pair to /api/predict and renders the
// returned diagnoses. The template is embedded at build time.
package web
