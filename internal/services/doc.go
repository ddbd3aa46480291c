// Package services defines shared utilities consumed by the predict pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs and pipeline steps for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent HTTP outcomes (client error, model failure, timeout).
//
// Use these helpers when wiring new pipeline code so operational behaviour
// (error classification, observability) stays uniform.
package services
