// Package api defines wire-format types and converters for the HTTP API and
// the CLI. It translates inference results, ledger records and runtime
// checks into transport-friendly DTOs.
//
// # Key Types
//
// PredictResponse / ErrorResponse: the predict endpoint's success and error
// bodies. Prediction fields keep the snake_case names the model emits.
//
// HistoryRecord: one ledger row for GET /api/history and `respira history`.
//
// DaemonStatus: bind address, directories, inference settings, dependency and
// directory checks, and ledger counts.
//
// # Design Notes
//
// Apart from the prediction payload, DTOs use camelCase JSON tags for
// JavaScript consumers. Timestamps use RFC3339 with milliseconds.
package api
