package api

import (
	"context"
	"errors"
	"fmt"

	"respira/internal/config"
	"respira/internal/history"
)

// ErrHistoryDisabled reports that the prediction ledger is turned off.
var ErrHistoryDisabled = errors.New("history is disabled")

type ListHistoryRequest struct {
	Config *config.Config
	Limit  int
}

// ListHistory reads the ledger directly, without a running daemon.
func ListHistory(ctx context.Context, req ListHistoryRequest) ([]HistoryRecord, *HistoryStats, error) {
	cfg := req.Config
	if cfg == nil {
		return nil, nil, fmt.Errorf("configuration is required")
	}
	if !cfg.History.Enabled {
		return nil, nil, ErrHistoryDisabled
	}
	limit := ClampHistoryLimit(req.Limit, cfg.History.DefaultLimit)

	store, err := history.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	records, err := store.Recent(ctx, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("list history: %w", err)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("history stats: %w", err)
	}
	return FromHistoryRecords(records), FromHistoryStats(stats), nil
}

// ClampHistoryLimit applies the default when limit is unset and caps it at
// HistoryMaxLimit.
func ClampHistoryLimit(limit, fallback int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit <= 0 {
		limit = 20
	}
	return min(limit, HistoryMaxLimit)
}
