package api

import (
	"context"
	"strings"
	"time"

	"respira/internal/scratch"
)

type CleanScratchRequest struct {
	ScratchDir string
	// MaxAge selects directories older than this; ignored when CleanAll is set.
	MaxAge   time.Duration
	CleanAll bool
}

type CleanScratchResult struct {
	Configured bool
	Scope      string
	Cleanup    scratch.CleanStaleResult
}

// CleanScratchDirectories applies scratch cleanup policy used by CLI commands.
func CleanScratchDirectories(ctx context.Context, req CleanScratchRequest) (CleanScratchResult, error) {
	scratchDir := strings.TrimSpace(req.ScratchDir)
	if scratchDir == "" {
		return CleanScratchResult{Configured: false}, nil
	}

	if req.CleanAll {
		return CleanScratchResult{
			Configured: true,
			Scope:      "all request directories",
			Cleanup:    scratch.CleanStale(ctx, scratchDir, 0, nil),
		}, nil
	}
	return CleanScratchResult{
		Configured: true,
		Scope:      "request directories older than " + req.MaxAge.String(),
		Cleanup:    scratch.CleanStale(ctx, scratchDir, req.MaxAge, nil),
	}, nil
}

// ScratchDirectory describes one request directory for listings.
type ScratchDirectory struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	ModTime string `json:"modTime"`
	Size    int64  `json:"size"`
	Files   int    `json:"files"`
}

// ListScratchDirectories returns request directories under scratchDir, oldest first.
func ListScratchDirectories(scratchDir string) ([]ScratchDirectory, error) {
	dirs, err := scratch.ListDirectories(scratchDir)
	if err != nil {
		return nil, err
	}
	out := make([]ScratchDirectory, 0, len(dirs))
	for _, dir := range dirs {
		out = append(out, ScratchDirectory{
			Name:    dir.Name,
			Path:    dir.Path,
			ModTime: formatTime(dir.ModTime),
			Size:    dir.Size,
			Files:   dir.Files,
		})
	}
	return out, nil
}
