package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCleanScratchDirectoriesNotConfigured(t *testing.T) {
	result, err := CleanScratchDirectories(context.Background(), CleanScratchRequest{})
	if err != nil {
		t.Fatalf("CleanScratchDirectories: %v", err)
	}
	if result.Configured {
		t.Fatal("Configured = true, want false")
	}
}

func TestCleanScratchDirectoriesCleanAll(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "fresh"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	result, err := CleanScratchDirectories(context.Background(), CleanScratchRequest{
		ScratchDir: dir,
		CleanAll:   true,
	})
	if err != nil {
		t.Fatalf("CleanScratchDirectories: %v", err)
	}
	if !result.Configured {
		t.Fatal("Configured = false, want true")
	}
	if len(result.Cleanup.Removed) != 1 {
		t.Fatalf("removed = %d, want 1", len(result.Cleanup.Removed))
	}
}

func TestCleanScratchDirectoriesByAge(t *testing.T) {
	dir := t.TempDir()
	oldDir := filepath.Join(dir, "old")
	freshDir := filepath.Join(dir, "fresh")
	for _, d := range []string{oldDir, freshDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldDir, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result, err := CleanScratchDirectories(context.Background(), CleanScratchRequest{
		ScratchDir: dir,
		MaxAge:     24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("CleanScratchDirectories: %v", err)
	}
	if len(result.Cleanup.Removed) != 1 || result.Cleanup.Removed[0] != oldDir {
		t.Fatalf("unexpected removals: %v", result.Cleanup.Removed)
	}
	if _, err := os.Stat(freshDir); err != nil {
		t.Fatalf("fresh dir should remain: %v", err)
	}

	listed, err := ListScratchDirectories(dir)
	if err != nil {
		t.Fatalf("ListScratchDirectories: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "fresh" || listed[0].ModTime == "" {
		t.Fatalf("unexpected listing: %#v", listed)
	}
}
