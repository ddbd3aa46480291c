package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"respira/internal/testsupport"
)

func TestRunWritesPIDFileUntilCanceled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModelScript(testsupport.ScriptPrintPrediction))
	cfg.Logging.Format = "json"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, Options{LogLevel: "error"})
	}()

	pidPath := cfg.PIDPath()
	deadline := time.Now().Add(5 * time.Second)
	for {
		data, err := os.ReadFile(pidPath)
		if err == nil {
			if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
				t.Fatalf("unexpected pid file content %q", data)
			}
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("pid file not written: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
	if _, err := os.Lstat(filepath.Join(cfg.Paths.LogDir, "respira.log")); err != nil {
		t.Fatalf("expected respira.log pointer: %v", err)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestEnsureCurrentLogPointerReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "respira-1.log")
	second := filepath.Join(dir, "respira-2.log")
	for _, path := range []string{first, second} {
		testsupport.WriteFile(t, path, []byte("x"))
	}

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	target, err := os.Readlink(filepath.Join(dir, "respira.log"))
	if err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if target != second {
		t.Fatalf("expected pointer to %s, got %s", second, target)
	}
}
