package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"respira/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "model.py")
	if err := os.WriteFile(script, []byte("print('{}')\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckScript(script); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckScript(filepath.Join(dir, "missing.py")); r.Passed {
		t.Fatal("expected failure for missing script")
	}
	if r := CheckScript(dir); r.Passed {
		t.Fatal("expected failure for directory")
	}
}

func TestRunAllCoversDirectoriesAndScript(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Inference.Script = filepath.Join(base, "model.py")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(&cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Inference script" {
		t.Fatalf("expected only the script check to fail, got %#v", failed)
	}

	if RunAll(nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestCheckSystemDeps(t *testing.T) {
	base := t.TempDir()
	script := filepath.Join(base, "model.sh")
	if err := os.WriteFile(script, []byte("exit 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Inference.Command = "/bin/sh"
	cfg.Inference.Script = script

	statuses := CheckSystemDeps(&cfg)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	for _, s := range statuses {
		if !s.Available {
			t.Fatalf("expected %s available: %s", s.Name, s.Detail)
		}
	}

	cfg.Inference.Command = "definitely-not-an-interpreter"
	cfg.Inference.Script = ""
	statuses = CheckSystemDeps(&cfg)
	if len(statuses) != 1 || statuses[0].Available {
		t.Fatalf("expected missing interpreter, got %#v", statuses)
	}
}

func TestCheckDaemon_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	result := CheckDaemon(context.Background(), srv.URL+"/")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckDaemon_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if r := CheckDaemon(context.Background(), srv.URL); r.Passed {
		t.Fatal("expected failure for 503")
	}
	if r := CheckDaemon(context.Background(), ""); r.Passed {
		t.Fatal("expected failure for missing URL")
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	if r := CheckDaemon(context.Background(), url); r.Passed {
		t.Fatal("expected failure for unreachable daemon")
	}
}
