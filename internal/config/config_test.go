package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"respira/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("RESPIRA_BIND", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantScratch := filepath.Join(tempHome, ".local", "share", "respira", "scratch")
	if cfg.Paths.ScratchDir != wantScratch {
		t.Fatalf("unexpected scratch dir: got %q want %q", cfg.Paths.ScratchDir, wantScratch)
	}
	wantScript := filepath.Join(tempHome, ".local", "share", "respira", "model", "audioModel.py")
	if cfg.Inference.Script != wantScript {
		t.Fatalf("unexpected script path: got %q want %q", cfg.Inference.Script, wantScript)
	}
	if cfg.Inference.Command != "python" {
		t.Fatalf("expected bare interpreter name to stay unexpanded, got %q", cfg.Inference.Command)
	}
	if cfg.Server.Bind != "127.0.0.1:3000" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Inference.OutputMode != config.OutputModeScan {
		t.Fatalf("unexpected output mode: %q", cfg.Inference.OutputMode)
	}
	if cfg.Scratch.Cleanup != config.CleanupAlways {
		t.Fatalf("unexpected cleanup policy: %q", cfg.Scratch.Cleanup)
	}
	if cfg.InferenceTimeout() != 300*time.Second {
		t.Fatalf("unexpected inference timeout: %s", cfg.InferenceTimeout())
	}
	if cfg.MaxUploadBytes() != 32<<20 {
		t.Fatalf("unexpected upload limit: %d", cfg.MaxUploadBytes())
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.ScratchDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "respira.toml")

	type payload struct {
		Paths struct {
			ScratchDir string `toml:"scratch_dir"`
		} `toml:"paths"`
		Inference struct {
			Command        string   `toml:"command"`
			Args           []string `toml:"args"`
			Script         string   `toml:"script"`
			TimeoutSeconds int      `toml:"timeout_seconds"`
			OutputMode     string   `toml:"output_mode"`
		} `toml:"inference"`
		Scratch struct {
			Cleanup string `toml:"cleanup"`
		} `toml:"scratch"`
	}
	custom := payload{}
	custom.Paths.ScratchDir = filepath.Join(tempDir, "uploads")
	custom.Inference.Command = "/usr/bin/python3"
	custom.Inference.Args = []string{" -u ", ""}
	custom.Inference.Script = filepath.Join(tempDir, "model.py")
	custom.Inference.TimeoutSeconds = 12
	custom.Inference.OutputMode = " STDOUT "
	custom.Scratch.Cleanup = "On_Failure"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.ScratchDir != custom.Paths.ScratchDir {
		t.Fatalf("unexpected scratch dir: %q", cfg.Paths.ScratchDir)
	}
	if cfg.Inference.OutputMode != config.OutputModeStdout {
		t.Fatalf("expected output mode normalized to stdout, got %q", cfg.Inference.OutputMode)
	}
	if cfg.Scratch.Cleanup != config.CleanupOnFailure {
		t.Fatalf("expected cleanup normalized to on_failure, got %q", cfg.Scratch.Cleanup)
	}
	want := []string{"-u", custom.Inference.Script}
	got := cfg.InferenceArgs()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected inference args: got %v want %v", got, want)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("RESPIRA_BIND", "0.0.0.0:8080")
	t.Setenv("RESPIRA_INFERENCE_COMMAND", "python3")
	t.Setenv("RESPIRA_INFERENCE_SCRIPT", "")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Bind != "0.0.0.0:8080" {
		t.Fatalf("expected bind from env, got %q", cfg.Server.Bind)
	}
	if cfg.Inference.Command != "python3" {
		t.Fatalf("expected command from env, got %q", cfg.Inference.Command)
	}
	if cfg.Inference.Script != "" {
		t.Fatalf("expected empty script from env, got %q", cfg.Inference.Script)
	}
	if got := cfg.InferenceArgs(); len(got) != 1 || got[0] != "-u" {
		t.Fatalf("expected script omitted from args, got %v", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"output mode", "[inference]\noutput_mode = \"regex\"\n", "inference.output_mode"},
		{"cleanup", "[scratch]\ncleanup = \"sometimes\"\n", "scratch.cleanup"},
		{"negative timeout", "[inference]\ntimeout_seconds = -1\n", "inference.timeout_seconds"},
		{"bind", "[server]\nbind = \"localhost\"\n", "server.bind"},
		{"upload limit", "[server]\nmax_upload_mb = -5\n", "server.max_upload_mb"},
		{"log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"server url", "[client]\nserver_url = \"ftp://example\"\n", "client.server_url"},
		{"unknown key", "[inference]\ninterpreter = \"python\"\n", "parse config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			t.Setenv("RESPIRA_BIND", "")
			path := filepath.Join(t.TempDir(), "respira.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RESPIRA_BIND", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path, false); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if err := config.CreateSample(path, false); !errors.Is(err, config.ErrConfigExists) {
		t.Fatalf("expected ErrConfigExists, got %v", err)
	}
	if err := config.CreateSample(path, true); err != nil {
		t.Fatalf("CreateSample overwrite returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	defaults := config.Default()
	if cfg.Inference.TimeoutSeconds != defaults.Inference.TimeoutSeconds {
		t.Fatalf("sample timeout %d differs from default %d", cfg.Inference.TimeoutSeconds, defaults.Inference.TimeoutSeconds)
	}
	if cfg.Scratch.Cleanup != defaults.Scratch.Cleanup {
		t.Fatalf("sample cleanup %q differs from default %q", cfg.Scratch.Cleanup, defaults.Scratch.Cleanup)
	}
}
