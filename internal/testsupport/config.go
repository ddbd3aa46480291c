package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"respira/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The inference command defaults to /bin/sh with no script, so tests pick a
// model stub with WithModelScript.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Inference.Command = "/bin/sh"
	cfgVal.Inference.Args = nil
	cfgVal.Inference.Script = ""
	cfgVal.Inference.TimeoutSeconds = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithModelScript writes body as a shell script and configures it as the
// inference script run by /bin/sh.
func WithModelScript(body string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "model.sh")
		if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
			b.t.Fatalf("write model stub: %v", err)
		}
		b.cfg.Inference.Command = "/bin/sh"
		b.cfg.Inference.Script = path
	}
}

// WithOutputMode sets inference.output_mode.
func WithOutputMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Inference.OutputMode = mode
	}
}

// WithTimeout sets inference.timeout_seconds.
func WithTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Inference.TimeoutSeconds = seconds
	}
}

// WithCleanup sets scratch.cleanup.
func WithCleanup(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scratch.Cleanup = policy
	}
}

// WithHistory toggles the prediction ledger.
func WithHistory(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = enabled
	}
}

// WithMediaValidation toggles upload content sniffing.
func WithMediaValidation(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.ValidateMedia = enabled
	}
}

// WithMaxUploadMB sets server.max_upload_mb.
func WithMaxUploadMB(mb int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.MaxUploadMB = mb
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
