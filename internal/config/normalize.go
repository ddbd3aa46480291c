package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeServer()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeInference(); err != nil {
		return err
	}
	c.normalizeScratch()
	c.normalizeHistory()
	c.normalizeClient()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeServer() {
	if value, ok := os.LookupEnv("RESPIRA_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Server.Bind = value
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.ScratchDir, err = expandPath(strings.TrimSpace(c.Paths.ScratchDir)); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeInference() error {
	if value, ok := os.LookupEnv("RESPIRA_INFERENCE_COMMAND"); ok && strings.TrimSpace(value) != "" {
		c.Inference.Command = value
	}
	if value, ok := os.LookupEnv("RESPIRA_INFERENCE_SCRIPT"); ok {
		c.Inference.Script = value
	}

	c.Inference.Command = strings.TrimSpace(c.Inference.Command)
	if c.Inference.Command == "" {
		c.Inference.Command = defaultInferenceCommand
	}
	// Bare names are resolved through PATH at exec time.
	if strings.ContainsAny(c.Inference.Command, `/\`) || strings.HasPrefix(c.Inference.Command, "~") {
		expanded, err := expandPath(c.Inference.Command)
		if err != nil {
			return fmt.Errorf("inference.command: %w", err)
		}
		c.Inference.Command = expanded
	}

	c.Inference.Script = strings.TrimSpace(c.Inference.Script)
	if c.Inference.Script != "" {
		expanded, err := expandPath(c.Inference.Script)
		if err != nil {
			return fmt.Errorf("inference.script: %w", err)
		}
		c.Inference.Script = expanded
	}

	args := make([]string, 0, len(c.Inference.Args))
	for _, arg := range c.Inference.Args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Inference.Args = args

	c.Inference.OutputMode = strings.ToLower(strings.TrimSpace(c.Inference.OutputMode))
	if c.Inference.OutputMode == "" {
		c.Inference.OutputMode = defaultOutputMode
	}
	return nil
}

func (c *Config) normalizeScratch() {
	c.Scratch.Cleanup = strings.ToLower(strings.TrimSpace(c.Scratch.Cleanup))
	if c.Scratch.Cleanup == "" {
		c.Scratch.Cleanup = defaultScratchCleanup
	}
}

func (c *Config) normalizeHistory() {
	if c.History.DefaultLimit <= 0 {
		c.History.DefaultLimit = defaultHistoryLimit
	}
}

func (c *Config) normalizeClient() {
	c.Client.ServerURL = strings.TrimRight(strings.TrimSpace(c.Client.ServerURL), "/")
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = defaultServerURL
	}
	if c.Client.TimeoutSeconds <= 0 {
		c.Client.TimeoutSeconds = defaultClientTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
