package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateInference(); err != nil {
		return err
	}
	if err := c.validateScratch(); err != nil {
		return err
	}
	if err := c.validateClient(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind must be host:port: %w", err)
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server.max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) validateInference() error {
	if c.Inference.Command == "" {
		return errors.New("inference.command must be set")
	}
	if c.Inference.TimeoutSeconds < 0 {
		return errors.New("inference.timeout_seconds must not be negative (0 disables the timeout)")
	}
	switch c.Inference.OutputMode {
	case OutputModeScan, OutputModeStdout, OutputModeFile:
	default:
		return fmt.Errorf("inference.output_mode: unsupported value %q (want %q, %q or %q)",
			c.Inference.OutputMode, OutputModeScan, OutputModeStdout, OutputModeFile)
	}
	return nil
}

func (c *Config) validateScratch() error {
	switch c.Scratch.Cleanup {
	case CleanupAlways, CleanupOnFailure, CleanupNever:
	default:
		return fmt.Errorf("scratch.cleanup: unsupported value %q (want %q, %q or %q)",
			c.Scratch.Cleanup, CleanupAlways, CleanupOnFailure, CleanupNever)
	}
	return ensureNonNegativeMap(map[string]int{
		"scratch.max_age_hours":          c.Scratch.MaxAgeHours,
		"scratch.sweep_interval_minutes": c.Scratch.SweepIntervalMinutes,
	})
}

func (c *Config) validateClient() error {
	parsed, err := url.Parse(c.Client.ServerURL)
	if err != nil {
		return fmt.Errorf("client.server_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("client.server_url must use http or https, got %q", c.Client.ServerURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}
