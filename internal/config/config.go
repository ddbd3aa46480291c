package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains HTTP listener settings.
type Server struct {
	Bind              string `toml:"bind"`
	MaxUploadMB       int    `toml:"max_upload_mb"`
	ReadHeaderTimeout int    `toml:"read_header_timeout"`
	ShutdownTimeout   int    `toml:"shutdown_timeout"`
}

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
}

// Inference describes how the external inference process is invoked.
type Inference struct {
	// Command is the interpreter or executable to launch (e.g. "python").
	Command string `toml:"command"`
	// Args are passed before the script path.
	Args []string `toml:"args"`
	// Script is the inference program handed to Command. Leave empty when
	// Command is itself the inference executable.
	Script         string `toml:"script"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// OutputMode selects how the prediction is read: "scan", "stdout" or "file".
	OutputMode string `toml:"output_mode"`
}

// Upload contains server-side upload checks.
type Upload struct {
	ValidateMedia bool `toml:"validate_media"`
}

// Scratch contains the per-request upload directory policy.
type Scratch struct {
	Cleanup              string `toml:"cleanup"`
	MaxAgeHours          int    `toml:"max_age_hours"`
	SweepIntervalMinutes int    `toml:"sweep_interval_minutes"`
}

// History contains prediction ledger settings.
type History struct {
	Enabled      bool `toml:"enabled"`
	DefaultLimit int  `toml:"default_limit"`
}

// Client contains settings used by the CLI when talking to a daemon.
type Client struct {
	ServerURL      string `toml:"server_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for respira.
//
// Configuration sections by subsystem:
//   - Server: listener address and request limits
//   - Paths: data, scratch and log directories
//   - Inference: external model process invocation and output contract
//   - Upload: server-side media checks
//   - Scratch: cleanup policy for per-request upload directories
//   - History: SQLite prediction ledger
//   - Client: defaults for the predict command
//   - Logging: log format, level, and retention
type Config struct {
	Server    Server    `toml:"server"`
	Paths     Paths     `toml:"paths"`
	Inference Inference `toml:"inference"`
	Upload    Upload    `toml:"upload"`
	Scratch   Scratch   `toml:"scratch"`
	History   History   `toml:"history"`
	Client    Client    `toml:"client"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/respira/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("respira.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ScratchDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryDBPath returns the SQLite ledger location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// CurrentLogName is the link in the log directory pointing at the running
// daemon's log file.
const CurrentLogName = "respira.log"

// CurrentLogPath returns the location of the current daemon log link.
func (c *Config) CurrentLogPath() string {
	return filepath.Join(c.Paths.LogDir, CurrentLogName)
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "respira.lock")
}

// PIDPath returns the daemon PID file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "respira.pid")
}

// InferenceTimeout returns the per-request inference deadline. Zero disables it.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.TimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the request body limit for the predict endpoint.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// ScratchMaxAge returns the age after which scratch directories are swept.
func (c *Config) ScratchMaxAge() time.Duration {
	return time.Duration(c.Scratch.MaxAgeHours) * time.Hour
}

// InferenceArgs returns the arguments placed before the audio and image paths.
func (c *Config) InferenceArgs() []string {
	args := make([]string, 0, len(c.Inference.Args)+1)
	args = append(args, c.Inference.Args...)
	if c.Inference.Script != "" {
		args = append(args, c.Inference.Script)
	}
	return args
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// ErrConfigExists reports that CreateSample refused to replace a file.
var ErrConfigExists = errors.New("config file already exists")

// CreateSample writes the annotated sample configuration to path. An existing
// file is only replaced when overwrite is set.
func CreateSample(path string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w at %s (use --overwrite to replace it)", ErrConfigExists, path)
		}
		return fmt.Errorf("open sample config: %w", err)
	}
	if _, err := file.WriteString(sampleConfig); err != nil {
		file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}
