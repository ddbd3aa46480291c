package config

const (
	defaultBind                  = "127.0.0.1:3000"
	defaultMaxUploadMB           = 32
	defaultReadHeaderTimeout     = 5
	defaultShutdownTimeout       = 5
	defaultDataDir               = "~/.local/share/respira"
	defaultScratchDir            = "~/.local/share/respira/scratch"
	defaultLogDir                = "~/.local/share/respira/logs"
	defaultInferenceCommand      = "python"
	defaultInferenceScript       = "~/.local/share/respira/model/audioModel.py"
	defaultInferenceTimeout      = 300
	defaultOutputMode            = OutputModeScan
	defaultScratchCleanup        = CleanupAlways
	defaultScratchMaxAgeHours    = 24
	defaultScratchSweepMinutes   = 60
	defaultHistoryLimit          = 20
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultClientTimeout         = 600
	defaultServerURL             = "http://127.0.0.1:3000"
	defaultValidateMedia         = true
	defaultHistoryEnabled        = true
	defaultInferenceInterpreterU = "-u"
)

// Inference output modes.
const (
	OutputModeScan   = "scan"
	OutputModeStdout = "stdout"
	OutputModeFile   = "file"
)

// Scratch cleanup policies.
const (
	CleanupAlways    = "always"
	CleanupOnFailure = "on_failure"
	CleanupNever     = "never"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:              defaultBind,
			MaxUploadMB:       defaultMaxUploadMB,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			ShutdownTimeout:   defaultShutdownTimeout,
		},
		Paths: Paths{
			DataDir:    defaultDataDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Inference: Inference{
			Command:        defaultInferenceCommand,
			Args:           []string{defaultInferenceInterpreterU},
			Script:         defaultInferenceScript,
			TimeoutSeconds: defaultInferenceTimeout,
			OutputMode:     defaultOutputMode,
		},
		Upload: Upload{
			ValidateMedia: defaultValidateMedia,
		},
		Scratch: Scratch{
			Cleanup:              defaultScratchCleanup,
			MaxAgeHours:          defaultScratchMaxAgeHours,
			SweepIntervalMinutes: defaultScratchSweepMinutes,
		},
		History: History{
			Enabled:      defaultHistoryEnabled,
			DefaultLimit: defaultHistoryLimit,
		},
		Client: Client{
			ServerURL:      defaultServerURL,
			TimeoutSeconds: defaultClientTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
