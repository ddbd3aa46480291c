package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"respira/internal/config"
	"respira/internal/logging"
	"respira/internal/services"
)

const (
	resultFileName  = "result.json"
	maxStderrBytes  = 64 << 10
	stepInvoke      = "invoke"
	stepParseOutput = "parse_output"
)

// Request identifies the saved upload pair handed to the model.
type Request struct {
	Dir       string
	AudioPath string
	ImagePath string
}

// Outcome captures one finished model run.
type Outcome struct {
	Prediction Prediction
	Stdout     string
	Stderr     string
	ExitCode   int
	Duration   time.Duration
}

// ProcessError describes a model process that failed to start or exited
// nonzero. Stderr is what the process wrote to standard error.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("model process exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("model process failed: %v", e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// Details is the text reported to clients for this failure.
func (e *ProcessError) Details() string {
	if strings.TrimSpace(e.Stderr) != "" {
		return e.Stderr
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// OutputError reports model output that breaks the result contract.
type OutputError struct {
	Mode string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("%s output: %v", e.Mode, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }

// Predictor is implemented by Runner and stubbed in handler tests.
type Predictor interface {
	Predict(ctx context.Context, req Request) (Outcome, error)
}

// Option configures the runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger sets the logger used for process output and lifecycle lines.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner launches the external model process.
type Runner struct {
	command string
	args    []string
	timeout time.Duration
	mode    string
	exec    Executor
	logger  *slog.Logger
}

// New constructs a runner. args are placed before the audio and image paths.
func New(command string, args []string, timeout time.Duration, mode string, opts ...Option) (*Runner, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, errors.New("inference command required")
	}
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "":
		mode = config.OutputModeScan
	case config.OutputModeScan, config.OutputModeStdout, config.OutputModeFile:
	default:
		return nil, fmt.Errorf("unsupported output mode %q", mode)
	}
	runner := &Runner{
		command: command,
		args:    append([]string(nil), args...),
		timeout: timeout,
		mode:    mode,
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// NewFromConfig builds a runner from the inference section of cfg.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	return New(cfg.Inference.Command, cfg.InferenceArgs(), cfg.InferenceTimeout(), cfg.Inference.OutputMode, opts...)
}

// Command returns the executable and leading arguments.
func (r *Runner) Command() (string, []string) {
	return r.command, append([]string(nil), r.args...)
}

// Mode returns the output mode in effect.
func (r *Runner) Mode() string { return r.mode }

// Timeout returns the per-run limit; zero means none.
func (r *Runner) Timeout() time.Duration { return r.timeout }

// Predict runs the model for one upload pair and extracts its Prediction.
func (r *Runner) Predict(ctx context.Context, req Request) (Outcome, error) {
	if req.AudioPath == "" || req.ImagePath == "" {
		return Outcome{}, services.Wrap(services.ErrValidation, stepInvoke, "run model", "audio and image paths required", nil)
	}
	logger := logging.WithContext(services.WithStep(ctx, stepInvoke), r.logger)

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	inv := Invocation{
		Command: r.command,
		Args:    append(append([]string(nil), r.args...), req.AudioPath, req.ImagePath),
		Dir:     req.Dir,
	}
	var resultPath string
	if r.mode == config.OutputModeFile {
		resultPath = filepath.Join(req.Dir, resultFileName)
		inv.Env = []string{ResultPathEnv + "=" + resultPath}
	}

	var stdout strings.Builder
	stderr := newTailBuffer(maxStderrBytes)
	logger.Debug("model process starting",
		logging.String("command", r.command),
		logging.Any("args", inv.Args),
		logging.String("output_mode", r.mode),
	)
	started := time.Now()
	err := r.exec.Run(runCtx, inv,
		func(line string) {
			logger.Debug("model stdout", logging.String("line", line))
			stdout.WriteString(line)
			stdout.WriteByte('\n')
		},
		func(line string) {
			stderr.WriteLine(line)
		},
	)
	outcome := Outcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(started),
	}

	if err != nil {
		return outcome, r.classifyRunError(ctx, runCtx, err, &outcome)
	}

	logger.Debug("model process exited", logging.Duration("duration", outcome.Duration))

	prediction, err := r.extract(outcome.Stdout, resultPath)
	if err != nil {
		return outcome, services.Wrap(services.ErrContract, stepParseOutput, "read prediction", "", &OutputError{Mode: r.mode, Err: err})
	}
	outcome.Prediction = prediction
	return outcome, nil
}

func (r *Runner) classifyRunError(ctx, runCtx context.Context, err error, outcome *Outcome) error {
	outcome.ExitCode = -1
	switch {
	case ctx.Err() != nil:
		return services.Wrap(services.ErrCanceled, stepInvoke, "run model", "request canceled", ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, stepInvoke, "run model", fmt.Sprintf("exceeded %s", r.timeout), runCtx.Err())
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		outcome.ExitCode = exitErr.Code
		return services.Wrap(services.ErrExternalTool, stepInvoke, "run model", "", &ProcessError{
			ExitCode: exitErr.Code,
			Stderr:   outcome.Stderr,
			Err:      err,
		})
	}
	return services.Wrap(services.ErrExternalTool, stepInvoke, "run model", "", &ProcessError{
		ExitCode: -1,
		Stderr:   outcome.Stderr,
		Err:      err,
	})
}

func (r *Runner) extract(stdout, resultPath string) (Prediction, error) {
	switch r.mode {
	case config.OutputModeStdout:
		return StrictPrediction(stdout)
	case config.OutputModeFile:
		return ReadResultFile(resultPath)
	default:
		return ScanPrediction(stdout)
	}
}

// tailBuffer keeps the most recent lines up to a byte limit.
type tailBuffer struct {
	limit int
	size  int
	lines []string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) WriteLine(line string) {
	b.lines = append(b.lines, line)
	b.size += len(line) + 1
	for b.size > b.limit && len(b.lines) > 1 {
		b.size -= len(b.lines[0]) + 1
		b.lines = b.lines[1:]
	}
}

func (b *tailBuffer) String() string {
	return strings.Join(b.lines, "\n")
}
