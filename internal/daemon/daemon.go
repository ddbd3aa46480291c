package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"respira/internal/config"
	"respira/internal/deps"
	"respira/internal/history"
	"respira/internal/inference"
	"respira/internal/logging"
	"respira/internal/preflight"
	"respira/internal/scratch"
)

// Daemon serves predictions and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *history.Store
	predictor inference.Predictor
	scratch   *scratch.Manager
	api       *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	sweepWG sync.WaitGroup

	mu        sync.Mutex
	startedAt time.Time
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	Bind           string
	StartedAt      time.Time
	ScratchDir     string
	ScratchCleanup string
	LockFilePath   string
	HistoryDBPath  string
	Inference      InferenceStatus
	Dependencies   []deps.Status
	Checks         []preflight.Result
	History        *history.Stats
}

// InferenceStatus describes how the model process is launched.
type InferenceStatus struct {
	Command    string
	Args       []string
	OutputMode string
	Timeout    time.Duration
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithPredictor replaces the configured inference runner.
func WithPredictor(p inference.Predictor) Option {
	return func(d *Daemon) {
		if p != nil {
			d.predictor = p
		}
	}
}

// New constructs a daemon with initialized dependencies. store may be nil
// when history is disabled.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	manager, err := scratch.NewManager(cfg.Paths.ScratchDir, cfg.Scratch.Cleanup, logging.NewComponentLogger(logger, "scratch"))
	if err != nil {
		return nil, fmt.Errorf("scratch manager: %w", err)
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		scratch:  manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.predictor == nil {
		runner, err := inference.NewFromConfig(cfg, inference.WithLogger(logging.NewComponentLogger(logger, "inference")))
		if err != nil {
			return nil, fmt.Errorf("inference runner: %w", err)
		}
		d.predictor = runner
	}
	d.api = newAPIServer(cfg, d, logging.NewComponentLogger(logger, "api-server"))
	return d, nil
}

// Start acquires the daemon lock, sweeps stale scratch directories, and
// starts serving HTTP.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another respira daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.sweepScratch(runCtx)

	// The listener serves /api/status as soon as it is up.
	d.mu.Lock()
	d.cancel = cancel
	d.startedAt = time.Now()
	d.mu.Unlock()

	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.mu.Lock()
		d.cancel = nil
		d.startedAt = time.Time{}
		d.mu.Unlock()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	if interval := time.Duration(d.cfg.Scratch.SweepIntervalMinutes) * time.Minute; interval > 0 && d.cfg.ScratchMaxAge() > 0 {
		d.sweepWG.Add(1)
		go d.runSweeper(runCtx, interval)
	}

	d.running.Store(true)
	d.logger.Info("respira daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.Addr()),
		logging.String("scratch_dir", d.scratch.Root()),
	)
	return nil
}

// Stop shuts down the HTTP server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop(d.shutdownTimeout())
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.sweepWG.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("respira daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the address the HTTP server listens on, or the configured
// bind address before Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	startedAt := d.startedAt
	d.mu.Unlock()

	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		Bind:           d.Addr(),
		StartedAt:      startedAt,
		ScratchDir:     d.scratch.Root(),
		ScratchCleanup: d.scratch.Policy(),
		LockFilePath:   d.lockPath,
		Inference: InferenceStatus{
			Command:    d.cfg.Inference.Command,
			Args:       d.cfg.InferenceArgs(),
			OutputMode: d.cfg.Inference.OutputMode,
			Timeout:    d.cfg.InferenceTimeout(),
		},
		Dependencies: preflight.CheckSystemDeps(d.cfg),
		Checks:       preflight.RunAll(d.cfg),
	}
	if d.store != nil {
		status.HistoryDBPath = d.store.Path()
		stats, err := d.store.Stats(ctx)
		if err != nil {
			d.logger.Warn("history stats unavailable", logging.Error(err))
		} else {
			status.History = &stats
		}
	}
	return status
}

func (d *Daemon) shutdownTimeout() time.Duration {
	if d.cfg.Server.ShutdownTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.cfg.Server.ShutdownTimeout) * time.Second
}

func (d *Daemon) runSweeper(ctx context.Context, interval time.Duration) {
	defer d.sweepWG.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweepScratch(ctx)
		}
	}
}

func (d *Daemon) sweepScratch(ctx context.Context) {
	maxAge := d.cfg.ScratchMaxAge()
	if maxAge <= 0 {
		return
	}
	result := d.scratch.CleanStale(ctx, maxAge)
	if len(result.Removed) > 0 || len(result.Errors) > 0 {
		d.logger.Info("scratch sweep finished",
			logging.Int("removed", len(result.Removed)),
			logging.Int("errors", len(result.Errors)),
		)
	}
}
