package scratch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"respira/internal/config"
	"respira/internal/logging"
)

// Manager creates request workspaces under a scratch root.
type Manager struct {
	root   string
	policy string
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// NewManager returns a manager rooted at root applying the given cleanup policy.
func NewManager(root, policy string, logger *slog.Logger) (*Manager, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("scratch root required")
	}
	switch policy {
	case "":
		policy = config.CleanupAlways
	case config.CleanupAlways, config.CleanupOnFailure, config.CleanupNever:
	default:
		return nil, fmt.Errorf("unsupported cleanup policy %q", policy)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{root: root, policy: policy, logger: logger, active: make(map[string]struct{})}, nil
}

// Root returns the scratch root directory.
func (m *Manager) Root() string { return m.root }

// Policy returns the cleanup policy in effect.
func (m *Manager) Policy() string { return m.policy }

// Active reports whether name is the directory of a workspace that has not
// been finished yet.
func (m *Manager) Active(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[name]
	return ok
}

// CleanStale sweeps the scratch root like the package-level CleanStale but
// leaves the directories of in-flight requests alone.
func (m *Manager) CleanStale(ctx context.Context, maxAge time.Duration) CleanStaleResult {
	return cleanStale(ctx, m.root, maxAge, m.logger, m.Active)
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

// Create makes the workspace for requestID, which must be a UUID. An empty
// requestID gets a fresh one.
func (m *Manager) Create(requestID string) (*Workspace, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	id, err := uuid.Parse(requestID)
	if err != nil {
		return nil, fmt.Errorf("workspace id %q: %w", requestID, err)
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	dir := filepath.Join(m.root, id.String())
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	m.active[id.String()] = struct{}{}
	return &Workspace{ID: id.String(), Dir: dir, manager: m}, nil
}

// SavedFile describes one stored upload.
type SavedFile struct {
	Path         string
	OriginalName string
	Size         int64
}

// Workspace is one request's scratch directory.
type Workspace struct {
	ID      string
	Dir     string
	manager *Manager
	closed  bool
}

// Save copies r into the workspace as base plus the extension of
// originalName.
func (w *Workspace) Save(base, originalName string, r io.Reader) (SavedFile, error) {
	if base == "" || strings.ContainsAny(base, `/\.`) {
		return SavedFile{}, fmt.Errorf("invalid base name %q", base)
	}
	target := filepath.Join(w.Dir, base+Extension(originalName))
	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return SavedFile{}, fmt.Errorf("create %s: %w", base, err)
	}
	size, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil {
		return SavedFile{}, fmt.Errorf("write %s: %w", base, copyErr)
	}
	if closeErr != nil {
		return SavedFile{}, fmt.Errorf("close %s: %w", base, closeErr)
	}
	return SavedFile{Path: target, OriginalName: SanitizeFilename(originalName), Size: size}, nil
}

// Finish applies the cleanup policy. It reports whether the directory was
// removed. Calling Finish or Discard more than once is a no-op.
func (w *Workspace) Finish(success bool) (bool, error) {
	if w == nil || w.closed {
		return false, nil
	}
	policy := w.manager.policy
	keep := policy == config.CleanupNever || (policy == config.CleanupOnFailure && !success)
	if keep {
		w.closed = true
		w.manager.release(w.ID)
		w.manager.logger.Debug("scratch directory kept",
			logging.String("path", w.Dir),
			logging.String("policy", policy),
			logging.Bool("success", success),
		)
		return false, nil
	}
	return w.Discard()
}

// Discard removes the directory whatever the cleanup policy. Rejected
// requests use it since their uploads never reached the model.
func (w *Workspace) Discard() (bool, error) {
	if w == nil || w.closed {
		return false, nil
	}
	w.closed = true
	defer w.manager.release(w.ID)
	if err := os.RemoveAll(w.Dir); err != nil {
		logging.WarnWithContext(w.manager.logger, "failed to remove scratch directory", "scratch_cleanup_failed",
			logging.String("path", w.Dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.scratch_dir permissions"),
			logging.String(logging.FieldImpact, "upload files remain until the stale sweep"),
		)
		return false, fmt.Errorf("remove workspace: %w", err)
	}
	return true, nil
}
