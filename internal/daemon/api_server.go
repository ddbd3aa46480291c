package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"respira/internal/api"
	"respira/internal/config"
	"respira/internal/logging"
	"respira/internal/web"
)

type apiServer struct {
	bind   string
	cfg    *config.Config
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Server.Bind),
		cfg:    cfg,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeout) * time.Second,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// writeTimeout leaves room for the model run on top of the upload.
func writeTimeout(cfg *config.Config) time.Duration {
	timeout := cfg.InferenceTimeout()
	if timeout <= 0 {
		return 0
	}
	return timeout + 30*time.Second
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/predict", s.handlePredict)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/history", s.handleHistory)
	return requestIDMiddleware(s.log(), mux)
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop(timeout time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log().Warn("api server shutdown incomplete", logging.Error(err))
		_ = s.server.Close()
	}
	s.mu.Lock()
	s.listener = nil
	s.mu.Unlock()
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, api.ErrMsgNotFound)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrMsgMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.Render(w, web.DefaultPageData(s.cfg.Server.MaxUploadMB)); err != nil {
		s.log().Error("failed to render upload page", logging.Error(err))
	}
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrMsgMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: api.HealthStatusOK})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrMsgMethodNotAllowed)
		return
	}
	status := s.daemon.Status(r.Context())
	checks := make([]api.CheckResult, len(status.Checks))
	for i, check := range status.Checks {
		checks[i] = api.CheckResult{Name: check.Name, Passed: check.Passed, Detail: check.Detail}
	}
	payload := api.DaemonStatus{
		Running:        status.Running,
		PID:            status.PID,
		Bind:           status.Bind,
		ScratchDir:     status.ScratchDir,
		ScratchCleanup: status.ScratchCleanup,
		LockFilePath:   status.LockFilePath,
		HistoryDBPath:  status.HistoryDBPath,
		Inference: api.InferenceStatus{
			Command:        status.Inference.Command,
			Args:           status.Inference.Args,
			OutputMode:     status.Inference.OutputMode,
			TimeoutSeconds: int(status.Inference.Timeout / time.Second),
		},
		Dependencies: api.FromDependencyStatuses(status.Dependencies),
		Checks:       checks,
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	if status.History != nil {
		payload.History = api.FromHistoryStats(*status.History)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrMsgMethodNotAllowed)
		return
	}
	store := s.daemon.store
	if store == nil {
		s.writeError(w, http.StatusNotFound, api.ErrMsgHistoryDisabled)
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, api.ErrMsgInvalidLimit)
			return
		}
		limit = parsed
	}
	limit = api.ClampHistoryLimit(limit, s.cfg.History.DefaultLimit)

	records, err := store.Recent(r.Context(), limit)
	if err != nil {
		s.log().Error("history query failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, api.ErrMsgInternal)
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{Records: api.FromHistoryRecords(records)})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) writeErrorDetails(w http.ResponseWriter, status int, message, details string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Details: details})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.NewNop()
}
