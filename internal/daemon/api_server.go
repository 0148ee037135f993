package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"cardgraph/internal/config"
	"cardgraph/internal/logging"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.WithComponent(logger, "api-server"),
		daemon: d,
	}

	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware(cfg.Paths.APIToken, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", auth(srv.handleOverview))
	mux.HandleFunc("GET /api/sessions", auth(srv.handleList))
	mux.HandleFunc("POST /api/sessions", auth(srv.handleCreate))
	mux.HandleFunc("GET /api/sessions/{id}", auth(srv.handleShow))
	mux.HandleFunc("PUT /api/sessions/{id}", auth(srv.handleUpdate))
	mux.HandleFunc("DELETE /api/sessions/{id}", auth(srv.handleDelete))
	mux.HandleFunc("POST /api/sessions/{id}/start", auth(srv.handleStart))
	mux.HandleFunc("POST /api/sessions/{id}/stop", auth(srv.handleStop))
	mux.HandleFunc("POST /api/sessions/{id}/cancel", auth(srv.handleCancel))
	mux.HandleFunc("GET /api/sessions/{id}/status", auth(srv.handleSnapshot))
	mux.HandleFunc("GET /api/sessions/{id}/logs", auth(srv.handleLogs))
	mux.HandleFunc("GET /api/settings", auth(srv.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", auth(srv.handlePutSettings))
	mux.HandleFunc("GET /api/env-check", auth(srv.handleEnvCheck))

	// Cron wrapper routes authenticate with the shared scheduler secret,
	// not the operator token.
	mux.HandleFunc("POST /api/scheduler-tick", srv.handleTick)
	mux.HandleFunc("POST /api/cleanup", srv.handleCleanup)

	srv.server = &http.Server{
		Handler:           requestIDMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
