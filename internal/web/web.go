// Package web serves the eventease HTTP API.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"eventease/internal/config"
	"eventease/internal/dispatch"
	"eventease/internal/events"
	"eventease/internal/ics"
	"eventease/internal/invite"
	appLog "eventease/internal/log"
	"eventease/internal/storage"
	"eventease/internal/workflow"
)

const maxBodyBytes = 1 << 20

// Deps are the services the API exposes.
type Deps struct {
	Coordinator *workflow.Coordinator
	Events      *events.Service
	Invites     *invite.Service
	Dispatcher  *dispatch.Dispatcher
	Providers   storage.ProviderStore
	Calendar    ics.Generator
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server provides the HTTP API for event creation and invitations.
type Server struct {
	cfg  *config.Config
	deps Deps
	mux  *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler with logging and, when configured,
// basic auth applied.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return logRequests(h)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables the gate.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="EventEase", charset="UTF-8"`)
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "valid credentials are required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve runs the API on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/providers", s.withUser(s.handleProviders))

	s.mux.HandleFunc("GET /api/selection", s.withUser(s.handleSelection))
	s.mux.HandleFunc("DELETE /api/selection", s.withUser(s.handleAbandon))
	s.mux.HandleFunc("POST /api/selection/event-type", s.withUser(s.handleSelectEventType))
	s.mux.HandleFunc("POST /api/selection/providers", s.withUser(s.handleSelectProviders))
	s.mux.HandleFunc("POST /api/selection/commit", s.withUser(s.handleCommit))

	s.mux.HandleFunc("GET /api/events", s.withUser(s.handleListEvents))
	s.mux.HandleFunc("GET /api/events/{id}", s.withUser(s.handleGetEvent))
	s.mux.HandleFunc("DELETE /api/events/{id}", s.withUser(s.handleDeleteEvent))
	s.mux.HandleFunc("GET /api/events/{id}/invitations", s.withUser(s.handleListInvitations))
	s.mux.HandleFunc("POST /api/events/{id}/invitations", s.withUser(s.handleAddInvitation))
	s.mux.HandleFunc("DELETE /api/events/{id}/invitations/{inv}", s.withUser(s.handleRemoveInvitation))
	s.mux.HandleFunc("POST /api/events/{id}/invitations/send", s.withUser(s.handleSendInvitations))
	s.mux.HandleFunc("GET /api/events/{id}/invitations/{inv}/calendar.ics", s.withUser(s.handleInvitationCalendar))

	s.mux.HandleFunc("GET /api/agenda", s.withUser(s.handleAgenda))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start).String(),
		)
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}
