// Package server exposes scans over HTTP for CI systems and dashboards.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cgast/depsentry/internal/telemetry"
	"github.com/cgast/depsentry/pkg/events"
	"github.com/cgast/depsentry/pkg/manifest"
	"github.com/cgast/depsentry/pkg/policy"
	"github.com/cgast/depsentry/pkg/scan"
)

// maxBody bounds request bodies accepted by the API.
const maxBody = 1 << 20

// Scanner runs scans on behalf of the API.
type Scanner interface {
	Scan(ctx context.Context, inputs []scan.Input) ([]scan.Result, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithDatabaseVersion reports the loaded vulnerability database version
// on the status endpoint.
func WithDatabaseVersion(version func() string) Option {
	return func(s *Server) { s.dbVersion = version }
}

// Server is the depsentry HTTP API.
type Server struct {
	bus       events.EventBus
	scanner   Scanner
	metrics   *telemetry.Metrics
	dbVersion func() string
	logger    *slog.Logger
	router    *chi.Mux
	startTime time.Time
}

// New creates the API server.
func New(bus events.EventBus, scanner Scanner, metrics *telemetry.Metrics, opts ...Option) *Server {
	s := &Server{
		bus:       bus,
		scanner:   scanner,
		metrics:   metrics,
		logger:    slog.New(slog.DiscardHandler),
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })
	s.router.Post("/api/scan", s.handleScan)
	s.router.Post("/api/validate", s.handleValidate)
	s.router.Get("/api/events", s.handleEvents)
	s.router.Get("/api/status", s.handleStatus)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("serving api", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// handleScan scans a requirements text body. The source query parameter
// names the input in the results.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "api"
	}
	reqs := manifest.ParseRequirementsText(string(body))
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no requirements in request body"))
		return
	}

	results, err := s.scanner.Scan(r.Context(), []scan.Input{{Source: source, Requirements: reqs}})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":   results,
		"exit_code": scan.ExitCode(results, false),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Policy string `json:"policy"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if err := policy.Validate(body.Policy); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

// handleEvents returns the retained event history as JSON, or streams
// it followed by live events as server-sent events when follow=true.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var since time.Time
	if raw := q.Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("since: %w", err))
			return
		}
		since = t
	}
	scanID := q.Get("scan")
	keep := func(e events.Event) bool { return scanID == "" || e.ScanID == scanID }

	var history []events.Event
	if scanID == "" {
		history = s.bus.History(since)
	} else {
		for _, e := range s.bus.Scan(scanID) {
			if !e.Timestamp.Before(since) {
				history = append(history, e)
			}
		}
	}

	if q.Get("follow") != "true" {
		if history == nil {
			history = []events.Event{}
		}
		writeJSON(w, http.StatusOK, history)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)

	for _, e := range history {
		writeEvent(w, e)
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if keep(e) {
				writeEvent(w, e)
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w io.Writer, e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	history := s.bus.History(time.Time{})
	scans, failures, vulns, violations := 0, 0, 0, 0
	for _, e := range history {
		switch e.Type {
		case events.EventScanEnd:
			scans++
		case events.EventScanError:
			failures++
		case events.EventVulnConfirmed:
			vulns++
		case events.EventPolicyViolated:
			violations++
		}
	}

	status := map[string]any{
		"uptime":          time.Since(s.startTime).String(),
		"events":          len(history),
		"scans":           scans,
		"errors":          failures,
		"vulnerabilities": vulns,
		"violations":      violations,
	}
	if s.dbVersion != nil {
		status["database_version"] = s.dbVersion()
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
