// Package server receives S3 event notifications over HTTP.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/nikogura/resume-analyzer/pkg/pipeline"
	"github.com/pkg/errors"
)

// MaxEventBytes bounds the size of a posted event.
const MaxEventBytes = 1 << 20

// RequestIDHeader carries the request id on responses.
const RequestIDHeader = "X-Request-Id"

// EventProcessor handles a decoded S3 notification.
type EventProcessor interface {
	ProcessS3Event(ctx context.Context, event events.S3Event) pipeline.BatchResponse
}

// Checker reports whether a dependency is usable.
type Checker interface {
	Check(ctx context.Context) error
}

// Server routes event and health requests.
type Server struct {
	processor EventProcessor
	checks    map[string]Checker
	logger    *slog.Logger
	router    *chi.Mux
}

// New creates a Server. checks are run by GET /healthz.
func New(processor EventProcessor, checks map[string]Checker, logger *slog.Logger) (s *Server) {
	if logger == nil {
		logger = slog.Default()
	}
	s = &Server{
		processor: processor,
		checks:    checks,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)

	r.Post("/events", s.handleEvents)
	r.Get("/healthz", s.handleHealth)

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() (h http.Handler) {
	h = s.router
	return h
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) (err error) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening for events", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("shutting down")
	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		err = errors.Wrap(err, "server shutdown failed")
	}
	return err
}

type requestIDKey struct{}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestID returns the request id stored on ctx, or "".
func RequestID(ctx context.Context) (id string) {
	id, _ = ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	requestID := RequestID(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxEventBytes+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > MaxEventBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge, "event too large")
		return
	}

	var event events.S3Event
	if err = json.Unmarshal(body, &event); err != nil {
		s.logger.Warn("rejected malformed event", "request_id", requestID, "error", err.Error())
		s.writeError(w, http.StatusBadRequest, "invalid S3 event JSON")
		return
	}

	s.logger.Info("received event", "request_id", requestID, "records", len(event.Records))

	resp := s.processor.ProcessS3Event(r.Context(), event)
	s.writeJSON(w, resp.StatusCode, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	failures := map[string]string{}
	for name, check := range s.checks {
		if err := check.Check(r.Context()); err != nil {
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unhealthy",
			"failures": failures,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", "error", err.Error())
	}
}
