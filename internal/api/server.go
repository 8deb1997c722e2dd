// Package api exposes the HTTP interface for the extraction service.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bracekit/linkextract/internal/config"
	"github.com/bracekit/linkextract/internal/extract"
	"github.com/bracekit/linkextract/internal/metrics"
)

// LogKeyer produces short keys correlating the log lines of one request.
type LogKeyer interface {
	NewLogKey() string
}

// Server wires HTTP handlers to the extraction service.
type Server struct {
	router chi.Router
	svc    *extract.Service
	cfg    config.Config
	ids    LogKeyer
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc *extract.Service, cfg config.Config, ids LogKeyer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		cfg:    cfg,
		ids:    ids,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout()))

	r.Get("/", s.welcome)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Post("/extract", s.handleExtract)
	r.Post("/pre-extract", s.handlePreExtract)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) welcome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(`Welcome to <a href="https://brace.to">Brace.to</a>'s server!`)); err != nil {
		s.logger.Error("write welcome failed", zap.Error(err))
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	logKey := s.ids.NewLogKey()
	s.logger.Info("/extract receives a post request", zap.String("log_key", logKey))

	if !s.checkReferrer(r, logKey) {
		writeError(s.logger, w, http.StatusForbidden, "referrer not allowed")
		return
	}

	urls, ok := decodeURLs(r)
	if !ok {
		s.logger.Warn("invalid request body", zap.String("log_key", logKey))
		writeError(s.logger, w, http.StatusInternalServerError, "ERROR")
		return
	}

	mode := extract.ModeLive
	if s.cfg.Extract.Mode == "deferred" {
		mode = extract.ModeDeferred
	}
	results := s.svc.ExtractBatch(r.Context(), logKey, urls, s.cfg.Extract.MaxURLs, mode)

	s.logger.Info("/extract finished",
		zap.String("log_key", logKey), zap.Int("count", len(results)))
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"extractedResults": results})
}

func (s *Server) handlePreExtract(w http.ResponseWriter, r *http.Request) {
	logKey := s.ids.NewLogKey()
	s.logger.Info("/pre-extract receives a post request", zap.String("log_key", logKey))

	if !s.checkReferrer(r, logKey) {
		writeError(s.logger, w, http.StatusForbidden, "referrer not allowed")
		return
	}

	urls, ok := decodeURLs(r)
	if !ok {
		s.logger.Warn("invalid request body", zap.String("log_key", logKey))
		writeError(s.logger, w, http.StatusInternalServerError, "ERROR")
		return
	}

	s.svc.PreExtractBatch(r.Context(), logKey, urls, s.cfg.Extract.MaxURLs)

	s.logger.Info("/pre-extract finished", zap.String("log_key", logKey))
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "pre-extracted"})
}

// checkReferrer verifies the request's referrer against the allowed-origin
// list. Absent or unrecognized referrers are always logged; they reject the
// request only when server.require_referrer is set.
func (s *Server) checkReferrer(r *http.Request, logKey string) bool {
	referrer := r.Referer()
	s.logger.Info("referrer", zap.String("log_key", logKey), zap.String("referrer", referrer))

	if s.recognizedReferrer(referrer) {
		return true
	}
	s.logger.Warn("not expected referrer",
		zap.String("log_key", logKey), zap.String("referrer", referrer))
	return !s.cfg.Server.RequireReferrer
}

func (s *Server) recognizedReferrer(referrer string) bool {
	if referrer == "" {
		return false
	}
	trimmed := strings.TrimSuffix(referrer, "/")
	for _, origin := range s.cfg.Server.AllowedOrigins {
		if trimmed == strings.TrimSuffix(origin, "/") {
			return true
		}
	}
	return false
}

// decodeURLs parses the request body, which must be a JSON object with a
// urls array. Anything else is malformed.
func decodeURLs(r *http.Request) ([]string, bool) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		return nil, false
	}
	raw, ok := body["urls"]
	if !ok {
		return nil, false
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil || urls == nil {
		return nil, false
	}
	return urls, true
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		// The matched pattern keeps the metric label set bounded; arbitrary
		// request paths must not mint new label values.
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, duration)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(s.logger, w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}
