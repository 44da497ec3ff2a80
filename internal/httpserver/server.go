// Package httpserver exposes the REST API and maps domain errors onto HTTP
// responses.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"berater-api/internal/analytics"
	"berater-api/internal/auth"
	"berater-api/internal/chat"
	"berater-api/internal/directory"
	"berater-api/internal/kv"
	"berater-api/internal/metrics"
	"berater-api/internal/offers"
	"berater-api/internal/qr"
	"berater-api/internal/review"
	"berater-api/internal/seed"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services groups the domain services mounted by the server.
type Services struct {
	Auth      *auth.Service
	Directory *directory.Service
	Reviews   *review.Service
	Chat      *chat.Service
	QR        *qr.Service
	Offers    *offers.Service
	Analytics *analytics.Service
	Seed      *seed.Service
	Store     kv.Store
}

// Server wraps an http.Server with the service routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	services   Services
	basePath   string
}

// New creates a new HTTP server listening on addr.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, services Services, basePath string) *Server {
	server := &Server{
		logger:   logger.With("component", "http"),
		metrics:  metricRegistry,
		services: services,
		basePath: normaliseBasePath(basePath),
	}

	mux := http.NewServeMux()
	server.route(mux, "POST /auth/signup", server.handleSignup)
	server.route(mux, "POST /auth/login", server.handleLogin)
	server.route(mux, "GET /berater", server.handleListBerater)
	server.route(mux, "GET /berater/{id}", server.handleGetBerater)
	server.route(mux, "POST /berater", server.handleCreateBerater)
	server.route(mux, "POST /reviews", server.handleCreateReview)
	server.route(mux, "POST /chat/messages", server.handleAppendChatMessage)
	server.route(mux, "GET /chat/{sessionId}", server.handleTranscript)
	server.route(mux, "POST /qr-codes", server.handleCreateQR)
	server.route(mux, "GET /qr/{id}", server.handleResolveQR)
	server.route(mux, "GET /analytics/overview", server.handleOverview)
	server.route(mux, "GET /offers/{category}", server.handleListOffers)
	server.route(mux, "POST /offers", server.handleCreateOffer)
	server.route(mux, "POST /init", server.handleInit)
	server.route(mux, "GET /health", server.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	handler := mountWithBasePath(server.basePath, mux)

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if server.basePath != "" {
		server.logger.Info("http server configured with base path", "base_path", server.basePath)
	}

	return server
}

// Handler exposes the fully mounted handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

// route registers pattern with per-route request metrics.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	method, path, _ := strings.Cut(pattern, " ")
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(path, method, strconv.Itoa(rec.status)).Inc()
			s.metrics.HTTPDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
		}
	}))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// identity resolves the bearer credential on the request, or writes a 401
// and reports false.
func (s *Server) identity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	identity, err := s.services.Auth.Resolve(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
		} else {
			s.writeInternalError(w, r, err)
		}
		return nil, false
	}
	return identity, true
}

// decodeJSON parses the request body strictly, rejecting unknown fields.
func decodeJSON(r *http.Request, dest any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out, so an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	if s.metrics != nil {
		s.metrics.StoreErrors.WithLabelValues(componentFromPath(r.URL.Path)).Inc()
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// componentFromPath reduces a request path to its first segment, keeping the
// component label cardinality bounded.
func componentFromPath(path string) string {
	path = strings.TrimPrefix(path, "/")
	if seg, _, ok := strings.Cut(path, "/"); ok && seg != "" {
		return seg
	}
	if path == "" {
		return "root"
	}
	return path
}

// writeDomainError maps known domain errors onto HTTP statuses. Unknown
// errors become a logged 500 with a generic message.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, directory.ErrNotFound),
		errors.Is(err, qr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrInvalidPayload),
		errors.Is(err, directory.ErrInvalidPayload),
		errors.Is(err, review.ErrInvalidPayload),
		errors.Is(err, review.ErrInvalidRating),
		errors.Is(err, chat.ErrInvalidPayload),
		errors.Is(err, qr.ErrInvalidPayload),
		errors.Is(err, offers.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeInternalError(w, r, err)
	}
}

func mountWithBasePath(basePath string, handler http.Handler) http.Handler {
	if basePath == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, basePath) {
			http.NotFound(w, r)
			return
		}
		if len(r.URL.Path) > len(basePath) && r.URL.Path[len(basePath)] != '/' {
			http.NotFound(w, r)
			return
		}
		trimmed := strings.TrimPrefix(r.URL.Path, basePath)
		if trimmed == "" {
			trimmed = "/"
		}
		r.URL.Path = trimmed
		if r.URL.RawPath != "" {
			rawTrimmed := strings.TrimPrefix(r.URL.RawPath, basePath)
			if rawTrimmed == "" {
				rawTrimmed = "/"
			}
			r.URL.RawPath = rawTrimmed
		}
		handler.ServeHTTP(w, r)
	})
}

func normaliseBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}
