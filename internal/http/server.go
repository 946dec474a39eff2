// Package http provides the JSON API surface.
package http

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"auroraai/internal/adapter"
	"auroraai/internal/config"
	"auroraai/internal/domain"
	"auroraai/internal/logsink"
	"auroraai/internal/orchestrator"
	"auroraai/internal/ratelimit"
	"auroraai/internal/telemetry"
	"auroraai/internal/tiers"
)

// LogStore is a log sink that can also be queried
type LogStore interface {
	domain.LogSink
	List(q logsink.Query) []*domain.LogEntry
}

// Server is the HTTP API server
type Server struct {
	config   *config.Config
	engine   *orchestrator.Engine
	limiter  *ratelimit.Limiter
	tiers    *tiers.Registry
	registry *adapter.Registry
	logs     LogStore
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	mux      *http.ServeMux
}

// NewServer creates the API server and wires its routes
func NewServer(
	cfg *config.Config,
	engine *orchestrator.Engine,
	limiter *ratelimit.Limiter,
	tierRegistry *tiers.Registry,
	adapterRegistry *adapter.Registry,
	logs LogStore,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *Server {
	s := &Server{
		config:   cfg,
		engine:   engine,
		limiter:  limiter,
		tiers:    tierRegistry,
		registry: adapterRegistry,
		logs:     logs,
		metrics:  metrics,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Orchestration endpoints
	s.mux.HandleFunc("POST /api/ai/deep-thinkers", s.handleDeepThinkers)
	s.mux.HandleFunc("POST /api/ai/visual-creators", s.handleVisualCreators)
	s.mux.HandleFunc("POST /api/ai/realtime-assist", s.handleRealtimeAssist)
	s.mux.HandleFunc("POST /api/ai/mixed-hub", s.handleMixedHub)

	// Introspection
	s.mux.HandleFunc("GET /api/ai/models", s.handleListModels)
	s.mux.HandleFunc("GET /api/ai/logs", s.handleListLogs)
	s.mux.HandleFunc("GET /api/ai/limits", s.handleLimitStatus)

	// Admin
	s.mux.HandleFunc("GET /api/admin/stats", s.withAdminAuth(s.handleAdminStats))
	s.mux.HandleFunc("POST /api/admin/unblock", s.withAdminAuth(s.handleAdminUnblock))
	s.mux.HandleFunc("POST /api/admin/reset", s.withAdminAuth(s.handleAdminReset))

	// Operational endpoints
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-User-Tier")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withAdminAuth guards admin endpoints with the configured API key
func (s *Server) withAdminAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := s.config.Server.AdminAPIKey
		if key == "" || r.Header.Get("X-API-Key") != key {
			s.writeError(w, http.StatusUnauthorized, "unauthorized", "Admin API key required")
			return
		}
		handler(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ErrorDetail describes one API error
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorResponse is the error envelope for all endpoints
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, errType, message string) {
	s.writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Type:    errType,
			Message: message,
		},
	})
}

// requestHeaders extracts the headers tier resolution looks at
func requestHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, 3)
	for _, name := range []string{"x-user-tier", "authorization", "x-api-key"} {
		if v := r.Header.Get(name); v != "" {
			headers[name] = v
		}
	}
	return headers
}

// clientIP returns the caller's IP, honoring X-Forwarded-For from proxies
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
