package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/graff/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RequestPath is where envelopes are POSTed.
const RequestPath = "/v1/request"

// maxBody caps one envelope. Factor documents with sample-based measurements
// are the largest payloads and stay well below it.
const maxBody = 8 << 20

// Server exposes a ports.RequestHandler over HTTP.
type Server struct {
	Handler ports.RequestHandler
	Logger  *slog.Logger
	Metrics http.Handler
}

// HandlerOption configures the server built by NewHandler.
type HandlerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithMetricsHandler replaces the default Prometheus handler on /metrics.
func WithMetricsHandler(h http.Handler) HandlerOption {
	return func(s *Server) {
		s.Metrics = h
	}
}

// NewHandler routes /v1/request to handler and adds /health and /metrics.
func NewHandler(handler ports.RequestHandler, opts ...HandlerOption) http.Handler {
	server := &Server{
		Handler: handler,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Post(RequestPath, server.Request)
	r.Get("/health", server.GetHealth)
	r.Handle("/metrics", server.Metrics)
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Request handles POST /v1/request. Protocol-level failures are answered with
// a non-OK envelope and status 200; only unreadable bodies get an HTTP error.
func (s *Server) Request(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("Request: unreadable body", "error", err)
		return
	}

	out := ports.ServeBytes(r.Context(), s.Handler, body)
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(out); err != nil {
		s.Logger.Error("Request: reply write failed", "error", err)
	}
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
