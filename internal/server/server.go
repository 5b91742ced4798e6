// Package server is the thin HTTP layer over the analysis pipeline. It
// owns routing, request parsing, and the error-to-status mapping; all
// analysis logic stays behind the pipeline.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/etherlens/etherlens/internal/metrics"
	"github.com/etherlens/etherlens/internal/pipeline"
)

// Config configures the HTTP server.
type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns server defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves the analysis API.
type Server struct {
	config   Config
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
	router   chi.Router
}

// New creates the server and mounts all routes.
func New(config Config, p *pipeline.Pipeline, m *metrics.Metrics) *Server {
	def := DefaultConfig()
	if config.ListenAddr == "" {
		config.ListenAddr = def.ListenAddr
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = def.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = def.WriteTimeout
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}

	s := &Server{config: config, pipeline: p, metrics: m}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(recoverPanics)

	r.Post("/analyze", s.handleAnalyze)
	r.Get("/analyze/{address}", s.handleAnalyzeGet)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router = r
	return s
}

// Handler returns the root handler, for tests and for the http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer builds the net/http server around the router.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.router,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

type analyzeRequest struct {
	Address string `json:"address"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, string(pipeline.ErrInvalidInput), "request body must be JSON with an address field")
		return
	}
	s.analyze(w, r, req.Address)
}

func (s *Server) handleAnalyzeGet(w http.ResponseWriter, r *http.Request) {
	s.analyze(w, r, chi.URLParam(r, "address"))
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, address string) {
	result, err := s.pipeline.Analyze(r.Context(), address)
	if err != nil {
		kind := pipeline.KindOf(err)
		writeError(w, statusFor(kind), string(kind), publicMessage(kind))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(kind pipeline.ErrKind) int {
	switch kind {
	case pipeline.ErrInvalidInput:
		return http.StatusBadRequest
	case pipeline.ErrUpstream, pipeline.ErrIndeterminate:
		return http.StatusBadGateway
	case pipeline.ErrTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(kind pipeline.ErrKind) string {
	switch kind {
	case pipeline.ErrInvalidInput:
		return "address must be a 0x-prefixed 40-character hex string"
	case pipeline.ErrIndeterminate:
		return "could not determine the address kind from upstream data"
	case pipeline.ErrUpstream:
		return "upstream data sources are unavailable"
	case pipeline.ErrTimeout:
		return "analysis did not complete within the time budget"
	default:
		return "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("server: encode response")
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: message}})
}
