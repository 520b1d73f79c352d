// Package server exposes the narration pipeline over HTTP, WebSocket and a
// gRPC health endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lexiqai/doc-narrator/internal/config"
	"github.com/lexiqai/doc-narrator/internal/observability"
	"github.com/lexiqai/doc-narrator/internal/pipeline"
	"github.com/lexiqai/doc-narrator/internal/resilience"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Narrator runs documents through the narration pipeline
type Narrator interface {
	Run(ctx context.Context, in pipeline.Input) (pipeline.Result, error)
	Extract(ctx context.Context, data []byte, pages []int) (string, error)
	Checks() map[string]observability.HealthCheckFunc
}

// Saver persists rendered audio
type Saver interface {
	Save(ctx context.Context, data []byte, name string) (string, error)
}

// Server serves the narration API
type Server struct {
	cfg      *config.Config
	narrator Narrator
	store    Saver
	logger   zerolog.Logger
}

// New creates a server. store may be nil, in which case audio is only returned
// to the caller.
func New(cfg *config.Config, narrator Narrator, store Saver, logger zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		narrator: narrator,
		store:    store,
		logger:   logger.With().Str("component", "server").Logger(),
	}
}

// Routes returns the HTTP handler for every endpoint
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/narrations", s.handleNarration)
	mux.HandleFunc("/v1/extractions", s.handleExtraction)
	mux.HandleFunc("/v1/narrations/stream", s.handleStream)

	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(s.narrator.Checks()))

	if s.cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	return mux
}

// errorResponse is the JSON body of every failed request
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Stage string `json:"stage,omitempty"`
}

// statusFor maps a run error to an HTTP status
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		return http.StatusInternalServerError
	}
	switch pe.Kind {
	case pipeline.KindUnsupported:
		return http.StatusUnsupportedMediaType
	case pipeline.KindContent:
		return http.StatusUnprocessableEntity
	case pipeline.KindConfig:
		if pe.Stage == pipeline.StageValidate {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	case pipeline.KindTransient:
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func toErrorResponse(err error) errorResponse {
	resp := errorResponse{Error: err.Error()}
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		resp.Kind = string(pe.Kind)
		resp.Stage = string(pe.Stage)
	}
	return resp
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", code).Msg("Request failed")
	} else {
		s.logger.Warn().Err(err).Int("status", code).Msg("Request rejected")
	}
	writeJSON(w, code, toErrorResponse(err))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
