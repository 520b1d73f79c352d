// Package tts speaks narration chunks through an OpenAI-compatible
// /v1/audio/speech endpoint.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lexiqai/doc-narrator/internal/audio"
	"github.com/lexiqai/doc-narrator/internal/config"
	"github.com/lexiqai/doc-narrator/internal/resilience"
	"github.com/rs/zerolog"
)

// Config configures an OpenAIClient
type Config struct {
	APIURL       string
	APIKey       string // Optional; local servers such as Kokoro need none
	Model        string
	SampleRate   int
	Format       string        // Response format: "pcm" (default) or "wav"
	MaxFailures  int           // Consecutive failures before the circuit opens
	ResetTimeout time.Duration // Open circuit cool-off
}

// ConfigFrom derives the client configuration from the service config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		APIURL:       cfg.TTSAPIURL,
		APIKey:       cfg.TTSAPIKey,
		Model:        cfg.TTSModel,
		SampleRate:   cfg.SampleRate,
		Format:       cfg.TTSResponseFormat,
		MaxFailures:  cfg.CircuitBreakerMaxFailures,
		ResetTimeout: cfg.CircuitBreakerResetDuration(),
	}
}

const (
	formatPCM = "pcm"
	formatWAV = "wav"
)

// speechRequest is the request payload for the speech endpoint
type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed,omitempty"`
	ResponseFormat string  `json:"response_format"`
}

// OpenAIClient implements Synthesizer. The endpoint returns raw PCM s16le
// mono or a WAV file; calls are serialized so a run never has two requests
// in flight.
type OpenAIClient struct {
	config     Config
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     zerolog.Logger
	mu         sync.Mutex
}

// NewOpenAIClient creates a new speech client
func NewOpenAIClient(cfg Config, logger zerolog.Logger) *OpenAIClient {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	cfg.Format = strings.ToLower(cfg.Format)
	if cfg.Format != formatWAV {
		cfg.Format = formatPCM
	}
	return &OpenAIClient{
		config:     cfg,
		httpClient: &http.Client{},
		breaker:    resilience.NewCircuitBreaker("tts", cfg.MaxFailures, cfg.ResetTimeout),
		logger:     logger.With().Str("component", "tts").Logger(),
	}
}

// SampleRate returns the rate of the PCM stream the endpoint returns. WAV
// responses report their own rate on each waveform.
func (c *OpenAIClient) SampleRate() int { return c.config.SampleRate }

// Breaker exposes the circuit breaker guarding the endpoint
func (c *OpenAIClient) Breaker() *resilience.CircuitBreaker { return c.breaker }

// Synthesize speaks one chunk of text
func (c *OpenAIClient) Synthesize(ctx context.Context, req Request) (audio.Waveform, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var w audio.Waveform
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		w, err = c.synthesize(ctx, req)
		return err
	})
	return w, err
}

func (c *OpenAIClient) synthesize(ctx context.Context, req Request) (audio.Waveform, error) {
	body, err := json.Marshal(speechRequest{
		Model:          c.config.Model,
		Input:          req.Text,
		Voice:          req.Voice,
		Speed:          req.Speed,
		ResponseFormat: c.config.Format,
	})
	if err != nil {
		return audio.Waveform{}, resilience.NewFatalError(fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL, bytes.NewReader(body))
	if err != nil {
		return audio.Waveform{}, resilience.NewFatalError(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return audio.Waveform{}, ctxErr
		}
		return audio.Waveform{}, resilience.NewRetryableError(fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := fmt.Errorf("speech API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return audio.Waveform{}, resilience.NewRateLimitError(statusErr)
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return audio.Waveform{}, resilience.NewFatalError(statusErr)
		case resp.StatusCode >= 500:
			return audio.Waveform{}, resilience.NewRetryableError(statusErr)
		default:
			// Bad voice, bad model, oversized input: retrying will not help
			return audio.Waveform{}, resilience.NewFatalError(statusErr)
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.Waveform{}, resilience.NewRetryableError(fmt.Errorf("failed to read audio: %w", err))
	}
	w, err := c.decode(payload)
	if err != nil {
		return audio.Waveform{}, resilience.NewFatalError(fmt.Errorf("invalid audio from speech API: %w", err))
	}

	c.logger.Debug().
		Int("chars", len([]rune(req.Text))).
		Str("voice", req.Voice).
		Dur("latency", time.Since(start)).
		Dur("audio", w.Duration()).
		Msg("Chunk synthesized")
	return w, nil
}

func (c *OpenAIClient) decode(payload []byte) (audio.Waveform, error) {
	if c.config.Format == formatWAV {
		return audio.DecodeWAV(payload)
	}
	samples, err := audio.DecodePCM16LE(payload)
	if err != nil {
		return audio.Waveform{}, err
	}
	return audio.Waveform{SampleRate: c.config.SampleRate, Samples: samples}, nil
}

// Check reports whether the client is configured and its circuit is not open
func (c *OpenAIClient) Check(ctx context.Context) error {
	if c.config.APIURL == "" {
		return errors.New("speech API URL is not configured")
	}
	if c.config.Model == "" {
		return errors.New("speech model is not configured")
	}
	if state, requests, failures, _ := c.breaker.GetStats(); state == resilience.StateOpen {
		return fmt.Errorf("%w: %d of %d requests failed", resilience.ErrCircuitOpen, failures, requests)
	}
	return nil
}
