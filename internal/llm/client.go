// Package llm calls a language model to rewrite extracted page text into
// narration-ready prose.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lexiqai/doc-narrator/internal/resilience"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/mistral"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// GeminiBaseURL is the OpenAI-compatible endpoint used when provider is
// openai and no base URL is configured
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

const defaultOllamaURL = "http://127.0.0.1:11434"

// ErrMissingCredentials is returned when the provider needs an API key and none is set
var ErrMissingCredentials = errors.New("language model credentials are not configured")

// PageContext is the input for reformatting one page
type PageContext struct {
	Page             int // 0-indexed
	Total            int
	PreviousFragment string
	CurrentPage      string
	NextPreview      string
}

// Reformatter rewrites one page of extracted text into narration
type Reformatter interface {
	Reformat(ctx context.Context, in PageContext) (string, error)
}

// Config configures a Client
type Config struct {
	Provider    string // openai, ollama, anthropic, mistral
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	PauseMarker string
	Prompt      Prompt
}

// CallError wraps a failure reported by the model provider
type CallError struct {
	Provider string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s API call failed: %v", e.Provider, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Client reformats pages with a langchaingo model
type Client struct {
	provider    string
	model       string
	apiKey      string
	llm         llms.Model
	prompt      Prompt
	temperature float64
	pauseMarker string
	logger      zerolog.Logger
}

// NewClient creates a client for the configured provider
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	logger = logger.With().Str("provider", cfg.Provider).Str("model", cfg.Model).Logger()

	model, err := newModel(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create language model client")
		return nil, fmt.Errorf("error creating language model client: %w", err)
	}

	logger.Info().Msg("Language model client initialized")
	return NewClientWithModel(model, cfg, logger)
}

// NewClientWithModel creates a client around an existing model
func NewClientWithModel(model llms.Model, cfg Config, logger zerolog.Logger) (*Client, error) {
	prompt := cfg.Prompt
	if prompt.User == "" {
		prompt = FormatForSpeech
	}
	if err := prompt.Validate(); err != nil {
		return nil, err
	}
	marker := cfg.PauseMarker
	if marker == "" {
		marker = "[SILENCE]"
	}
	return &Client{
		provider:    strings.ToLower(cfg.Provider),
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		llm:         model,
		prompt:      prompt,
		temperature: cfg.Temperature,
		pauseMarker: marker,
		logger:      logger,
	}, nil
}

func newModel(cfg Config) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, ErrMissingCredentials
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = GeminiBaseURL
		}
		return openai.New(
			openai.WithModel(cfg.Model),
			openai.WithToken(cfg.APIKey),
			openai.WithBaseURL(baseURL),
			openai.WithHTTPClient(newHTTPClient()),
		)
	case "ollama":
		host := cfg.BaseURL
		if host == "" {
			host = defaultOllamaURL
		}
		return ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(host),
			ollama.WithFormat("json"),
			ollama.WithHTTPClient(newHTTPClient()),
		)
	case "mistral":
		if cfg.APIKey == "" {
			return nil, ErrMissingCredentials
		}
		return mistral.New(
			mistral.WithModel(cfg.Model),
			mistral.WithAPIKey(cfg.APIKey),
		)
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, ErrMissingCredentials
		}
		return anthropic.New(
			anthropic.WithModel(cfg.Model),
			anthropic.WithToken(cfg.APIKey),
		)
	default:
		return nil, fmt.Errorf("unsupported language model provider: %s", cfg.Provider)
	}
}

// Reformat sends one page to the model and returns the narration text.
// Rate limits come back as resilience.RateLimitError, credential problems
// and malformed completions as resilience.FatalError.
func (c *Client) Reformat(ctx context.Context, in PageContext) (string, error) {
	ctx = WithRequestMeta(ctx, RequestMeta{Page: in.Page + 1})
	logger := c.logger.With().Int("page", in.Page).Logger()

	system, user, err := c.prompt.Render(map[string]string{
		VarPreviousFragment: in.PreviousFragment,
		VarCurrentPage:      in.CurrentPage,
		VarNextPreview:      in.NextPreview,
		VarSilenceKeyword:   c.pauseMarker,
	})
	if err != nil {
		return "", resilience.NewFatalError(err)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
	if system != "" {
		messages = append([]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, system)}, messages...)
	}

	callOpts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.prompt.Output.Kind() == OutputJSON {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	logger.Debug().Int("chars", len(in.CurrentPage)).Msg("Sending page to language model")
	completion, err := c.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", c.classify(ctx, err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", resilience.NewFatalError(fmt.Errorf("%w: no choices in completion", ErrInvalidResponse))
	}

	text, err := c.prompt.ParseOutput(completion.Choices[0].Content)
	if err != nil {
		logger.Warn().Err(err).Msg("Language model returned an unusable completion")
		return "", resilience.NewFatalError(err)
	}
	return text, nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	callErr := &CallError{Provider: c.provider, Err: err}
	switch {
	case resilience.IsRateLimitMessage(err):
		return resilience.NewRateLimitError(callErr)
	case resilience.IsAuthMessage(err):
		return resilience.NewFatalError(callErr)
	case resilience.IsRetryableNetworkError(err):
		return resilience.NewRetryableError(callErr)
	default:
		return callErr
	}
}

// Check verifies the client is configured well enough to make calls
func (c *Client) Check(ctx context.Context) error {
	if c.model == "" {
		return fmt.Errorf("language model name is not configured")
	}
	if c.apiKey == "" && c.provider != "ollama" {
		return ErrMissingCredentials
	}
	return nil
}
