package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the doc-narrator service and CLI
type Config struct {
	// Server configuration
	Port        string `envconfig:"PORT" default:"8080"`
	GRPCPort    string `envconfig:"GRPC_PORT" default:"9090"`
	MaxUploadMB int64  `envconfig:"MAX_UPLOAD_MB" default:"50"`

	// Where synthesized audio is written by the CLI and the server (file://, mem://, gs://, s3://)
	OutputURL string `envconfig:"OUTPUT_URL" default:"file:///tmp/doc-narrator"`

	// Language model configuration
	LLMProvider    string  `envconfig:"LLM_PROVIDER" default:"openai"` // openai, ollama, anthropic, mistral
	LLMModel       string  `envconfig:"LLM_MODEL" default:"gemini-2.5-flash"`
	LLMAPIKey      string  `envconfig:"LLM_API_KEY"`
	LLMBaseURL     string  `envconfig:"LLM_BASE_URL" default:""` // Empty selects the provider default (Gemini for openai)
	LLMTemperature float64 `envconfig:"LLM_TEMPERATURE" default:"0"`
	LLMPromptFile  string  `envconfig:"LLM_PROMPT_FILE" default:""` // Optional YAML prompt override

	// Speech synthesis configuration
	// Any OpenAI-compatible /v1/audio/speech endpoint; the default voices belong to Kokoro
	TTSAPIKey string   `envconfig:"TTS_API_KEY" default:""`
	TTSAPIURL string   `envconfig:"TTS_API_URL" default:"http://localhost:8880/v1/audio/speech"`
	TTSModel  string   `envconfig:"TTS_MODEL" default:"kokoro"`
	TTSVoices []string `envconfig:"TTS_VOICES" default:"am_liam,am_puck"`
	// pcm is raw s16le at SAMPLE_RATE; wav carries its own rate in the header
	TTSResponseFormat string `envconfig:"TTS_RESPONSE_FORMAT" default:"pcm"`

	// Narration defaults
	PauseMarker       string  `envconfig:"PAUSE_MARKER" default:"[SILENCE]"`
	MaxWordsPerChunk  int     `envconfig:"MAX_WORDS_PER_CHUNK" default:"50"`
	ContextTailChars  int     `envconfig:"CONTEXT_TAIL_CHARS" default:"100"`
	SampleRate        int     `envconfig:"SAMPLE_RATE" default:"24000"`
	PauseDuration     float64 `envconfig:"PAUSE_DURATION" default:"0.3"` // Seconds between pause segments
	DefaultVoice      string  `envconfig:"DEFAULT_VOICE" default:"am_liam"`
	DefaultSpeed      float64 `envconfig:"DEFAULT_SPEED" default:"1.0"`
	IgnoreBoilerplate bool    `envconfig:"IGNORE_BOILERPLATE" default:"true"`

	// Document structure reconstruction
	BoilerplateWindow    int     `envconfig:"BOILERPLATE_WINDOW" default:"5"`      // Lines sampled from each page edge
	BoilerplateThreshold float64 `envconfig:"BOILERPLATE_THRESHOLD" default:"0.6"` // Fraction of pages a line must exceed
	PageSeparator        string  `envconfig:"PAGE_SEPARATOR" default:"\n"`

	// Resilience configuration
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Attempts per remote call
	AttemptTimeout             int `envconfig:"ATTEMPT_TIMEOUT" default:"60"`               // Seconds per attempt
	RateLimitCooldown          int `envconfig:"RATE_LIMIT_COOLDOWN" default:"61"`           // Seconds to wait after a rate limit
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	StartupWaitAttempts        int `envconfig:"STARTUP_WAIT_ATTEMPTS" default:"5"`          // Readiness rounds before serving anyway

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.TTSAPIURL == "" {
		return fmt.Errorf("TTS_API_URL is required")
	}
	switch strings.ToLower(c.TTSResponseFormat) {
	case "", "pcm", "wav":
	default:
		return fmt.Errorf("unsupported TTS_RESPONSE_FORMAT %q", c.TTSResponseFormat)
	}
	// Ollama runs locally without credentials
	if c.LLMAPIKey == "" && strings.ToLower(c.LLMProvider) != "ollama" {
		return fmt.Errorf("LLM_API_KEY is required for provider %q", c.LLMProvider)
	}
	switch strings.ToLower(c.LLMProvider) {
	case "openai", "ollama", "anthropic", "mistral":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.PauseMarker == "" {
		return fmt.Errorf("PAUSE_MARKER must not be empty")
	}
	if c.MaxWordsPerChunk < 1 {
		return fmt.Errorf("MAX_WORDS_PER_CHUNK must be positive, got %d", c.MaxWordsPerChunk)
	}
	if c.BoilerplateWindow < 0 {
		return fmt.Errorf("BOILERPLATE_WINDOW must not be negative, got %d", c.BoilerplateWindow)
	}
	if c.BoilerplateThreshold <= 0 || c.BoilerplateThreshold > 1 {
		return fmt.Errorf("BOILERPLATE_THRESHOLD must be in (0, 1], got %v", c.BoilerplateThreshold)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.PauseDuration < 0 || c.PauseDuration > 1 {
		return fmt.Errorf("PAUSE_DURATION must be between 0 and 1 seconds, got %v", c.PauseDuration)
	}
	if c.DefaultSpeed < 0.25 || c.DefaultSpeed > 2 {
		return fmt.Errorf("DEFAULT_SPEED must be between 0.25 and 2, got %v", c.DefaultSpeed)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.RetryMaxAttempts)
	}
	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("ATTEMPT_TIMEOUT must be positive, got %d", c.AttemptTimeout)
	}
	if c.ContextTailChars < 0 {
		return fmt.Errorf("CONTEXT_TAIL_CHARS must not be negative, got %d", c.ContextTailChars)
	}
	return nil
}

// AttemptTimeoutDuration returns the per-attempt timeout as a duration
func (c *Config) AttemptTimeoutDuration() time.Duration {
	return time.Duration(c.AttemptTimeout) * time.Second
}

// RateLimitCooldownDuration returns the rate-limit cooldown as a duration
func (c *Config) RateLimitCooldownDuration() time.Duration {
	return time.Duration(c.RateLimitCooldown) * time.Second
}

// CircuitBreakerResetDuration returns the circuit breaker reset timeout as a duration
func (c *Config) CircuitBreakerResetDuration() time.Duration {
	return time.Duration(c.CircuitBreakerResetTimeout) * time.Second
}

// MaxUploadBytes returns the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// HasVoice reports whether the voice is in the configured catalog
func (c *Config) HasVoice(voice string) bool {
	for _, v := range c.TTSVoices {
		if v == voice {
			return true
		}
	}
	return false
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
