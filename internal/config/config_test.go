package config

import (
	"os"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TTS_API_KEY", "test-tts-key")
	t.Setenv("LLM_API_KEY", "test-llm-key")
}

func TestLoad(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.TTSAPIKey != "test-tts-key" {
		t.Errorf("Expected TTSAPIKey 'test-tts-key', got '%s'", cfg.TTSAPIKey)
	}

	if cfg.LLMAPIKey != "test-llm-key" {
		t.Errorf("Expected LLMAPIKey 'test-llm-key', got '%s'", cfg.LLMAPIKey)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when LLM_API_KEY is missing for openai provider")
	}
}

func TestLoad_OllamaWithoutKey(t *testing.T) {
	t.Setenv("TTS_API_KEY", "test-tts-key")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "ollama")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected ollama to load without an API key, got %v", err)
	}
	if cfg.LLMProvider != "ollama" {
		t.Errorf("Expected provider 'ollama', got '%s'", cfg.LLMProvider)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}

	if cfg.TTSModel != "kokoro" {
		t.Errorf("Expected default TTSModel 'kokoro', got '%s'", cfg.TTSModel)
	}

	if cfg.PauseMarker != "[SILENCE]" {
		t.Errorf("Expected default PauseMarker '[SILENCE]', got '%s'", cfg.PauseMarker)
	}

	if cfg.MaxWordsPerChunk != 50 {
		t.Errorf("Expected default MaxWordsPerChunk 50, got %d", cfg.MaxWordsPerChunk)
	}

	if cfg.SampleRate != 24000 {
		t.Errorf("Expected default SampleRate 24000, got %d", cfg.SampleRate)
	}

	if cfg.PauseDuration != 0.3 {
		t.Errorf("Expected default PauseDuration 0.3, got %f", cfg.PauseDuration)
	}

	if cfg.BoilerplateWindow != 5 {
		t.Errorf("Expected default BoilerplateWindow 5, got %d", cfg.BoilerplateWindow)
	}

	if cfg.BoilerplateThreshold != 0.6 {
		t.Errorf("Expected default BoilerplateThreshold 0.6, got %f", cfg.BoilerplateThreshold)
	}

	if cfg.ContextTailChars != 100 {
		t.Errorf("Expected default ContextTailChars 100, got %d", cfg.ContextTailChars)
	}

	if cfg.PageSeparator != "\n" {
		t.Errorf("Expected default PageSeparator newline, got %q", cfg.PageSeparator)
	}

	if len(cfg.TTSVoices) != 2 || cfg.TTSVoices[0] != "am_liam" {
		t.Errorf("Expected default voices [am_liam am_puck], got %v", cfg.TTSVoices)
	}
}

func TestLoadFromEnv(t *testing.T) {
	setRequired(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.TTSAPIKey != "test-tts-key" {
		t.Errorf("Expected TTSAPIKey 'test-tts-key', got '%s'", cfg.TTSAPIKey)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := GetEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	value = GetEnv("NON_EXISTENT_KEY", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}

func TestConfig_ResilienceDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("Expected default RetryMaxAttempts 3, got %d", cfg.RetryMaxAttempts)
	}

	if cfg.AttemptTimeoutDuration() != 60*time.Second {
		t.Errorf("Expected default attempt timeout 60s, got %v", cfg.AttemptTimeoutDuration())
	}

	if cfg.RateLimitCooldownDuration() != 61*time.Second {
		t.Errorf("Expected default rate limit cooldown 61s, got %v", cfg.RateLimitCooldownDuration())
	}

	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}

	if cfg.CircuitBreakerResetDuration() != 30*time.Second {
		t.Errorf("Expected default CircuitBreakerResetTimeout 30s, got %v", cfg.CircuitBreakerResetDuration())
	}

	if cfg.StartupWaitAttempts != 5 {
		t.Errorf("Expected default StartupWaitAttempts 5, got %d", cfg.StartupWaitAttempts)
	}

	if cfg.TTSResponseFormat != "pcm" {
		t.Errorf("Expected default TTSResponseFormat 'pcm', got '%s'", cfg.TTSResponseFormat)
	}
}

func TestConfig_ObservabilityDefaults(t *testing.T) {
	setRequired(t)
	// Clear LOG_LEVEL to ensure we get the default
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}

	if cfg.LogPretty {
		t.Error("Expected default LogPretty false, got true")
	}

	if !cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled true, got false")
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() Config {
		return Config{
			TTSAPIURL:            "http://localhost:8880/v1/audio/speech",
			LLMAPIKey:            "k",
			LLMProvider:          "openai",
			PauseMarker:          "[SILENCE]",
			MaxWordsPerChunk:     50,
			BoilerplateWindow:    5,
			BoilerplateThreshold: 0.6,
			SampleRate:           24000,
			PauseDuration:        0.3,
			DefaultSpeed:         1,
			RetryMaxAttempts:     3,
			AttemptTimeout:       60,
			ContextTailChars:     100,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"negative window", func(c *Config) { c.BoilerplateWindow = -1 }, true},
		{"zero threshold", func(c *Config) { c.BoilerplateThreshold = 0 }, true},
		{"threshold above one", func(c *Config) { c.BoilerplateThreshold = 1.5 }, true},
		{"speed too slow", func(c *Config) { c.DefaultSpeed = 0.1 }, true},
		{"speed too fast", func(c *Config) { c.DefaultSpeed = 2.5 }, true},
		{"pause too long", func(c *Config) { c.PauseDuration = 1.5 }, true},
		{"zero attempts", func(c *Config) { c.RetryMaxAttempts = 0 }, true},
		{"empty marker", func(c *Config) { c.PauseMarker = "" }, true},
		{"unknown provider", func(c *Config) { c.LLMProvider = "bard" }, true},
		{"zero words", func(c *Config) { c.MaxWordsPerChunk = 0 }, true},
		{"wav responses", func(c *Config) { c.TTSResponseFormat = "wav" }, false},
		{"mp3 responses", func(c *Config) { c.TTSResponseFormat = "mp3" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_HasVoice(t *testing.T) {
	cfg := Config{TTSVoices: []string{"am_liam", "am_puck"}}
	if !cfg.HasVoice("am_puck") {
		t.Error("Expected am_puck to be a known voice")
	}
	if cfg.HasVoice("nova") {
		t.Error("Expected nova to be unknown")
	}
}
