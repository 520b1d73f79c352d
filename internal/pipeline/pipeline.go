// Package pipeline runs a document through extraction, reformatting and
// speech synthesis, reporting a single classified error on failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lexiqai/doc-narrator/internal/audio"
	"github.com/lexiqai/doc-narrator/internal/config"
	"github.com/lexiqai/doc-narrator/internal/document"
	"github.com/lexiqai/doc-narrator/internal/llm"
	"github.com/lexiqai/doc-narrator/internal/narration"
	"github.com/lexiqai/doc-narrator/internal/observability"
	"github.com/lexiqai/doc-narrator/internal/pdfsource"
	"github.com/lexiqai/doc-narrator/internal/resilience"
	"github.com/lexiqai/doc-narrator/internal/tts"
	"github.com/rs/zerolog"
)

const pdfContentType = "application/pdf"

var errInvalidParams = errors.New("invalid narration parameters")

// Input is one narration request
type Input struct {
	Document     []byte
	Pages        []int   // 0-indexed; nil selects every page
	Voice        string  // Empty selects the configured default
	Speed        float64 // Zero selects the configured default
	PauseSeconds float64 // Negative selects the configured default
	OnProgress   func(Progress)
}

// Progress reports how far a run has got
type Progress struct {
	RunID    string
	Stage    Stage
	Page     int // 0-indexed, format stage only
	Total    int
	Attempts int
	Elapsed  time.Duration
}

// Stats summarizes a successful run
type Stats struct {
	Pages       int
	Attempts    int // Reformatting attempts across all pages
	Extraction  time.Duration
	Formatting  time.Duration
	Synthesis   time.Duration
	AudioLength time.Duration
}

// Result is the output of a successful run
type Result struct {
	RunID      string
	SampleRate int
	Waveform   audio.Waveform
	Narration  string
	Pages      []string // Cleaned text of the selected pages
	Stats      Stats
}

// SourceOpener turns document bytes into a page source
type SourceOpener func(data []byte) (document.PageSource, error)

// Pipeline wires the narration stages together
type Pipeline struct {
	cfg         *config.Config
	extractor   *document.Extractor
	reformatter llm.Reformatter
	synth       tts.Synthesizer
	formatExec  *resilience.Executor
	synthExec   *resilience.Executor
	open        SourceOpener
	logger      zerolog.Logger
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithSourceOpener replaces the PDF reader
func WithSourceOpener(open SourceOpener) Option {
	return func(p *Pipeline) { p.open = open }
}

// WithLogger sets the pipeline logger
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithExecutorOptions applies options to both remote call executors
func WithExecutorOptions(opts ...resilience.ExecutorOption) Option {
	return func(p *Pipeline) {
		p.formatExec = resilience.NewExecutor("reformat", ExecutorConfig(p.cfg), opts...)
		p.synthExec = resilience.NewExecutor("synthesize", ExecutorConfig(p.cfg), opts...)
	}
}

// ExecutorConfig derives the retry policy from the service config
func ExecutorConfig(cfg *config.Config) resilience.ExecutorConfig {
	return resilience.ExecutorConfig{
		MaxAttempts:       cfg.RetryMaxAttempts,
		Timeout:           cfg.AttemptTimeoutDuration(),
		RateLimitCooldown: cfg.RateLimitCooldownDuration(),
	}
}

// ExtractOptions derives the extraction settings from the service config
func ExtractOptions(cfg *config.Config) document.Options {
	return document.Options{
		IgnoreBoilerplate: cfg.IgnoreBoilerplate,
		Boilerplate: document.BoilerplateConfig{
			Window:    cfg.BoilerplateWindow,
			Threshold: cfg.BoilerplateThreshold,
		},
		PageSeparator: cfg.PageSeparator,
	}
}

// New creates a pipeline around the given collaborators
func New(cfg *config.Config, reformatter llm.Reformatter, synth tts.Synthesizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:         cfg,
		reformatter: reformatter,
		synth:       synth,
		formatExec:  resilience.NewExecutor("reformat", ExecutorConfig(cfg)),
		synthExec:   resilience.NewExecutor("synthesize", ExecutorConfig(cfg)),
		open:        openPDF,
		logger:      observability.Component("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.extractor = document.NewExtractor(ExtractOptions(cfg), p.logger)
	return p
}

// NewFromConfig builds the language model and speech clients from config
func NewFromConfig(cfg *config.Config, logger zerolog.Logger) (*Pipeline, error) {
	var prompt llm.Prompt
	if cfg.LLMPromptFile != "" {
		loaded, err := llm.LoadPrompt(cfg.LLMPromptFile)
		if err != nil {
			return nil, &Error{Stage: StageValidate, Kind: KindConfig, Err: err}
		}
		prompt = loaded
	}

	client, err := llm.NewClient(llm.Config{
		Provider:    cfg.LLMProvider,
		Model:       cfg.LLMModel,
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Temperature: cfg.LLMTemperature,
		PauseMarker: cfg.PauseMarker,
		Prompt:      prompt,
	}, logger)
	if err != nil {
		return nil, &Error{Stage: StageValidate, Kind: KindConfig, Err: err}
	}

	synth := tts.NewOpenAIClient(tts.ConfigFrom(cfg), logger)
	return New(cfg, client, synth, WithLogger(logger)), nil
}

func openPDF(data []byte) (document.PageSource, error) {
	return pdfsource.Open(data)
}

// Checks returns readiness checks for the remote collaborators
func (p *Pipeline) Checks() map[string]observability.HealthCheckFunc {
	checks := map[string]observability.HealthCheckFunc{
		"tts": func(ctx context.Context) (bool, error) {
			err := p.synth.Check(ctx)
			return err == nil, err
		},
	}
	if c, ok := p.reformatter.(interface{ Check(context.Context) error }); ok {
		checks["llm"] = func(ctx context.Context) (bool, error) {
			err := c.Check(ctx)
			return err == nil, err
		}
	}
	return checks
}

// WaitReady runs the readiness checks until they all pass, backing off
// between rounds. The error names the checks still failing on the last round.
func (p *Pipeline) WaitReady(ctx context.Context, cfg resilience.ReconnectConfig) error {
	checks := p.Checks()
	return resilience.Reconnect(ctx, func(ctx context.Context) error {
		dependencies, ok := observability.CheckDependencies(ctx, checks)
		if ok {
			return nil
		}
		var failing []string
		for name, dep := range dependencies {
			if dep.Status != "healthy" {
				failing = append(failing, fmt.Sprintf("%s: %s", name, dep.Message))
			}
		}
		sort.Strings(failing)
		return fmt.Errorf("dependencies not ready: %s", strings.Join(failing, "; "))
	}, cfg, p.logger)
}

// Extract returns the cleaned text of a document without any remote calls
func (p *Pipeline) Extract(ctx context.Context, data []byte, pages []int) (string, error) {
	src, err := p.source(data)
	if err != nil {
		return "", err
	}
	text, err := p.extractor.ExtractText(ctx, src, pages)
	if err != nil {
		return "", newError(StageExtract, err)
	}
	return text, nil
}

// Run narrates a document. It returns either the complete waveform or one
// *Error; there is no partial output.
func (p *Pipeline) Run(ctx context.Context, in Input) (result Result, err error) {
	runID := uuid.New().String()
	logger := observability.WithCorrelationID(runID).With().Str("component", "pipeline").Logger()
	metrics := observability.NewRunMetrics(runID)
	metrics.RecordRunStart()
	start := time.Now()

	defer func() {
		metrics.RecordRunEnd(err == nil)
		var pe *Error
		if errors.As(err, &pe) {
			metrics.RecordError(string(pe.Kind), string(pe.Stage))
			logger.Error().Err(pe.Err).Str("stage", string(pe.Stage)).Str("kind", string(pe.Kind)).Msg("Narration run failed")
		}
	}()

	params, err := p.params(in)
	if err != nil {
		return Result{}, err
	}

	progress := func(pr Progress) {
		pr.RunID = runID
		if in.OnProgress != nil {
			in.OnProgress(pr)
		}
	}

	src, err := p.source(in.Document)
	if err != nil {
		return Result{}, err
	}

	progress(Progress{Stage: StageExtract})
	extractStart := time.Now()
	pages, err := p.extractor.Extract(ctx, src, in.Pages)
	if err != nil {
		return Result{}, newError(StageExtract, err)
	}
	stats := Stats{Pages: len(pages), Extraction: time.Since(extractStart)}
	logger.Info().Int("pages", len(pages)).Dur("elapsed", stats.Extraction).Msg("Document extracted")

	ctx = llm.WithRequestMeta(ctx, llm.RequestMeta{RunID: runID})
	orchestrator := narration.New(p.reformatter, p.formatExec,
		narration.WithTailChars(p.cfg.ContextTailChars),
		narration.WithLogger(logger),
		narration.WithProgress(func(np narration.Progress) {
			stats.Attempts += np.Attempts
			progress(Progress{
				Stage:    StageFormat,
				Page:     np.Page,
				Total:    np.Total,
				Attempts: np.Attempts,
				Elapsed:  np.Elapsed,
			})
		}),
	)

	formatStart := time.Now()
	text, err := orchestrator.Format(ctx, pages)
	if err != nil {
		return Result{}, newError(StageFormat, err)
	}
	stats.Formatting = time.Since(formatStart)
	logger.Info().Int("chars", len(text)).Dur("elapsed", stats.Formatting).Msg("Narration formatted")

	progress(Progress{Stage: StageSynthesize})
	assembler := audio.NewAssembler(p.synth,
		audio.WithSampleRate(p.cfg.SampleRate),
		audio.WithPauseMarker(p.cfg.PauseMarker),
		audio.WithMaxWords(p.cfg.MaxWordsPerChunk),
		audio.WithExecutor(p.synthExec),
		audio.WithRunMetrics(metrics),
		audio.WithAssemblerLogger(logger),
	)

	synthStart := time.Now()
	wave, err := assembler.Assemble(ctx, text, params)
	if err != nil {
		return Result{}, newError(StageSynthesize, err)
	}
	stats.Synthesis = time.Since(synthStart)
	stats.AudioLength = wave.Duration()

	logger.Info().
		Dur("audio", stats.AudioLength).
		Dur("elapsed", time.Since(start)).
		Int("attempts", stats.Attempts).
		Msg("Narration run completed")

	return Result{
		RunID:      runID,
		SampleRate: wave.SampleRate,
		Waveform:   wave,
		Narration:  text,
		Pages:      pages,
		Stats:      stats,
	}, nil
}

// source rejects anything that is not a PDF before opening it
func (p *Pipeline) source(data []byte) (document.PageSource, error) {
	if ct := http.DetectContentType(data); ct != pdfContentType {
		return nil, &Error{
			Stage: StageValidate,
			Kind:  KindUnsupported,
			Err:   fmt.Errorf("%w: detected %s", ErrUnsupportedFormat, ct),
		}
	}
	src, err := p.open(data)
	if err != nil {
		return nil, newError(StageExtract, err)
	}
	return src, nil
}

func (p *Pipeline) params(in Input) (audio.Params, error) {
	params := audio.Params{Voice: in.Voice, Speed: in.Speed, PauseSeconds: in.PauseSeconds}
	if params.Voice == "" {
		params.Voice = p.cfg.DefaultVoice
	}
	if params.Speed == 0 {
		params.Speed = p.cfg.DefaultSpeed
	}
	if params.PauseSeconds < 0 {
		params.PauseSeconds = p.cfg.PauseDuration
	}

	if err := tts.ValidateVoice(params.Voice, p.cfg.TTSVoices); err != nil {
		return params, &Error{Stage: StageValidate, Kind: KindConfig, Err: err}
	}
	if params.Speed < 0.25 || params.Speed > 2 {
		return params, &Error{Stage: StageValidate, Kind: KindConfig, Err: fmt.Errorf("%w: speed must be between 0.25 and 2, got %v", errInvalidParams, params.Speed)}
	}
	if params.PauseSeconds > 1 {
		return params, &Error{Stage: StageValidate, Kind: KindConfig, Err: fmt.Errorf("%w: pause must be between 0 and 1 seconds, got %v", errInvalidParams, params.PauseSeconds)}
	}
	return params, nil
}
