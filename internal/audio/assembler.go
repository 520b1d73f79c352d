package audio

import (
	"context"
	"fmt"

	"github.com/lexiqai/doc-narrator/internal/observability"
	"github.com/lexiqai/doc-narrator/internal/resilience"
	"github.com/rs/zerolog"
)

// MaxPeak is the loudest sample the assembled narration may carry
const MaxPeak float32 = 1.0

// SpeechRequest asks for one chunk of text to be spoken
type SpeechRequest struct {
	Text  string
	Voice string
	Speed float64
}

// Synthesizer turns text into speech
type Synthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) (Waveform, error)
}

// Params are the per-run synthesis settings
type Params struct {
	Voice        string
	Speed        float64
	PauseSeconds float64 // Silence inserted before every segment but the first
}

// Assembler synthesizes a narration chunk by chunk and stitches the audio
// together in source order
type Assembler struct {
	synth    Synthesizer
	rate     int
	marker   string
	maxWords int
	executor *resilience.Executor
	metrics  *observability.RunMetrics
	detector *VADDetector
	logger   zerolog.Logger
}

// AssemblerOption customizes an Assembler
type AssemblerOption func(*Assembler)

// WithSampleRate sets the output sample rate
func WithSampleRate(rate int) AssemblerOption {
	return func(a *Assembler) { a.rate = rate }
}

// WithPauseMarker sets the token that separates segments
func WithPauseMarker(marker string) AssemblerOption {
	return func(a *Assembler) { a.marker = marker }
}

// WithMaxWords sets the word budget per chunk
func WithMaxWords(n int) AssemblerOption {
	return func(a *Assembler) { a.maxWords = n }
}

// WithExecutor runs each synthesis call through a resilient executor
func WithExecutor(e *resilience.Executor) AssemblerOption {
	return func(a *Assembler) { a.executor = e }
}

// WithRunMetrics records per-chunk synthesis metrics for a run
func WithRunMetrics(m *observability.RunMetrics) AssemblerOption {
	return func(a *Assembler) { a.metrics = m }
}

// WithAssemblerLogger sets the assembler logger
func WithAssemblerLogger(logger zerolog.Logger) AssemblerOption {
	return func(a *Assembler) { a.logger = logger }
}

// NewAssembler creates an assembler over synth
func NewAssembler(synth Synthesizer, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		synth:    synth,
		rate:     DefaultSampleRate,
		marker:   DefaultPauseMarker,
		maxWords: DefaultMaxWords,
		logger:   observability.Component("assembler"),
	}
	for _, opt := range opts {
		opt(a)
	}

	// 20ms frames at the output rate
	vad := DefaultVADConfig()
	vad.FrameSize = a.rate / 50
	a.detector = NewVADDetector(vad)
	return a
}

// SampleRate returns the output sample rate
func (a *Assembler) SampleRate() int { return a.rate }

// Assemble speaks the narration. Segments between pause markers are
// synthesized chunk by chunk; every segment after the first is preceded by
// int(rate × PauseSeconds) samples of silence. Audio louder than MaxPeak is
// scaled down to it. Any synthesis error aborts.
func (a *Assembler) Assemble(ctx context.Context, narration string, p Params) (Waveform, error) {
	segments := SplitPauses(narration, a.marker)
	parts := make([]Waveform, 0, 2*len(segments))

	for i, segment := range segments {
		if i > 0 {
			parts = append(parts, Silence(a.rate, p.PauseSeconds))
		}

		chunks := ChunkText(segment, a.maxWords)
		for j, chunk := range chunks {
			w, err := a.speak(ctx, SpeechRequest{Text: chunk, Voice: p.Voice, Speed: p.Speed})
			if err != nil {
				return Waveform{}, fmt.Errorf("segment %d chunk %d: %w", i, j, err)
			}
			if _, _, found := a.detector.Bounds(w.Samples); !found {
				a.logger.Warn().Int("segment", i).Int("chunk", j).Str("text", chunk).Msg("Synthesizer returned no audible speech")
			}
			parts = append(parts, w.At(a.rate))
		}

		a.logger.Debug().Int("segment", i).Int("chunks", len(chunks)).Msg("Segment synthesized")
	}

	out := Concat(a.rate, parts...)
	// Interpolated or hot synthesizer output can overshoot full scale
	out.Samples = Normalize(out.Samples, MaxPeak)
	observability.RecordAudioSeconds(out.Duration().Seconds())
	return out, nil
}

func (a *Assembler) speak(ctx context.Context, req SpeechRequest) (Waveform, error) {
	if a.metrics != nil {
		a.metrics.RecordTTSStart()
	}

	var w Waveform
	var err error
	if a.executor != nil {
		w, _, err = resilience.Do(ctx, a.executor, func(ctx context.Context) (Waveform, error) {
			return a.synth.Synthesize(ctx, req)
		})
	} else {
		w, err = a.synth.Synthesize(ctx, req)
	}

	if a.metrics != nil {
		a.metrics.RecordTTSEnd(err == nil)
	}
	return w, err
}
