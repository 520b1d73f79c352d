package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexiqai/doc-narrator/internal/audio"
)

// ErrUnknownVoice is returned for a voice outside the configured catalog
var ErrUnknownVoice = errors.New("unknown voice")

// Request is one chunk of text to be spoken
type Request = audio.SpeechRequest

// Synthesizer defines the interface for a Text-to-Speech client
type Synthesizer interface {
	// Synthesize speaks one chunk of text
	Synthesize(ctx context.Context, req Request) (audio.Waveform, error)

	// SampleRate returns the rate of the audio Synthesize produces
	SampleRate() int

	// Check reports whether the synthesizer is usable
	Check(ctx context.Context) error
}

// ValidateVoice checks voice against the catalog. An empty catalog accepts
// any non-empty voice.
func ValidateVoice(voice string, catalog []string) error {
	if voice == "" {
		return fmt.Errorf("%w: voice is empty", ErrUnknownVoice)
	}
	if len(catalog) == 0 {
		return nil
	}
	for _, v := range catalog {
		if v == voice {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (available: %v)", ErrUnknownVoice, voice, catalog)
}
