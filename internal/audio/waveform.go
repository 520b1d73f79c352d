// Package audio splits narration into synthesis chunks and assembles the
// synthesized speech into one waveform with pauses between segments.
package audio

import "time"

// DefaultSampleRate is the rate speech is synthesized and assembled at
const DefaultSampleRate = 24000

// Waveform is mono audio as float32 samples at a fixed sample rate
type Waveform struct {
	SampleRate int
	Samples    []float32
}

// Silence returns int(rate × seconds) zero samples
func Silence(rate int, seconds float64) Waveform {
	n := int(float64(rate) * seconds)
	if n < 0 {
		n = 0
	}
	return Waveform{SampleRate: rate, Samples: make([]float32, n)}
}

// Concat joins waveforms in order. All inputs are expected at rate.
func Concat(rate int, parts ...Waveform) Waveform {
	total := 0
	for _, p := range parts {
		total += len(p.Samples)
	}
	out := Waveform{SampleRate: rate, Samples: make([]float32, 0, total)}
	for _, p := range parts {
		out.Samples = append(out.Samples, p.Samples...)
	}
	return out
}

// Len returns the number of samples
func (w Waveform) Len() int { return len(w.Samples) }

// Duration returns the playing time of the waveform
func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// At returns the waveform at another sample rate
func (w Waveform) At(rate int) Waveform {
	if w.SampleRate == rate {
		return w
	}
	return Waveform{SampleRate: rate, Samples: Resample(w.Samples, w.SampleRate, rate)}
}
