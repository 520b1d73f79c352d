package audio

import (
	"testing"
	"time"
)

func TestSilence(t *testing.T) {
	tests := []struct {
		rate    int
		seconds float64
		want    int
	}{
		{24000, 0.5, 12000},
		{24000, 0.3, 7200},
		{24000, 0, 0},
		{8000, 1.25, 10000},
		{24000, -1, 0},
	}

	for _, tt := range tests {
		w := Silence(tt.rate, tt.seconds)
		if w.Len() != tt.want {
			t.Errorf("Silence(%d, %v): expected %d samples, got %d", tt.rate, tt.seconds, tt.want, w.Len())
		}
		for _, s := range w.Samples {
			if s != 0 {
				t.Fatalf("Expected zero samples, got %v", s)
			}
		}
	}
}

func TestConcat(t *testing.T) {
	a := Waveform{SampleRate: 24000, Samples: []float32{1, 2}}
	b := Waveform{SampleRate: 24000, Samples: []float32{3}}

	got := Concat(24000, a, b, a)
	expected := []float32{1, 2, 3, 1, 2}
	if len(got.Samples) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(got.Samples))
	}
	for i := range expected {
		if got.Samples[i] != expected[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, expected[i], got.Samples[i])
		}
	}

	// Inputs are not aliased
	got.Samples[0] = 9
	if a.Samples[0] != 1 {
		t.Error("Expected Concat to copy samples")
	}

	if empty := Concat(24000); empty.Len() != 0 || empty.SampleRate != 24000 {
		t.Errorf("Expected empty waveform at 24000, got %+v", empty)
	}
}

func TestWaveform_Duration(t *testing.T) {
	w := Silence(24000, 1.5)
	if d := w.Duration(); d != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s, got %v", d)
	}

	if d := (Waveform{Samples: []float32{1}}).Duration(); d != 0 {
		t.Errorf("Expected 0 for unknown rate, got %v", d)
	}
}
