package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodePCM16LE(t *testing.T) {
	// Create test PCM data (16-bit samples)
	samples := []int16{0, 16384, -16384, 32767, -32768}
	pcmData := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(pcmData[i*2:], uint16(sample))
	}

	decoded, err := DecodePCM16LE(pcmData)
	if err != nil {
		t.Fatalf("DecodePCM16LE failed: %v", err)
	}

	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	expected := []float32{0, 0.5, -0.5, 32767.0 / 32768, -1}
	for i := range expected {
		if decoded[i] != expected[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, expected[i], decoded[i])
		}
	}
}

func TestDecodePCM16LE_OddLength(t *testing.T) {
	_, err := DecodePCM16LE([]byte{0x01, 0x02, 0x03})
	if err == nil {
		t.Error("Expected error for odd-length PCM data")
	}
}

func TestDecodePCM16LE_Empty(t *testing.T) {
	decoded, err := DecodePCM16LE(nil)
	if err != nil {
		t.Fatalf("DecodePCM16LE failed: %v", err)
	}
	if len(decoded) != 0 {
		t.Errorf("Expected no samples, got %d", len(decoded))
	}
}

func TestToInt16_RoundTrip(t *testing.T) {
	samples := []float32{0, 0.25, -0.25, 0.999, -0.999}

	pcm := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(toInt16(s)))
	}
	decoded, err := DecodePCM16LE(pcm)
	if err != nil {
		t.Fatalf("DecodePCM16LE failed: %v", err)
	}

	for i := range samples {
		if diff := math.Abs(float64(samples[i] - decoded[i])); diff > 1.0/16384 {
			t.Errorf("Sample %d: expected ~%v, got %v", i, samples[i], decoded[i])
		}
	}
}

func TestToInt16_Clips(t *testing.T) {
	if hi := toInt16(1.5); hi != math.MaxInt16 {
		t.Errorf("Expected %d, got %d", math.MaxInt16, hi)
	}
	if lo := toInt16(-1.5); lo != math.MinInt16 {
		t.Errorf("Expected %d, got %d", math.MinInt16, lo)
	}
}

func TestResample(t *testing.T) {
	// 0.1 seconds at 24kHz
	samples := make([]float32, 2400)
	for i := range samples {
		samples[i] = float32(i%100) / 100
	}

	// Should have approximately 800 samples (0.1 seconds at 8kHz)
	if got := len(Resample(samples, 24000, 8000)); got < 799 || got > 801 {
		t.Errorf("Expected around 800 samples, got %d", got)
	}

	// Upsampling doubles the length
	if got := len(Resample(samples, 12000, 24000)); got != 4800 {
		t.Errorf("Expected 4800 samples, got %d", got)
	}

	// Same rate returns the input untouched
	same := Resample(samples, 24000, 24000)
	if len(same) != len(samples) || &same[0] != &samples[0] {
		t.Error("Expected same-rate resample to return the input")
	}
}

func TestResample_Interpolates(t *testing.T) {
	out := Resample([]float32{0, 1}, 1, 2)
	expected := []float32{0, 0.5, 1, 1}
	if len(out) != len(expected) {
		t.Fatalf("Expected %d samples, got %d", len(expected), len(out))
	}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, expected[i], out[i])
		}
	}
}

func TestNormalize(t *testing.T) {
	quiet := []float32{0.1, -0.2}
	if got := Normalize(quiet, 0.9); got[1] != -0.2 {
		t.Errorf("Expected quiet audio unchanged, got %v", got)
	}

	loud := Normalize([]float32{0.5, -2.0}, 1.0)
	if loud[1] != -1.0 || loud[0] != 0.25 {
		t.Errorf("Expected [0.25 -1], got %v", loud)
	}
}

func TestCalculateRMS(t *testing.T) {
	if rms := CalculateRMS(nil); rms != 0 {
		t.Errorf("Expected 0 for empty input, got %f", rms)
	}

	if rms := CalculateRMS(make([]float32, 100)); rms != 0 {
		t.Errorf("Expected 0 for silence, got %f", rms)
	}

	// Constant amplitude has RMS equal to that amplitude
	samples := []float32{0.5, -0.5, 0.5, -0.5}
	if rms := CalculateRMS(samples); math.Abs(rms-0.5) > 1e-9 {
		t.Errorf("Expected RMS 0.5, got %f", rms)
	}
}
