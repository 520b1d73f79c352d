package audio

import (
	"fmt"
	"math"
)

// DecodePCM16LE converts 16-bit signed little-endian PCM to float32 samples in [-1, 1)
func DecodePCM16LE(pcmData []byte) ([]float32, error) {
	if len(pcmData)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (16-bit samples), got %d bytes", len(pcmData))
	}

	samples := make([]float32, len(pcmData)/2)
	for i := range samples {
		// Little-endian 16-bit signed integer
		s := int16(pcmData[i*2]) | int16(pcmData[i*2+1])<<8
		samples[i] = float32(s) / 32768
	}
	return samples, nil
}

// toInt16 quantizes a sample to 16 bits; samples outside [-1, 1] are clipped
func toInt16(s float32) int16 {
	switch {
	case s >= 1:
		return math.MaxInt16
	case s <= -1:
		return math.MinInt16
	default:
		return int16(math.Round(float64(s) * 32767))
	}
}

// Resample performs simple linear interpolation resampling
func Resample(samples []float32, inputRate, outputRate int) []float32 {
	if inputRate == outputRate || len(samples) == 0 || inputRate <= 0 || outputRate <= 0 {
		return samples
	}

	ratio := float64(outputRate) / float64(inputRate)
	outputLength := int(float64(len(samples)) * ratio)
	output := make([]float32, outputLength)

	for i := 0; i < outputLength; i++ {
		// Calculate source position
		srcPos := float64(i) / ratio

		idx0 := int(srcPos)
		if idx0 >= len(samples) {
			idx0 = len(samples) - 1
		}
		idx1 := idx0 + 1
		if idx1 >= len(samples) {
			idx1 = len(samples) - 1
		}

		// Interpolate between two samples
		fraction := srcPos - float64(idx0)
		output[i] = float32(float64(samples[idx0])*(1.0-fraction) + float64(samples[idx1])*fraction)
	}

	return output
}

// Normalize scales samples down so the loudest one reaches peak; quieter
// audio is returned as-is
func Normalize(samples []float32, peak float32) []float32 {
	if len(samples) == 0 {
		return samples
	}

	// Find maximum amplitude
	var maxVal float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > maxVal {
			maxVal = s
		}
	}

	if maxVal <= peak {
		return samples
	}

	ratio := peak / maxVal
	normalized := make([]float32, len(samples))
	for i, s := range samples {
		normalized[i] = s * ratio
	}
	return normalized
}

// CalculateRMS calculates the root mean square (RMS) of audio samples
// Useful for detecting silent synthesis output
func CalculateRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}

	return math.Sqrt(sum / float64(len(samples)))
}
