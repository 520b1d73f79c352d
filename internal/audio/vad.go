package audio

// VADConfig holds configuration for Voice Activity Detection
type VADConfig struct {
	EnergyThreshold float64 // RMS energy threshold for speech detection
	SilenceFrames   int     // Number of consecutive silence frames to mark as end of speech
	FrameSize       int     // Number of samples per frame
}

// DefaultVADConfig returns a default VAD configuration for 24kHz speech
func DefaultVADConfig() *VADConfig {
	return &VADConfig{
		EnergyThreshold: 0.01, // About -40 dBFS
		SilenceFrames:   10,   // 200ms of silence (10 frames * 20ms)
		FrameSize:       480,  // 20ms at 24kHz (24000 * 0.02 = 480)
	}
}

// VADDetector performs Voice Activity Detection frame by frame
type VADDetector struct {
	config         *VADConfig
	silenceCounter int
	isSpeaking     bool
}

// NewVADDetector creates a new VAD detector
func NewVADDetector(config *VADConfig) *VADDetector {
	if config == nil {
		config = DefaultVADConfig()
	}
	return &VADDetector{config: config}
}

// ProcessFrame processes an audio frame and returns whether speech is detected
// Returns: (isSpeaking, speechStarted, speechEnded)
func (v *VADDetector) ProcessFrame(samples []float32) (bool, bool, bool) {
	frameHasSpeech := !DetectSilence(samples, v.config.EnergyThreshold)

	var speechStarted, speechEnded bool

	if frameHasSpeech {
		v.silenceCounter = 0
		if !v.isSpeaking {
			speechStarted = true
			v.isSpeaking = true
		}
	} else {
		v.silenceCounter++
		if v.isSpeaking && v.silenceCounter >= v.config.SilenceFrames {
			speechEnded = true
			v.isSpeaking = false
			v.silenceCounter = 0
		}
	}

	return v.isSpeaking, speechStarted, speechEnded
}

// Reset resets the VAD detector state
func (v *VADDetector) Reset() {
	v.silenceCounter = 0
	v.isSpeaking = false
}

// IsSpeaking returns whether speech is currently detected
func (v *VADDetector) IsSpeaking() bool {
	return v.isSpeaking
}

// Bounds scans a complete clip frame by frame and returns the sample range
// [start, end) spanning every frame with speech energy. found is false when
// the clip is silent throughout. The detector is reset before scanning.
func (v *VADDetector) Bounds(samples []float32) (start, end int, found bool) {
	v.Reset()
	defer v.Reset()

	frame := v.config.FrameSize
	if frame <= 0 {
		frame = len(samples)
	}

	for off := 0; off < len(samples); off += frame {
		stop := off + frame
		if stop > len(samples) {
			stop = len(samples)
		}
		_, started, _ := v.ProcessFrame(samples[off:stop])
		if started && !found {
			start, found = off, true
		}
		// A speech frame leaves the detector speaking with no silence counted
		if v.IsSpeaking() && v.silenceCounter == 0 {
			end = stop
		}
	}
	return start, end, found
}

// DetectSilence reports whether the samples stay at or below the energy threshold
func DetectSilence(samples []float32, threshold float64) bool {
	return CalculateRMS(samples) <= threshold
}
