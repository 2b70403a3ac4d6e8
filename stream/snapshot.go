package stream

import (
	"time"

	"github.com/RyanBlaney/sonido-coach/algorithms/speech"
)

// Frame is one block of captured samples
type Frame struct {
	Samples    []float64
	SampleRate int
}

// Snapshot is the set of voice metrics delivered to subscribers every tick.
// Pitch is tonal.Invalid when the frame had no usable pitch; jitter, shimmer,
// HNR and vocal weight are only filled on pitched frames.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	Pitch           float64 `json:"pitch_hz"`
	PitchConfidence float64 `json:"pitch_confidence"`

	F1    float64      `json:"f1_hz"`
	F2    float64      `json:"f2_hz"`
	Vowel speech.Vowel `json:"vowel"`

	// Resonance is the spectral centroid mapped to 0-100
	Resonance           float64 `json:"resonance"`
	ResonanceHz         float64 `json:"resonance_hz"`
	ResonanceConfidence float64 `json:"resonance_confidence"`

	Jitter  float64 `json:"jitter_pct"`
	Shimmer float64 `json:"shimmer_pct"`
	HNR     float64 `json:"hnr_db"`

	LoudnessDB float64 `json:"loudness_db"`

	// VocalWeight is an H1-H2 derived 0-100 proxy; higher is heavier
	VocalWeight  float64 `json:"vocal_weight"`
	SpectralTilt float64 `json:"spectral_tilt_db"`

	// HarmonicRatio is the share of energy in the 50-1500 Hz voiced band
	HarmonicRatio float64 `json:"harmonic_ratio"`

	// Audible is set when the frame cleared the silence gate
	Audible bool `json:"audible"`

	// Live is false when a remote result arrived during this tick
	Live   bool          `json:"live"`
	Remote *RemoteResult `json:"remote,omitempty"`
}

// HasPitch reports whether the snapshot carries a pitch reading
func (s Snapshot) HasPitch() bool {
	return s.Pitch > 0
}
