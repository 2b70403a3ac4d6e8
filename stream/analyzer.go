package stream

import (
	"math"
	"time"

	"github.com/RyanBlaney/sonido-coach/algorithms/common"
	"github.com/RyanBlaney/sonido-coach/algorithms/spectral"
	"github.com/RyanBlaney/sonido-coach/algorithms/speech"
	"github.com/RyanBlaney/sonido-coach/algorithms/temporal"
	"github.com/RyanBlaney/sonido-coach/algorithms/tonal"
	"github.com/RyanBlaney/sonido-coach/algorithms/windowing"
)

// Resonance score mapping: centroids at or below ResonanceLowHz read 0, at or
// above ResonanceHighHz read 100.
const (
	ResonanceLowHz  = 500.0
	ResonanceHighHz = 2500.0
)

// AnalyzerConfig holds per-frame analysis parameters
type AnalyzerConfig struct {
	// TargetRate is the rate frames are decimated to. Zero disables decimation.
	TargetRate     int
	YinThreshold   float64
	RMSGate        float64
	ConfidenceGate float64
}

// DefaultAnalyzerConfig returns the live analysis defaults
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		TargetRate:     16000,
		YinThreshold:   tonal.DefaultYinThreshold,
		RMSGate:        0.01,
		ConfidenceGate: 0.5,
	}
}

// Analyzer turns one frame into a Snapshot. It owns the pitch and formant
// continuity state for a session and is not safe for concurrent use.
type Analyzer struct {
	cfg      AnalyzerConfig
	pitch    *tonal.PitchEstimator
	formants *speech.FormantEstimator
	centroid *spectral.ResonanceCentroid
}

// NewAnalyzer creates an analyzer with fresh continuity state
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	return &Analyzer{
		cfg:      cfg,
		pitch:    tonal.NewPitchEstimator(cfg.YinThreshold),
		formants: speech.NewFormantEstimator(),
		centroid: spectral.NewResonanceCentroid(),
	}
}

// Reset clears pitch and formant continuity
func (a *Analyzer) Reset() {
	a.pitch.Reset()
	a.formants.Reset()
}

// Analyze computes the local metrics for frame. Frames quieter than the RMS
// gate only carry loudness.
func (a *Analyzer) Analyze(frame Frame, at time.Time) Snapshot {
	snap := Snapshot{
		Timestamp: at,
		Pitch:     tonal.Invalid,
		Vowel:     speech.VowelNone,
		Live:      true,
	}
	if len(frame.Samples) == 0 || frame.SampleRate <= 0 {
		snap.LoudnessDB = temporal.SilenceFloorDB
		return snap
	}

	samples, rate := temporal.Decimate(frame.Samples, frame.SampleRate, a.cfg.TargetRate)
	rms := temporal.RMS(samples)
	snap.LoudnessDB = temporal.DB(rms, 0)
	if rms < a.cfg.RMSGate {
		return snap
	}
	snap.Audible = true

	nyquist := float64(rate) / 2
	windowed := windowing.ApplyWindow(samples)
	mags := spectral.Magnitude(windowed)

	c := a.centroid.Compute(mags, nyquist)
	snap.ResonanceHz = c.Resonance
	snap.ResonanceConfidence = c.Confidence
	snap.Resonance = ResonanceScore(c.Resonance)
	snap.SpectralTilt = spectral.SpectralBalance(mags, nyquist)
	snap.HarmonicRatio = spectral.HarmonicRatio(mags, nyquist)

	fe := a.formants.Analyze(windowed, rate)
	snap.F1, snap.F2, snap.Vowel = fe.F1, fe.F2, fe.Vowel

	p := a.pitch.Detect(samples, rate)
	if !p.Valid() || p.Confidence <= a.cfg.ConfidenceGate {
		return snap
	}
	snap.Pitch = p.Frequency
	snap.PitchConfidence = p.Confidence

	periods, amps := temporal.Cycles(samples, rate, p.Frequency)
	snap.Jitter = speech.Jitter(periods)
	snap.Shimmer = speech.Shimmer(amps)

	lag := int(math.Round(float64(rate) / p.Frequency))
	if lag > 0 && lag < len(samples) {
		snap.HNR = speech.HNR(speech.Autocorrelation(samples, lag), lag)
	}

	snap.VocalWeight = VocalWeight(speech.H1H2(mags, nyquist, p.Frequency))
	return snap
}

// ResonanceScore maps a centroid frequency onto 0-100
func ResonanceScore(centroidHz float64) float64 {
	if centroidHz <= 0 {
		return 0
	}
	return common.Clamp((centroidHz-ResonanceLowHz)/(ResonanceHighHz-ResonanceLowHz)*100, 0, 100)
}

// VocalWeight maps H1-H2 (dB) to a 0-100 weight where 0 dB reads 50. A
// strong fundamental relative to the second harmonic reads light.
func VocalWeight(h1h2 float64) float64 {
	return common.Clamp(50-5*h1h2, 0, 100)
}
