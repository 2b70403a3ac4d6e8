// Package baseline builds statistical voice profiles from complete recordings
// and compares later profiles against them.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-coach/algorithms/common"
	"github.com/RyanBlaney/sonido-coach/algorithms/filters"
	"github.com/RyanBlaney/sonido-coach/algorithms/spectral"
	"github.com/RyanBlaney/sonido-coach/algorithms/speech"
	"github.com/RyanBlaney/sonido-coach/algorithms/stats"
	"github.com/RyanBlaney/sonido-coach/algorithms/temporal"
	"github.com/RyanBlaney/sonido-coach/algorithms/tonal"
	"github.com/RyanBlaney/sonido-coach/algorithms/windowing"
	"github.com/RyanBlaney/sonido-coach/logging"
	"github.com/RyanBlaney/sonido-coach/transcode"
)

// ErrNoVoicedFrames is returned when no frame passes the silence and
// confidence gates. No profile is produced.
var ErrNoVoicedFrames = errors.New("no voiced frames in recording")

// Vocal weight is only measured for pitches in this range
const (
	MinWeightPitch = 50.0
	MaxWeightPitch = 500.0
)

// Profile is the statistical summary of one recording
type Profile struct {
	ID          string        `json:"id"`
	Source      string        `json:"source,omitempty"`
	Pitch       stats.Summary `json:"pitch"`
	F1          stats.Summary `json:"f1"`
	F2          stats.Summary `json:"f2"`
	VocalWeight stats.Summary `json:"vocal_weight"` // H1-H2 in dB
	LoudnessRMS float64       `json:"loudness_rms"`
	LoudnessDB  float64       `json:"loudness_db"`
	Confidence  stats.Summary `json:"confidence"`

	// SampleRate is the rate frames were analysed at after decimation. It
	// can sit above the configured target when the source rate is not an
	// integer multiple of it.
	SampleRate   int           `json:"sample_rate"`
	VoicedFrames int           `json:"voiced_frames"`
	TotalFrames  int           `json:"total_frames"`
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Config holds the offline framing and gating parameters
type Config struct {
	// TargetRate is reached by integer decimation; the rate actually used
	// is recorded in Profile.SampleRate.
	TargetRate     int
	FrameSize      int
	HopSize        int
	YinThreshold   float64
	RMSGate        float64
	ConfidenceGate float64
}

// DefaultConfig returns the calibration defaults
func DefaultConfig() Config {
	return Config{
		TargetRate:     16000,
		FrameSize:      2048,
		HopSize:        512,
		YinThreshold:   tonal.DefaultYinThreshold,
		RMSGate:        0.01,
		ConfidenceGate: 0.5,
	}
}

// Analyzer produces profiles from recordings
type Analyzer struct {
	cfg     Config
	decoder *transcode.Decoder
	logger  logging.Logger
	now     func() time.Time
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock overrides the time used for CreatedAt
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer creates an analyzer. A nil decoder uses the default decoder.
func NewAnalyzer(cfg Config, decoder *transcode.Decoder, opts ...Option) *Analyzer {
	def := DefaultConfig()
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = def.FrameSize
	}
	if cfg.HopSize <= 0 {
		cfg.HopSize = def.HopSize
	}
	if cfg.YinThreshold <= 0 {
		cfg.YinThreshold = def.YinThreshold
	}
	if decoder == nil {
		decoder = transcode.NewDecoder(nil)
	}

	a := &Analyzer{
		cfg:     cfg,
		decoder: decoder,
		logger:  logging.WithFields(logging.Fields{"component": "baseline"}),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeFile decodes path and profiles it. Decode failures are returned
// unchanged in the chain.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Profile, error) {
	audio, err := a.decoder.DecodeFile(ctx, path)
	if err != nil {
		return nil, err
	}
	p, err := a.Analyze(ctx, audio.PCM, audio.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", path, err)
	}
	p.Source = path
	return p, nil
}

// AnalyzeBytes decodes an in-memory recording and profiles it
func (a *Analyzer) AnalyzeBytes(ctx context.Context, data []byte) (*Profile, error) {
	audio, err := a.decoder.DecodeBytes(ctx, data)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, audio.PCM, audio.SampleRate)
}

// Analyze profiles mono samples at sampleRate
func (a *Analyzer) Analyze(ctx context.Context, pcm []float64, sampleRate int) (*Profile, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	duration := time.Duration(len(pcm)) * time.Second / time.Duration(sampleRate)

	samples, rate := temporal.Decimate(pcm, sampleRate, a.cfg.TargetRate)
	samples = filters.NewDCRemoval(rate, filters.DefaultDCCutoff).ProcessBuffer(samples)
	nyquist := float64(rate) / 2

	pitchEst := tonal.NewPitchEstimator(a.cfg.YinThreshold)
	formantEst := speech.NewFormantEstimator()
	acc := frameStats{gate: a.cfg.ConfidenceGate}
	var total int

	for start := 0; start+a.cfg.FrameSize <= len(samples); start += a.cfg.HopSize {
		if total%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		total++

		frame := samples[start : start+a.cfg.FrameSize]
		rms := temporal.RMS(frame)
		if rms < a.cfg.RMSGate {
			continue
		}
		acc.rms = append(acc.rms, rms)

		est := pitchEst.Detect(frame, rate)
		if !acc.addPitch(est) {
			continue
		}

		windowed := windowing.ApplyWindow(frame)
		acc.addFormants(formantEst.Analyze(windowed, rate))

		if est.Frequency >= MinWeightPitch && est.Frequency <= MaxWeightPitch {
			mags := spectral.Magnitude(windowed)
			acc.weights = append(acc.weights, speech.H1H2(mags, nyquist, est.Frequency))
		}
	}

	if len(acc.pitches) == 0 {
		a.logger.Warn("Recording has no voiced frames", logging.Fields{
			"total_frames":   total,
			"audible_frames": len(acc.rms),
		})
		return nil, ErrNoVoicedFrames
	}

	meanRMS := common.Mean(acc.rms)
	p := &Profile{
		ID:           uuid.NewString(),
		Pitch:        stats.Summarize(acc.pitches),
		F1:           stats.Summarize(acc.f1s),
		F2:           stats.Summarize(acc.f2s),
		VocalWeight:  stats.Summarize(acc.weights),
		LoudnessRMS:  meanRMS,
		LoudnessDB:   temporal.DB(meanRMS, 0),
		Confidence:   stats.Summarize(acc.confidences),
		SampleRate:   rate,
		VoicedFrames: len(acc.pitches),
		TotalFrames:  total,
		Duration:     duration,
		CreatedAt:    a.now(),
	}

	a.logger.Info("Baseline profile created", logging.Fields{
		"profile_id":    p.ID,
		"voiced_frames": p.VoicedFrames,
		"total_frames":  p.TotalFrames,
		"mean_pitch":    p.Pitch.Mean,
		"sample_rate":   rate,
	})
	return p, nil
}

// frameStats collects per-frame readings that pass the confidence gate
type frameStats struct {
	gate float64

	rms                  []float64
	pitches, confidences []float64
	f1s, f2s, weights    []float64
}

// addPitch keeps a valid pitch estimate above the gate and reports whether
// the frame counts as voiced.
func (s *frameStats) addPitch(est tonal.PitchEstimate) bool {
	if !est.Valid() || est.Confidence <= s.gate {
		return false
	}
	s.pitches = append(s.pitches, est.Frequency)
	s.confidences = append(s.confidences, est.Confidence)
	return true
}

func (s *frameStats) addFormants(f speech.FormantEstimate) {
	if f.F1 <= 0 || f.F2 <= 0 || f.Confidence <= s.gate {
		return
	}
	s.f1s = append(s.f1s, f.F1)
	s.f2s = append(s.f2s, f.F2)
}
