package tonal

import (
	"math"

	"github.com/RyanBlaney/sonido-coach/algorithms/common"
)

// Invalid is the frequency reported when a frame has no usable pitch
const Invalid = -1.0

// Pitch estimator defaults
const (
	DefaultYinThreshold = 0.15
	MinPitchHz          = 50.0
	MaxPitchHz          = 800.0

	// OctaveOverrideConfidence lets a confident estimate through the octave guard
	OctaveOverrideConfidence = 0.9
)

// PitchEstimate is the fundamental frequency reading for one frame
type PitchEstimate struct {
	Frequency  float64 `json:"frequency_hz"`
	Confidence float64 `json:"confidence"`
}

// Valid reports whether the estimate carries a frequency
func (p PitchEstimate) Valid() bool {
	return p.Frequency > 0
}

// InvalidPitch returns the sentinel estimate
func InvalidPitch() PitchEstimate {
	return PitchEstimate{Frequency: Invalid, Confidence: 0}
}

// PitchEstimator runs YIN per frame and rejects likely octave errors against
// the last accepted frequency. It is not safe for concurrent use; each session
// owns one.
type PitchEstimator struct {
	threshold float64
	minFreq   float64
	maxFreq   float64
	lastValid float64
}

// NewPitchEstimator creates an estimator. A non-positive threshold selects
// DefaultYinThreshold.
func NewPitchEstimator(threshold float64) *PitchEstimator {
	if threshold <= 0 {
		threshold = DefaultYinThreshold
	}
	return &PitchEstimator{
		threshold: threshold,
		minFreq:   MinPitchHz,
		maxFreq:   MaxPitchHz,
	}
}

// Detect estimates the pitch of frame
func (pe *PitchEstimator) Detect(frame []float64, sampleRate int) PitchEstimate {
	return pe.accept(pe.yin(frame, sampleRate))
}

// Reset forgets the last accepted frequency
func (pe *PitchEstimator) Reset() {
	pe.lastValid = 0
}

// LastValid returns the last accepted frequency, 0 if none
func (pe *PitchEstimator) LastValid() float64 {
	return pe.lastValid
}

// accept applies the octave-jump guard and updates continuity
func (pe *PitchEstimator) accept(est PitchEstimate) PitchEstimate {
	if !est.Valid() {
		return InvalidPitch()
	}

	if pe.lastValid > 0 && est.Confidence < OctaveOverrideConfidence {
		ratio := est.Frequency / pe.lastValid
		if (ratio >= 1.8 && ratio <= 2.2) || (ratio >= 0.4 && ratio <= 0.6) {
			return InvalidPitch()
		}
	}

	pe.lastValid = est.Frequency
	return est
}

// yin implements the cumulative-mean-normalized difference search
func (pe *PitchEstimator) yin(frame []float64, sampleRate int) PitchEstimate {
	n := len(frame)
	halfN := n / 2
	if sampleRate <= 0 || halfN < 4 {
		return InvalidPitch()
	}

	minLag := max(2, int(float64(sampleRate)/pe.maxFreq))
	maxLag := min(halfN-1, int(math.Ceil(float64(sampleRate)/pe.minFreq)))
	if minLag >= maxLag {
		return InvalidPitch()
	}

	// Difference function up to maxLag+1 so the refinement has a right neighbour
	limit := maxLag + 1
	diff := make([]float64, limit+1)
	for tau := 1; tau <= limit; tau++ {
		sum := 0.0
		for j := range halfN {
			delta := frame[j] - frame[j+tau]
			sum += delta * delta
		}
		diff[tau] = sum
	}

	cmndf := make([]float64, limit+1)
	cmndf[0] = 1.0
	runningSum := 0.0
	for tau := 1; tau <= limit; tau++ {
		runningSum += diff[tau]
		if runningSum == 0 {
			cmndf[tau] = 1.0
			continue
		}
		cmndf[tau] = diff[tau] * float64(tau) / runningSum
	}

	// First dip below threshold, then follow it down to its local minimum
	best := -1
	for tau := minLag; tau <= maxLag; tau++ {
		if cmndf[tau] < pe.threshold {
			for tau+1 <= maxLag && cmndf[tau+1] < cmndf[tau] {
				tau++
			}
			best = tau
			break
		}
	}
	if best < 0 {
		return InvalidPitch()
	}

	period := parabolicInterpolation(cmndf, best)
	if period <= 0 {
		return InvalidPitch()
	}

	frequency := float64(sampleRate) / period
	if frequency < pe.minFreq || frequency > pe.maxFreq {
		return InvalidPitch()
	}

	return PitchEstimate{
		Frequency:  frequency,
		Confidence: common.Clamp01(1 - cmndf[best]),
	}
}

// parabolicInterpolation returns the vertex of the parabola through the three
// points around idx
func parabolicInterpolation(data []float64, idx int) float64 {
	if idx <= 0 || idx >= len(data)-1 {
		return float64(idx)
	}

	y1, y2, y3 := data[idx-1], data[idx], data[idx+1]
	denom := y1 - 2*y2 + y3
	if denom == 0 {
		return float64(idx)
	}

	shift := 0.5 * (y1 - y3) / denom
	if math.Abs(shift) > 1 {
		return float64(idx)
	}
	return float64(idx) + shift
}
