package filters

import (
	"math"
)

// DefaultDCCutoff is the -3 dB corner used for recordings, well below the
// lowest voice fundamental
const DefaultDCCutoff = 20.0

// DCRemoval is a one-pole DC blocker:
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// State carries across calls so consecutive buffers of one recording are
// filtered as a single stream.
//
// Reference: Julius O. Smith III, "Introduction to Digital Filters with Audio
// Applications", DC Blocker.
type DCRemoval struct {
	poleLocation float64
	x1           float64
	y1           float64
}

// NewDCRemoval creates a blocker with the given -3 dB cutoff. The pole is
// R = 1 - 2*pi*fc/fs, clamped into (0, 1).
func NewDCRemoval(sampleRate int, cutoffHz float64) *DCRemoval {
	r := 0.995
	if sampleRate > 0 && cutoffHz > 0 {
		r = 1.0 - 2.0*math.Pi*cutoffHz/float64(sampleRate)
	}
	if r >= 1.0 {
		r = 0.999
	} else if r <= 0.0 {
		r = 0.001
	}
	return &DCRemoval{poleLocation: r}
}

// Process filters one sample
func (dc *DCRemoval) Process(input float64) float64 {
	output := input - dc.x1 + dc.poleLocation*dc.y1
	dc.x1 = input
	dc.y1 = output
	return output
}

// ProcessBuffer filters input into a new slice
func (dc *DCRemoval) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = dc.Process(sample)
	}
	return output
}

// Reset clears the filter state between unrelated recordings
func (dc *DCRemoval) Reset() {
	dc.x1 = 0.0
	dc.y1 = 0.0
}

// PoleLocation returns R
func (dc *DCRemoval) PoleLocation() float64 {
	return dc.poleLocation
}

// FrequencyResponse returns the linear magnitude of
// H(e^jw) = (1 - e^-jw) / (1 - R*e^-jw) at frequency
func (dc *DCRemoval) FrequencyResponse(frequency float64, sampleRate int) float64 {
	w := 2.0 * math.Pi * frequency / float64(sampleRate)
	cosW, sinW := math.Cos(w), math.Sin(w)

	numReal, numImag := 1.0-cosW, sinW
	denReal, denImag := 1.0-dc.poleLocation*cosW, dc.poleLocation*sinW

	return math.Sqrt((numReal*numReal + numImag*numImag) / (denReal*denReal + denImag*denImag))
}
