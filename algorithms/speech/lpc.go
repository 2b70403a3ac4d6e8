package speech

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrZeroEnergy is returned when the lag-0 autocorrelation is zero
	ErrZeroEnergy = errors.New("zero energy signal")
	// ErrShortAutocorrelation is returned when fewer than order+1 lags are supplied
	ErrShortAutocorrelation = errors.New("insufficient autocorrelation values")
)

// Peak is a local maximum of a spectral envelope
type Peak struct {
	Frequency float64 `json:"frequency_hz"`
	Magnitude float64 `json:"magnitude_db"`
	Bin       int     `json:"bin"`
}

// MinPeakFrequency excludes DC and rumble from peak picking
const MinPeakFrequency = 200.0

// Autocorrelation returns r[0..order] with r[k] = sum x[n]*x[n+k].
// Lags at or beyond len(signal) are zero.
func Autocorrelation(signal []float64, order int) []float64 {
	if order < 0 {
		return []float64{}
	}

	r := make([]float64, order+1)
	n := len(signal)
	for k := 0; k <= order && k < n; k++ {
		sum := 0.0
		for i := 0; i+k < n; i++ {
			sum += signal[i] * signal[i+k]
		}
		r[k] = sum
	}
	return r
}

// LevinsonDurbin solves the Toeplitz normal equations for an order-p linear
// predictor x[n] ~ sum a[i]*x[n-i]. The returned slice has a[0] = 1 followed
// by the p predictor coefficients; predErr is the final prediction error
// energy. Recursion stops early if the error energy collapses, leaving the
// remaining coefficients at zero.
func LevinsonDurbin(r []float64, order int) (coeffs []float64, predErr float64, err error) {
	if order < 1 || len(r) < order+1 {
		return nil, 0, ErrShortAutocorrelation
	}
	if r[0] == 0 {
		return nil, 0, ErrZeroEnergy
	}

	a := make([]float64, order+1)
	prev := make([]float64, order+1)
	a[0] = 1
	e := r[0]

	for i := 1; i <= order; i++ {
		acc := r[i]
		for j := 1; j < i; j++ {
			acc -= a[j] * r[i-j]
		}
		k := acc / e

		copy(prev, a)
		a[i] = k
		for j := 1; j < i; j++ {
			a[j] = prev[j] - k*prev[i-j]
		}

		e *= 1 - k*k
		if e <= 0 {
			e = 0
			break
		}
	}

	return a, e, nil
}

// LPCSpectrum evaluates the all-pole response sqrt(predErr)/|A(e^jw)| in dB at
// numPoints frequencies w = pi*k/numPoints, k = 0..numPoints-1, where
// A(z) = 1 - sum a[i] z^-i. Bin k therefore sits at k*nyquist/numPoints.
func LPCSpectrum(coeffs []float64, predErr float64, numPoints int) []float64 {
	if numPoints <= 0 {
		return []float64{}
	}

	gain := math.Sqrt(math.Max(predErr, 0))
	envelope := make([]float64, numPoints)

	for k := range numPoints {
		omega := math.Pi * float64(k) / float64(numPoints)

		re, im := 1.0, 0.0
		for i := 1; i < len(coeffs); i++ {
			re -= coeffs[i] * math.Cos(omega*float64(i))
			im += coeffs[i] * math.Sin(omega*float64(i))
		}

		mag := math.Max(math.Hypot(re, im), 1e-12)
		envelope[k] = 20 * math.Log10(gain/mag+1e-12)
	}
	return envelope
}

// FindPeaks returns local maxima of an envelope produced by LPCSpectrum,
// skipping anything below MinPeakFrequency. Plateaus report their first bin.
func FindPeaks(envelope []float64, sampleRate int) []Peak {
	n := len(envelope)
	if n < 3 || sampleRate <= 0 {
		return nil
	}

	binHz := float64(sampleRate) / 2 / float64(n)
	var peaks []Peak
	for i := 1; i < n-1; i++ {
		freq := float64(i) * binHz
		if freq < MinPeakFrequency {
			continue
		}
		if envelope[i] > envelope[i-1] && envelope[i] >= envelope[i+1] {
			peaks = append(peaks, Peak{Frequency: freq, Magnitude: envelope[i], Bin: i})
		}
	}
	return peaks
}

// LPC bundles the autocorrelation, solver and envelope steps for one order
type LPC struct {
	order     int
	numPoints int
}

// NewLPC creates an LPC analyzer. numPoints is the envelope resolution.
func NewLPC(order, numPoints int) *LPC {
	if order <= 0 {
		order = 12
	}
	if numPoints <= 0 {
		numPoints = 512
	}
	return &LPC{order: order, numPoints: numPoints}
}

// Envelope computes the dB spectral envelope of a windowed frame
func (l *LPC) Envelope(frame []float64) ([]float64, error) {
	if len(frame) <= l.order {
		return nil, fmt.Errorf("frame of %d samples too short for LPC order %d", len(frame), l.order)
	}

	coeffs, predErr, err := LevinsonDurbin(Autocorrelation(frame, l.order), l.order)
	if err != nil {
		return nil, fmt.Errorf("levinson-durbin: %w", err)
	}
	return LPCSpectrum(coeffs, predErr, l.numPoints), nil
}
