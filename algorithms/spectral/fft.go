package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT computes one-sided magnitude spectra of real frames
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the complex transform using mjibson/go-dsp, which handles
// non power-of-two lengths
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// Magnitude returns N/2+1 magnitudes from DC to Nyquist, scaled by 2/N so a
// full-scale sine centered on a bin reads close to 1
func (f *FFT) Magnitude(x []float64) []float64 {
	n := len(x)
	if n < 2 {
		return []float64{}
	}

	spectrum := f.Compute(x)
	bins := n/2 + 1
	mags := make([]float64, bins)
	scale := 2.0 / float64(n)
	for i := range bins {
		mags[i] = cmplx.Abs(spectrum[i]) * scale
	}
	return mags
}

// Magnitude is a convenience wrapper around FFT.Magnitude
func Magnitude(x []float64) []float64 {
	return NewFFT().Magnitude(x)
}

// BinFrequency returns the center frequency of bin i in a one-sided spectrum
// of numBins bins spanning 0..nyquist
func BinFrequency(i, numBins int, nyquist float64) float64 {
	if numBins < 2 {
		return 0
	}
	return float64(i) * nyquist / float64(numBins-1)
}
