package spectral

import (
	"math"
)

// Band edges used by the register and strain heuristics, in Hz
const (
	HarmonicBandLow  = 50.0
	HarmonicBandHigh = 1500.0

	BalanceSplit    = 1000.0
	BalanceHighEdge = 4000.0
)

// BandEnergy sums squared magnitudes for bins with lo <= f < hi
func BandEnergy(magnitudes []float64, nyquist, lo, hi float64) float64 {
	energy := 0.0
	for i, m := range magnitudes {
		f := BinFrequency(i, len(magnitudes), nyquist)
		if f >= lo && f < hi {
			energy += m * m
		}
	}
	return energy
}

// HarmonicRatio returns the share of spectral energy that lies in the
// 50-1500 Hz band where voiced harmonics concentrate. Zero energy gives 0.
func HarmonicRatio(magnitudes []float64, nyquist float64) float64 {
	total := BandEnergy(magnitudes, nyquist, 0, math.Inf(1))
	if total == 0 {
		return 0
	}
	return BandEnergy(magnitudes, nyquist, HarmonicBandLow, HarmonicBandHigh) / total
}

// SpectralBalance returns 10*log10(E[1-4 kHz] / E[0-1 kHz]), a spectral tilt
// proxy. Pressed or strained phonation flattens the tilt toward 0 dB. A frame
// with no energy reports -100 dB; results are clamped to +/-100 dB.
func SpectralBalance(magnitudes []float64, nyquist float64) float64 {
	low := BandEnergy(magnitudes, nyquist, 0, BalanceSplit)
	high := BandEnergy(magnitudes, nyquist, BalanceSplit, BalanceHighEdge)
	if low == 0 && high == 0 {
		return -100
	}

	const eps = 1e-12
	db := 10 * math.Log10((high+eps)/(low+eps))
	return math.Max(-100, math.Min(100, db))
}
