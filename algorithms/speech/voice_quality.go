package speech

import (
	"math"

	"github.com/RyanBlaney/sonido-coach/algorithms/spectral"
)

// MaxHNR caps the harmonic-to-noise ratio for noise-free frames
const MaxHNR = 50.0

// Jitter computes pitch period irregularity: the mean absolute difference
// between consecutive periods over the mean period, as a percentage.
// Fewer than two periods or a zero mean yields 0.
func Jitter(periods []float64) float64 {
	return perturbation(periods)
}

// Shimmer is the amplitude counterpart of Jitter over per-cycle peak amplitudes
func Shimmer(amplitudes []float64) float64 {
	return perturbation(amplitudes)
}

func perturbation(values []float64) float64 {
	if len(values) < 2 {
		return 0.0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if mean == 0 {
		return 0.0
	}

	sum := 0.0
	for i := 1; i < len(values); i++ {
		sum += math.Abs(values[i] - values[i-1])
	}
	return (sum / float64(len(values)-1)) / mean * 100.0
}

// HNR computes 10*log10(harmonic/noise) where harmonic power is the
// autocorrelation at the pitch lag and noise is what remains of lag 0.
// Non-positive noise returns MaxHNR; a non-positive harmonic peak returns 0.
func HNR(autocorr []float64, periodLag int) float64 {
	if periodLag <= 0 || periodLag >= len(autocorr) {
		return 0.0
	}

	harmonic := autocorr[periodLag]
	noise := autocorr[0] - harmonic
	if noise <= 0 {
		return MaxHNR
	}
	if harmonic <= 0 {
		return 0.0
	}
	return math.Min(MaxHNR, 10*math.Log10(harmonic/noise))
}

// H1H2 returns the level difference in dB between the first and second
// harmonics of f0, each taken as the strongest bin within 10% of the
// harmonic frequency. Missing harmonics yield 0.
func H1H2(magnitudes []float64, nyquist, f0 float64) float64 {
	if len(magnitudes) < 2 || f0 <= 0 || 2*f0 >= nyquist {
		return 0.0
	}

	h1 := harmonicPeak(magnitudes, nyquist, f0)
	h2 := harmonicPeak(magnitudes, nyquist, 2*f0)
	if h1 <= 0 || h2 <= 0 {
		return 0.0
	}
	return 20 * math.Log10(h1/h2)
}

func harmonicPeak(magnitudes []float64, nyquist, freq float64) float64 {
	lo, hi := 0.9*freq, 1.1*freq
	peak := 0.0
	for i, m := range magnitudes {
		f := spectral.BinFrequency(i, len(magnitudes), nyquist)
		if f >= lo && f <= hi && m > peak {
			peak = m
		}
	}
	return peak
}
