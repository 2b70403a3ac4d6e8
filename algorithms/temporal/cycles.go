package temporal

import "math"

// Cycles splits a voiced frame into glottal cycles at positive-going zero
// crossings and returns the period of each cycle in seconds together with its
// peak amplitude. Crossings are located with linear interpolation. Cycles
// whose length falls outside half to one-and-a-half times the expected period
// for f0 are discarded.
func Cycles(signal []float64, sampleRate int, f0 float64) (periods, amplitudes []float64) {
	if len(signal) < 3 || sampleRate <= 0 || f0 <= 0 {
		return nil, nil
	}

	expected := float64(sampleRate) / f0
	minLen := 0.5 * expected
	maxLen := 1.5 * expected

	var crossings []float64
	for i := 1; i < len(signal); i++ {
		prev, cur := signal[i-1], signal[i]
		if prev < 0 && cur >= 0 {
			frac := -prev / (cur - prev)
			crossings = append(crossings, float64(i-1)+frac)
		}
	}

	for c := 1; c < len(crossings); c++ {
		length := crossings[c] - crossings[c-1]
		if length < minLen || length > maxLen {
			continue
		}

		start := int(math.Ceil(crossings[c-1]))
		end := int(math.Floor(crossings[c]))
		peak := 0.0
		for i := start; i <= end && i < len(signal); i++ {
			if signal[i] > peak {
				peak = signal[i]
			}
		}

		periods = append(periods, length/float64(sampleRate))
		amplitudes = append(amplitudes, peak)
	}
	return periods, amplitudes
}
