package temporal

import (
	"math"
)

// SilenceFloorDB is reported for a zero-energy frame instead of -Inf
const SilenceFloorDB = -100.0

// RMS returns the root-mean-square amplitude of signal, 0 for an empty slice
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}

	sumSquares := 0.0
	for _, s := range signal {
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares / float64(len(signal)))
}

// DB converts an RMS amplitude to decibels relative to full scale, shifted by
// offset. Non-positive RMS maps to SilenceFloorDB regardless of offset.
func DB(rms, offset float64) float64 {
	if rms <= 0 {
		return SilenceFloorDB
	}
	return 20*math.Log10(rms) + offset
}

// Peak returns the largest absolute sample value
func Peak(signal []float64) float64 {
	peak := 0.0
	for _, s := range signal {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// CountClipped counts samples whose magnitude reaches threshold
func CountClipped(signal []float64, threshold float64) int {
	n := 0
	for _, s := range signal {
		if math.Abs(s) >= threshold {
			n++
		}
	}
	return n
}
