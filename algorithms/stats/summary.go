package stats

import (
	"github.com/RyanBlaney/sonido-coach/algorithms/common"
)

// Summary holds the descriptive statistics reported for each baseline metric
type Summary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Count  int     `json:"count"`
}

// Summarize computes a Summary. An empty input produces the zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	lo, hi := common.MinMax(values)
	return Summary{
		Min:    lo,
		Max:    hi,
		Mean:   common.Mean(values),
		Median: common.Median(values),
		StdDev: common.StandardDeviation(values),
		Count:  len(values),
	}
}

// Delta is the change of one metric between two summaries
type Delta struct {
	Baseline float64 `json:"baseline"`
	Current  float64 `json:"current"`
	Absolute float64 `json:"absolute"`
	Percent  float64 `json:"percent"`
}

// MeanDelta compares the means of two summaries. Percent is 0 when the
// baseline mean is 0.
func MeanDelta(baseline, current Summary) Delta {
	return NewDelta(baseline.Mean, current.Mean)
}

// NewDelta builds a Delta from two scalar values
func NewDelta(baseline, current float64) Delta {
	d := Delta{
		Baseline: baseline,
		Current:  current,
		Absolute: current - baseline,
	}
	if baseline != 0 {
		d.Percent = d.Absolute / baseline * 100
	}
	return d
}
