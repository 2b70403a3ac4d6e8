package baseline

import (
	"math"

	"github.com/RyanBlaney/sonido-coach/algorithms/stats"
)

// WeightDeadBand is the H1-H2 change in dB below which vocal weight reads as
// similar
const WeightDeadBand = 1.0

// Vocal weight interpretations
const (
	WeightLighter = "lighter/breathier"
	WeightHeavier = "heavier/pressed"
	WeightSimilar = "similar"
)

// VocalWeightChange interprets the H1-H2 shift between two profiles. A
// higher H1-H2 means a breathier, lighter production.
type VocalWeightChange struct {
	Delta          float64 `json:"delta_db"`
	Interpretation string  `json:"interpretation"`
}

// Comparison holds the per-metric deltas between a baseline and a later
// profile
type Comparison struct {
	BaselineID string `json:"baseline_id"`
	CurrentID  string `json:"current_id"`

	Pitch       stats.Delta `json:"pitch"`
	F1          stats.Delta `json:"f1"`
	F2          stats.Delta `json:"f2"`
	VocalWeight stats.Delta `json:"vocal_weight"`
	Loudness    stats.Delta `json:"loudness_rms"`
	LoudnessDB  stats.Delta `json:"loudness_db"`

	// PitchSemitones is 12*log2(current/baseline) of the mean pitches
	PitchSemitones    float64           `json:"pitch_semitones"`
	VocalWeightChange VocalWeightChange `json:"vocal_weight_change"`
}

// Compare computes how current differs from baseline
func Compare(baseline, current *Profile) Comparison {
	c := Comparison{
		BaselineID:  baseline.ID,
		CurrentID:   current.ID,
		Pitch:       stats.MeanDelta(baseline.Pitch, current.Pitch),
		F1:          stats.MeanDelta(baseline.F1, current.F1),
		F2:          stats.MeanDelta(baseline.F2, current.F2),
		VocalWeight: stats.MeanDelta(baseline.VocalWeight, current.VocalWeight),
		Loudness:    stats.NewDelta(baseline.LoudnessRMS, current.LoudnessRMS),
		LoudnessDB:  stats.NewDelta(baseline.LoudnessDB, current.LoudnessDB),
	}
	if baseline.Pitch.Mean > 0 && current.Pitch.Mean > 0 {
		c.PitchSemitones = 12 * math.Log2(current.Pitch.Mean/baseline.Pitch.Mean)
	}
	c.VocalWeightChange = interpretWeight(c.VocalWeight.Absolute)
	return c
}

func interpretWeight(delta float64) VocalWeightChange {
	change := VocalWeightChange{Delta: delta, Interpretation: WeightSimilar}
	switch {
	case delta > WeightDeadBand:
		change.Interpretation = WeightLighter
	case delta < -WeightDeadBand:
		change.Interpretation = WeightHeavier
	}
	return change
}
