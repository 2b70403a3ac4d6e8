package spectral

// Defaults for the centroid confidence heuristic. They are tuning knobs on a
// magnitude scale where a full-scale sine reads about 1.
const (
	DefaultCentroidMinMagnitude  = 0.01
	DefaultCentroidFullMagnitude = 0.5
)

// CentroidResult is the resonance estimate for one spectrum
type CentroidResult struct {
	Resonance  float64 `json:"resonance_hz"`
	Confidence float64 `json:"confidence"`
}

// ResonanceCentroid computes the magnitude-weighted mean frequency of a
// spectrum as a cheap brightness/resonance signal
type ResonanceCentroid struct {
	// MinMagnitude is the total magnitude below which confidence is 0
	MinMagnitude float64
	// FullMagnitude is the total magnitude at which confidence reaches 1
	FullMagnitude float64
}

// NewResonanceCentroid creates a centroid estimator with default thresholds
func NewResonanceCentroid() *ResonanceCentroid {
	return &ResonanceCentroid{
		MinMagnitude:  DefaultCentroidMinMagnitude,
		FullMagnitude: DefaultCentroidFullMagnitude,
	}
}

// Compute calculates the centroid for a magnitude spectrum spanning 0..nyquist
func (rc *ResonanceCentroid) Compute(spectrum []float64, nyquist float64) CentroidResult {
	if len(spectrum) < 2 {
		return CentroidResult{}
	}

	numerator := 0.0
	total := 0.0
	for i, m := range spectrum {
		numerator += BinFrequency(i, len(spectrum), nyquist) * m
		total += m
	}

	if total <= 0 || total < rc.MinMagnitude {
		return CentroidResult{}
	}

	confidence := 1.0
	if rc.FullMagnitude > 0 {
		confidence = min(1.0, total/rc.FullMagnitude)
	}

	return CentroidResult{
		Resonance:  numerator / total,
		Confidence: confidence,
	}
}
