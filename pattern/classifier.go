// Package pattern recognises vocal exercise shapes (sirens, slides, sustained
// notes, vibrato, glides and resonance shifts) from recent pitch and resonance
// readings.
package pattern

import (
	"math"

	"github.com/RyanBlaney/sonido-coach/algorithms/common"
)

// Type identifies a recognised exercise pattern
type Type string

const (
	None           Type = "none"
	Siren          Type = "siren"
	Slide          Type = "slide"
	Sustained      Type = "sustained"
	ResonanceShift Type = "resonanceShift"
	Vibrato        Type = "vibrato"
	Glide          Type = "glide"
)

// Classifier parameters
const (
	// HistorySize is about 2.5 s of readings at a 20 Hz tick
	HistorySize = 50
	// MinSamples is the history needed before any detector runs
	MinSamples = 10
	// ReportThreshold is the confidence a pattern must exceed to be reported
	ReportThreshold = 0.5

	sirenMinRange      = 100.0
	sirenMinReversals  = 2
	plateauTolerance   = 5.0
	plateauMinLength   = 3
	slideMinStep       = 20.0
	sustainedMaxStdDev = 10.0
	resonanceMinShift  = 0.15
	vibratoMinLag      = 3
	vibratoMaxLag      = 7
	vibratoMinCorr     = 0.5
	vibratoMinStdDev   = 1.0
	glideReversalSlack = 2.0
	glideMinMeanDelta  = 1.0
	glideMinMovingFrac = 0.7
)

var tips = map[Type]string{
	Siren:          "Nice siren! Keep the sound light and connected as you move through your range.",
	Slide:          "Good slide. Aim for clean, even steps between the notes.",
	Sustained:      "Steady note. Keep the breath flowing and the resonance forward.",
	ResonanceShift: "Your resonance is shifting. Notice how the vowel and mouth shape change the color.",
	Vibrato:        "Vibrato detected. Let it come from a relaxed throat rather than forcing it.",
	Glide:          "Smooth glide. Keep the pitch movement continuous without breaks.",
}

// Tip returns the fixed coaching tip for t, empty for None
func Tip(t Type) string {
	return tips[t]
}

// State is the currently recognised pattern
type State struct {
	Type       Type    `json:"type"`
	Confidence float64 `json:"confidence"`
	Tip        string  `json:"tip,omitempty"`
}

// detection is one detector's verdict
type detection struct {
	kind       Type
	confidence float64
}

// Classifier keeps parallel pitch and resonance histories and reports the
// strongest pattern. It is not safe for concurrent use.
type Classifier struct {
	pitch     *common.RollingHistory
	resonance *common.RollingHistory
	current   State
}

// NewClassifier creates an empty classifier
func NewClassifier() *Classifier {
	return &Classifier{
		pitch:     common.NewRollingHistory(HistorySize),
		resonance: common.NewRollingHistory(HistorySize),
		current:   State{Type: None},
	}
}

// Update records a reading and reclassifies. Unpitched readings (pitch <= 0)
// are ignored. resonance is the 0-100 resonance score.
func (c *Classifier) Update(pitchHz, resonance float64) State {
	if pitchHz <= 0 {
		return c.current
	}
	c.pitch.Push(pitchHz)
	c.resonance.Push(resonance / 100)

	c.current = c.classify()
	return c.current
}

// Current returns the last classification
func (c *Classifier) Current() State {
	return c.current
}

// Reset clears both histories
func (c *Classifier) Reset() {
	c.pitch.Clear()
	c.resonance.Clear()
	c.current = State{Type: None}
}

func (c *Classifier) classify() State {
	if c.pitch.Len() < MinSamples {
		return State{Type: None}
	}
	p := c.pitch.Values()
	r := c.resonance.Values()

	detections := []detection{
		detectSiren(p),
		detectSlide(p),
		detectSustained(p),
		detectResonanceShift(r),
		detectVibrato(p),
		detectGlide(p),
	}

	best := detection{kind: None}
	for _, d := range detections {
		if d.confidence > best.confidence {
			best = d
		}
	}
	if best.confidence <= ReportThreshold {
		return State{Type: None}
	}
	return State{
		Type:       best.kind,
		Confidence: common.Clamp01(best.confidence),
		Tip:        Tip(best.kind),
	}
}

func deltas(p []float64) []float64 {
	d := make([]float64, len(p)-1)
	for i := 1; i < len(p); i++ {
		d[i-1] = p[i] - p[i-1]
	}
	return d
}

func detectSiren(p []float64) detection {
	lo, hi := common.MinMax(p)
	span := hi - lo
	if span <= sirenMinRange {
		return detection{kind: Siren}
	}

	reversals := 0
	prevSign := 0.0
	for _, d := range deltas(p) {
		if d == 0 {
			continue
		}
		sign := math.Copysign(1, d)
		if prevSign != 0 && sign != prevSign {
			reversals++
		}
		prevSign = sign
	}
	if reversals < sirenMinReversals {
		return detection{kind: Siren}
	}
	return detection{kind: Siren, confidence: math.Min(1, span/150)}
}

// plateaus returns the mean level of every run of at least plateauMinLength
// samples staying within plateauTolerance of the run's first sample.
func plateaus(p []float64) []float64 {
	var levels []float64
	start := 0
	flush := func(end int) {
		if end-start >= plateauMinLength {
			levels = append(levels, common.Mean(p[start:end]))
		}
	}
	for i := 1; i < len(p); i++ {
		if math.Abs(p[i]-p[start]) > plateauTolerance {
			flush(i)
			start = i
		}
	}
	flush(len(p))
	return levels
}

func detectSlide(p []float64) detection {
	levels := plateaus(p)
	if len(levels) < 2 {
		return detection{kind: Slide}
	}
	steps := 0
	for i := 1; i < len(levels); i++ {
		if math.Abs(levels[i]-levels[i-1]) > slideMinStep {
			steps++
		}
	}
	if steps == 0 {
		return detection{kind: Slide}
	}
	return detection{kind: Slide, confidence: math.Min(1, 0.5+0.25*float64(steps))}
}

func detectSustained(p []float64) detection {
	std := common.StandardDeviation(p)
	if std >= sustainedMaxStdDev {
		return detection{kind: Sustained}
	}
	return detection{kind: Sustained, confidence: 1 - std/sustainedMaxStdDev}
}

func detectResonanceShift(r []float64) detection {
	half := len(r) / 2
	if half == 0 {
		return detection{kind: ResonanceShift}
	}
	diff := math.Abs(common.Mean(r[half:]) - common.Mean(r[:half]))
	if diff <= resonanceMinShift {
		return detection{kind: ResonanceShift}
	}
	return detection{kind: ResonanceShift, confidence: math.Min(1, diff/(2*resonanceMinShift))}
}

func detectVibrato(p []float64) detection {
	residual := common.Detrend(p)
	if common.StandardDeviation(residual) <= vibratoMinStdDev {
		return detection{kind: Vibrato}
	}

	best := 0.0
	for lag := vibratoMinLag; lag <= vibratoMaxLag; lag++ {
		if r := common.NormalizedAutocorrelation(residual, lag); r > best {
			best = r
		}
	}
	if best <= vibratoMinCorr {
		return detection{kind: Vibrato}
	}
	return detection{kind: Vibrato, confidence: best}
}

func detectGlide(p []float64) detection {
	d := deltas(p)
	direction := math.Copysign(1, common.Sum(d))

	moving := 0
	absSum := 0.0
	for _, v := range d {
		if v*direction < 0 && math.Abs(v) >= glideReversalSlack {
			return detection{kind: Glide}
		}
		if v*direction > 0.5 {
			moving++
		}
		absSum += math.Abs(v)
	}

	meanAbs := absSum / float64(len(d))
	if meanAbs <= glideMinMeanDelta || float64(moving) < glideMinMovingFrac*float64(len(d)) {
		return detection{kind: Glide}
	}
	return detection{kind: Glide, confidence: math.Min(1, 0.6+meanAbs/10)}
}
