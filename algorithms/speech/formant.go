package speech

import (
	"math"

	"github.com/RyanBlaney/sonido-coach/algorithms/common"
)

// Vowel is a coarse vowel bucket derived from the (F1, F2) pair
type Vowel string

const (
	VowelNone Vowel = "none"
	VowelI    Vowel = "i"
	VowelA    Vowel = "a"
	VowelU    Vowel = "u"
	VowelO    Vowel = "o"
)

// Formant search bands and smoothing parameters
const (
	F1BandLow  = 200.0
	F1BandHigh = 1200.0
	F2BandLow  = 1200.0
	F2BandHigh = 3500.0

	FormantOrder     = 12
	FormantEnvelope  = 512
	F1JumpThreshold  = 100.0
	F2JumpThreshold  = 150.0
	FastSmoothing    = 0.3
	DefaultSmoothing = 0.1
)

// FormantEstimate is the smoothed vocal-tract resonance reading for a frame.
// A zero F1 or F2 means no reading yet.
type FormantEstimate struct {
	F1         float64 `json:"f1_hz"`
	F2         float64 `json:"f2_hz"`
	Vowel      Vowel   `json:"vowel"`
	Confidence float64 `json:"confidence"`
}

// FormantEstimator tracks F1/F2 across frames. The smoothed values belong to
// one session; call Reset between sessions.
type FormantEstimator struct {
	lpc        *LPC
	smoothedF1 float64
	smoothedF2 float64
}

// NewFormantEstimator creates an estimator using order-12 LPC and a 512-point
// envelope
func NewFormantEstimator() *FormantEstimator {
	return &FormantEstimator{
		lpc: NewLPC(FormantOrder, FormantEnvelope),
	}
}

// Analyze estimates formants for a windowed frame. Frames that cannot be
// modelled (silence, too short) return a zeroed estimate and leave the
// smoothing state untouched.
func (fe *FormantEstimator) Analyze(frame []float64, sampleRate int) FormantEstimate {
	envelope, err := fe.lpc.Envelope(frame)
	if err != nil {
		return FormantEstimate{Vowel: VowelNone}
	}

	peaks := FindPeaks(envelope, sampleRate)
	f1, ok1 := strongestPeak(peaks, F1BandLow, F1BandHigh)
	f2, ok2 := strongestPeak(peaks, F2BandLow, F2BandHigh)

	var confidence float64
	var found int
	if ok1 {
		fe.smoothedF1 = smooth(fe.smoothedF1, f1.Frequency, F1JumpThreshold)
		confidence += prominence(envelope, f1, sampleRate, F1BandLow, F1BandHigh)
		found++
	}
	if ok2 {
		fe.smoothedF2 = smooth(fe.smoothedF2, f2.Frequency, F2JumpThreshold)
		confidence += prominence(envelope, f2, sampleRate, F2BandLow, F2BandHigh)
		found++
	}
	if found > 0 {
		confidence /= 2
	}

	return FormantEstimate{
		F1:         fe.smoothedF1,
		F2:         fe.smoothedF2,
		Vowel:      ClassifyVowel(fe.smoothedF1, fe.smoothedF2),
		Confidence: common.Clamp01(confidence),
	}
}

// Reset zeroes the smoothed formants
func (fe *FormantEstimator) Reset() {
	fe.smoothedF1 = 0
	fe.smoothedF2 = 0
}

// smooth moves prev toward candidate, tracking faster on jumps larger than
// threshold. A zero prev adopts the candidate outright.
func smooth(prev, candidate, threshold float64) float64 {
	if prev == 0 {
		return candidate
	}
	alpha := DefaultSmoothing
	if math.Abs(candidate-prev) > threshold {
		alpha = FastSmoothing
	}
	return prev + alpha*(candidate-prev)
}

func strongestPeak(peaks []Peak, lo, hi float64) (Peak, bool) {
	var best Peak
	found := false
	for _, p := range peaks {
		if p.Frequency < lo || p.Frequency > hi {
			continue
		}
		if !found || p.Magnitude > best.Magnitude {
			best = p
			found = true
		}
	}
	return best, found
}

// prominence maps the peak's height above the band's mean level to [0,1],
// reaching 1 at 20 dB
func prominence(envelope []float64, p Peak, sampleRate int, lo, hi float64) float64 {
	binHz := float64(sampleRate) / 2 / float64(len(envelope))
	sum, n := 0.0, 0
	for i, v := range envelope {
		f := float64(i) * binHz
		if f >= lo && f <= hi {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return common.Clamp01((p.Magnitude - sum/float64(n)) / 20)
}

// ClassifyVowel buckets a formant pair into a cardinal vowel
func ClassifyVowel(f1, f2 float64) Vowel {
	if f1 <= 0 || f2 <= 0 {
		return VowelNone
	}

	switch {
	case f1 < 400 && f2 > 2000:
		return VowelI
	case f1 < 450 && f2 < 1200:
		return VowelU
	case f1 >= 400 && f1 <= 650 && f2 < 1200:
		return VowelO
	case f1 > 650 && f2 >= 1000 && f2 <= 1600:
		return VowelA
	default:
		return VowelNone
	}
}
