package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-coach/algorithms/common"
	"github.com/RyanBlaney/sonido-coach/algorithms/temporal"
)

// Environment check thresholds, all loudness values in dBFS
const (
	DefaultDiagnosticDuration = 3 * time.Second

	ClipThreshold = 0.99

	noisyLoudnessDB     = -30.0
	someNoiseLoudnessDB = -45.0
	lowInputPeakDB      = -60.0

	noisyPenalty     = 40.0
	someNoisePenalty = 20.0
	clippingPenalty  = 30.0
	lowInputPenalty  = 25.0
)

// Diagnostic is the result of an environment check
type Diagnostic struct {
	Score         float64 `json:"score"`
	NoiseFloorDB  float64 `json:"noiseFloorDb"`
	ClippingCount int     `json:"clippingCount"`
	AvgLoudness   float64 `json:"avgLoudness"`
	PeakLoudness  float64 `json:"peakLoudness"`
	Frames        int     `json:"frames"`
	Message       string  `json:"message"`
}

// Diagnose listens to source for duration and scores the recording
// environment from 0 to 100. It always resolves when the duration elapses,
// scoring whatever frames arrived, even if a read is still blocked in the
// source; a source that delivers nothing scores 0. Only a failure to open
// the source is returned as an error.
func Diagnose(ctx context.Context, source FrameSource, duration time.Duration) (Diagnostic, error) {
	if duration <= 0 {
		duration = DefaultDiagnosticDuration
	}
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	if err := source.Open(ctx); err != nil {
		return Diagnostic{}, fmt.Errorf("open source: %w", err)
	}
	defer source.Close()

	frames := make(chan Frame)
	go func() {
		defer close(frames)
		for ctx.Err() == nil {
			frame, err := source.ReadFrame(ctx)
			if err != nil {
				// End of input, the deadline or a capture failure all end the
				// check with whatever was collected.
				return
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		frameDB []float64
		peakAbs float64
		clipped int
	)
	for {
		select {
		case <-ctx.Done():
			return scoreEnvironment(frameDB, peakAbs, clipped), nil
		case frame, ok := <-frames:
			if !ok {
				return scoreEnvironment(frameDB, peakAbs, clipped), nil
			}
			if len(frame.Samples) == 0 {
				continue
			}
			frameDB = append(frameDB, temporal.DB(temporal.RMS(frame.Samples), 0))
			peakAbs = max(peakAbs, temporal.Peak(frame.Samples))
			clipped += temporal.CountClipped(frame.Samples, ClipThreshold)
		}
	}
}

func scoreEnvironment(frameDB []float64, peakAbs float64, clipped int) Diagnostic {
	if len(frameDB) == 0 {
		return Diagnostic{
			NoiseFloorDB: temporal.SilenceFloorDB,
			AvgLoudness:  temporal.SilenceFloorDB,
			PeakLoudness: temporal.SilenceFloorDB,
			Message:      "No audio was received. Check that the microphone is connected and allowed.",
		}
	}

	d := Diagnostic{
		NoiseFloorDB:  common.Percentile(frameDB, 0.1),
		ClippingCount: clipped,
		AvgLoudness:   common.Mean(frameDB),
		PeakLoudness:  temporal.DB(peakAbs, 0),
		Frames:        len(frameDB),
	}

	score := 100.0
	var messages []string
	switch {
	case d.AvgLoudness > noisyLoudnessDB:
		score -= noisyPenalty
		messages = append(messages, "The room is noisy. Move somewhere quieter or close windows and doors.")
	case d.AvgLoudness > someNoiseLoudnessDB:
		score -= someNoisePenalty
		messages = append(messages, "There is some background noise. Turn off fans or music if you can.")
	}
	if clipped > 0 {
		score -= clippingPenalty
		messages = append(messages, "Your input is clipping. Lower the microphone gain or move back from the mic.")
	}
	if d.PeakLoudness < lowInputPeakDB {
		score -= lowInputPenalty
		messages = append(messages, "Input level is very low. Raise the microphone gain or move closer.")
	}

	d.Score = common.Clamp(score, 0, 100)
	if len(messages) == 0 {
		d.Message = "Your environment sounds good."
	} else {
		d.Message = messages[0]
	}
	return d
}
