package pattern

import (
	"math"
	"testing"
)

func feed(c *Classifier, pitches []float64) State {
	var s State
	for _, p := range pitches {
		s = c.Update(p, 50)
	}
	return s
}

func series(n int, fn func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = fn(i)
	}
	return out
}

func triangle(i, period int) float64 {
	phase := float64(i%period) / float64(period)
	if phase < 0.5 {
		return 4*phase - 1
	}
	return 3 - 4*phase
}

func TestClassifier(t *testing.T) {
	tests := []struct {
		name    string
		pitches []float64
		want    Type
	}{
		{
			name:    "vibrato every five samples",
			pitches: series(30, func(i int) float64 { return 220 + 8*math.Sin(2*math.Pi*float64(i)/5) }),
			want:    Vibrato,
		},
		{
			name:    "vibrato every four samples",
			pitches: series(30, func(i int) float64 { return 330 + 10*math.Sin(2*math.Pi*float64(i)/4+0.3) }),
			want:    Vibrato,
		},
		{
			name:    "strictly rising glide",
			pitches: series(30, func(i int) float64 { return 150 + 3*float64(i) }),
			want:    Glide,
		},
		{
			name:    "falling glide with small wobble",
			pitches: series(30, func(i int) float64 { return 400 - 2.5*float64(i) + 0.5*math.Sin(float64(i)) }),
			want:    Glide,
		},
		{
			name:    "sustained note",
			pitches: series(30, func(i int) float64 { return 220 + 0.5*math.Sin(float64(i)) }),
			want:    Sustained,
		},
		{
			name:    "three step slide",
			pitches: series(30, func(i int) float64 { return 220 + 40*float64(i/10) }),
			want:    Slide,
		},
		{
			name:    "siren up and down",
			pitches: series(50, func(i int) float64 { return 300 + 75*triangle(i, 20) }),
			want:    Siren,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier()
			got := feed(c, tt.pitches)
			if got.Type != tt.want {
				t.Fatalf("Type = %s (%.2f), want %s", got.Type, got.Confidence, tt.want)
			}
			if got.Confidence <= ReportThreshold || got.Confidence > 1 {
				t.Errorf("Confidence = %.3f, want in (0.5, 1]", got.Confidence)
			}
			if got.Tip != Tip(tt.want) || got.Tip == "" {
				t.Errorf("Tip = %q, want the fixed tip for %s", got.Tip, tt.want)
			}
		})
	}
}

func TestClassifier_NeedsHistory(t *testing.T) {
	c := NewClassifier()
	got := feed(c, series(MinSamples-1, func(int) float64 { return 220 }))
	if got.Type != None {
		t.Errorf("Type = %s with %d samples, want none", got.Type, MinSamples-1)
	}

	got = c.Update(220, 50)
	if got.Type != Sustained {
		t.Errorf("Type = %s at %d samples, want sustained", got.Type, MinSamples)
	}
}

func TestClassifier_IgnoresUnpitched(t *testing.T) {
	c := NewClassifier()
	feed(c, series(MinSamples, func(int) float64 { return 220 }))
	before := c.Current()

	after := c.Update(-1, 90)
	if after != before {
		t.Errorf("unpitched update changed state: %+v -> %+v", before, after)
	}
	if c.pitch.Len() != MinSamples {
		t.Errorf("history length = %d, want %d", c.pitch.Len(), MinSamples)
	}
}

func TestClassifier_BoundedHistory(t *testing.T) {
	c := NewClassifier()
	feed(c, series(HistorySize+25, func(i int) float64 { return 200 + float64(i) }))
	if c.pitch.Len() != HistorySize || c.resonance.Len() != HistorySize {
		t.Errorf("history lengths = %d/%d, want %d", c.pitch.Len(), c.resonance.Len(), HistorySize)
	}
	if first := c.pitch.Values()[0]; first != 225 {
		t.Errorf("oldest pitch = %v, want 225 after eviction", first)
	}
}

func TestClassifier_Reset(t *testing.T) {
	c := NewClassifier()
	feed(c, series(20, func(int) float64 { return 220 }))
	c.Reset()

	if c.Current().Type != None {
		t.Errorf("Current() after Reset = %s, want none", c.Current().Type)
	}
	if c.pitch.Len() != 0 || c.resonance.Len() != 0 {
		t.Error("histories not cleared")
	}
}

func TestDetectResonanceShift(t *testing.T) {
	tests := []struct {
		name     string
		first    float64
		second   float64
		wantConf float64
	}{
		{"no change", 0.5, 0.5, 0},
		{"below threshold", 0.5, 0.6, 0},
		{"brighter", 0.3, 0.5, 0.2 / 0.3},
		{"large darker", 0.8, 0.3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := make([]float64, 20)
			for i := range r {
				if i < 10 {
					r[i] = tt.first
				} else {
					r[i] = tt.second
				}
			}
			got := detectResonanceShift(r)
			if math.Abs(got.confidence-tt.wantConf) > 1e-9 {
				t.Errorf("confidence = %v, want %v", got.confidence, tt.wantConf)
			}
		})
	}
}

func TestPlateaus(t *testing.T) {
	p := []float64{100, 102, 101, 150, 151, 149, 152, 200, 300}
	levels := plateaus(p)
	if len(levels) != 2 {
		t.Fatalf("levels = %v, want 2 plateaus", levels)
	}
	if math.Abs(levels[0]-101) > 1e-9 || math.Abs(levels[1]-150.5) > 1e-9 {
		t.Errorf("levels = %v, want [101 150.5]", levels)
	}
}
