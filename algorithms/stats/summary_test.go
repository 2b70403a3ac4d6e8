package stats

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{100, 120, 110, 130})
	if s.Min != 100 || s.Max != 130 {
		t.Errorf("min/max = %g/%g, want 100/130", s.Min, s.Max)
	}
	if s.Mean != 115 {
		t.Errorf("Mean = %g, want 115", s.Mean)
	}
	if s.Median != 115 {
		t.Errorf("Median = %g, want 115", s.Median)
	}
	if s.Count != 4 {
		t.Errorf("Count = %d, want 4", s.Count)
	}
	if math.Abs(s.StdDev-math.Sqrt(500.0/3.0)) > 1e-9 {
		t.Errorf("StdDev = %g", s.StdDev)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if s := Summarize(nil); s != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero", s)
	}
}

func TestNewDelta(t *testing.T) {
	tests := []struct {
		name        string
		base, cur   float64
		wantAbs     float64
		wantPercent float64
	}{
		{"increase", 200, 220, 20, 10},
		{"decrease", 200, 150, -50, -25},
		{"same", 180, 180, 0, 0},
		{"zero baseline", 0, 5, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDelta(tt.base, tt.cur)
			if d.Absolute != tt.wantAbs || math.Abs(d.Percent-tt.wantPercent) > 1e-12 {
				t.Errorf("NewDelta(%g, %g) = %+v", tt.base, tt.cur, d)
			}
		})
	}
}
