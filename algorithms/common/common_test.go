package common

import (
	"math"
	"testing"
	"time"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"odd", []float64{1, 3, 5}, 3},
		{"even", []float64{1, 2, 3, 4}, 2.5},
		{"unsorted", []float64{5, 1, 3}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.in); got != tt.want {
				t.Errorf("Median(%v) = %g, want %g", tt.in, got, tt.want)
			}
		})
	}
}

func TestMedian_DoesNotSortInput(t *testing.T) {
	in := []float64{3, 1, 2}
	_ = Median(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("input reordered: %v", in)
	}
}

func TestVarianceAndStdDev(t *testing.T) {
	if got := Variance([]float64{7}); got != 0 {
		t.Errorf("Variance(single) = %g, want 0", got)
	}
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	// sample variance with n-1
	if got := Variance(data); math.Abs(got-32.0/7.0) > 1e-12 {
		t.Errorf("Variance = %g, want %g", got, 32.0/7.0)
	}
	if got := StandardDeviation(data); math.Abs(got-math.Sqrt(32.0/7.0)) > 1e-12 {
		t.Errorf("StandardDeviation = %g", got)
	}
}

func TestPercentile(t *testing.T) {
	data := []float64{10, 20, 30, 40, 50}
	if got := Percentile(data, 0); got != 10 {
		t.Errorf("P0 = %g, want 10", got)
	}
	if got := Percentile(data, 1); got != 50 {
		t.Errorf("P100 = %g, want 50", got)
	}
	if got := Percentile(nil, 0.5); got != 0 {
		t.Errorf("Percentile(nil) = %g, want 0", got)
	}
}

func TestDetrend(t *testing.T) {
	line := []float64{1, 3, 5, 7, 9}
	for i, v := range Detrend(line) {
		if math.Abs(v) > 1e-9 {
			t.Errorf("residual[%d] = %g, want 0", i, v)
		}
	}
}

func TestNormalizedAutocorrelation(t *testing.T) {
	// period-4 square wave correlates perfectly with itself shifted by 4
	sig := []float64{1, 1, -1, -1, 1, 1, -1, -1, 1, 1, -1, -1}
	if got := NormalizedAutocorrelation(sig, 4); got <= 0.5 {
		t.Errorf("r(4) = %g, want > 0.5", got)
	}
	if got := NormalizedAutocorrelation(sig, 2); got >= 0 {
		t.Errorf("r(2) = %g, want negative", got)
	}
	if got := NormalizedAutocorrelation(make([]float64, 8), 2); got != 0 {
		t.Errorf("zero input r = %g, want 0", got)
	}
}

func TestClamp01(t *testing.T) {
	for _, tt := range []struct{ in, want float64 }{
		{-0.5, 0}, {0.4, 0.4}, {1.5, 1}, {math.NaN(), 0},
	} {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%g) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestRollingHistory_EvictsOldest(t *testing.T) {
	h := NewRollingHistory(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		h.Push(v)
	}
	got := h.Values()
	want := []float64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values()[%d] = %g, want %g", i, got[i], want[i])
		}
	}
	if !h.IsFull() {
		t.Error("expected full history")
	}

	h.Clear()
	if h.Len() != 0 || len(h.Values()) != 0 {
		t.Error("Clear did not empty history")
	}
}

func TestTimedHistory(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewTimedHistory(60 * time.Second)
	for i := range 10 {
		h.Push(base.Add(time.Duration(i)*10*time.Second), float64(i))
	}

	// newest at 90s, so anything before 30s is gone
	if h.Len() != 7 {
		t.Fatalf("Len = %d, want 7", h.Len())
	}
	recent := h.Since(base.Add(85 * time.Second))
	if len(recent) != 1 || recent[0] != 9 {
		t.Errorf("Since = %v, want [9]", recent)
	}
}
