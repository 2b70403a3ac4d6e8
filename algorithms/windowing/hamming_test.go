package windowing

import (
	"math"
	"testing"
)

func TestApplyWindow_Shape(t *testing.T) {
	const n = 64
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}

	got := ApplyWindow(ones)
	if len(got) != n {
		t.Fatalf("len = %d, want %d", len(got), n)
	}

	for i, v := range got {
		want := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		if math.Abs(v-want) > 1e-9 {
			t.Fatalf("w[%d] = %g, want %g", i, v, want)
		}
	}
	if math.Abs(got[0]-got[n-1]) > 1e-12 {
		t.Errorf("window is not symmetric: %g vs %g", got[0], got[n-1])
	}
}

func TestApplyWindow_DoesNotMutateInput(t *testing.T) {
	in := []float64{1, 1, 1, 1}
	_ = ApplyWindow(in)
	for i, v := range in {
		if v != 1 {
			t.Fatalf("input[%d] mutated to %g", i, v)
		}
	}
}

func TestApplyWindow_Degenerate(t *testing.T) {
	if got := ApplyWindow(nil); len(got) != 0 {
		t.Errorf("ApplyWindow(nil) = %v, want empty", got)
	}
	if got := ApplyWindow([]float64{0.5}); len(got) != 1 || got[0] != 0.5 {
		t.Errorf("ApplyWindow single = %v", got)
	}
}

func TestHamming_ApplyInPlaceSizeMismatch(t *testing.T) {
	h := NewHamming(8)
	if err := h.ApplyInPlace(make([]float64, 4)); err == nil {
		t.Fatal("expected size mismatch error")
	}
	if h.Apply(make([]float64, 4)) != nil {
		t.Error("Apply with wrong size should return nil")
	}
}

func TestApplyWindow_CacheBounded(t *testing.T) {
	for n := 2; n < 2+4*maxCachedWindows; n++ {
		got := ApplyWindow(make([]float64, n))
		if len(got) != n {
			t.Fatalf("len = %d, want %d", len(got), n)
		}
	}

	cacheMu.Lock()
	size := len(cache)
	cacheMu.Unlock()
	if size > maxCachedWindows {
		t.Errorf("cache holds %d windows, want at most %d", size, maxCachedWindows)
	}

	// Lengths past the bound still get a correct window.
	const n = 1000
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	got := ApplyWindow(ones)
	want := 0.54 - 0.46*math.Cos(2*math.Pi*10/float64(n-1))
	if math.Abs(got[10]-want) > 1e-9 {
		t.Errorf("w[10] = %g, want %g", got[10], want)
	}
}
