package windowing

import (
	"fmt"
	"sync"

	dspwindow "github.com/mjibson/go-dsp/window"
)

// Hamming holds symmetric Hamming coefficients, 0.54 - 0.46*cos(2*pi*i/(N-1)),
// for one frame size
type Hamming struct {
	size         int
	coefficients []float64
}

// NewHamming creates a new Hamming window
func NewHamming(size int) *Hamming {
	return &Hamming{
		size:         size,
		coefficients: dspwindow.Hamming(size),
	}
}

// Apply applies the window to a signal (creates new array)
func (h *Hamming) Apply(signal []float64) []float64 {
	if len(signal) != h.size {
		return nil
	}

	windowed := make([]float64, h.size)
	for i := range h.size {
		windowed[i] = signal[i] * h.coefficients[i]
	}
	return windowed
}

// ApplyInPlace applies the window to a signal in-place
func (h *Hamming) ApplyInPlace(signal []float64) error {
	if len(signal) != h.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), h.size)
	}

	for i := range h.size {
		signal[i] *= h.coefficients[i]
	}
	return nil
}

// maxCachedWindows bounds the window cache. Lengths seen after it fills are
// computed per call.
const maxCachedWindows = 8

var (
	cacheMu sync.Mutex
	cache   = map[int]*Hamming{}
)

// ApplyWindow returns a Hamming-windowed copy of signal. Windows are cached
// per length since live frames reuse the same size every tick.
func ApplyWindow(signal []float64) []float64 {
	n := len(signal)
	if n == 0 {
		return []float64{}
	}
	if n == 1 {
		return []float64{signal[0]}
	}
	return window(n).Apply(signal)
}

func window(n int) *Hamming {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if h, ok := cache[n]; ok {
		return h
	}
	h := NewHamming(n)
	if len(cache) < maxCachedWindows {
		cache[n] = h
	}
	return h
}
