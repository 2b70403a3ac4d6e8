package common

import (
	"time"
)

// RollingHistory is a bounded FIFO of float samples. Once full, each Push
// evicts the oldest value.
type RollingHistory struct {
	buffer   []float64
	size     int
	writePos int
	count    int
}

// NewRollingHistory creates a history holding at most size samples
func NewRollingHistory(size int) *RollingHistory {
	if size < 1 {
		size = 1
	}
	return &RollingHistory{
		buffer: make([]float64, size),
		size:   size,
	}
}

// Push appends a sample, overwriting the oldest one when full
func (h *RollingHistory) Push(v float64) {
	h.buffer[h.writePos] = v
	h.writePos = (h.writePos + 1) % h.size
	if h.count < h.size {
		h.count++
	}
}

// Values returns the samples oldest first
func (h *RollingHistory) Values() []float64 {
	out := make([]float64, h.count)
	start := (h.writePos - h.count + h.size) % h.size
	for i := range h.count {
		out[i] = h.buffer[(start+i)%h.size]
	}
	return out
}

// Len returns the number of stored samples
func (h *RollingHistory) Len() int {
	return h.count
}

// Cap returns the capacity
func (h *RollingHistory) Cap() int {
	return h.size
}

// IsFull reports whether the next Push evicts a sample
func (h *RollingHistory) IsFull() bool {
	return h.count == h.size
}

// Clear empties the history
func (h *RollingHistory) Clear() {
	h.writePos = 0
	h.count = 0
}

// TimedSample is a value recorded at an instant
type TimedSample struct {
	At    time.Time
	Value float64
}

// TimedHistory keeps samples no older than span relative to the newest sample
type TimedHistory struct {
	span    time.Duration
	samples []TimedSample
}

// NewTimedHistory creates a history covering span
func NewTimedHistory(span time.Duration) *TimedHistory {
	return &TimedHistory{span: span}
}

// Push appends a sample and drops everything older than span before at
func (h *TimedHistory) Push(at time.Time, v float64) {
	h.samples = append(h.samples, TimedSample{At: at, Value: v})
	cutoff := at.Add(-h.span)
	drop := 0
	for drop < len(h.samples) && h.samples[drop].At.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		h.samples = append(h.samples[:0], h.samples[drop:]...)
	}
}

// Since returns values recorded at or after t, oldest first
func (h *TimedHistory) Since(t time.Time) []float64 {
	var out []float64
	for _, s := range h.samples {
		if !s.At.Before(t) {
			out = append(out, s.Value)
		}
	}
	return out
}

// Values returns every retained value, oldest first
func (h *TimedHistory) Values() []float64 {
	out := make([]float64, len(h.samples))
	for i, s := range h.samples {
		out[i] = s.Value
	}
	return out
}

// Len returns the number of retained samples
func (h *TimedHistory) Len() int {
	return len(h.samples)
}

// Clear empties the history
func (h *TimedHistory) Clear() {
	h.samples = h.samples[:0]
}
