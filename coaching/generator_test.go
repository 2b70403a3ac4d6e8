package coaching

import (
	"math"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// stubRand never grants random praise unless odds is set, and always picks
// the first phrasing.
type stubRand struct {
	odds float64
}

func (r stubRand) Float64() float64 { return r.odds }
func (r stubRand) IntN(int) int     { return 0 }

func newTestGenerator(odds float64) (*Generator, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	g := NewGenerator(DefaultConfig(), WithClock(clock.now), WithRand(stubRand{odds: odds}))
	g.StartSession()
	return g, clock
}

var neutral = Metrics{Pitch: 200, Resonance: 50, VocalWeight: 50, SpectralTilt: -10}

func TestEvaluate_Cooldown(t *testing.T) {
	g, clock := newTestGenerator(0.99)
	low := neutral
	low.Pitch = 120

	first := g.Evaluate(low)
	if first == nil || first.Kind != "tooLow" {
		t.Fatalf("first = %+v, want tooLow", first)
	}
	if first.Text != pools["pitch.tooLow"][0].text {
		t.Errorf("text = %q, want first pooled phrasing", first.Text)
	}

	clock.advance(5 * time.Second)
	if msg := g.Evaluate(low); msg != nil {
		t.Errorf("within cooldown got %+v, want nil", msg)
	}

	clock.advance(6 * time.Second)
	if msg := g.Evaluate(low); msg == nil || msg.Kind != "tooLow" {
		t.Errorf("after cooldown got %+v, want tooLow", msg)
	}
}

func TestEvaluate_Priority(t *testing.T) {
	g, _ := newTestGenerator(0.99)
	m := Metrics{Pitch: 120, Resonance: 30, VocalWeight: 20, SpectralTilt: -2}

	// Each surfaced message cools down its own key, so the rest follow in
	// severity then category order.
	want := []struct {
		cat Category
		sev Severity
	}{
		{CategoryStrain, SeverityWarning},
		{CategoryPitch, SeveritySuggestion},
		{CategoryResonance, SeveritySuggestion},
		{CategoryWeight, SeverityTip},
	}
	for i, w := range want {
		msg := g.Evaluate(m)
		if msg == nil {
			t.Fatalf("call %d: nil, want %s/%s", i, w.cat, w.sev)
		}
		if msg.Category != w.cat || msg.Severity != w.sev {
			t.Errorf("call %d: %s/%s, want %s/%s", i, msg.Category, msg.Severity, w.cat, w.sev)
		}
	}
	if msg := g.Evaluate(m); msg != nil {
		t.Errorf("all categories cooling down, got %+v", msg)
	}
}

func TestEvaluate_UnstablePitch(t *testing.T) {
	g, clock := newTestGenerator(0.99)
	for i := range 10 {
		m := neutral
		m.Pitch = 180
		if i%2 == 1 {
			m.Pitch = 240
		}
		g.Record(m)
		clock.advance(200 * time.Millisecond)
	}

	msg := g.Evaluate(neutral)
	if msg == nil || msg.Kind != "unstable" || msg.Severity != SeverityWarning {
		t.Fatalf("got %+v, want unstable warning", msg)
	}
	if msg.Tip == "" {
		t.Error("unstable warning has no tip")
	}
}

func TestEvaluate_StaleVarianceIgnored(t *testing.T) {
	g, clock := newTestGenerator(0.99)
	g.Record(Metrics{Pitch: 100})
	g.Record(Metrics{Pitch: 300})
	clock.advance(6 * time.Second)

	if msg := g.Evaluate(neutral); msg != nil {
		t.Errorf("got %+v, want nil once wobble left the window", msg)
	}
}

func TestEvaluate_Praise(t *testing.T) {
	g, _ := newTestGenerator(0.05)
	m := neutral
	m.Resonance = 70

	msg := g.Evaluate(m)
	if msg == nil || msg.Kind != "inRange" || msg.Severity != SeverityPraise {
		t.Fatalf("got %+v, want inRange praise", msg)
	}

	msg = g.Evaluate(m)
	if msg == nil || msg.Kind != "bright" {
		t.Fatalf("got %+v, want bright resonance praise", msg)
	}

	// In-range praise cools down on its own key, so corrective pitch
	// feedback is not blocked by it.
	low := m
	low.Pitch = 100
	msg = g.Evaluate(low)
	if msg == nil || msg.Category != CategoryPitch || msg.Severity == SeverityPraise {
		t.Errorf("got %+v, want corrective pitch feedback despite recent praise", msg)
	}
}

func TestEvaluate_Encouragement(t *testing.T) {
	g, clock := newTestGenerator(0.99)

	clock.advance(30 * time.Second)
	if msg := g.Evaluate(neutral); msg != nil {
		t.Fatalf("at 30s got %+v, want nil", msg)
	}

	clock.advance(31 * time.Second)
	msg := g.Evaluate(neutral)
	if msg == nil || msg.Category != CategoryEncouragement {
		t.Fatalf("at 61s got %+v, want encouragement", msg)
	}

	clock.advance(40 * time.Second)
	if msg := g.Evaluate(neutral); msg != nil {
		t.Errorf("at 101s got %+v, want nil", msg)
	}

	clock.advance(81 * time.Second)
	if msg := g.Evaluate(neutral); msg == nil || msg.Category != CategoryEncouragement {
		t.Errorf("at 182s got %+v, want encouragement", msg)
	}
}

func TestEvaluate_Unvoiced(t *testing.T) {
	g, _ := newTestGenerator(0.05)
	if msg := g.Evaluate(Metrics{Pitch: -1, Resonance: 10, VocalWeight: 90, SpectralTilt: 0}); msg != nil {
		t.Errorf("got %+v for an unvoiced reading, want nil", msg)
	}
}

func TestSession(t *testing.T) {
	g, clock := newTestGenerator(0.99)
	for _, p := range []float64{200, 210, 190} {
		g.Record(Metrics{Pitch: p, Resonance: 60})
	}
	low := neutral
	low.Pitch = 120
	if g.Evaluate(low) == nil {
		t.Fatal("expected a message")
	}
	clock.advance(30 * time.Second)

	s := g.EndSession()
	if s.Duration != 30*time.Second {
		t.Errorf("Duration = %v, want 30s", s.Duration)
	}
	if s.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", s.MessageCount)
	}
	// pitches 200, 210, 190, 120
	if math.Abs(s.AvgPitch-180) > 1e-9 {
		t.Errorf("AvgPitch = %v, want 180", s.AvgPitch)
	}
	wantStd := math.Sqrt((400 + 900 + 100 + 3600) / 3.0)
	wantStability := 100 * (1 - math.Min(1, wantStd/50))
	if math.Abs(s.Stability-wantStability) > 1e-9 {
		t.Errorf("Stability = %v, want %v", s.Stability, wantStability)
	}
	if math.Abs(s.AvgResonance-57.5) > 1e-9 {
		t.Errorf("AvgResonance = %v, want 57.5", s.AvgResonance)
	}

	if g.Active() {
		t.Error("generator still active after EndSession")
	}
	if msg := g.Evaluate(low); msg != nil {
		t.Errorf("Evaluate without a session = %+v, want nil", msg)
	}
}

func TestSession_SteadyPitch(t *testing.T) {
	g, _ := newTestGenerator(0.99)
	for range 5 {
		g.Record(neutral)
	}
	s := g.EndSession()
	if s.Stability != 100 {
		t.Errorf("Stability = %v, want 100", s.Stability)
	}
}
