// Package coaching turns live voice metrics into rate-limited coaching
// messages and summarises practice sessions.
package coaching

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/RyanBlaney/sonido-coach/algorithms/common"
	"github.com/RyanBlaney/sonido-coach/algorithms/stats"
	"github.com/RyanBlaney/sonido-coach/logging"
	"github.com/RyanBlaney/sonido-coach/observe"
)

// Category groups related feedback
type Category string

const (
	CategoryPitch         Category = "pitch"
	CategoryResonance     Category = "resonance"
	CategoryWeight        Category = "weight"
	CategoryStrain        Category = "strain"
	CategoryEncouragement Category = "encouragement"
)

// Severity orders messages when several fire together
type Severity string

const (
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
	SeverityTip        Severity = "tip"
	SeverityPraise     Severity = "praise"
)

func (s Severity) rank() int {
	switch s {
	case SeverityWarning:
		return 4
	case SeveritySuggestion:
		return 3
	case SeverityTip:
		return 2
	case SeverityPraise:
		return 1
	}
	return 0
}

// Rule thresholds
const (
	unstableVariance   = 400.0
	darkResonance      = 40.0
	brightResonance    = 65.0
	heavyWeight        = 70.0
	lightWeight        = 25.0
	strainTilt         = -4.0
	inRangePraiseOdds  = 0.10
	brightPraiseOdds   = 0.15
	stabilityFullScale = 50.0
)

// Message is one piece of coaching feedback
type Message struct {
	Category Category  `json:"category"`
	Severity Severity  `json:"severity"`
	Kind     string    `json:"kind"`
	Text     string    `json:"text"`
	Tip      string    `json:"tip,omitempty"`
	At       time.Time `json:"at"`
}

// Metrics is the reading the generator evaluates. Pitch <= 0 means the frame
// was unvoiced and only encouragement can fire.
type Metrics struct {
	Pitch        float64
	Resonance    float64
	VocalWeight  float64
	SpectralTilt float64
}

// Config holds target ranges and rate limits
type Config struct {
	PitchMin float64
	PitchMax float64

	// Cooldown is the minimum gap between two messages with the same key
	Cooldown time.Duration

	// VarianceWindow is how far back the pitch stability check looks
	VarianceWindow time.Duration

	EncouragementAfter time.Duration
	EncouragementEvery time.Duration
}

// DefaultConfig returns the stock limits for a mid-range target
func DefaultConfig() Config {
	return Config{
		PitchMin:           165,
		PitchMax:           255,
		Cooldown:           10 * time.Second,
		VarianceWindow:     5 * time.Second,
		EncouragementAfter: 60 * time.Second,
		EncouragementEvery: 120 * time.Second,
	}
}

// Rand is the randomness used for praise odds and phrasing
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Summary describes a finished session
type Summary struct {
	Duration     time.Duration `json:"duration"`
	MessageCount int           `json:"message_count"`
	AvgPitch     float64       `json:"avg_pitch_hz"`
	// Stability is 100 for a perfectly steady pitch, falling to 0 at a
	// 50 Hz standard deviation
	Stability    float64       `json:"stability"`
	AvgResonance float64       `json:"avg_resonance"`
	Pitch        stats.Summary `json:"pitch"`
}

// Generator produces at most one message per evaluation, honouring per-key
// cooldowns. Each session owns one generator; it is not safe for concurrent
// use.
type Generator struct {
	cfg     Config
	now     func() time.Time
	rand    Rand
	logger  logging.Logger
	metrics *observe.Metrics

	active            bool
	start             time.Time
	recent            *common.TimedHistory
	sessionPitch      []float64
	sessionResonance  []float64
	cooldowns         map[string]time.Time
	lastEncouragement time.Time
	count             int
}

// Option configures a Generator
type Option func(*Generator)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand injects the random source
func WithRand(r Rand) Option {
	return func(g *Generator) { g.rand = r }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMetrics counts surfaced messages
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// NewGenerator creates an idle generator
func NewGenerator(cfg Config, opts ...Option) *Generator {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	if cfg.VarianceWindow <= 0 {
		cfg.VarianceWindow = DefaultConfig().VarianceWindow
	}
	g := &Generator{
		cfg:       cfg,
		now:       time.Now,
		rand:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		logger:    logging.WithFields(logging.Fields{"component": "coaching"}),
		recent:    common.NewTimedHistory(60 * time.Second),
		cooldowns: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// StartSession begins a clean session
func (g *Generator) StartSession() {
	g.Reset()
	g.active = true
	g.start = g.now()
}

// Active reports whether a session is running
func (g *Generator) Active() bool {
	return g.active
}

// Record adds a reading to the session history without evaluating it
func (g *Generator) Record(m Metrics) {
	if !g.active || m.Pitch <= 0 {
		return
	}
	g.recent.Push(g.now(), m.Pitch)
	g.sessionPitch = append(g.sessionPitch, m.Pitch)
	g.sessionResonance = append(g.sessionResonance, m.Resonance)
}

// Evaluate records m and returns the highest priority message that is off
// cooldown, or nil. Lower priority candidates are discarded.
func (g *Generator) Evaluate(m Metrics) *Message {
	if !g.active {
		return nil
	}
	g.Record(m)
	now := g.now()

	var best *Message
	for _, c := range g.candidates(m, now) {
		if best == nil || c.Severity.rank() > best.Severity.rank() {
			best = c
		}
	}
	if best == nil {
		return nil
	}

	g.cooldowns[cooldownKey(best)] = now
	if best.Category == CategoryEncouragement {
		g.lastEncouragement = now
	}
	g.count++

	if g.metrics != nil {
		g.metrics.RecordCoachingMessage(context.Background(), string(best.Category), string(best.Severity))
	}
	g.logger.Debug("Coaching message", logging.Fields{
		"category": string(best.Category),
		"severity": string(best.Severity),
		"kind":     best.Kind,
	})
	return best
}

// candidates returns every message whose rule fires and whose key is off
// cooldown, in category order.
func (g *Generator) candidates(m Metrics, now time.Time) []*Message {
	var out []*Message
	add := func(cat Category, sev Severity, kind string) {
		msg := g.compose(cat, sev, kind, now)
		if g.onCooldown(cooldownKey(msg), now) {
			return
		}
		out = append(out, msg)
	}

	if m.Pitch > 0 {
		window := g.recent.Since(now.Add(-g.cfg.VarianceWindow))
		switch {
		case len(window) >= 2 && common.Variance(window) > unstableVariance:
			add(CategoryPitch, SeverityWarning, "unstable")
		case m.Pitch < g.cfg.PitchMin:
			add(CategoryPitch, SeveritySuggestion, "tooLow")
		case m.Pitch > g.cfg.PitchMax:
			add(CategoryPitch, SeveritySuggestion, "tooHigh")
		case g.rand.Float64() < inRangePraiseOdds:
			add(CategoryPitch, SeverityPraise, "inRange")
		}

		switch {
		case m.Resonance < darkResonance:
			add(CategoryResonance, SeveritySuggestion, "dark")
		case m.Resonance > brightResonance && g.rand.Float64() < brightPraiseOdds:
			add(CategoryResonance, SeverityPraise, "bright")
		}

		switch {
		case m.VocalWeight > heavyWeight:
			add(CategoryWeight, SeveritySuggestion, "tooHeavy")
		case m.VocalWeight < lightWeight:
			add(CategoryWeight, SeverityTip, "tooLight")
		}

		if m.SpectralTilt > strainTilt {
			add(CategoryStrain, SeverityWarning, "detected")
		}
	}

	if g.encouragementDue(now) {
		add(CategoryEncouragement, SeverityPraise, "general")
	}
	return out
}

func (g *Generator) encouragementDue(now time.Time) bool {
	if now.Sub(g.start) <= g.cfg.EncouragementAfter {
		return false
	}
	return g.lastEncouragement.IsZero() || now.Sub(g.lastEncouragement) >= g.cfg.EncouragementEvery
}

func (g *Generator) compose(cat Category, sev Severity, kind string, now time.Time) *Message {
	msg := &Message{Category: cat, Severity: sev, Kind: kind, At: now}
	if pool := pools[string(cat)+"."+kind]; len(pool) > 0 {
		v := pool[g.rand.IntN(len(pool))]
		msg.Text, msg.Tip = v.text, v.tip
	}
	return msg
}

// cooldownKey is the category, except in-range pitch praise which cools down
// on its own so it never blocks corrective pitch feedback.
func cooldownKey(m *Message) string {
	if m.Category == CategoryPitch && m.Kind == "inRange" {
		return "pitch.inRange"
	}
	return string(m.Category)
}

func (g *Generator) onCooldown(key string, now time.Time) bool {
	last, ok := g.cooldowns[key]
	return ok && now.Sub(last) < g.cfg.Cooldown
}

// EndSession summarises the session and resets the generator
func (g *Generator) EndSession() Summary {
	if !g.active {
		return Summary{}
	}

	pitch := stats.Summarize(g.sessionPitch)
	summary := Summary{
		Duration:     g.now().Sub(g.start),
		MessageCount: g.count,
		AvgPitch:     pitch.Mean,
		AvgResonance: common.Mean(g.sessionResonance),
		Pitch:        pitch,
	}
	if pitch.Count > 0 {
		summary.Stability = 100 * (1 - min(1, pitch.StdDev/stabilityFullScale))
	}

	g.Reset()
	return summary
}

// Reset drops all session state, including cooldowns
func (g *Generator) Reset() {
	g.active = false
	g.start = time.Time{}
	g.recent.Clear()
	g.sessionPitch = nil
	g.sessionResonance = nil
	clear(g.cooldowns)
	g.lastEncouragement = time.Time{}
	g.count = 0
}
