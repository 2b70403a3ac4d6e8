// Package config provides the configuration schema and loader for the
// sonido-coach analysis services.
package config

import (
	"time"

	"github.com/RyanBlaney/sonido-coach/transcode"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure.
type Config struct {
	Log      LogConfig               `yaml:"log"`
	Analysis AnalysisConfig          `yaml:"analysis"`
	Stream   StreamConfig            `yaml:"stream"`
	Coaching CoachingConfig          `yaml:"coaching"`
	Observe  ObserveConfig           `yaml:"observe"`
	Decoder  transcode.DecoderConfig `yaml:"decoder"`
	Profiles ProfileStoreConfig      `yaml:"profiles"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level LogLevel `yaml:"level"`
	JSON  bool     `yaml:"json"`
}

// AnalysisConfig holds frame and estimator parameters shared by the live loop
// and the offline calibration analyzer.
type AnalysisConfig struct {
	// SampleRate is the capture rate of incoming frames.
	SampleRate int `yaml:"sample_rate"`

	// TargetRate is the rate frames are decimated to before analysis.
	// Decimation is by the integer ratio SampleRate/TargetRate, so the
	// effective rate is SampleRate/ratio and can be higher than TargetRate
	// (44100 Hz input analyses at 22050 Hz for a 16000 Hz target).
	TargetRate int `yaml:"target_rate"`

	FrameSize int `yaml:"frame_size"`
	HopSize   int `yaml:"hop_size"`

	YinThreshold float64 `yaml:"yin_threshold"`

	// RMSGate skips frames quieter than this linear RMS.
	RMSGate float64 `yaml:"rms_gate"`

	// ConfidenceGate drops pitch/formant readings at or below this confidence.
	ConfidenceGate float64 `yaml:"confidence_gate"`
}

// StreamConfig configures the live coordinator and its remote channel.
type StreamConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`

	// BufferCapacity bounds the outbound chunk buffer while disconnected.
	BufferCapacity int `yaml:"buffer_capacity"`

	// EventLogSize bounds the connection-event ring.
	EventLogSize int `yaml:"event_log_size"`

	// RemoteURL is the websocket endpoint of the deep-analysis service.
	// Empty disables the remote channel.
	RemoteURL string `yaml:"remote_url"`

	ReconnectBase time.Duration `yaml:"reconnect_base"`
	ReconnectMax  time.Duration `yaml:"reconnect_max"`

	// DiagnosticDuration is how long the environment check listens.
	DiagnosticDuration time.Duration `yaml:"diagnostic_duration"`
}

// CoachingConfig holds feedback rate limits and the singer's target range.
type CoachingConfig struct {
	Cooldown           time.Duration `yaml:"cooldown"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	PitchMin           float64       `yaml:"pitch_min"`
	PitchMax           float64       `yaml:"pitch_max"`
	EncouragementAfter time.Duration `yaml:"encouragement_after"`
	EncouragementEvery time.Duration `yaml:"encouragement_every"`
}

// ObserveConfig configures the metrics endpoint.
type ObserveConfig struct {
	// MetricsAddr is the listen address for /metrics. Empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`
}

// ProfileStoreConfig locates saved baseline profiles.
type ProfileStoreConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns a Config populated with the stock values.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero field of cfg with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = LogInfo
	}

	a := &cfg.Analysis
	setInt(&a.SampleRate, 44100)
	setInt(&a.TargetRate, 16000)
	setInt(&a.FrameSize, 2048)
	setInt(&a.HopSize, 512)
	setFloat(&a.YinThreshold, 0.15)
	setFloat(&a.RMSGate, 0.01)
	setFloat(&a.ConfidenceGate, 0.5)

	s := &cfg.Stream
	setDuration(&s.TickInterval, 50*time.Millisecond)
	setInt(&s.BufferCapacity, 50)
	setInt(&s.EventLogSize, 10)
	setDuration(&s.ReconnectBase, 500*time.Millisecond)
	setDuration(&s.ReconnectMax, 30*time.Second)
	setDuration(&s.DiagnosticDuration, 3*time.Second)

	c := &cfg.Coaching
	setDuration(&c.Cooldown, 10*time.Second)
	setDuration(&c.PollInterval, 2*time.Second)
	setFloat(&c.PitchMin, 165)
	setFloat(&c.PitchMax, 255)
	setDuration(&c.EncouragementAfter, 60*time.Second)
	setDuration(&c.EncouragementEvery, 120*time.Second)

	d := &cfg.Decoder
	if d.FFmpegPath == "" {
		d.FFmpegPath = "ffmpeg"
	}
	setDuration(&d.Timeout, 30*time.Second)
	setInt(&d.FallbackSampleRate, 44100)

	if cfg.Profiles.Dir == "" {
		cfg.Profiles.Dir = "profiles"
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}
