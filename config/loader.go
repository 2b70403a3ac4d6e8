package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	a := cfg.Analysis
	if a.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("analysis.sample_rate must be positive, got %d", a.SampleRate))
	}
	if a.TargetRate <= 0 {
		errs = append(errs, fmt.Errorf("analysis.target_rate must be positive, got %d", a.TargetRate))
	}
	if a.FrameSize < 256 {
		errs = append(errs, fmt.Errorf("analysis.frame_size %d is too small; minimum 256", a.FrameSize))
	}
	if a.HopSize <= 0 || a.HopSize > a.FrameSize {
		errs = append(errs, fmt.Errorf("analysis.hop_size %d must be in (0, frame_size]", a.HopSize))
	}
	if a.YinThreshold <= 0 || a.YinThreshold >= 1 {
		errs = append(errs, fmt.Errorf("analysis.yin_threshold %.3f is out of range (0, 1)", a.YinThreshold))
	}
	if a.ConfidenceGate < 0 || a.ConfidenceGate >= 1 {
		errs = append(errs, fmt.Errorf("analysis.confidence_gate %.3f is out of range [0, 1)", a.ConfidenceGate))
	}
	if a.RMSGate < 0 {
		errs = append(errs, fmt.Errorf("analysis.rms_gate must not be negative"))
	}

	s := cfg.Stream
	if s.BufferCapacity <= 0 {
		errs = append(errs, fmt.Errorf("stream.buffer_capacity must be positive, got %d", s.BufferCapacity))
	}
	if s.EventLogSize <= 0 {
		errs = append(errs, fmt.Errorf("stream.event_log_size must be positive, got %d", s.EventLogSize))
	}
	if s.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("stream.tick_interval must be positive"))
	}
	if s.ReconnectMax < s.ReconnectBase {
		errs = append(errs, fmt.Errorf("stream.reconnect_max %v is below reconnect_base %v", s.ReconnectMax, s.ReconnectBase))
	}
	if s.RemoteURL != "" {
		u, err := url.Parse(s.RemoteURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("stream.remote_url: %w", err))
		} else if u.Scheme != "ws" && u.Scheme != "wss" {
			errs = append(errs, fmt.Errorf("stream.remote_url scheme %q is invalid; valid values: ws, wss", u.Scheme))
		}
	}

	c := cfg.Coaching
	if c.PitchMin <= 0 || c.PitchMax <= c.PitchMin {
		errs = append(errs, fmt.Errorf("coaching pitch range [%.1f, %.1f] is invalid", c.PitchMin, c.PitchMax))
	}
	if c.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("coaching.cooldown must not be negative"))
	}

	return errors.Join(errs...)
}
