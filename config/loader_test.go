package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-coach/config"
)

func TestLoadFromReader_Empty(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Analysis.FrameSize != 2048 || cfg.Analysis.HopSize != 512 {
		t.Errorf("frame/hop = %d/%d, want 2048/512", cfg.Analysis.FrameSize, cfg.Analysis.HopSize)
	}
	if cfg.Stream.BufferCapacity != 50 || cfg.Stream.EventLogSize != 10 {
		t.Errorf("buffer/log = %d/%d, want 50/10", cfg.Stream.BufferCapacity, cfg.Stream.EventLogSize)
	}
	if cfg.Coaching.Cooldown != 10*time.Second {
		t.Errorf("cooldown = %v, want 10s", cfg.Coaching.Cooldown)
	}
	if cfg.Analysis.RMSGate != 0.01 || cfg.Analysis.ConfidenceGate != 0.5 {
		t.Errorf("gates = %g/%g", cfg.Analysis.RMSGate, cfg.Analysis.ConfidenceGate)
	}
}

func TestLoadFromReader_Overrides(t *testing.T) {
	t.Parallel()
	yaml := `
log:
  level: debug
analysis:
  target_rate: 22050
stream:
  remote_url: ws://localhost:9000/analyze
  buffer_capacity: 10
coaching:
  cooldown: 5s
  pitch_min: 90
  pitch_max: 150
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Level != config.LogDebug {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Analysis.TargetRate != 22050 {
		t.Errorf("target_rate = %d", cfg.Analysis.TargetRate)
	}
	if cfg.Stream.BufferCapacity != 10 {
		t.Errorf("buffer_capacity = %d", cfg.Stream.BufferCapacity)
	}
	if cfg.Coaching.Cooldown != 5*time.Second {
		t.Errorf("cooldown = %v", cfg.Coaching.Cooldown)
	}
	if cfg.Coaching.PitchMin != 90 || cfg.Coaching.PitchMax != 150 {
		t.Errorf("pitch range = %g-%g", cfg.Coaching.PitchMin, cfg.Coaching.PitchMax)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("analysis:\n  frame_sise: 1024\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	yaml := `
log:
  level: loud
analysis:
  yin_threshold: 1.5
  hop_size: 4096
stream:
  remote_url: http://example.com
coaching:
  pitch_min: 300
  pitch_max: 200
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"log.level", "yin_threshold", "hop_size", "remote_url", "pitch range"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "coach.yaml")
	if err := os.WriteFile(path, []byte("observe:\n  metrics_addr: \":9090\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Observe.MetricsAddr != ":9090" {
		t.Errorf("metrics_addr = %q", cfg.Observe.MetricsAddr)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
