package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/RyanBlaney/sonido-coach/logging"
)

var (
	// ErrUnsupportedFormat is returned when no decoder recognises the input
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrEmptyAudio is returned for inputs that decode to no samples
	ErrEmptyAudio = errors.New("no audio samples decoded")
)

// Format names the container detected for an input
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatUnknown Format = "unknown"
)

// AudioData is a decoded recording downmixed to mono
type AudioData struct {
	PCM        []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // channels in the source before downmix
	Duration   time.Duration `json:"duration"`
	Format     Format        `json:"format"`
	Timestamp  time.Time     `json:"timestamp"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	// FFmpegFallback pipes unrecognised inputs through ffmpeg when set
	FFmpegFallback bool          `json:"ffmpeg_fallback" yaml:"ffmpeg_fallback"`
	FFmpegPath     string        `json:"ffmpeg_path" yaml:"ffmpeg_path"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
	// FallbackSampleRate is the rate ffmpeg resamples to
	FallbackSampleRate int `json:"fallback_sample_rate" yaml:"fallback_sample_rate"`
	// MaxDuration truncates long recordings; 0 keeps everything
	MaxDuration time.Duration `json:"max_duration" yaml:"max_duration"`
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		FFmpegFallback:     false,
		FFmpegPath:         "ffmpeg",
		Timeout:            30 * time.Second,
		FallbackSampleRate: 44100,
	}
}

// Decoder turns recorded utterances into mono float samples. WAV and MP3 are
// decoded in-process; anything else goes through ffmpeg when enabled.
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config: config,
		logger: logging.WithFields(logging.Fields{"component": "audio_decoder"}),
	}
}

// DecodeFile decodes an audio file
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*AudioData, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	audio, err := d.DecodeBytes(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	return audio, nil
}

// DecodeBytes detects the container and decodes it
func (d *Decoder) DecodeBytes(ctx context.Context, data []byte) (*AudioData, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	format := DetectFormat(data)
	logger := d.logger.WithFields(logging.Fields{
		"format":    string(format),
		"data_size": len(data),
	})
	logger.Debug("Starting audio decode")

	var (
		audio *AudioData
		err   error
	)
	switch format {
	case FormatWAV:
		audio, err = decodeWAV(bytes.NewReader(data))
	case FormatMP3:
		audio, err = decodeMP3(bytes.NewReader(data))
	default:
		if !d.config.FFmpegFallback {
			return nil, ErrUnsupportedFormat
		}
		audio, err = d.decodeWithFFmpeg(ctx, data)
	}
	if err != nil {
		logger.Error(err, "Audio decode failed")
		return nil, err
	}
	if len(audio.PCM) == 0 {
		return nil, ErrEmptyAudio
	}

	d.truncate(audio)
	audio.Duration = time.Duration(len(audio.PCM)) * time.Second / time.Duration(audio.SampleRate)
	audio.Timestamp = time.Now()

	logger.Debug("Audio decode completed", logging.Fields{
		"sample_rate":     audio.SampleRate,
		"source_channels": audio.Channels,
		"samples":         len(audio.PCM),
		"duration":        audio.Duration.Seconds(),
	})
	return audio, nil
}

func (d *Decoder) truncate(audio *AudioData) {
	if d.config.MaxDuration <= 0 {
		return
	}
	limit := int(d.config.MaxDuration.Seconds() * float64(audio.SampleRate))
	if limit > 0 && len(audio.PCM) > limit {
		audio.PCM = audio.PCM[:limit]
	}
}

// DetectFormat sniffs the container from its leading bytes
func DetectFormat(data []byte) Format {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return FormatWAV
	}
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return FormatMP3
	}
	// MPEG audio frame sync: 11 set bits, layer III
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 && data[1]&0x06 == 0x02 {
		return FormatMP3
	}
	return FormatUnknown
}

// downmix averages interleaved channels into one
func downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}
