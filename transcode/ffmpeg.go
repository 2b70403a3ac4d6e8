package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-coach/logging"
)

// decodeWithFFmpeg pipes data through ffmpeg, asking for mono float64 output
func (d *Decoder) decodeWithFFmpeg(ctx context.Context, data []byte) (*AudioData, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	rate := d.config.FallbackSampleRate
	if rate <= 0 {
		rate = 44100
	}
	args := d.buildFFmpegArgs(rate)

	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)
	cmd.Stdin = bytes.NewReader(data)

	d.logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			d.logger.Error(err, "Ffmpeg decode failed", logging.Fields{
				"stderr": string(exitError.Stderr),
			})
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	return &AudioData{
		PCM:        bytesToFloat64(output),
		SampleRate: rate,
		Channels:   1,
		Format:     FormatUnknown,
	}, nil
}

func (d *Decoder) buildFFmpegArgs(rate int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-f", "f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"pipe:1",
	}
}

// bytesToFloat64 converts raw float64 little-endian bytes, dropping a partial tail
func bytesToFloat64(data []byte) []float64 {
	data = data[:len(data)-len(data)%8]
	if len(data) == 0 {
		return nil
	}

	samples := make([]float64, len(data)/8)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8 : i*8+8]))
	}
	return samples
}
