package transcode

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

func decodeWAV(r io.ReadSeeker) (*AudioData, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %w", ErrUnsupportedFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav pcm: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("wav without sample rate: %w", ErrUnsupportedFormat)
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}

	samples := make([]float64, len(buf.Data))
	switch depth {
	case 8:
		// 8-bit WAV is unsigned
		for i, v := range buf.Data {
			samples[i] = (float64(v) - 128) / 128
		}
	case 16, 24, 32:
		scale := float64(int64(1) << (depth - 1))
		for i, v := range buf.Data {
			samples[i] = float64(v) / scale
		}
	default:
		return nil, fmt.Errorf("wav bit depth %d: %w", depth, ErrUnsupportedFormat)
	}

	channels := max(1, buf.Format.NumChannels)
	return &AudioData{
		PCM:        downmix(samples, channels),
		SampleRate: buf.Format.SampleRate,
		Channels:   channels,
		Format:     FormatWAV,
	}, nil
}
