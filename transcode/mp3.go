package transcode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// decodeMP3 decodes with go-mp3, which always yields 16-bit little-endian
// stereo frames
func decodeMP3(r io.Reader) (*AudioData, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("open mp3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("read mp3: %w", err)
	}

	const channels = 2
	frames := len(raw) / (2 * channels)
	mono := make([]float64, frames)
	for i := range frames {
		off := i * 2 * channels
		left := int16(binary.LittleEndian.Uint16(raw[off : off+2]))
		right := int16(binary.LittleEndian.Uint16(raw[off+2 : off+4]))
		mono[i] = (float64(left) + float64(right)) / 2 / 32768
	}

	return &AudioData{
		PCM:        mono,
		SampleRate: dec.SampleRate(),
		Channels:   channels,
		Format:     FormatMP3,
	}, nil
}
