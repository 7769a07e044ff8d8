package audio

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

// SupportedFormats returns list of supported audio formats
func SupportedFormats() []string {
	return []string{".mp3", ".wav", ".flac"}
}

// IsSupported checks if a file format is supported
func IsSupported(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// ContentKey returns the content identity used to cache decoded assets
func ContentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Decoder turns encoded bytes into assets at the engine's sample rate.
type Decoder struct {
	sampleRate beep.SampleRate
	quality    int
}

// NewDecoder creates a decoder resampling to sampleRate
func NewDecoder(sampleRate beep.SampleRate) *Decoder {
	return &Decoder{sampleRate: sampleRate, quality: 4}
}

// Decode decodes data. name is used for format detection when the content
// itself is ambiguous, and for error messages.
func (d *Decoder) Decode(name string, data []byte) (*Asset, error) {
	streamer, format, err := decodeStream(name, data)
	if err != nil {
		return nil, &playerrors.DecodeError{Name: name, Err: err}
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if format.SampleRate != d.sampleRate {
		src = beep.Resample(d.quality, format.SampleRate, d.sampleRate, streamer)
	}

	frames := make([][2]float64, 0, d.sampleRate.N(format.SampleRate.D(streamer.Len())))
	buf := make([][2]float64, 512)
	for {
		n, ok := src.Stream(buf)
		frames = append(frames, buf[:n]...)
		if !ok {
			break
		}
	}
	if err := src.Err(); err != nil {
		return nil, &playerrors.DecodeError{Name: name, Err: err}
	}

	out := beep.Format{SampleRate: d.sampleRate, NumChannels: 2, Precision: format.Precision}
	return NewAsset(ContentKey(data), out, format.NumChannels, frames), nil
}

// decodeStream picks a beep decoder from the content signature, falling
// back to the file extension
func decodeStream(name string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	r := bytes.NewReader(data)
	switch kind := sniff(name, data); kind {
	case ".mp3":
		return mp3.Decode(io.NopCloser(r))
	case ".wav":
		return wav.Decode(r)
	case ".flac":
		return flac.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", playerrors.ErrInvalidFormat, kind)
	}
}

func sniff(name string, data []byte) string {
	switch {
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return ".wav"
	case len(data) >= 4 && string(data[:4]) == "fLaC":
		return ".flac"
	case len(data) >= 3 && string(data[:3]) == "ID3":
		return ".mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return ".mp3"
	}
	return strings.ToLower(filepath.Ext(name))
}

// Title reads the title tag of encoded audio. It returns an empty string
// when the data carries no usable tags.
func Title(data []byte) string {
	metadata, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(metadata.Title())
}
