package audio

import (
	"fmt"
	"io"
	"math"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// EncodeWAV writes stereo 16-bit PCM of samples to w.
func EncodeWAV(w io.WriteSeeker, sampleRate beep.SampleRate, samples [][2]float64) error {
	format := beep.Format{SampleRate: sampleRate, NumChannels: 2, Precision: 2}
	s := &sliceStreamer{data: samples}
	if err := wav.Encode(w, s, format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}

// Peak returns the largest absolute sample value in samples
func Peak(samples [][2]float64) float64 {
	var peak float64
	for _, frame := range samples {
		peak = math.Max(peak, math.Max(math.Abs(frame[0]), math.Abs(frame[1])))
	}
	return peak
}
