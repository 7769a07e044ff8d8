// Package recording captures audio on the engine's audio thread, either the
// final output bus or a live input, into takes that become track assets.
package recording

import (
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/jscyril/multitrack/api"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

// Input is a capture source such as a microphone
type Input interface {
	Open() (beep.Streamer, error)
}

// NoInput is the input of a machine without capture access
type NoInput struct{}

// Open always fails with ErrPermission
func (NoInput) Open() (beep.Streamer, error) {
	return nil, fmt.Errorf("%w: no capture device configured", playerrors.ErrPermission)
}

type streamInput struct {
	s beep.Streamer
}

// FromStreamer wraps a streamer as a capture input
func FromStreamer(s beep.Streamer) Input {
	return streamInput{s: s}
}

func (in streamInput) Open() (beep.Streamer, error) {
	return in.s, nil
}

// Take is the audio captured by one recording
type Take struct {
	Mode       api.RecordingMode
	Track      string
	SampleRate beep.SampleRate
	Frames     [][2]float64
}

// Duration returns the length of the take
func (t Take) Duration() time.Duration {
	return t.SampleRate.D(len(t.Frames))
}

// Recorder is the shared recorder. Only one recording runs at a time; it
// is fed through Capture by the engine once per block.
type Recorder struct {
	sampleRate beep.SampleRate

	mu     sync.Mutex
	active bool
	mode   api.RecordingMode
	track  string
	src    beep.Streamer
	buf    [][2]float64
	frames [][2]float64
}

// NewRecorder creates an idle recorder for an engine running at sampleRate
func NewRecorder(sampleRate beep.SampleRate) *Recorder {
	return &Recorder{sampleRate: sampleRate}
}

// Begin starts a recording. Mix recordings capture the output bus; track
// recordings capture input for track.
func (r *Recorder) Begin(mode api.RecordingMode, track string, input Input) error {
	r.mu.Lock()
	busy := r.active
	r.mu.Unlock()
	if busy {
		return playerrors.ErrConcurrentRecording
	}

	var src beep.Streamer
	if mode == api.RecordTrack {
		if input == nil {
			input = NoInput{}
		}
		s, err := input.Open()
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		src = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return playerrors.ErrConcurrentRecording
	}
	r.active = true
	r.mode = mode
	r.track = track
	r.src = src
	r.frames = nil
	return nil
}

// Capture records one engine block
func (r *Recorder) Capture(block [][2]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return
	}
	if r.mode == api.RecordMix {
		r.frames = append(r.frames, block...)
		return
	}
	if r.src == nil {
		return
	}
	if cap(r.buf) < len(block) {
		r.buf = make([][2]float64, len(block))
	}
	buf := r.buf[:len(block)]
	n, ok := r.src.Stream(buf)
	r.frames = append(r.frames, buf[:n]...)
	if !ok {
		r.src = nil
	}
}

// End stops the recording and returns its take
func (r *Recorder) End() (Take, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return Take{}, playerrors.ErrNotRecording
	}
	take := Take{Mode: r.mode, Track: r.track, SampleRate: r.sampleRate, Frames: r.frames}
	r.active = false
	r.src = nil
	r.frames = nil
	if len(take.Frames) == 0 {
		return take, playerrors.ErrEmptyTake
	}
	return take, nil
}

// Status describes the recorder
func (r *Recorder) Status() api.RecordingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return api.RecordingStatus{
		Active:   r.active,
		Mode:     r.mode,
		Track:    r.track,
		Captured: r.sampleRate.D(len(r.frames)),
	}
}
