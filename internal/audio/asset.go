package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

// Asset is decoded, immutable PCM shared by a track, its warm pool and the
// buffer store. Holders take a reference with Retain and drop it with
// Release; the store forgets the asset when the last reference goes.
type Asset struct {
	key      string
	format   beep.Format
	channels int
	data     [][2]float64

	refs      atomic.Int64
	releaseMu sync.Mutex
	onRelease func(*Asset)
}

// NewAsset wraps decoded frames. channels is the channel count of the
// source material; data is always stereo.
func NewAsset(key string, format beep.Format, channels int, data [][2]float64) *Asset {
	return &Asset{key: key, format: format, channels: channels, data: data}
}

// Key returns the content identity of the asset
func (a *Asset) Key() string { return a.key }

// Format returns the sample format of the decoded frames
func (a *Asset) Format() beep.Format { return a.format }

// Channels returns the channel count of the source material
func (a *Asset) Channels() int { return a.channels }

// Len returns the number of frames
func (a *Asset) Len() int { return len(a.data) }

// Duration returns the playing time of the asset
func (a *Asset) Duration() time.Duration {
	return a.format.SampleRate.D(len(a.data))
}

// Frame returns frame i. Callers must stay in range.
func (a *Asset) Frame(i int) [2]float64 { return a.data[i] }

// Streamer returns a seekable streamer over frames [from, to).
func (a *Asset) Streamer(from, to int) beep.StreamSeeker {
	if from < 0 {
		from = 0
	}
	if to > len(a.data) {
		to = len(a.data)
	}
	if to < from {
		to = from
	}
	return &sliceStreamer{data: a.data[from:to]}
}

// Slice returns a new asset holding [from, to) of this one.
func (a *Asset) Slice(from, to time.Duration) (*Asset, error) {
	if from < 0 || to <= from || to > a.Duration() {
		return nil, fmt.Errorf("%w: [%v, %v) of %v", playerrors.ErrInvalidRange, from, to, a.Duration())
	}
	lo := a.format.SampleRate.N(from)
	hi := a.format.SampleRate.N(to)
	if hi > len(a.data) {
		hi = len(a.data)
	}
	data := make([][2]float64, hi-lo)
	copy(data, a.data[lo:hi])
	key := fmt.Sprintf("%s[%d:%d]", a.key, lo, hi)
	return NewAsset(key, a.format, a.channels, data), nil
}

// Retain takes a reference on the asset
func (a *Asset) Retain() *Asset {
	a.refs.Add(1)
	return a
}

// Release drops a reference. The release hook runs when the count reaches zero.
func (a *Asset) Release() {
	if a.refs.Add(-1) != 0 {
		return
	}
	a.releaseMu.Lock()
	hook := a.onRelease
	a.releaseMu.Unlock()
	if hook != nil {
		hook(a)
	}
}

// Refs returns the current reference count
func (a *Asset) Refs() int64 { return a.refs.Load() }

func (a *Asset) setReleaseHook(fn func(*Asset)) {
	a.releaseMu.Lock()
	a.onRelease = fn
	a.releaseMu.Unlock()
}

// sliceStreamer streams a fixed slice of frames.
type sliceStreamer struct {
	data [][2]float64
	pos  int
}

func (s *sliceStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	n := copy(samples, s.data[s.pos:])
	s.pos += n
	return n, true
}

func (s *sliceStreamer) Err() error { return nil }

func (s *sliceStreamer) Len() int { return len(s.data) }

func (s *sliceStreamer) Position() int { return s.pos }

func (s *sliceStreamer) Seek(p int) error {
	if p < 0 || p > len(s.data) {
		return fmt.Errorf("seek position %d out of range [0, %d]", p, len(s.data))
	}
	s.pos = p
	return nil
}

// Frames returns the decoded frames. They are shared and must not be
// modified.
func (a *Asset) Frames() [][2]float64 { return a.data }
