package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

const renderBlock = 512

// Tap observes every block leaving the output bus, on the audio thread.
type Tap interface {
	Capture(block [][2]float64)
}

// Engine is the output bus and the realtime audio clock. Channel strips are
// attached to its mixer; the clock advances by the frames streamed, either
// by the speaker or by Advance/Render when running offline.
type Engine struct {
	format beep.Format

	mu    sync.Mutex
	mixer beep.Mixer
	taps  []Tap

	frames atomic.Int64 // frames streamed so far
	block  atomic.Int64 // first frame of the block being rendered
	nextID atomic.Uint64
	events chan DeviceEvent
	lost   atomic.Uint64 // completions dropped on a full queue

	live bool
}

var _ DeviceFactory = (*Engine)(nil)

// NewEngine creates an engine running at sampleRate
func NewEngine(sampleRate beep.SampleRate) *Engine {
	return &Engine{
		format: beep.Format{SampleRate: sampleRate, NumChannels: 2, Precision: 2},
		events: make(chan DeviceEvent, 64),
	}
}

// Start hands the output bus to the speaker. The speaker is cleared when
// ctx is done.
func (e *Engine) Start(ctx context.Context, bufferSize time.Duration) error {
	if err := speaker.Init(e.format.SampleRate, e.format.SampleRate.N(bufferSize)); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	e.live = true
	speaker.Play(e)
	go func() {
		<-ctx.Done()
		speaker.Clear()
	}()
	return nil
}

// Live reports whether the speaker pulls from this engine
func (e *Engine) Live() bool { return e.live }

// Format returns the output format
func (e *Engine) Format() beep.Format { return e.format }

// SampleRate returns the output sample rate
func (e *Engine) SampleRate() beep.SampleRate { return e.format.SampleRate }

// Now returns the audio clock: the time of the next frame to be rendered.
func (e *Engine) Now() time.Duration {
	return e.format.SampleRate.D(int(e.frames.Load()))
}

// Events returns device completion events
func (e *Engine) Events() <-chan DeviceEvent {
	return e.events
}

// Attach adds a streamer to the output mixer. It stays there until it
// reports that it is drained.
func (e *Engine) Attach(s beep.Streamer) {
	e.mu.Lock()
	e.mixer.Add(s)
	e.mu.Unlock()
}

// AddTap registers a tap on the output bus
func (e *Engine) AddTap(t Tap) {
	e.mu.Lock()
	e.taps = append(e.taps, t)
	e.mu.Unlock()
}

// RemoveTap unregisters a tap
func (e *Engine) RemoveTap(t Tap) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, tap := range e.taps {
		if tap == t {
			e.taps = append(e.taps[:i], e.taps[i+1:]...)
			return
		}
	}
}

// Stream renders the next block of the output bus.
func (e *Engine) Stream(samples [][2]float64) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Players locate themselves on the clock per block, so the mixer is
	// never handed more than one block at a time.
	for pos := 0; pos < len(samples); pos += renderBlock {
		end := pos + renderBlock
		if end > len(samples) {
			end = len(samples)
		}
		block := samples[pos:end]
		for i := range block {
			block[i] = [2]float64{}
		}
		e.block.Store(e.frames.Load())
		e.mixer.Stream(block)
		for _, tap := range e.taps {
			tap.Capture(block)
		}
		e.frames.Add(int64(len(block)))
	}
	return len(samples), true
}

// Err implements beep.Streamer
func (e *Engine) Err() error { return nil }

// Advance renders and discards d worth of output.
func (e *Engine) Advance(d time.Duration) {
	n := e.format.SampleRate.N(d)
	buf := make([][2]float64, renderBlock)
	for n > 0 {
		k := renderBlock
		if n < k {
			k = n
		}
		e.Stream(buf[:k])
		n -= k
	}
}

// Render renders n frames of output, stopping early when ctx is done.
func (e *Engine) Render(ctx context.Context, n int) ([][2]float64, error) {
	out := make([][2]float64, n)
	for pos := 0; pos < n; pos += renderBlock {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := pos + renderBlock
		if end > n {
			end = n
		}
		e.Stream(out[pos:end])
	}
	return out, nil
}

// NewDevice creates a player for asset on this engine.
func (e *Engine) NewDevice(asset *Asset) (Device, error) {
	return newPlayer(e.nextID.Add(1), asset.Retain(), e), nil
}

func (e *Engine) blockStart() int64 {
	return e.block.Load()
}

// emit queues a completion without blocking the audio thread. A completion
// that does not fit is counted in LostEvents.
func (e *Engine) emit(ev DeviceEvent) {
	select {
	case e.events <- ev:
	default:
		e.lost.Add(1)
	}
}

// LostEvents returns how many completions were dropped on a full queue
func (e *Engine) LostEvents() uint64 {
	return e.lost.Load()
}
