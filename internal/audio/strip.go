package audio

import (
	"sync"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
)

// Processor transforms a block of frames in place.
type Processor interface {
	Process(block [][2]float64)
}

// Strip is one channel strip: source -> effect chain -> pan -> volume. The
// effect chain is an ordered snapshot of node references replaced as a
// whole on every rewire.
type Strip struct {
	mu     sync.Mutex
	source beep.Streamer
	chain  []Processor
	feed   Feed
	pan    *effects.Pan
	volume *effects.Volume
	closed bool
}

// NewStrip creates an empty strip at unity gain
func NewStrip() *Strip {
	s := &Strip{}
	s.pan = &effects.Pan{Streamer: &s.feed}
	s.volume = &effects.Volume{Streamer: s.pan, Base: 10}
	return s
}

// SetSource replaces the strip's input
func (s *Strip) SetSource(src beep.Streamer) {
	s.mu.Lock()
	s.source = src
	s.mu.Unlock()
}

// ClearSource removes src if it is still the strip's input
func (s *Strip) ClearSource(src beep.Streamer) {
	s.mu.Lock()
	if s.source == src {
		s.source = nil
	}
	s.mu.Unlock()
}

// Source returns the current input
func (s *Strip) Source() beep.Streamer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// SetChain swaps in a new ordered effect chain
func (s *Strip) SetChain(chain []Processor) {
	c := make([]Processor, len(chain))
	copy(c, chain)
	s.mu.Lock()
	s.chain = c
	s.mu.Unlock()
}

// Chain returns the current effect chain snapshot
func (s *Strip) Chain() []Processor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chain
}

// SetMix sets the fader in dB, the pan position in [-1, 1] and whether the
// strip is silenced (muted, or not soloed while others are).
func (s *Strip) SetMix(volumeDB, pan float64, silent bool) {
	if pan < -1 {
		pan = -1
	} else if pan > 1 {
		pan = 1
	}
	s.mu.Lock()
	s.volume.Volume = volumeDB / 20
	s.volume.Silent = silent
	s.pan.Pan = pan
	s.mu.Unlock()
}

// Close detaches the strip; the engine drops it on the next block.
func (s *Strip) Close() {
	s.mu.Lock()
	s.closed = true
	s.source = nil
	s.chain = nil
	s.mu.Unlock()
}

// Stream renders the strip for the current engine block.
func (s *Strip) Stream(samples [][2]float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, false
	}
	for i := range samples {
		samples[i] = [2]float64{}
	}
	if s.source != nil {
		s.source.Stream(samples)
	}
	for _, node := range s.chain {
		node.Process(samples)
	}
	s.feed.Block = samples
	s.volume.Stream(samples)
	s.feed.Block = nil
	return len(samples), true
}

// Err implements beep.Streamer
func (s *Strip) Err() error { return nil }

// Feed replays a block that has already been pulled from upstream, so beep
// effects can be run over it in place.
type Feed struct {
	Block [][2]float64
}

// Stream copies the pending block into samples
func (f *Feed) Stream(samples [][2]float64) (int, bool) {
	return copy(samples, f.Block), true
}

// Err implements beep.Streamer
func (f *Feed) Err() error { return nil }
