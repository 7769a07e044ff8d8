package effects

import (
	"context"
	"fmt"
	"sync"

	"github.com/faiface/beep"
	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/audio"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

// Node is a live effect instance bound to one descriptor id. Process runs
// on the audio thread; the setters are called from the session.
type Node interface {
	audio.Processor
	Type() api.EffectType
	Wet() float64
	SetWet(wet float64)
	SetParams(params api.EffectParams)
	Close()
}

// Factory instantiates effect nodes. Instantiate may block while a node
// prepares itself and returns early with ctx's error when ctx is done.
type Factory interface {
	Instantiate(ctx context.Context, desc api.EffectDescriptor) (Node, error)
}

// kernel is the wet signal path of a built-in effect
type kernel interface {
	setParams(params api.EffectParams)
	process(block [][2]float64)
}

// preparer is implemented by kernels that need work before they can run
type preparer interface {
	prepare(ctx context.Context) error
}

// Builtin is the factory for the built-in effect vocabulary.
type Builtin struct {
	sampleRate beep.SampleRate
}

var _ Factory = (*Builtin)(nil)

// NewFactory creates a factory for nodes running at sampleRate
func NewFactory(sampleRate beep.SampleRate) *Builtin {
	return &Builtin{sampleRate: sampleRate}
}

// Instantiate builds a ready node for desc
func (b *Builtin) Instantiate(ctx context.Context, desc api.EffectDescriptor) (Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var k kernel
	switch desc.Type {
	case api.EffectGain:
		k = newGainKernel()
	case api.EffectPan:
		k = newPanKernel()
	case api.EffectLowpass:
		k = newLowpassKernel(b.sampleRate)
	case api.EffectDelay:
		k = newDelayKernel(b.sampleRate)
	case api.EffectReverb:
		k = newReverbKernel(b.sampleRate)
	case api.EffectDistortion:
		k = newDistortionKernel()
	default:
		return nil, fmt.Errorf("%w: %q", playerrors.ErrUnknownEffect, desc.Type)
	}
	if p, ok := k.(preparer); ok {
		if err := p.prepare(ctx); err != nil {
			return nil, fmt.Errorf("prepare %s: %w", desc.Type, err)
		}
	}
	n := &node{typ: desc.Type, kernel: k}
	n.SetWet(desc.Wet)
	n.SetParams(desc.Params)
	return n, nil
}

// node blends a kernel's output with the dry signal
type node struct {
	typ    api.EffectType
	mu     sync.Mutex
	wet    float64
	kernel kernel
	dry    [][2]float64
	closed bool
}

func (n *node) Type() api.EffectType { return n.typ }

func (n *node) Wet() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.wet
}

func (n *node) SetWet(wet float64) {
	n.mu.Lock()
	n.wet = clamp(wet, 0, 1)
	n.mu.Unlock()
}

func (n *node) SetParams(params api.EffectParams) {
	n.mu.Lock()
	n.kernel.setParams(params)
	n.mu.Unlock()
}

func (n *node) Close() {
	n.mu.Lock()
	n.closed = true
	n.dry = nil
	n.mu.Unlock()
}

func (n *node) Process(block [][2]float64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	if n.wet == 1 {
		n.kernel.process(block)
		return
	}
	if cap(n.dry) < len(block) {
		n.dry = make([][2]float64, len(block))
	}
	dry := n.dry[:len(block)]
	copy(dry, block)
	n.kernel.process(block)
	for i := range block {
		block[i][0] = dry[i][0]*(1-n.wet) + block[i][0]*n.wet
		block[i][1] = dry[i][1]*(1-n.wet) + block[i][1]*n.wet
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// param reads a parameter, falling back to def when it is absent
func param(params api.EffectParams, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		return v
	}
	return def
}
