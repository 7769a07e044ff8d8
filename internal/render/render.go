// Package render mixes tracks down offline, isolated from the live engine.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/faiface/beep"
	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/audio"
	"github.com/jscyril/multitrack/internal/effects"
	"github.com/jscyril/multitrack/internal/timeline"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
	"github.com/viterin/vek"
	"golang.org/x/sync/errgroup"
)

// Spec is everything the renderer needs from one track. It is captured on
// the session loop so rendering never reads live track state.
type Spec struct {
	ID        string
	Asset     *audio.Asset
	Selection *api.Selection
	Effects   []api.EffectDescriptor
	VolumeDB  float64
	Pan       float64
	Mute      bool
	Solo      bool
}

// Mixdown is the result of an offline render
type Mixdown struct {
	SampleRate beep.SampleRate
	Frames     [][2]float64
	Tracks     []string
	Peak       float64
}

// Duration returns the length of the mixdown
func (m *Mixdown) Duration() time.Duration {
	return m.SampleRate.D(len(m.Frames))
}

// Audible returns the tracks that take part in a mixdown: the soloed ones
// if any track is soloed, otherwise every unmuted one. Tracks without audio
// never take part.
func Audible(specs []Spec) []Spec {
	anySolo := false
	for _, s := range specs {
		if s.Solo && s.Asset != nil {
			anySolo = true
		}
	}
	var out []Spec
	for _, s := range specs {
		if s.Asset == nil {
			continue
		}
		if (anySolo && s.Solo) || (!anySolo && !s.Mute) {
			out = append(out, s)
		}
	}
	return out
}

// Duration is the render length of a set of tracks: the longest asset
func Duration(specs []Spec) time.Duration {
	var d time.Duration
	for _, s := range specs {
		if s.Asset != nil && s.Asset.Duration() > d {
			d = s.Asset.Duration()
		}
	}
	return d
}

// Renderer renders mixdowns with freshly built effect chains
type Renderer struct {
	sampleRate beep.SampleRate
	factory    effects.Factory
	logger     *slog.Logger
}

// NewRenderer creates a renderer producing audio at sampleRate
func NewRenderer(sampleRate beep.SampleRate, factory effects.Factory, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{sampleRate: sampleRate, factory: factory, logger: logger}
}

// Render mixes the audible tracks of specs. Each track is rendered on its
// own offline engine; the results are summed once all of them complete.
func (r *Renderer) Render(ctx context.Context, specs []Spec) (*Mixdown, error) {
	if len(specs) == 0 {
		return nil, playerrors.ErrEmptyProject
	}
	audible := Audible(specs)
	if len(audible) == 0 {
		return nil, playerrors.ErrNoAudibleTracks
	}
	duration := Duration(audible)
	if duration <= 0 {
		return nil, playerrors.ErrEmptyProject
	}
	n := r.sampleRate.N(duration)

	start := time.Now()
	stems := make([][]float64, len(audible))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range audible {
		i, spec := i, spec
		g.Go(func() error {
			stem, err := r.renderTrack(gctx, spec, n)
			if err != nil {
				return playerrors.NewTrackError("render", spec.ID, err)
			}
			stems[i] = stem
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	mix := stems[0]
	for _, stem := range stems[1:] {
		vek.Add_Inplace(mix, stem)
	}
	m := &Mixdown{
		SampleRate: r.sampleRate,
		Frames:     make([][2]float64, n),
		Peak:       vek.Max(vek.Abs(mix)),
	}
	for i := range m.Frames {
		m.Frames[i] = [2]float64{mix[2*i], mix[2*i+1]}
	}
	for _, spec := range audible {
		m.Tracks = append(m.Tracks, spec.ID)
	}
	r.logger.Info("mixdown rendered",
		"tracks", len(audible),
		"duration", m.Duration(),
		"peak", m.Peak,
		"elapsed", time.Since(start))
	return m, nil
}

// renderTrack renders n frames of one track and returns them interleaved
func (r *Renderer) renderTrack(ctx context.Context, spec Spec, n int) ([]float64, error) {
	engine := audio.NewEngine(r.sampleRate)
	strip := audio.NewStrip()
	strip.SetMix(spec.VolumeDB, spec.Pan, false)
	engine.Attach(strip)

	chain := make([]audio.Processor, len(spec.Effects))
	nodes := make([]effects.Node, 0, len(spec.Effects))
	defer func() { effects.Close(nodes) }()
	for i, desc := range spec.Effects {
		node, err := r.factory.Instantiate(ctx, desc)
		if err != nil {
			return nil, fmt.Errorf("effect %s: %w", desc.ID, err)
		}
		nodes = append(nodes, node)
		chain[i] = node
	}
	strip.SetChain(chain)

	dev, err := engine.NewDevice(spec.Asset)
	if err != nil {
		return nil, err
	}
	defer dev.Close()
	dev.Connect(strip)

	cue := timeline.Resume(timeline.NewWindow(spec.Selection, spec.Asset.Duration()), false, 0)
	if cue.OK {
		if err := dev.Start(0, cue.Offset, cue.Duration); err != nil {
			return nil, err
		}
	}

	frames, err := engine.Render(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 2*n)
	for i, f := range frames {
		out[2*i] = f[0]
		out[2*i+1] = f[1]
	}
	return out, nil
}
