package render

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/audio"
	"github.com/jscyril/multitrack/internal/effects"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

const rate = beep.SampleRate(1000)

func constant(d time.Duration, v float64) *audio.Asset {
	data := make([][2]float64, rate.N(d))
	for i := range data {
		data[i] = [2]float64{v, v}
	}
	return audio.NewAsset("c", beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}, 2, data)
}

func newRenderer() *Renderer {
	return NewRenderer(rate, effects.NewFactory(rate), nil)
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRenderSoloedTrack(t *testing.T) {
	specs := []Spec{
		{ID: "A", Asset: constant(3*time.Second, 0.25), Solo: true},
		{ID: "B", Asset: constant(5*time.Second, 0.5)},
	}

	audible := Audible(specs)
	if len(audible) != 1 || audible[0].ID != "A" {
		t.Fatalf("Audible() = %v, want [A]", audible)
	}

	m, err := newRenderer().Render(context.Background(), specs)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if m.Duration() != 3*time.Second {
		t.Errorf("Duration() = %v, want 3s", m.Duration())
	}
	if !near(m.Peak, 0.25) {
		t.Errorf("Peak = %v, want 0.25", m.Peak)
	}
}

func TestRenderSumsTracks(t *testing.T) {
	specs := []Spec{
		{ID: "A", Asset: constant(3*time.Second, 0.25)},
		{ID: "B", Asset: constant(5*time.Second, 0.5)},
		{ID: "C", Asset: constant(8*time.Second, 0.9), Mute: true},
		{ID: "empty"},
	}

	m, err := newRenderer().Render(context.Background(), specs)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if m.Duration() != 5*time.Second {
		t.Errorf("Duration() = %v, want 5s", m.Duration())
	}
	if !near(m.Frames[1000][0], 0.75) {
		t.Errorf("frame at 1s = %v, want 0.75", m.Frames[1000])
	}
	if !near(m.Frames[4000][1], 0.5) {
		t.Errorf("frame at 4s = %v, want 0.5", m.Frames[4000])
	}
	if len(m.Tracks) != 2 {
		t.Errorf("Tracks = %v, want A and B", m.Tracks)
	}
}

func TestRenderHonoursSelectionAndMix(t *testing.T) {
	specs := []Spec{
		{
			ID:        "A",
			Asset:     constant(4*time.Second, 0.5),
			Selection: &api.Selection{Start: time.Second, End: 2 * time.Second},
			VolumeDB:  -20 * math.Log10(2),
			Pan:       -1,
		},
	}

	m, err := newRenderer().Render(context.Background(), specs)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !near(m.Frames[500][0], 0.25) || m.Frames[500][1] != 0 {
		t.Errorf("frame inside selection = %v, want [0.25 0]", m.Frames[500])
	}
	if m.Frames[1500] != ([2]float64{}) {
		t.Errorf("frame after selection = %v, want silence", m.Frames[1500])
	}
}

func TestRenderWithEffects(t *testing.T) {
	specs := []Spec{{
		ID:    "A",
		Asset: constant(time.Second, 0.5),
		Effects: []api.EffectDescriptor{
			{ID: "g", Type: api.EffectGain, Wet: 1, Params: api.EffectParams{"db": -20 * math.Log10(2)}},
		},
	}}
	m, err := newRenderer().Render(context.Background(), specs)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !near(m.Frames[10][0], 0.25) {
		t.Errorf("frame = %v, want 0.25", m.Frames[10])
	}
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name  string
		specs []Spec
		want  error
	}{
		{"no tracks", nil, playerrors.ErrEmptyProject},
		{"all muted", []Spec{{ID: "A", Asset: constant(time.Second, 0.1), Mute: true}}, playerrors.ErrNoAudibleTracks},
		{"no audio", []Spec{{ID: "A"}}, playerrors.ErrNoAudibleTracks},
		{"zero length", []Spec{{ID: "A", Asset: constant(0, 0)}}, playerrors.ErrEmptyProject},
		{"unknown effect", []Spec{{ID: "A", Asset: constant(time.Second, 0.1), Effects: []api.EffectDescriptor{{ID: "x", Type: "wah"}}}}, playerrors.ErrUnknownEffect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newRenderer().Render(context.Background(), tt.specs)
			if !errors.Is(err, tt.want) {
				t.Errorf("Render error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	specs := []Spec{{ID: "A", Asset: constant(time.Second, 0.1)}}
	if _, err := newRenderer().Render(ctx, specs); !errors.Is(err, context.Canceled) {
		t.Errorf("Render error = %v, want context.Canceled", err)
	}
}
