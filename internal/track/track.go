// Package track holds the per-track state owned by the session loop and
// the warm player pool that backs retriggering.
package track

import (
	"time"

	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/audio"
	"github.com/jscyril/multitrack/internal/timeline"
)

// Track is one channel strip with its asset, effects and sync state. It is
// only touched from the session loop.
type Track struct {
	ID        string
	Name      string
	Untitled  bool // Name is a numbered default
	Asset     *audio.Asset
	AssetPath string
	Effects   []api.EffectDescriptor

	VolumeDB float64
	Pan      float64
	Mute     bool
	Solo     bool

	Selection *api.Selection
	Loop      bool
	Playhead  time.Duration
	Recording bool

	Sync        api.SyncState
	Auditioning bool
	Clock       *timeline.Clock // non-nil while the active player is heard

	Active audio.Device
	Pool   *Pool
	Strip  *audio.Strip

	// Gen is bumped whenever an asset replacement is requested or made, and
	// EffectsGen whenever the descriptor list does. Asynchronous results
	// carry the generation they were requested at.
	Gen        uint64
	EffectsGen uint64
}

// New creates an empty track with its own channel strip
func New(id, name string) *Track {
	return &Track{
		ID:    id,
		Name:  name,
		Strip: audio.NewStrip(),
		Sync:  api.SyncUnsynced,
	}
}

// Duration returns the asset duration, zero without an asset
func (t *Track) Duration() time.Duration {
	if t.Asset == nil {
		return 0
	}
	return t.Asset.Duration()
}

// Window returns the playable window of the track
func (t *Track) Window() timeline.Window {
	return timeline.NewWindow(t.Selection, t.Duration())
}

// Playing reports whether the track's player is scheduled or audible
func (t *Track) Playing() bool {
	return t.Clock != nil
}

// PlayheadAt returns the playhead at audio time now
func (t *Track) PlayheadAt(now time.Duration) time.Duration {
	if t.Clock == nil {
		return t.Playhead
	}
	return t.Window().Clamp(t.Clock.Playhead(now))
}

// Snapshot returns the UI view of the track at audio time now
func (t *Track) Snapshot(now time.Duration) api.Track {
	s := api.Track{
		ID:          t.ID,
		Name:        t.Name,
		HasAsset:    t.Asset != nil,
		Duration:    t.Duration(),
		AssetPath:   t.AssetPath,
		Effects:     make([]api.EffectDescriptor, len(t.Effects)),
		VolumeDB:    t.VolumeDB,
		Pan:         t.Pan,
		Mute:        t.Mute,
		Solo:        t.Solo,
		Loop:        t.Loop,
		Playhead:    t.PlayheadAt(now),
		Playing:     t.Playing(),
		Auditioning: t.Auditioning,
		Recording:   t.Recording,
		Sync:        t.Sync,
	}
	for i, d := range t.Effects {
		s.Effects[i] = d.Clone()
	}
	if t.Selection != nil {
		sel := *t.Selection
		s.Selection = &sel
	}
	if t.Asset != nil {
		s.SampleRate = int(t.Asset.Format().SampleRate)
		s.Channels = t.Asset.Channels()
	}
	if t.Pool != nil {
		s.PoolSize = t.Pool.Len()
	}
	return s
}

// Audible reports whether the strip should sound given whether any track
// in the session is soloed.
func (t *Track) Audible(anySolo bool) bool {
	if anySolo {
		return t.Solo
	}
	return !t.Mute
}

// ApplyMix pushes the mix parameters into the strip
func (t *Track) ApplyMix(anySolo bool) {
	t.Strip.SetMix(t.VolumeDB, t.Pan, !t.Audible(anySolo))
}
