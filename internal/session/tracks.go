package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/google/uuid"
	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/audio"
	"github.com/jscyril/multitrack/internal/effects"
	"github.com/jscyril/multitrack/internal/timeline"
	"github.com/jscyril/multitrack/internal/track"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

// AddTrack creates an empty track. An empty name gets a numbered default.
func (s *Session) AddTrack(name string) (api.Track, error) {
	var out api.Track
	err := s.do(func() error {
		t := s.addTrack(uuid.NewString(), name)
		out = t.Snapshot(s.engine.Now())
		return nil
	})
	return out, err
}

func (s *Session) addTrack(id, name string) *track.Track {
	s.nextName++
	untitled := name == ""
	if untitled {
		name = fmt.Sprintf("Track %d", s.nextName)
	}
	t := track.New(id, name)
	t.Untitled = untitled
	s.tracks[id] = t
	s.order = append(s.order, id)
	s.engine.Attach(t.Strip)
	s.applyMix()
	s.logger.Info("track added", "track", id, "name", name)
	s.publishTrack(t)
	return t
}

// RemoveTrack disposes a track and everything it owns
func (s *Session) RemoveTrack(id string) error {
	return s.do(func() error {
		t, err := s.lookup("remove", id)
		if err != nil {
			return err
		}
		s.disposeTrack(t)
		s.applyMix()
		s.publish(api.EventTrackRemoved, id, nil)
		return nil
	})
}

func (s *Session) disposeTrack(t *track.Track) {
	s.unsync(t)
	if t.Recording {
		if st := s.recorder.Status(); st.Active && st.Track == t.ID {
			s.recorder.End()
		}
		t.Recording = false
	}
	t.Gen++
	t.EffectsGen++

	t.Strip.Close()
	effects.Close(s.registry.RemoveTrack(t.ID))
	if t.Active != nil {
		delete(s.byDevice, t.Active.ID())
		t.Active.Close()
		t.Active = nil
	}
	if t.Pool != nil {
		t.Pool.Close()
		t.Pool = nil
	}
	if t.Asset != nil {
		t.Asset.Release()
		t.Asset = nil
	}

	delete(s.tracks, t.ID)
	for i, id := range s.order {
		if id == t.ID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	effects.Close(s.registry.Sweep(s.liveEffects()))
	s.logger.Info("track removed", "track", t.ID)
}

// ImportAsset decodes data into the track's asset. On failure the track
// keeps its previous asset.
func (s *Session) ImportAsset(ctx context.Context, id, name string, data []byte) error {
	return s.importData(ctx, id, name, "", data)
}

// ImportFile reads an audio file into the track. An unnamed track takes
// the file's title tag, or its base name.
func (s *Session) ImportFile(ctx context.Context, id, path string) error {
	if !audio.IsSupported(path) {
		err := fmt.Errorf("%w: %s", playerrors.ErrInvalidFormat, filepath.Ext(path))
		return s.fail(id, playerrors.NewTrackError("import", id, err))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s.fail(id, playerrors.NewTrackError("import", id, err))
	}
	name := audio.Title(data)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s.importData(ctx, id, name, path, data)
}

func (s *Session) importData(ctx context.Context, id, name, path string, data []byte) error {
	var gen uint64
	err := s.do(func() error {
		t, err := s.lookup("import", id)
		if err != nil {
			return err
		}
		t.Gen++
		gen = t.Gen
		return nil
	})
	if err != nil {
		return err
	}

	asset, err := s.store.Load(ctx, name, data)
	if err != nil {
		return s.fail(id, playerrors.NewTrackError("import", id, err))
	}

	return s.do(func() error {
		t, ok := s.tracks[id]
		if !ok || t.Gen != gen {
			asset.Release()
			s.logger.Debug("discarding stale decode", "track", id, "name", name)
			return playerrors.NewTrackError("import", id, playerrors.ErrStale)
		}
		if err := s.installAsset(t, asset, path); err != nil {
			return s.fail(id, playerrors.NewTrackError("import", id, err))
		}
		if t.Untitled && name != "" {
			t.Name = name
			t.Untitled = false
		}
		s.logger.Info("asset imported", "track", id, "name", name, "duration", asset.Duration())
		s.publishTrack(t)
		return nil
	})
}

// installAsset swaps asset into t, taking over the caller's reference. The
// new pool and player are built first; the old ones are disposed only once
// the new player feeds the strip.
func (s *Session) installAsset(t *track.Track, asset *audio.Asset, path string) error {
	pool, err := track.NewPool(s.devices, asset, s.poolSize)
	if err != nil {
		asset.Release()
		return err
	}
	dev, err := s.devices.NewDevice(asset)
	if err != nil {
		pool.Close()
		asset.Release()
		return err
	}

	s.unsync(t)
	dev.Connect(t.Strip)
	oldAsset, oldPool := t.Asset, t.Pool
	t.Asset = asset
	t.AssetPath = path
	t.Pool = pool
	t.Selection = nil
	t.Playhead = 0
	t.Gen++
	s.swapActive(t, dev)
	if oldPool != nil {
		oldPool.Close()
	}
	if oldAsset != nil {
		oldAsset.Release()
	}

	return s.resync(t, syncOptions{
		ScheduleStart: s.transport.Started(),
		Elapsed:       s.transport.Position(),
	})
}

// SetSelection sets or clears (sel == nil) the track's selection window.
// A playing track keeps playing with the new bounds.
func (s *Session) SetSelection(id string, sel *api.Selection) error {
	return s.do(func() error {
		t, err := s.lookup("select", id)
		if err != nil {
			return err
		}
		if t.Asset == nil {
			return playerrors.NewTrackError("select", id, playerrors.ErrNoAsset)
		}
		if sel == nil {
			t.Selection = nil
		} else {
			norm := timeline.Normalize(*sel, t.Duration())
			t.Selection = &norm
		}
		if err := s.rebound(t); err != nil {
			return s.fail(id, err)
		}
		s.publishTrack(t)
		return nil
	})
}

// SetLoop turns looping of the track's window on or off
func (s *Session) SetLoop(id string, on bool) error {
	return s.do(func() error {
		t, err := s.lookup("loop", id)
		if err != nil {
			return err
		}
		return s.setLoop(t, on)
	})
}

// ToggleLoop flips looping of the track's window
func (s *Session) ToggleLoop(id string) error {
	return s.do(func() error {
		t, err := s.lookup("loop", id)
		if err != nil {
			return err
		}
		return s.setLoop(t, !t.Loop)
	})
}

func (s *Session) setLoop(t *track.Track, on bool) error {
	t.Loop = on
	if t.Asset != nil {
		if err := s.rebound(t); err != nil {
			return s.fail(t.ID, err)
		}
	}
	s.publishTrack(t)
	return nil
}

// rebound applies a changed window or loop flag. In-flight playback picks
// up the new bounds without a restart; a pending start is rescheduled; an
// idle player is reseeded to the window start.
func (s *Session) rebound(t *track.Track) error {
	w := t.Window()
	switch {
	case t.Playing():
		t.Clock.SetLoop(s.engine.Now(), w, t.Loop)
		t.Active.SetLoop(t.Loop, w.Start, w.Limit)
	case s.transport.Pending(t.ID):
		return s.resync(t, syncOptions{ScheduleStart: true, Elapsed: s.transport.Position()})
	default:
		t.Playhead = w.Start
		if t.Active != nil {
			t.Active.SetLoop(t.Loop, w.Start, w.Limit)
			return t.Active.Seek(w.Start)
		}
	}
	return nil
}

// SetVolume sets the track fader in dB
func (s *Session) SetVolume(id string, db float64) error {
	return s.mix("volume", id, func(t *track.Track) { t.VolumeDB = db })
}

// SetPan sets the track pan, clamped to [-1, 1]
func (s *Session) SetPan(id string, pan float64) error {
	return s.mix("pan", id, func(t *track.Track) {
		t.Pan = pan
		if t.Pan < -1 {
			t.Pan = -1
		} else if t.Pan > 1 {
			t.Pan = 1
		}
	})
}

// SetMute mutes or unmutes the track
func (s *Session) SetMute(id string, mute bool) error {
	return s.mix("mute", id, func(t *track.Track) { t.Mute = mute })
}

// SetSolo solos or unsolos the track
func (s *Session) SetSolo(id string, solo bool) error {
	return s.mix("solo", id, func(t *track.Track) { t.Solo = solo })
}

func (s *Session) mix(op, id string, fn func(t *track.Track)) error {
	return s.do(func() error {
		t, err := s.lookup(op, id)
		if err != nil {
			return err
		}
		fn(t)
		s.applyMix()
		s.publishTrack(t)
		return nil
	})
}

// Trim crops the track's asset to [start, end). The cropped audio is
// written next to the recordings and replaces the asset; the selection is
// cleared.
func (s *Session) Trim(ctx context.Context, id string, start, end time.Duration) error {
	var src *audio.Asset
	var gen uint64
	err := s.do(func() error {
		t, err := s.lookup("trim", id)
		if err != nil {
			return err
		}
		if t.Asset == nil {
			return playerrors.NewTrackError("trim", id, playerrors.ErrNoAsset)
		}
		t.Gen++
		gen = t.Gen
		src = t.Asset.Retain()
		return nil
	})
	if err != nil {
		return err
	}
	defer src.Release()

	cropped, err := src.Slice(start, end)
	if err != nil {
		return s.fail(id, playerrors.NewTrackError("trim", id, err))
	}
	asset, path, err := s.persist("trim", cropped.Frames(), src.Channels())
	if err != nil {
		return s.fail(id, playerrors.NewTrackError("trim", id, err))
	}
	if err := ctx.Err(); err != nil {
		asset.Release()
		return err
	}

	return s.do(func() error {
		t, ok := s.tracks[id]
		if !ok || t.Gen != gen {
			asset.Release()
			return playerrors.NewTrackError("trim", id, playerrors.ErrStale)
		}
		if err := s.installAsset(t, asset, path); err != nil {
			return s.fail(id, playerrors.NewTrackError("trim", id, err))
		}
		s.logger.Info("track trimmed", "track", id, "start", start, "end", end, "duration", asset.Duration())
		s.publishTrack(t)
		return nil
	})
}

// persist writes frames as a WAV file in the recordings directory and
// returns an asset for them keyed by the file's content, with one
// reference for the caller.
func (s *Session) persist(prefix string, frames [][2]float64, channels int) (*audio.Asset, string, error) {
	if err := os.MkdirAll(s.recordingsDir, 0755); err != nil {
		return nil, "", fmt.Errorf("create recordings directory: %w", err)
	}
	f, err := os.CreateTemp(s.recordingsDir, prefix+"-*.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create audio file: %w", err)
	}
	sr := s.engine.SampleRate()
	if err := audio.EncodeWAV(f, sr, frames); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, "", err
	}
	if err := f.Close(); err != nil {
		return nil, "", fmt.Errorf("write audio file: %w", err)
	}
	data, err := os.ReadFile(f.Name())
	if err != nil {
		return nil, "", fmt.Errorf("read audio file: %w", err)
	}

	format := beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2}
	asset := audio.NewAsset(audio.ContentKey(data), format, channels, frames)
	return s.store.Put(asset), f.Name(), nil
}

func (s *Session) liveEffects() map[effects.Key]bool {
	live := make(map[effects.Key]bool)
	for _, t := range s.tracks {
		for _, d := range t.Effects {
			live[effects.Key{Track: t.ID, ID: d.ID}] = true
		}
	}
	return live
}
