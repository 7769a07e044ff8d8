package session

import (
	"fmt"
	"time"

	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/audio"
	"github.com/jscyril/multitrack/internal/timeline"
	"github.com/jscyril/multitrack/internal/track"
	"github.com/jscyril/multitrack/internal/transport"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

type syncOptions struct {
	// ScheduleStart places a start event on the transport timeline
	ScheduleStart bool
	// Elapsed is the transport position the track is synced to
	Elapsed time.Duration
	// KeepPlayhead leaves the playhead where playback left it instead of
	// moving it to the synced position
	KeepPlayhead bool
}

// resync detaches t from the timeline and attaches it again at
// opts.Elapsed. Calling it twice with the same options leaves the same
// state and the same single pending event.
func (s *Session) resync(t *track.Track, opts syncOptions) error {
	s.unsync(t)
	if t.Asset == nil || t.Active == nil || t.Recording {
		return nil
	}
	t.Sync = api.SyncIdle

	w := t.Window()
	cue := timeline.Resume(w, t.Loop, opts.Elapsed)
	if !opts.KeepPlayhead || !w.Contains(t.Playhead) {
		t.Playhead = w.Clamp(cue.Offset)
	}
	if err := t.Active.Seek(t.Playhead); err != nil {
		return playerrors.NewTrackError("resync", t.ID, err)
	}
	if !opts.ScheduleStart || !cue.OK {
		return nil
	}

	t.Sync = api.SyncScheduled
	return s.transport.Schedule(transport.Event{
		Track:    t.ID,
		At:       opts.Elapsed,
		Offset:   cue.Offset,
		Duration: cue.Duration,
		Fire: func(at, offset, duration time.Duration) error {
			if s.tracks[t.ID] != t {
				return nil
			}
			return s.startPlayback(t, at, offset, duration)
		},
	})
}

// unsync takes t off the timeline and silences it. The playhead keeps the
// position that was last heard.
func (s *Session) unsync(t *track.Track) {
	s.transport.Cancel(t.ID)
	s.halt(t)
	t.Sync = api.SyncUnsynced
}

// halt stops the active player without touching the sync state
func (s *Session) halt(t *track.Track) {
	if t.Clock != nil {
		t.Playhead = t.PlayheadAt(s.engine.Now())
		t.Clock = nil
	}
	t.Auditioning = false
	if t.Active != nil && t.Active.State() == api.PlayerStarted {
		if err := t.Active.Stop(); err != nil {
			s.logger.Warn("stop player", "track", t.ID, "error", err)
		}
	}
}

// startPlayback starts t's player at audio time at. A rejected start is
// retried once on a player promoted from the warm pool. If that fails too
// the track is left stopped and a single error is returned.
func (s *Session) startPlayback(t *track.Track, at, offset, duration time.Duration) error {
	w := t.Window()
	dev := t.Active
	dev.SetLoop(t.Loop, w.Start, w.Limit)
	err := dev.Start(at, offset, duration)
	if err != nil {
		s.logger.Warn("player start rejected, retrying on a pooled player",
			"track", t.ID, "device", dev.ID(), "error", err)

		fresh, perr := t.Pool.Take()
		if fresh == nil {
			return s.stopped(t, fmt.Errorf("%w: no pooled player: %v", playerrors.ErrScheduleConflict, perr))
		}
		if perr != nil {
			s.logger.Warn("warm pool not replenished", "track", t.ID, "error", perr)
		}
		fresh.SetLoop(t.Loop, w.Start, w.Limit)
		fresh.Connect(t.Strip)
		s.swapActive(t, fresh)
		if err := fresh.Start(at, offset, duration); err != nil {
			return s.stopped(t, fmt.Errorf("%w: retry failed: %v", playerrors.ErrScheduleConflict, err))
		}
		dev = fresh
	}

	t.Clock = timeline.NewClock(at, offset, w, t.Loop)
	t.Playhead = w.Clamp(offset)
	s.logger.Debug("player started", "track", t.ID, "device", dev.ID(), "at", at, "offset", offset, "duration", duration)
	return nil
}

// swapActive makes dev the active player and disposes the previous one,
// which by then no longer feeds the strip
func (s *Session) swapActive(t *track.Track, dev audio.Device) {
	old := t.Active
	t.Active = dev
	s.byDevice[dev.ID()] = t
	if old != nil {
		delete(s.byDevice, old.ID())
		if err := old.Close(); err != nil {
			s.logger.Warn("close player", "track", t.ID, "error", err)
		}
	}
}

// stopped marks t as not playing after a failed start
func (s *Session) stopped(t *track.Track, err error) error {
	t.Clock = nil
	t.Auditioning = false
	if t.Sync == api.SyncScheduled {
		t.Sync = api.SyncIdle
	}
	return playerrors.NewTrackError("start", t.ID, err)
}

// handleEnded applies a player's natural end. Events of replaced players or
// of earlier runs are ignored, so each run ends exactly once.
func (s *Session) handleEnded(ev audio.DeviceEvent) {
	t, ok := s.byDevice[ev.Device]
	if !ok || t.Active == nil || t.Active.ID() != ev.Device || t.Active.Run() != ev.Run || t.Clock == nil {
		return
	}
	w := t.Window()
	t.Clock = nil
	auditioning := t.Auditioning

	if auditioning {
		// rejoin the project without starting, ready to audition again
		t.Playhead = w.Start
		if err := s.resync(t, syncOptions{Elapsed: s.transport.Position(), KeepPlayhead: true}); err != nil {
			s.logger.Warn("resync after audition", "track", t.ID, "error", err)
		}
	} else {
		t.Playhead = w.Limit
		if t.Sync == api.SyncScheduled {
			t.Sync = api.SyncIdle
		}
	}

	s.logger.Debug("playback ended", "track", t.ID, "audition", auditioning)
	s.publish(api.EventPlaybackEnded, t.ID, t.Snapshot(s.engine.Now()))
}
