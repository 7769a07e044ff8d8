package session

import (
	"errors"
	"time"

	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/timeline"
	"github.com/jscyril/multitrack/internal/track"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

// Play starts the master transport from its current position. Every track
// is resynced first so each one gets exactly one start event.
func (s *Session) Play() error {
	return s.do(func() error {
		if s.transport.Started() {
			return nil
		}
		pos := s.transport.Position()
		errs := s.resyncAll(syncOptions{ScheduleStart: true, Elapsed: pos})
		if err := s.transport.Start(); err != nil {
			errs = append(errs, err)
		}
		s.logger.Info("transport started", "position", pos)
		s.afterTransport()
		return s.fail("", errors.Join(errs...))
	})
}

// Pause stops every track and keeps the transport position
func (s *Session) Pause() error {
	return s.do(func() error {
		if !s.transport.Started() {
			return nil
		}
		pos := s.transport.Position()
		errs := s.resyncAll(syncOptions{Elapsed: pos})
		s.transport.Pause()
		s.logger.Info("transport paused", "position", pos)
		s.afterTransport()
		return s.fail("", errors.Join(errs...))
	})
}

// Stop stops every track and returns the transport to zero
func (s *Session) Stop() error {
	return s.do(func() error {
		errs := s.resyncAll(syncOptions{})
		s.transport.Stop()
		s.logger.Info("transport stopped")
		s.afterTransport()
		return s.fail("", errors.Join(errs...))
	})
}

// Rewind returns the transport to zero. Playback stops; tracks are cued at
// the start of their windows.
func (s *Session) Rewind() error {
	return s.do(func() error {
		errs := s.resyncAll(syncOptions{})
		s.transport.Rewind()
		s.logger.Info("transport rewound")
		s.afterTransport()
		return s.fail("", errors.Join(errs...))
	})
}

func (s *Session) resyncAll(opts syncOptions) []error {
	var errs []error
	for _, id := range s.order {
		if err := s.resync(s.tracks[id], opts); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (s *Session) afterTransport() {
	s.publish(api.EventTransportChanged, "", s.transport.Snapshot())
	for _, id := range s.order {
		s.publishTrack(s.tracks[id])
	}
}

// ToggleTrack auditions a stopped track from its playhead, or stops a
// playing one.
func (s *Session) ToggleTrack(id string) error {
	return s.do(func() error {
		t, err := s.lookup("toggle", id)
		if err != nil {
			return err
		}
		if t.Playing() {
			err = s.stopTrack(t)
		} else {
			err = s.audition(t)
		}
		s.publishTrack(t)
		return s.fail(id, err)
	})
}

// StopTrack stops one track and rejoins it to the transport timeline
// without starting it.
func (s *Session) StopTrack(id string) error {
	return s.do(func() error {
		t, err := s.lookup("stop", id)
		if err != nil {
			return err
		}
		err = s.stopTrack(t)
		s.publishTrack(t)
		return s.fail(id, err)
	})
}

// RewindTrack moves the track's playhead to the start of its window. An
// auditioning track restarts from there.
func (s *Session) RewindTrack(id string) error {
	return s.do(func() error {
		t, err := s.lookup("rewind", id)
		if err != nil {
			return err
		}
		if t.Asset == nil {
			return playerrors.NewTrackError("rewind", id, playerrors.ErrNoAsset)
		}
		auditioning := t.Auditioning
		if err := s.stopTrack(t); err != nil {
			return s.fail(id, err)
		}
		t.Playhead = t.Window().Start
		if err := t.Active.Seek(t.Playhead); err != nil {
			return s.fail(id, playerrors.NewTrackError("rewind", id, err))
		}
		if auditioning {
			err = s.audition(t)
		}
		s.publishTrack(t)
		return s.fail(id, err)
	})
}

func (s *Session) stopTrack(t *track.Track) error {
	return s.resync(t, syncOptions{Elapsed: s.transport.Position(), KeepPlayhead: true})
}

// audition starts t on its own, off the transport timeline, from its
// playhead
func (s *Session) audition(t *track.Track) error {
	if t.Asset == nil {
		return playerrors.NewTrackError("audition", t.ID, playerrors.ErrNoAsset)
	}
	if t.Recording {
		return nil
	}
	s.unsync(t)
	cue := timeline.Audition(t.Window(), t.Loop, t.Playhead)
	if !cue.OK {
		return s.stopTrack(t)
	}
	if err := s.startPlayback(t, s.engine.Now(), cue.Offset, cue.Duration); err != nil {
		if rerr := s.stopTrack(t); rerr != nil {
			s.logger.Warn("resync after failed audition", "track", t.ID, "error", rerr)
		}
		return err
	}
	t.Auditioning = true
	s.logger.Debug("audition started", "track", t.ID, "offset", cue.Offset, "duration", cue.Duration)
	return nil
}

// Seek moves the transport to pos and cues every track there. A running
// transport is halted, moved and started again.
func (s *Session) Seek(pos time.Duration) error {
	return s.do(func() error {
		if pos < 0 {
			pos = 0
		}
		running := s.transport.Started()
		var errs []error
		if running {
			errs = s.resyncAll(syncOptions{Elapsed: s.transport.Position()})
			s.transport.Pause()
		}
		if err := s.transport.Seek(pos); err != nil {
			return s.fail("", err)
		}
		errs = append(errs, s.resyncAll(syncOptions{ScheduleStart: running, Elapsed: pos})...)
		if running {
			if err := s.transport.Start(); err != nil {
				errs = append(errs, err)
			}
		}
		s.afterTransport()
		return s.fail("", errors.Join(errs...))
	})
}
