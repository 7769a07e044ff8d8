package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/recording"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

// StartRecording starts the shared recorder. Mix recordings capture the
// output bus into a new track; track recordings capture live input into
// trackID, which is silenced until the recording ends.
func (s *Session) StartRecording(mode api.RecordingMode, trackID string) error {
	return s.do(func() error {
		if mode == api.RecordTrack {
			t, err := s.lookup("record", trackID)
			if err != nil {
				return err
			}
			if err := s.recorder.Begin(mode, trackID, s.input); err != nil {
				return s.fail(trackID, playerrors.NewTrackError("record", trackID, err))
			}
			s.unsync(t)
			t.Recording = true
			s.publishTrack(t)
		} else {
			trackID = ""
			if err := s.recorder.Begin(mode, "", s.input); err != nil {
				return s.fail("", fmt.Errorf("record mix: %w", err))
			}
		}
		s.logger.Info("recording started", "mode", mode, "track", trackID)
		s.publish(api.EventRecordingChanged, trackID, s.recorder.Status())
		return nil
	})
}

// StopRecording ends the recording and installs the take: in a new track
// for a mix recording, as the recorded track's asset otherwise. The take
// is written to the recordings directory so the project can reload it.
func (s *Session) StopRecording(ctx context.Context) (api.Track, error) {
	var take recording.Take
	var gen uint64
	err := s.do(func() error {
		var err error
		take, err = s.recorder.End()
		if take.Mode == api.RecordTrack {
			if t, ok := s.tracks[take.Track]; ok {
				t.Recording = false
				t.Gen++
				gen = t.Gen
				if rerr := s.stopTrack(t); rerr != nil {
					s.logger.Warn("resync after recording", "track", t.ID, "error", rerr)
				}
				s.publishTrack(t)
			}
		}
		s.publish(api.EventRecordingChanged, take.Track, s.recorder.Status())
		if err != nil {
			return s.fail(take.Track, err)
		}
		s.logger.Info("recording stopped", "mode", take.Mode, "track", take.Track, "duration", take.Duration())
		return nil
	})
	if err != nil {
		return api.Track{}, err
	}

	asset, path, err := s.persist("take", take.Frames, 2)
	if err != nil {
		return api.Track{}, s.fail(take.Track, fmt.Errorf("save take: %w", err))
	}
	if err := ctx.Err(); err != nil {
		asset.Release()
		return api.Track{}, err
	}

	var out api.Track
	err = s.do(func() error {
		if take.Mode == api.RecordMix {
			t := s.addTrack(uuid.NewString(), fmt.Sprintf("Recording %d", s.nextName+1))
			if err := s.installAsset(t, asset, path); err != nil {
				return s.fail(t.ID, playerrors.NewTrackError("record", t.ID, err))
			}
			s.publishTrack(t)
			out = t.Snapshot(s.engine.Now())
			return nil
		}

		t, ok := s.tracks[take.Track]
		if !ok || t.Gen != gen {
			asset.Release()
			return playerrors.NewTrackError("record", take.Track, playerrors.ErrStale)
		}
		if err := s.installAsset(t, asset, path); err != nil {
			return s.fail(t.ID, playerrors.NewTrackError("record", t.ID, err))
		}
		s.publishTrack(t)
		out = t.Snapshot(s.engine.Now())
		return nil
	})
	return out, err
}
