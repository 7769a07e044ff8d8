package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jscyril/multitrack/internal/project"
	"github.com/jscyril/multitrack/internal/timeline"
)

// Project captures the session as a project document
func (s *Session) Project(name string) (*project.Project, error) {
	tracks, err := s.Tracks()
	if err != nil {
		return nil, err
	}
	p := project.New(name, int(s.engine.SampleRate()))
	p.Tracks = project.FromTracks(tracks)
	return p, nil
}

// Restore replaces every track with the ones saved in p. Tracks whose
// audio cannot be loaded are kept empty; their errors are joined.
func (s *Session) Restore(ctx context.Context, p *project.Project) error {
	err := s.do(func() error {
		s.resyncAll(syncOptions{})
		s.transport.Stop()
		for _, id := range append([]string(nil), s.order...) {
			s.disposeTrack(s.tracks[id])
		}
		s.nextName = 0
		for _, doc := range p.Tracks {
			t := s.addTrack(doc.ID, doc.Name)
			t.VolumeDB = doc.VolumeDB
			t.Pan = doc.Pan
			t.Mute = doc.Mute
			t.Solo = doc.Solo
			t.Loop = doc.Loop
		}
		s.applyMix()
		s.afterTransport()
		return nil
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, doc := range p.Tracks {
		if doc.AssetPath != "" {
			if err := s.ImportFile(ctx, doc.ID, doc.AssetPath); err != nil {
				errs = append(errs, err)
				continue
			}
			if err := s.restoreWindow(doc); err != nil {
				errs = append(errs, err)
			}
		}
		if len(doc.Effects) > 0 {
			if err := s.ReconcileEffects(ctx, doc.ID, doc.Effects); err != nil {
				errs = append(errs, err)
			}
		}
	}
	s.logger.Info("project restored", "project", p.ID, "name", p.Name, "tracks", len(p.Tracks), "errors", len(errs))
	return errors.Join(errs...)
}

// restoreWindow reapplies the saved name, selection and loop, which an
// import resets
func (s *Session) restoreWindow(doc project.TrackDoc) error {
	return s.do(func() error {
		t, err := s.lookup("restore", doc.ID)
		if err != nil {
			return err
		}
		if doc.Name != "" {
			t.Name = doc.Name
			t.Untitled = false
		}
		t.Loop = doc.Loop
		if doc.Selection != nil {
			sel := timeline.Normalize(*doc.Selection, t.Duration())
			t.Selection = &sel
		}
		if err := s.rebound(t); err != nil {
			return fmt.Errorf("restore track %s: %w", t.ID, err)
		}
		s.publishTrack(t)
		return nil
	})
}
