package session

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/audio"
	"github.com/jscyril/multitrack/internal/render"
)

// ExportMixdown renders every audible track offline and writes the mix to
// w as a WAV file. The live engine keeps playing meanwhile.
func (s *Session) ExportMixdown(ctx context.Context, w io.WriteSeeker) (*render.Mixdown, error) {
	return s.export(ctx, w, "")
}

// ExportFile renders the mixdown into the file at path
func (s *Session) ExportFile(ctx context.Context, path string) (*render.Mixdown, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, s.fail("", fmt.Errorf("create export file: %w", err))
	}
	m, err := s.export(ctx, f, path)
	if cerr := f.Close(); err == nil && cerr != nil {
		return nil, s.fail("", fmt.Errorf("write export file: %w", cerr))
	}
	if err != nil {
		os.Remove(path)
	}
	return m, err
}

func (s *Session) export(ctx context.Context, w io.WriteSeeker, path string) (*render.Mixdown, error) {
	var specs []render.Spec
	err := s.do(func() error {
		specs = make([]render.Spec, 0, len(s.order))
		for _, id := range s.order {
			t := s.tracks[id]
			snap := t.Snapshot(s.engine.Now())
			spec := render.Spec{
				ID:        t.ID,
				Selection: snap.Selection,
				Effects:   snap.Effects,
				VolumeDB:  t.VolumeDB,
				Pan:       t.Pan,
				Mute:      t.Mute,
				Solo:      t.Solo,
			}
			if t.Asset != nil {
				spec.Asset = t.Asset.Retain()
			}
			specs = append(specs, spec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, spec := range specs {
			if spec.Asset != nil {
				spec.Asset.Release()
			}
		}
	}()

	m, err := s.renderer.Render(ctx, specs)
	if err != nil {
		return nil, s.fail("", fmt.Errorf("export: %w", err))
	}
	if err := audio.EncodeWAV(w, m.SampleRate, m.Frames); err != nil {
		return nil, s.fail("", fmt.Errorf("export: %w", err))
	}

	s.logger.Info("mixdown exported", "path", path, "tracks", len(m.Tracks), "duration", m.Duration(), "peak", m.Peak)
	s.publish(api.EventExportFinished, "", api.ExportResult{
		Path:     path,
		Tracks:   m.Tracks,
		Duration: m.Duration(),
		Peak:     m.Peak,
	})
	return m, nil
}
