package project

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jscyril/multitrack/api"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

func sampleProject() *Project {
	p := New("demo", 44100)
	p.Tracks = FromTracks([]api.Track{
		{
			ID:        "t1",
			Name:      "Drums",
			AssetPath: "/audio/drums.wav",
			VolumeDB:  -3,
			Pan:       0.25,
			Solo:      true,
			Loop:      true,
			Selection: &api.Selection{Start: time.Second, End: 4 * time.Second},
			Effects: []api.EffectDescriptor{
				{ID: "e1", Type: api.EffectReverb, Wet: 0.3, Params: api.EffectParams{"room": 0.6}},
			},
		},
		{ID: "t2", Name: "Empty"},
	})
	return p
}

func TestStores(t *testing.T) {
	dir := t.TempDir()
	sqlite, err := OpenSQLite(filepath.Join(dir, "db", "projects.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer sqlite.Close()

	stores := []struct {
		name  string
		store Store
	}{
		{"file", NewFileStore(filepath.Join(dir, "projects"))},
		{"sqlite", sqlite},
	}

	for _, tt := range stores {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			p := sampleProject()

			if err := tt.store.Save(ctx, p); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := tt.store.Load(ctx, p.ID)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got.Name != "demo" || len(got.Tracks) != 2 {
				t.Fatalf("Load() = %+v", got)
			}
			tr := got.Tracks[0]
			if tr.Selection == nil || tr.Selection.End != 4*time.Second || !tr.Loop || !tr.Solo {
				t.Errorf("track = %+v", tr)
			}
			if len(tr.Effects) != 1 || tr.Effects[0].Params["room"] != 0.6 {
				t.Errorf("effects = %+v", tr.Effects)
			}

			list, err := tt.store.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(list) != 1 || list[0].Tracks != 2 {
				t.Errorf("List() = %+v", list)
			}

			if err := tt.store.Delete(ctx, p.ID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := tt.store.Load(ctx, p.ID); !errors.Is(err, playerrors.ErrProjectNotFound) {
				t.Errorf("Load after Delete: %v, want ErrProjectNotFound", err)
			}
			if err := tt.store.Delete(ctx, p.ID); !errors.Is(err, playerrors.ErrProjectNotFound) {
				t.Errorf("second Delete: %v, want ErrProjectNotFound", err)
			}
		})
	}
}

func TestFileStoreListMissingDir(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nowhere"))
	list, err := s.List(context.Background())
	if err != nil || len(list) != 0 {
		t.Errorf("List() = %v, %v, want empty", list, err)
	}
}
