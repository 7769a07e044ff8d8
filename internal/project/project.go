// Package project persists session documents: tracks, mix settings,
// selections, loops, effect chains and the paths of their audio.
package project

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jscyril/multitrack/api"
)

// Project is a saved session
type Project struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	SampleRate int        `json:"sample_rate"`
	Tracks     []TrackDoc `json:"tracks"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TrackDoc is the saved form of one track
type TrackDoc struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	AssetPath string                 `json:"asset_path,omitempty"`
	Effects   []api.EffectDescriptor `json:"effects,omitempty"`
	VolumeDB  float64                `json:"volume_db"`
	Pan       float64                `json:"pan"`
	Mute      bool                   `json:"mute"`
	Solo      bool                   `json:"solo"`
	Selection *api.Selection         `json:"selection,omitempty"`
	Loop      bool                   `json:"loop"`
}

// Summary describes a stored project without its tracks
type Summary struct {
	ID        string
	Name      string
	Tracks    int
	UpdatedAt time.Time
}

// Store saves and loads projects
type Store interface {
	Save(ctx context.Context, p *Project) error
	Load(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
}

// New creates an empty project
func New(name string, sampleRate int) *Project {
	now := time.Now()
	return &Project{
		ID:         uuid.NewString(),
		Name:       name,
		SampleRate: sampleRate,
		Tracks:     []TrackDoc{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// FromTracks builds track documents from session snapshots
func FromTracks(tracks []api.Track) []TrackDoc {
	docs := make([]TrackDoc, 0, len(tracks))
	for _, t := range tracks {
		docs = append(docs, TrackDoc{
			ID:        t.ID,
			Name:      t.Name,
			AssetPath: t.AssetPath,
			Effects:   t.Effects,
			VolumeDB:  t.VolumeDB,
			Pan:       t.Pan,
			Mute:      t.Mute,
			Solo:      t.Solo,
			Selection: t.Selection,
			Loop:      t.Loop,
		})
	}
	return docs
}

func summarize(p *Project) Summary {
	return Summary{ID: p.ID, Name: p.Name, Tracks: len(p.Tracks), UpdatedAt: p.UpdatedAt}
}
