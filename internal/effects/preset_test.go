package effects

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

func TestDefaultPresets(t *testing.T) {
	p := DefaultPresets()
	names := p.Names()
	if len(names) != 3 || names[0] != "room" {
		t.Fatalf("Names() = %v", names)
	}

	first, err := p.Chain("telephone")
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	second, _ := p.Chain("telephone")
	if len(first) != 2 || first[0].ID == "" {
		t.Fatalf("Chain() = %+v", first)
	}
	if first[0].ID == second[0].ID {
		t.Error("each use of a preset should get fresh ids")
	}
	if first[0].Params["cutoff"] != 3000 {
		t.Errorf("cutoff = %v, want 3000", first[0].Params["cutoff"])
	}
}

func TestLoadPresets(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		p, err := LoadPresets(filepath.Join(dir, "none.yaml"))
		if err != nil {
			t.Fatalf("LoadPresets: %v", err)
		}
		if len(p.Names()) == 0 {
			t.Error("expected built-in presets")
		}
	})

	t.Run("custom", func(t *testing.T) {
		path := filepath.Join(dir, "presets.yaml")
		doc := "presets:\n  - name: warm\n    effects:\n      - type: lowpass\n        wet: 0.7\n        params: {cutoff: 4000}\n"
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			t.Fatal(err)
		}
		p, err := LoadPresets(path)
		if err != nil {
			t.Fatalf("LoadPresets: %v", err)
		}
		chain, err := p.Chain("warm")
		if err != nil || len(chain) != 1 || chain[0].Wet != 0.7 {
			t.Errorf("Chain(warm) = %+v, %v", chain, err)
		}
		if _, err := p.Chain("room"); !errors.Is(err, playerrors.ErrPresetNotFound) {
			t.Errorf("Chain(room) error = %v, want ErrPresetNotFound", err)
		}
	})

	t.Run("unknown effect", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		doc := "presets:\n  - name: odd\n    effects:\n      - type: wah\n"
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadPresets(path); !errors.Is(err, playerrors.ErrUnknownEffect) {
			t.Errorf("LoadPresets error = %v, want ErrUnknownEffect", err)
		}
	})
}
