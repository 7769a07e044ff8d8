package effects

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/jscyril/multitrack/api"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Preset is a named, reusable effect chain.
type Preset struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description,omitempty"`
	Effects     []api.EffectDescriptor `yaml:"effects"`
}

// Presets is a collection of presets keyed by name.
type Presets struct {
	byName map[string]Preset
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

const defaultPresets = `
presets:
  - name: room
    description: small room ambience
    effects:
      - type: reverb
        wet: 0.3
        params: {room: 0.4, damp: 0.6}
  - name: slapback
    effects:
      - type: delay
        wet: 0.35
        params: {time: 0.12, feedback: 0.1}
  - name: telephone
    effects:
      - type: lowpass
        wet: 1
        params: {cutoff: 3000}
      - type: distortion
        wet: 0.4
        params: {drive: 3}
`

// DefaultPresets returns the built-in presets
func DefaultPresets() *Presets {
	p, err := ParsePresets([]byte(defaultPresets))
	if err != nil {
		panic(err)
	}
	return p
}

// LoadPresets reads presets from a YAML file. A missing file yields the
// built-in presets.
func LoadPresets(path string) (*Presets, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultPresets(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return ParsePresets(data)
}

// ParsePresets decodes a YAML preset document
func ParsePresets(data []byte) (*Presets, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	known := make(map[api.EffectType]bool)
	for _, t := range api.EffectTypes() {
		known[t] = true
	}
	p := &Presets{byName: make(map[string]Preset, len(f.Presets))}
	for _, preset := range f.Presets {
		if preset.Name == "" {
			return nil, errors.New("parse presets: preset without a name")
		}
		for _, d := range preset.Effects {
			if !known[d.Type] {
				return nil, fmt.Errorf("preset %s: %w: %q", preset.Name, playerrors.ErrUnknownEffect, d.Type)
			}
		}
		p.byName[preset.Name] = preset
	}
	return p, nil
}

// Names returns the preset names, sorted
func (p *Presets) Names() []string {
	names := make([]string, 0, len(p.byName))
	for name := range p.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain returns the descriptors of the named preset with fresh ids
func (p *Presets) Chain(name string) ([]api.EffectDescriptor, error) {
	preset, ok := p.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", playerrors.ErrPresetNotFound, name)
	}
	descs := make([]api.EffectDescriptor, len(preset.Effects))
	for i, d := range preset.Effects {
		descs[i] = d.Clone()
		descs[i].ID = ""
	}
	return Normalize(descs), nil
}
