package views

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/multitrack/api"
)

// PresetChosenMsg is sent when a preset is picked for the current track
type PresetChosenMsg struct {
	TrackID string
	Preset  string
}

// EffectsView shows a track's effect chain next to the preset list
type EffectsView struct {
	Width       int
	Height      int
	Presets     []string
	Selected    int
	Track       *api.Track
	BorderStyle lipgloss.Style
	TitleStyle  lipgloss.Style
	ItemStyle   lipgloss.Style
	ActiveStyle lipgloss.Style
	DimStyle    lipgloss.Style
}

// NewEffectsView creates a new effects view
func NewEffectsView(width, height int, presets []string) EffectsView {
	return EffectsView{
		Width:   width,
		Height:  height,
		Presets: presets,
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
		ItemStyle: lipgloss.NewStyle().
			Padding(0, 1),
		ActiveStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Bold(true).
			Padding(0, 1),
		DimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// SetTrack sets the track whose chain is shown
func (v *EffectsView) SetTrack(t *api.Track) {
	v.Track = t
}

// Update handles messages
func (v EffectsView) Update(msg tea.Msg) (EffectsView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if v.Selected > 0 {
				v.Selected--
			}
		case "down", "j":
			if v.Selected < len(v.Presets)-1 {
				v.Selected++
			}
		case "enter":
			if v.Track == nil || v.Selected >= len(v.Presets) {
				return v, nil
			}
			trackID, name := v.Track.ID, v.Presets[v.Selected]
			return v, func() tea.Msg {
				return PresetChosenMsg{TrackID: trackID, Preset: name}
			}
		}
	}
	return v, nil
}

// View renders the effects view
func (v EffectsView) View() string {
	var left strings.Builder
	left.WriteString(v.TitleStyle.Render("🎛 Presets"))
	left.WriteString("\n")
	if len(v.Presets) == 0 {
		left.WriteString(v.DimStyle.Render("No presets loaded"))
	}
	for i, name := range v.Presets {
		if i == v.Selected {
			left.WriteString(v.ActiveStyle.Render(name))
		} else {
			left.WriteString(v.ItemStyle.Render(name))
		}
		left.WriteString("\n")
	}

	var right strings.Builder
	if v.Track == nil {
		right.WriteString(v.TitleStyle.Render("No track selected"))
	} else {
		right.WriteString(v.TitleStyle.Render("Chain: " + v.Track.Name))
		right.WriteString("\n")
		if len(v.Track.Effects) == 0 {
			right.WriteString(v.DimStyle.Render("(dry)"))
		}
		for i, fx := range v.Track.Effects {
			right.WriteString(fmt.Sprintf("%d. %-10s wet %.2f  %s\n", i+1, fx.Type, fx.Wet, formatParams(fx.Params)))
		}
	}

	half := (v.Width - 10) / 2
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(half).Render(left.String()),
		lipgloss.NewStyle().Width(half).Render(right.String()),
	)

	help := v.DimStyle.Render("[↑↓] Navigate  [Enter] Apply preset to selected track")
	return v.BorderStyle.Width(v.Width - 4).Render(body + "\n\n" + help)
}

// formatParams renders params in key order
func formatParams(params api.EffectParams) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, params[k])
	}
	return strings.Join(parts, " ")
}
