package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/multitrack/api"
)

// rowHeight is the number of lines one track takes: its strip line and
// its progress bar
const rowHeight = 2

// TrackList represents a scrollable list of channel strips
type TrackList struct {
	Items         []api.Track
	Selected      int
	Height        int
	Width         int
	Offset        int
	Title         string
	Bar           ProgressBar
	SelectedStyle lipgloss.Style
	NormalStyle   lipgloss.Style
	TitleStyle    lipgloss.Style
	FlagStyle     lipgloss.Style
	DimStyle      lipgloss.Style
}

// NewTrackList creates a new track list
func NewTrackList(height, width int) TrackList {
	return TrackList{
		Items:  make([]api.Track, 0),
		Height: height,
		Width:  width,
		Bar:    NewProgressBar(width - 4),
		SelectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Bold(true).
			Padding(0, 1),
		NormalStyle: lipgloss.NewStyle().
			Padding(0, 1),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
		FlagStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		DimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// SetItems replaces the tracks, keeping the selection on the same track
// when it still exists
func (l *TrackList) SetItems(items []api.Track) {
	var current string
	if sel := l.SelectedItem(); sel != nil {
		current = sel.ID
	}
	l.Items = items
	l.Selected = 0
	for i, t := range items {
		if t.ID == current {
			l.Selected = i
			break
		}
	}
	l.ensureVisible()
}

// Update handles messages for the track list
func (l TrackList) Update(msg tea.Msg) (TrackList, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			l.MoveUp()
		case "down", "j":
			l.MoveDown()
		case "home":
			l.Selected = 0
			l.Offset = 0
		case "end":
			if len(l.Items) > 0 {
				l.Selected = len(l.Items) - 1
				l.ensureVisible()
			}
		}
	}
	return l, nil
}

// MoveUp moves selection up
func (l *TrackList) MoveUp() {
	if l.Selected > 0 {
		l.Selected--
		l.ensureVisible()
	}
}

// MoveDown moves selection down
func (l *TrackList) MoveDown() {
	if l.Selected < len(l.Items)-1 {
		l.Selected++
		l.ensureVisible()
	}
}

func (l *TrackList) visibleRows() int {
	rows := (l.Height - 2) / rowHeight
	if rows < 1 {
		rows = 1
	}
	return rows
}

// ensureVisible ensures the selected item is visible
func (l *TrackList) ensureVisible() {
	visible := l.visibleRows()
	if l.Selected < l.Offset {
		l.Offset = l.Selected
	} else if l.Selected >= l.Offset+visible {
		l.Offset = l.Selected - visible + 1
	}
}

// SelectedItem returns the currently selected track
func (l *TrackList) SelectedItem() *api.Track {
	if l.Selected >= 0 && l.Selected < len(l.Items) {
		return &l.Items[l.Selected]
	}
	return nil
}

// View renders the track list
func (l TrackList) View() string {
	var sb strings.Builder

	if l.Title != "" {
		sb.WriteString(l.TitleStyle.Render(l.Title))
		sb.WriteString("\n")
	}

	if len(l.Items) == 0 {
		sb.WriteString(l.DimStyle.Render("No tracks. [a] adds one, [i] imports a file into it."))
		return sb.String()
	}

	end := l.Offset + l.visibleRows()
	if end > len(l.Items) {
		end = len(l.Items)
	}

	for i := l.Offset; i < end; i++ {
		t := l.Items[i]
		line := fmt.Sprintf("%2d %s %-20s %s %+5.1f dB  pan %+.1f  fx %d",
			i+1, stateIcon(t), truncate(t.Name, 20), flags(t), t.VolumeDB, t.Pan, len(t.Effects))
		if len(line) > l.Width-2 && l.Width > 8 {
			line = line[:l.Width-5] + "..."
		}
		if i == l.Selected {
			sb.WriteString(l.SelectedStyle.Render(line))
		} else {
			sb.WriteString(l.NormalStyle.Render(line))
		}
		sb.WriteString("\n")

		if t.HasAsset {
			bar := l.Bar
			bar.SetProgress(t.Playhead, t.Duration)
			if t.Selection != nil {
				bar.SetWindow(t.Selection.Start, t.Selection.End, t.Loop)
			} else {
				bar.SetWindow(0, 0, t.Loop)
			}
			sb.WriteString("   " + bar.View())
		} else {
			sb.WriteString(l.DimStyle.Render("   (empty)"))
		}
		if i < end-1 {
			sb.WriteString("\n")
		}
	}

	if len(l.Items) > l.visibleRows() {
		sb.WriteString("\n")
		sb.WriteString(l.DimStyle.Render(fmt.Sprintf("  [%d/%d]", l.Selected+1, len(l.Items))))
	}

	return sb.String()
}

func stateIcon(t api.Track) string {
	switch {
	case t.Recording:
		return "●"
	case t.Auditioning:
		return "◉"
	case t.Playing:
		return "▶"
	case t.Sync == api.SyncScheduled:
		return "…"
	default:
		return "⏹"
	}
}

// flags renders the loop, mute and solo markers in fixed columns
func flags(t api.Track) string {
	f := []byte("---")
	if t.Loop {
		f[0] = 'L'
	}
	if t.Mute {
		f[1] = 'M'
	}
	if t.Solo {
		f[2] = 'S'
	}
	return string(f)
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
