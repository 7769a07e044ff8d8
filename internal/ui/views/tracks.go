package views

import (
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/audio"
	"github.com/jscyril/multitrack/internal/ui/components"
)

// FileChosenMsg is sent when a file is picked for import into a track
type FileChosenMsg struct {
	TrackID string
	Path    string
}

// TracksView displays the channel strips
type TracksView struct {
	Width       int
	Height      int
	TrackList   components.TrackList
	Input       components.TextInput
	FileBrowser components.FileBrowser
	Browsing    bool // True when file browser is open
	Help        string
	importTo    string
	lastDir     string
	BorderStyle lipgloss.Style
}

// NewTracksView creates a new tracks view
func NewTracksView(width, height int) TracksView {
	trackList := components.NewTrackList(height-8, width-6)
	trackList.Title = "🎚 Tracks"

	return TracksView{
		Width:     width,
		Height:    height,
		TrackList: trackList,
		Input:     components.NewTextInput(width - 6),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
	}
}

// SetTracks replaces the displayed tracks
func (v *TracksView) SetTracks(tracks []api.Track) {
	v.TrackList.SetItems(tracks)
}

// SelectedTrack returns the currently selected track
func (v *TracksView) SelectedTrack() *api.Track {
	return v.TrackList.SelectedItem()
}

// Capturing reports whether keys belong to the browser or the prompt
func (v TracksView) Capturing() bool {
	return v.Browsing || v.Input.Focused
}

// Browse opens the file browser for an import into track
func (v *TracksView) Browse(track api.Track) {
	v.Browsing = true
	v.importTo = track.ID
	v.FileBrowser = components.NewFileBrowser(v.lastDir, audio.SupportedFormats(), v.Width, v.Height)
	v.FileBrowser.Target = track.Name
}

// Ask opens the prompt
func (v *TracksView) Ask(purpose, prompt, placeholder, value string) {
	v.Input.Ask(purpose, prompt, placeholder, value)
}

// Update handles messages
func (v TracksView) Update(msg tea.Msg) (TracksView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.Browsing {
			switch msg.String() {
			case "esc":
				v.Browsing = false
				return v, nil
			case "enter":
				filePath := v.FileBrowser.EnterSelected()
				if filePath != "" {
					v.Browsing = false
					v.lastDir = filepath.Dir(filePath)
					trackID := v.importTo
					return v, func() tea.Msg {
						return FileChosenMsg{TrackID: trackID, Path: filePath}
					}
				}
				return v, nil
			default:
				v.FileBrowser, _ = v.FileBrowser.Update(msg)
			}
			return v, nil
		}

		if v.Input.Focused {
			var cmd tea.Cmd
			v.Input, cmd = v.Input.Update(msg)
			return v, cmd
		}

		v.TrackList, _ = v.TrackList.Update(msg)
	}
	return v, nil
}

// View renders the tracks view
func (v TracksView) View() string {
	if v.Browsing {
		return v.FileBrowser.View()
	}

	var sb strings.Builder

	sb.WriteString(v.TrackList.View())

	if v.Input.Focused {
		sb.WriteString("\n\n")
		sb.WriteString(v.Input.View())
	}

	sb.WriteString("\n\n")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if v.Input.Focused {
		sb.WriteString(helpStyle.Render("[Enter] Confirm  [Esc] Cancel"))
	} else {
		sb.WriteString(helpStyle.Render(v.Help))
	}

	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}
