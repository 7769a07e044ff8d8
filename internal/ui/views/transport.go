package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/ui/components"
)

// TransportView displays the master transport and the recorder
type TransportView struct {
	Width     int
	State     api.Transport
	Recording api.RecordingStatus
	Status    string
	Err       error

	// Styles
	TitleStyle    lipgloss.Style
	StatusStyle   lipgloss.Style
	RecordStyle   lipgloss.Style
	ErrorStyle    lipgloss.Style
	ControlsStyle lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewTransportView creates a new transport view
func NewTransportView(width int) TransportView {
	return TransportView{
		Width: width,
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		RecordStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		ErrorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		ControlsStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2),
	}
}

// SetState updates the transport snapshot
func (v *TransportView) SetState(state api.Transport, rec api.RecordingStatus) {
	v.State = state
	v.Recording = rec
}

// SetStatus shows the outcome of the last operation. A nil err clears the
// previous error.
func (v *TransportView) SetStatus(status string, err error) {
	v.Status = status
	v.Err = err
}

// Update handles messages
func (v TransportView) Update(msg tea.Msg) (TransportView, tea.Cmd) {
	return v, nil
}

// View renders the transport view
func (v TransportView) View() string {
	var sb strings.Builder

	var icon string
	switch v.State.State {
	case api.TransportStarted:
		icon = "▶"
	case api.TransportPaused:
		icon = "⏸"
	default:
		icon = "⏹"
	}
	sb.WriteString(v.StatusStyle.Render(icon + " " + v.State.State.String()))
	sb.WriteString("  ")
	sb.WriteString(v.TitleStyle.Render(components.FormatDuration(v.State.Position)))

	if v.Recording.Active {
		what := "mix"
		if v.Recording.Mode == api.RecordTrack {
			what = "track"
		}
		sb.WriteString("  ")
		sb.WriteString(v.RecordStyle.Render(fmt.Sprintf("● REC %s %s", what, components.FormatDuration(v.Recording.Captured))))
	}

	switch {
	case v.Err != nil:
		sb.WriteString("\n")
		sb.WriteString(v.ErrorStyle.Render("✗ " + v.Err.Error()))
	case v.Status != "":
		sb.WriteString("\n")
		sb.WriteString(v.ControlsStyle.Render(v.Status))
	}

	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}
