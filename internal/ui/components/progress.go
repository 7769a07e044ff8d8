package components

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProgressBar shows a playhead over a track, with its selection window
// highlighted
type ProgressBar struct {
	Width     int
	Current   time.Duration
	Total     time.Duration
	SelStart  time.Duration
	SelEnd    time.Duration // zero for an open selection
	Loop      bool
	BarChar   string
	EmptyChar string
	HeadChar  string
	ShowTime  bool

	Style         lipgloss.Style
	FilledStyle   lipgloss.Style
	EmptyStyle    lipgloss.Style
	WindowStyle   lipgloss.Style
	PlayheadStyle lipgloss.Style
}

// NewProgressBar creates a new progress bar
func NewProgressBar(width int) ProgressBar {
	return ProgressBar{
		Width:         width,
		BarChar:       "█",
		EmptyChar:     "░",
		HeadChar:      "│",
		ShowTime:      true,
		Style:         lipgloss.NewStyle(),
		FilledStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		EmptyStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		WindowStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		PlayheadStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
	}
}

// Update handles messages for the progress bar
func (p ProgressBar) Update(msg tea.Msg) (ProgressBar, tea.Cmd) {
	return p, nil
}

// SetProgress sets the current position
func (p *ProgressBar) SetProgress(current, total time.Duration) {
	p.Current = current
	p.Total = total
}

// SetWindow sets the highlighted selection
func (p *ProgressBar) SetWindow(start, end time.Duration, loop bool) {
	p.SelStart = start
	p.SelEnd = end
	p.Loop = loop
}

// cell maps a position to a bar cell
func (p ProgressBar) cell(pos time.Duration, width int) int {
	if p.Total <= 0 {
		return 0
	}
	c := int(float64(width) * float64(pos) / float64(p.Total))
	if c < 0 {
		return 0
	}
	if c > width {
		return width
	}
	return c
}

// barWidth leaves room for the time display
func (p ProgressBar) barWidth() int {
	w := p.Width
	if p.ShowTime {
		w -= 14
	}
	if w < 10 {
		w = 10
	}
	return w
}

// View renders the progress bar
func (p ProgressBar) View() string {
	var sb strings.Builder
	width := p.barWidth()

	head := p.cell(p.Current, width)
	if head >= width {
		head = width - 1
	}
	winStart := p.cell(p.SelStart, width)
	winEnd := width
	if p.SelEnd > p.SelStart {
		winEnd = p.cell(p.SelEnd, width)
	}

	for i := 0; i < width; i++ {
		switch {
		case i == head && p.Total > 0:
			sb.WriteString(p.PlayheadStyle.Render(p.HeadChar))
		case i < head && i >= winStart:
			sb.WriteString(p.FilledStyle.Render(p.BarChar))
		case i >= winStart && i < winEnd:
			sb.WriteString(p.WindowStyle.Render(p.EmptyChar))
		default:
			sb.WriteString(p.EmptyStyle.Render(p.EmptyChar))
		}
	}

	if p.ShowTime {
		sb.WriteString(" ")
		sb.WriteString(FormatDuration(p.Current))
		sb.WriteString("/")
		sb.WriteString(FormatDuration(p.Total))
	}

	return p.Style.Render(sb.String())
}

// FormatDuration formats a duration as MM:SS
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d", m, s)
}
