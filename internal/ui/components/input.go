package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InputSubmittedMsg is sent when the user confirms a prompt
type InputSubmittedMsg struct {
	Purpose string
	Value   string
}

// InputCancelledMsg is sent when the user abandons a prompt
type InputCancelledMsg struct {
	Purpose string
}

// TextInput is a one-line prompt. Purpose travels with the result so one
// input can serve several questions.
type TextInput struct {
	Value       string
	Placeholder string
	Purpose     string
	Focused     bool
	Width       int
	CursorPos   int
	Style       lipgloss.Style
	FocusStyle  lipgloss.Style
	Prompt      string
}

// NewTextInput creates a new text input
func NewTextInput(width int) TextInput {
	return TextInput{
		Width:  width,
		Prompt: "> ",
		Style: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		FocusStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1),
	}
}

// Ask focuses the input with a fresh prompt
func (s *TextInput) Ask(purpose, prompt, placeholder, value string) {
	s.Purpose = purpose
	s.Prompt = prompt
	s.Placeholder = placeholder
	s.SetValue(value)
	s.Focused = true
}

// Blur removes focus from the input
func (s *TextInput) Blur() {
	s.Focused = false
}

// SetValue sets the input value
func (s *TextInput) SetValue(value string) {
	s.Value = value
	s.CursorPos = len(value)
}

// Clear clears the input
func (s *TextInput) Clear() {
	s.Value = ""
	s.CursorPos = 0
}

// Update handles messages for the input
func (s TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	if !s.Focused {
		return s, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			s.Focused = false
			purpose, value := s.Purpose, s.Value
			return s, func() tea.Msg {
				return InputSubmittedMsg{Purpose: purpose, Value: value}
			}
		case tea.KeyEsc:
			s.Focused = false
			purpose := s.Purpose
			return s, func() tea.Msg {
				return InputCancelledMsg{Purpose: purpose}
			}
		case tea.KeyBackspace:
			if len(s.Value) > 0 && s.CursorPos > 0 {
				s.Value = s.Value[:s.CursorPos-1] + s.Value[s.CursorPos:]
				s.CursorPos--
			}
		case tea.KeyDelete:
			if s.CursorPos < len(s.Value) {
				s.Value = s.Value[:s.CursorPos] + s.Value[s.CursorPos+1:]
			}
		case tea.KeyLeft:
			if s.CursorPos > 0 {
				s.CursorPos--
			}
		case tea.KeyRight:
			if s.CursorPos < len(s.Value) {
				s.CursorPos++
			}
		case tea.KeyHome:
			s.CursorPos = 0
		case tea.KeyEnd:
			s.CursorPos = len(s.Value)
		case tea.KeySpace:
			s.insert(" ")
		case tea.KeyRunes:
			s.insert(string(msg.Runes))
		}
	}

	return s, nil
}

func (s *TextInput) insert(text string) {
	s.Value = s.Value[:s.CursorPos] + text + s.Value[s.CursorPos:]
	s.CursorPos += len(text)
}

// View renders the input
func (s TextInput) View() string {
	var content string

	switch {
	case s.Value == "" && s.Placeholder != "":
		hint := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(s.Placeholder)
		if s.Focused {
			hint = lipgloss.NewStyle().Background(lipgloss.Color("212")).Render(" ") + hint
		}
		content = s.Prompt + hint
	case s.Focused:
		before := s.Value[:s.CursorPos]
		after := s.Value[s.CursorPos:]
		cursor := lipgloss.NewStyle().Background(lipgloss.Color("212")).Render(" ")
		content = s.Prompt + before + cursor + after
	default:
		content = s.Prompt + s.Value
	}

	if s.Focused {
		return s.FocusStyle.Width(s.Width).Render(content)
	}
	return s.Style.Width(s.Width).Render(content)
}
