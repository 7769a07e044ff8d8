package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/config"
	"github.com/jscyril/multitrack/internal/render"
	"github.com/jscyril/multitrack/internal/ui/components"
	"github.com/jscyril/multitrack/internal/ui/views"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
	"github.com/jscyril/multitrack/pkg/events"
)

// Workstation is the session surface the UI drives
type Workstation interface {
	Tracks() ([]api.Track, error)
	Transport() (api.Transport, error)
	Recording() api.RecordingStatus
	Bus() *events.EventBus

	AddTrack(name string) (api.Track, error)
	RemoveTrack(id string) error
	ImportFile(ctx context.Context, id, path string) error
	SetSelection(id string, sel *api.Selection) error
	ToggleLoop(id string) error
	Trim(ctx context.Context, id string, start, end time.Duration) error
	SetVolume(id string, db float64) error
	SetPan(id string, pan float64) error
	SetMute(id string, mute bool) error
	SetSolo(id string, solo bool) error

	Play() error
	Pause() error
	Stop() error
	Rewind() error
	Seek(pos time.Duration) error
	ToggleTrack(id string) error
	StopTrack(id string) error

	ApplyPreset(ctx context.Context, id, name string) error
	StartRecording(mode api.RecordingMode, trackID string) error
	StopRecording(ctx context.Context) (api.Track, error)
	ExportFile(ctx context.Context, path string) (*render.Mixdown, error)
}

// Options configures the UI
type Options struct {
	Presets   []string
	ExportDir string
	Keys      config.KeyMap
	// Save persists the current session as a project; nil disables saving
	Save func(ctx context.Context) error
}

// ViewType represents the current active view
type ViewType int

const (
	ViewTracks ViewType = iota
	ViewEffects
)

// Prompt purposes
const (
	promptSelection = "selection"
	promptExport    = "export"
	promptName      = "name"
)

const (
	volumeStep = 1.0
	panStep    = 0.1
	seekStep   = 5 * time.Second
)

// Model is the main bubbletea model
type Model struct {
	// Dimensions
	width  int
	height int

	activeView ViewType

	// Views
	transportView views.TransportView
	tracksView    views.TracksView
	effectsView   views.EffectsView

	ws     Workstation
	opts   Options
	events <-chan api.AudioEvent

	ctx    context.Context
	cancel context.CancelFunc

	// Styles
	tabStyle       lipgloss.Style
	activeTabStyle lipgloss.Style
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// EventMsg carries an event from the session bus
type EventMsg api.AudioEvent

// ResultMsg reports the outcome of an operation that ran off the UI loop
type ResultMsg struct {
	Op     string
	Status string
	Err    error
}

// NewModel creates a new application model
func NewModel(ws Workstation, opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		width:      80,
		height:     24,
		activeView: ViewTracks,
		ws:         ws,
		opts:       opts,
		ctx:        ctx,
		cancel:     cancel,
		tabStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(lipgloss.Color("240")),
		activeTabStyle: lipgloss.NewStyle().
			Padding(0, 2).
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236")),
	}
	if bus := ws.Bus(); bus != nil {
		m.events = bus.SubscribeAll()
	}

	m.transportView = views.NewTransportView(m.width)
	m.tracksView = views.NewTracksView(m.width, m.height-8)
	m.tracksView.Help = helpLine(opts.Keys)
	m.effectsView = views.NewEffectsView(m.width, m.height-8, opts.Presets)
	m.refresh()

	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.listenForEvents(),
	)
}

// tickCmd returns a command that ticks every 200ms
func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// listenForEvents waits for the next session event
func (m Model) listenForEvents() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case event, ok := <-m.events:
			if !ok {
				return nil
			}
			return EventMsg(event)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// refresh pulls fresh snapshots from the session
func (m *Model) refresh() {
	tracks, err := m.ws.Tracks()
	if err != nil {
		m.transportView.SetStatus("", err)
		return
	}
	m.tracksView.SetTracks(tracks)
	m.effectsView.SetTrack(m.tracksView.SelectedTrack())

	if state, err := m.ws.Transport(); err == nil {
		m.transportView.SetState(state, m.ws.Recording())
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewSizes()

	case TickMsg:
		m.refresh()
		cmds = append(cmds, tickCmd())

	case EventMsg:
		if msg.Type == api.EventError {
			if err, ok := msg.Payload.(error); ok {
				m.transportView.SetStatus("", err)
			}
		}
		m.refresh()
		cmds = append(cmds, m.listenForEvents())

	case ResultMsg:
		m.transportView.SetStatus(msg.Status, msg.Err)
		m.refresh()

	case views.FileChosenMsg:
		return m, m.async("import", func(ctx context.Context) (string, error) {
			if err := m.ws.ImportFile(ctx, msg.TrackID, msg.Path); err != nil {
				return "", err
			}
			return "imported " + filepath.Base(msg.Path), nil
		})

	case views.PresetChosenMsg:
		return m, m.async("preset", func(ctx context.Context) (string, error) {
			if err := m.ws.ApplyPreset(ctx, msg.TrackID, msg.Preset); err != nil {
				return "", err
			}
			return "applied preset " + msg.Preset, nil
		})

	case components.InputSubmittedMsg:
		return m, m.submit(msg)

	case components.InputCancelledMsg:
		m.transportView.SetStatus("", nil)

	case tea.KeyMsg:
		if m.activeView == ViewTracks && m.tracksView.Capturing() {
			if msg.String() == "ctrl+c" {
				m.cancel()
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.tracksView, cmd = m.tracksView.Update(msg)
			return m, cmd
		}
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

// handleKey dispatches a key press outside of prompts and browsing
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.opts.Keys
	sel := m.tracksView.SelectedTrack()

	switch msg.String() {
	case keys.Quit, "ctrl+c":
		m.cancel()
		return m, tea.Quit

	case "1":
		m.activeView = ViewTracks
		return m, nil
	case "2":
		m.activeView = ViewEffects
		return m, nil
	case "tab":
		m.activeView = (m.activeView + 1) % 2
		return m, nil

	case keys.PlayPause:
		m.do("play", func() error {
			state, err := m.ws.Transport()
			if err != nil {
				return err
			}
			if state.State == api.TransportStarted {
				return m.ws.Pause()
			}
			return m.ws.Play()
		})
	case keys.Stop:
		m.do("stop", m.ws.Stop)
	case keys.Rewind:
		m.do("rewind", m.ws.Rewind)
	case keys.SeekBack, keys.SeekForward:
		step := seekStep
		if msg.String() == keys.SeekBack {
			step = -seekStep
		}
		m.do("seek", func() error {
			state, err := m.ws.Transport()
			if err != nil {
				return err
			}
			return m.ws.Seek(max(0, state.Position+step))
		})

	case keys.AddTrack:
		m.do("add track", func() error {
			_, err := m.ws.AddTrack("")
			return err
		})
	case keys.Record:
		return m, m.toggleRecording(api.RecordMix, "")
	case keys.Export:
		if m.activeView == ViewTracks {
			m.tracksView.Ask(promptExport, "Export to: ", "", defaultExportName(time.Now()))
		}
	case keys.Save:
		if m.opts.Save == nil {
			return m, nil
		}
		return m, m.async("save", func(ctx context.Context) (string, error) {
			if err := m.opts.Save(ctx); err != nil {
				return "", err
			}
			return "project saved", nil
		})

	default:
		if sel != nil {
			if handled, cmd := m.handleTrackKey(msg.String(), *sel); handled {
				m.refresh()
				return m, cmd
			}
		}
		var cmd tea.Cmd
		switch m.activeView {
		case ViewTracks:
			m.tracksView, cmd = m.tracksView.Update(msg)
			m.effectsView.SetTrack(m.tracksView.SelectedTrack())
		case ViewEffects:
			m.effectsView, cmd = m.effectsView.Update(msg)
		}
		return m, cmd
	}

	m.refresh()
	return m, nil
}

// handleTrackKey runs the bindings that act on the selected track
func (m *Model) handleTrackKey(key string, t api.Track) (bool, tea.Cmd) {
	keys := m.opts.Keys

	switch key {
	case keys.ToggleTrack:
		if m.activeView != ViewTracks {
			return false, nil
		}
		m.do("toggle track", func() error { return m.ws.ToggleTrack(t.ID) })
	case keys.StopTrack:
		m.do("stop track", func() error { return m.ws.StopTrack(t.ID) })
	case keys.Loop:
		m.do("loop", func() error { return m.ws.ToggleLoop(t.ID) })
	case keys.Mute:
		m.do("mute", func() error { return m.ws.SetMute(t.ID, !t.Mute) })
	case keys.Solo:
		m.do("solo", func() error { return m.ws.SetSolo(t.ID, !t.Solo) })
	case keys.VolumeUp, "=":
		m.do("volume", func() error { return m.ws.SetVolume(t.ID, t.VolumeDB+volumeStep) })
	case keys.VolumeDown:
		m.do("volume", func() error { return m.ws.SetVolume(t.ID, t.VolumeDB-volumeStep) })
	case keys.PanLeft:
		m.do("pan", func() error { return m.ws.SetPan(t.ID, t.Pan-panStep) })
	case keys.PanRight:
		m.do("pan", func() error { return m.ws.SetPan(t.ID, t.Pan+panStep) })
	case keys.RemoveTrack:
		m.do("remove track", func() error { return m.ws.RemoveTrack(t.ID) })
	case keys.Import:
		m.activeView = ViewTracks
		m.tracksView.Browse(t)
	case keys.Select:
		m.activeView = ViewTracks
		m.tracksView.Ask(promptSelection+":"+t.ID, "Selection (s-e): ", "empty clears", FormatSelection(t.Selection))
	case keys.Trim:
		return true, m.trim(t)
	case keys.Preset:
		m.activeView = ViewEffects
	case keys.RecordTrack:
		return true, m.toggleRecording(api.RecordTrack, t.ID)
	default:
		return false, nil
	}
	return true, nil
}

// do runs a quick session operation and shows its outcome
func (m *Model) do(op string, fn func() error) {
	if err := fn(); err != nil {
		m.transportView.SetStatus("", fmt.Errorf("%s: %w", op, err))
		return
	}
	m.transportView.SetStatus("", nil)
}

// async runs a slow operation off the UI loop
func (m Model) async(op string, fn func(ctx context.Context) (string, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		status, err := fn(ctx)
		if err != nil {
			err = fmt.Errorf("%s: %w", op, err)
		}
		return ResultMsg{Op: op, Status: status, Err: err}
	}
}

func (m Model) toggleRecording(mode api.RecordingMode, trackID string) tea.Cmd {
	if m.ws.Recording().Active {
		return m.async("record", func(ctx context.Context) (string, error) {
			t, err := m.ws.StopRecording(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("recorded %s into %s", components.FormatDuration(t.Duration), t.Name), nil
		})
	}
	return m.async("record", func(ctx context.Context) (string, error) {
		if err := m.ws.StartRecording(mode, trackID); err != nil {
			return "", err
		}
		return "recording", nil
	})
}

func (m Model) trim(t api.Track) tea.Cmd {
	return m.async("trim", func(ctx context.Context) (string, error) {
		if t.Selection == nil {
			return "", playerrors.ErrInvalidRange
		}
		end := t.Selection.End
		if !t.Selection.Bounded() {
			end = t.Duration
		}
		if err := m.ws.Trim(ctx, t.ID, t.Selection.Start, end); err != nil {
			return "", err
		}
		return "trimmed " + t.Name, nil
	})
}

// submit acts on a confirmed prompt
func (m *Model) submit(msg components.InputSubmittedMsg) tea.Cmd {
	purpose, arg, _ := strings.Cut(msg.Purpose, ":")

	switch purpose {
	case promptSelection:
		m.do("selection", func() error {
			sel, err := ParseSelection(msg.Value)
			if err != nil {
				return err
			}
			return m.ws.SetSelection(arg, sel)
		})
		m.refresh()
	case promptExport:
		name := strings.TrimSpace(msg.Value)
		if name == "" {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(name), ".wav") {
			name += ".wav"
		}
		path := name
		if !filepath.IsAbs(path) && m.opts.ExportDir != "" {
			path = filepath.Join(m.opts.ExportDir, name)
		}
		return m.async("export", func(ctx context.Context) (string, error) {
			mix, err := m.ws.ExportFile(ctx, path)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("exported %d tracks (%s) to %s",
				len(mix.Tracks), components.FormatDuration(mix.Duration()), path), nil
		})
	}
	return nil
}

// ParseSelection reads a selection typed as "start-end" in seconds. An
// empty string clears the selection and a missing end plays to the end.
func ParseSelection(s string) (*api.Selection, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	startText, endText, _ := strings.Cut(s, "-")

	start, err := parseSeconds(startText)
	if err != nil {
		return nil, err
	}
	sel := &api.Selection{Start: start}
	if strings.TrimSpace(endText) != "" {
		end, err := parseSeconds(endText)
		if err != nil {
			return nil, err
		}
		if end <= start {
			return nil, fmt.Errorf("%w: end %s is not after start %s", playerrors.ErrInvalidRange, end, start)
		}
		sel.End = end
	}
	return sel, nil
}

func parseSeconds(s string) (time.Duration, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q", playerrors.ErrInvalidRange, s)
	}
	return time.Duration(v * float64(time.Second)), nil
}

// FormatSelection renders a selection the way ParseSelection reads it
func FormatSelection(sel *api.Selection) string {
	if sel == nil {
		return ""
	}
	out := strconv.FormatFloat(sel.Start.Seconds(), 'f', -1, 64) + "-"
	if sel.Bounded() {
		out += strconv.FormatFloat(sel.End.Seconds(), 'f', -1, 64)
	}
	return out
}

func defaultExportName(now time.Time) string {
	return "mix-" + now.Format("20060102-150405") + ".wav"
}

func helpLine(k config.KeyMap) string {
	key := func(s string) string {
		if s == " " {
			return "Space"
		}
		return s
	}
	return fmt.Sprintf("[%s] Play/Pause  [%s] Track  [%s] Add  [%s] Import  [%s] Select  [%s] Loop  [%s/%s] Mute/Solo  [%s] Rec  [%s] Export  [%s] Quit",
		key(k.PlayPause), k.ToggleTrack, k.AddTrack, k.Import, k.Select, k.Loop, k.Mute, k.Solo, k.Record, k.Export, k.Quit)
}

// updateViewSizes updates view dimensions
func (m *Model) updateViewSizes() {
	m.transportView.Width = m.width
	m.tracksView.Width = m.width
	m.tracksView.Height = m.height - 8
	m.tracksView.TrackList.Width = m.width - 6
	m.tracksView.TrackList.Height = m.height - 14
	m.tracksView.TrackList.Bar = components.NewProgressBar(m.width - 10)
	m.effectsView.Width = m.width
	m.effectsView.Height = m.height - 8
}

// View renders the UI
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(m.renderTabs())
	sb.WriteString("\n")
	sb.WriteString(m.transportView.View())
	sb.WriteString("\n")

	switch m.activeView {
	case ViewTracks:
		sb.WriteString(m.tracksView.View())
	case ViewEffects:
		sb.WriteString(m.effectsView.View())
	}

	return sb.String()
}

// renderTabs renders the tab bar
func (m Model) renderTabs() string {
	tabs := []string{"[1] Tracks", "[2] Effects"}

	var rendered []string
	for i, tab := range tabs {
		if ViewType(i) == m.activeView {
			rendered = append(rendered, m.activeTabStyle.Render(tab))
		} else {
			rendered = append(rendered, m.tabStyle.Render(tab))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// Close stops the event listener
func (m Model) Close() {
	m.cancel()
	if bus := m.ws.Bus(); bus != nil && m.events != nil {
		bus.Unsubscribe(m.events)
	}
}

// Run starts the bubbletea program
func Run(ws Workstation, opts Options) error {
	model := NewModel(ws, opts)
	defer model.Close()
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
