package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/config"
	"github.com/jscyril/multitrack/internal/render"
	"github.com/jscyril/multitrack/internal/ui/components"
	"github.com/jscyril/multitrack/internal/ui/views"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
	"github.com/jscyril/multitrack/pkg/events"
)

type fakeWorkstation struct {
	tracks    []api.Track
	transport api.Transport
	calls     []string
	selection *api.Selection
	exported  string
	err       error
}

func (f *fakeWorkstation) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeWorkstation) Tracks() ([]api.Track, error)      { return f.tracks, nil }
func (f *fakeWorkstation) Transport() (api.Transport, error) { return f.transport, nil }
func (f *fakeWorkstation) Recording() api.RecordingStatus    { return api.RecordingStatus{} }
func (f *fakeWorkstation) Bus() *events.EventBus             { return nil }

func (f *fakeWorkstation) AddTrack(name string) (api.Track, error) {
	return api.Track{}, f.record("add")
}
func (f *fakeWorkstation) RemoveTrack(id string) error { return f.record("remove " + id) }
func (f *fakeWorkstation) ImportFile(ctx context.Context, id, path string) error {
	return f.record("import " + id + " " + path)
}
func (f *fakeWorkstation) SetSelection(id string, sel *api.Selection) error {
	f.selection = sel
	return f.record("select " + id)
}
func (f *fakeWorkstation) ToggleLoop(id string) error { return f.record("loop " + id) }
func (f *fakeWorkstation) Trim(ctx context.Context, id string, start, end time.Duration) error {
	return f.record("trim " + id + " " + start.String() + " " + end.String())
}
func (f *fakeWorkstation) SetVolume(id string, db float64) error { return f.record("volume " + id) }
func (f *fakeWorkstation) SetPan(id string, pan float64) error   { return f.record("pan " + id) }
func (f *fakeWorkstation) SetMute(id string, mute bool) error {
	if mute {
		return f.record("mute " + id)
	}
	return f.record("unmute " + id)
}
func (f *fakeWorkstation) SetSolo(id string, solo bool) error { return f.record("solo " + id) }
func (f *fakeWorkstation) Play() error                        { return f.record("play") }
func (f *fakeWorkstation) Pause() error                       { return f.record("pause") }
func (f *fakeWorkstation) Stop() error                        { return f.record("stop") }
func (f *fakeWorkstation) Rewind() error                      { return f.record("rewind") }
func (f *fakeWorkstation) Seek(pos time.Duration) error       { return f.record("seek " + pos.String()) }
func (f *fakeWorkstation) ToggleTrack(id string) error        { return f.record("toggle " + id) }
func (f *fakeWorkstation) StopTrack(id string) error          { return f.record("stop " + id) }
func (f *fakeWorkstation) ApplyPreset(ctx context.Context, id, name string) error {
	return f.record("preset " + id + " " + name)
}
func (f *fakeWorkstation) StartRecording(mode api.RecordingMode, trackID string) error {
	return f.record("record " + trackID)
}
func (f *fakeWorkstation) StopRecording(ctx context.Context) (api.Track, error) {
	return api.Track{}, f.record("stop recording")
}
func (f *fakeWorkstation) ExportFile(ctx context.Context, path string) (*render.Mixdown, error) {
	f.exported = path
	return &render.Mixdown{SampleRate: 1000, Tracks: []string{"t1"}}, f.record("export")
}

func newTestModel(ws *fakeWorkstation) Model {
	return NewModel(ws, Options{
		Presets:   []string{"telephone", "wide"},
		ExportDir: "/exports",
		Keys:      config.GetDefaultConfig().KeyBindings,
	})
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds a key and then every message its command chain produces
func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, cmd := m.Update(key(k))
		m = next.(Model)
		for cmd != nil {
			msg := cmd()
			if msg == nil {
				break
			}
			next, cmd = m.Update(msg)
			m = next.(Model)
		}
	}
	return m
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		in      string
		want    *api.Selection
		wantErr bool
	}{
		{"", nil, false},
		{"1.5-4", &api.Selection{Start: 1500 * time.Millisecond, End: 4 * time.Second}, false},
		{"2-", &api.Selection{Start: 2 * time.Second}, false},
		{" 3 ", &api.Selection{Start: 3 * time.Second}, false},
		{"4-2", nil, true},
		{"x-2", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelection(tt.in)
			if tt.wantErr {
				if !errors.Is(err, playerrors.ErrInvalidRange) {
					t.Fatalf("ParseSelection(%q) error = %v, want ErrInvalidRange", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSelection(%q) error = %v", tt.in, err)
			}
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("ParseSelection(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got != nil {
				again, err := ParseSelection(FormatSelection(got))
				if err != nil || *again != *got {
					t.Errorf("round trip of %+v = %+v, %v", got, again, err)
				}
			}
		})
	}
}

func TestTrackKeys(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"m", "mute t1"},
		{"S", "solo t1"},
		{"l", "loop t1"},
		{"enter", "toggle t1"},
		{"x", "remove t1"},
		{"+", "volume t1"},
		{"[", "pan t1"},
		{"R", "record t1"},
		{"a", "add"},
		{" ", "play"},
		{"s", "stop"},
		{"0", "rewind"},
		{"right", "seek 5s"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			ws := &fakeWorkstation{tracks: []api.Track{{ID: "t1", Name: "Track 1"}}}
			press(t, newTestModel(ws), tt.key)
			if len(ws.calls) != 1 || ws.calls[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", ws.calls, tt.want)
			}
		})
	}
}

func TestPlayPauseFollowsTransport(t *testing.T) {
	ws := &fakeWorkstation{transport: api.Transport{State: api.TransportStarted}}
	press(t, newTestModel(ws), " ")
	if len(ws.calls) != 1 || ws.calls[0] != "pause" {
		t.Errorf("calls = %v, want [pause]", ws.calls)
	}
}

func TestSelectionPrompt(t *testing.T) {
	ws := &fakeWorkstation{tracks: []api.Track{{ID: "t1", Name: "Track 1", HasAsset: true, Duration: 10 * time.Second}}}
	m := press(t, newTestModel(ws), "v")
	if !m.tracksView.Capturing() {
		t.Fatal("prompt not opened")
	}
	m = press(t, m, "1", "-", "3", "enter")
	if m.tracksView.Capturing() {
		t.Error("prompt still open after enter")
	}
	if ws.selection == nil || ws.selection.Start != time.Second || ws.selection.End != 3*time.Second {
		t.Errorf("selection = %+v", ws.selection)
	}
}

func TestTrimUsesSelection(t *testing.T) {
	ws := &fakeWorkstation{tracks: []api.Track{{
		ID: "t1", HasAsset: true, Duration: 10 * time.Second,
		Selection: &api.Selection{Start: 2 * time.Second},
	}}}
	press(t, newTestModel(ws), "t")
	if len(ws.calls) != 1 || ws.calls[0] != "trim t1 2s 10s" {
		t.Errorf("calls = %v", ws.calls)
	}
}

func TestExportPrompt(t *testing.T) {
	ws := &fakeWorkstation{}
	m := press(t, newTestModel(ws), "e")
	m.tracksView.Input.SetValue("")
	m = press(t, m, "f", "i", "n", "a", "l", "enter")
	if ws.exported != "/exports/final.wav" {
		t.Errorf("exported to %q", ws.exported)
	}
	if !strings.Contains(m.transportView.Status, "exported 1 tracks") {
		t.Errorf("status = %q", m.transportView.Status)
	}
}

func TestFailureIsShown(t *testing.T) {
	ws := &fakeWorkstation{tracks: []api.Track{{ID: "t1"}}, err: playerrors.ErrNoAsset}
	m := press(t, newTestModel(ws), "enter")
	if !errors.Is(m.transportView.Err, playerrors.ErrNoAsset) {
		t.Errorf("Err = %v, want ErrNoAsset", m.transportView.Err)
	}
}

func TestPresetChosen(t *testing.T) {
	ws := &fakeWorkstation{tracks: []api.Track{{ID: "t1"}}}
	m := press(t, newTestModel(ws), "p")
	if m.activeView != ViewEffects {
		t.Fatalf("activeView = %v, want effects", m.activeView)
	}
	press(t, m, "enter")
	if len(ws.calls) != 1 || ws.calls[0] != "preset t1 telephone" {
		t.Errorf("calls = %v", ws.calls)
	}
}

func TestImportChosenFile(t *testing.T) {
	ws := &fakeWorkstation{tracks: []api.Track{{ID: "t1"}}}
	m := newTestModel(ws)
	next, cmd := m.Update(views.FileChosenMsg{TrackID: "t1", Path: "/a/kick.wav"})
	m = next.(Model)
	next, _ = m.Update(cmd())
	m = next.(Model)
	if len(ws.calls) != 1 || ws.calls[0] != "import t1 /a/kick.wav" {
		t.Errorf("calls = %v", ws.calls)
	}
	if m.transportView.Status != "imported kick.wav" {
		t.Errorf("status = %q", m.transportView.Status)
	}
}

func TestInputCancel(t *testing.T) {
	in := components.NewTextInput(20)
	in.Ask("x", "> ", "", "abc")
	in, cmd := in.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if in.Focused {
		t.Error("input still focused")
	}
	if msg, ok := cmd().(components.InputCancelledMsg); !ok || msg.Purpose != "x" {
		t.Errorf("cmd() = %#v", cmd())
	}
}
