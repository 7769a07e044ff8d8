package timeline

import (
	"testing"
	"time"

	"github.com/jscyril/multitrack/api"
)

const sec = time.Second

func TestNewWindow(t *testing.T) {
	tests := []struct {
		name    string
		sel     *api.Selection
		dur     time.Duration
		want    Window
		playLen time.Duration
		ok      bool
	}{
		{"no selection", nil, 10 * sec, Window{Limit: 10 * sec}, 10 * sec, true},
		{"bounded", &api.Selection{Start: sec, End: 4 * sec}, 10 * sec, Window{Start: sec, End: 4 * sec, Bounded: true, Limit: 4 * sec}, 3 * sec, true},
		{"end before start collapses", &api.Selection{Start: 5 * sec, End: 2 * sec}, 10 * sec, Window{Start: 5 * sec, Limit: 10 * sec}, 5 * sec, true},
		{"end equal start collapses", &api.Selection{Start: 5 * sec, End: 5 * sec}, 10 * sec, Window{Start: 5 * sec, Limit: 10 * sec}, 5 * sec, true},
		{"end past asset", &api.Selection{Start: sec, End: 20 * sec}, 10 * sec, Window{Start: sec, End: 10 * sec, Bounded: true, Limit: 10 * sec}, 9 * sec, true},
		{"start past asset", &api.Selection{Start: 20 * sec}, 10 * sec, Window{Start: 10 * sec, Limit: 10 * sec}, 0, false},
		{"negative start", &api.Selection{Start: -sec, End: 2 * sec}, 10 * sec, Window{End: 2 * sec, Bounded: true, Limit: 2 * sec}, 2 * sec, true},
		{"zero-length asset", &api.Selection{Start: sec}, 0, Window{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow(tt.sel, tt.dur)
			if w != tt.want {
				t.Errorf("NewWindow() = %+v, want %+v", w, tt.want)
			}
			d, ok := w.Duration()
			if d != tt.playLen || ok != tt.ok {
				t.Errorf("Duration() = %v, %v; want %v, %v", d, ok, tt.playLen, tt.ok)
			}
		})
	}
}

func TestNormalizeKeepsInvariant(t *testing.T) {
	dur := 10 * sec
	for _, sel := range []api.Selection{
		{Start: -3 * sec, End: 50 * sec},
		{Start: 3 * sec, End: sec},
		{Start: 11 * sec, End: 12 * sec},
		{Start: 2 * sec, End: 9 * sec},
	} {
		n := Normalize(sel, dur)
		if n.Start < 0 || n.Start > dur {
			t.Errorf("Normalize(%+v) start %v out of [0,%v]", sel, n.Start, dur)
		}
		if n.Bounded() && (n.End <= n.Start || n.End > dur) {
			t.Errorf("Normalize(%+v) end %v out of (%v,%v]", sel, n.End, n.Start, dur)
		}
	}
}

func TestLoopBounds(t *testing.T) {
	w := NewWindow(&api.Selection{Start: sec, End: 4 * sec}, 10 * sec)
	if s, e, ok := LoopBounds(w, true); !ok || s != sec || e != 4*sec {
		t.Errorf("bounded loop = %v %v %v", s, e, ok)
	}
	if _, _, ok := LoopBounds(w, false); ok {
		t.Error("loop should be disabled when not looping")
	}

	open := NewWindow(&api.Selection{Start: 2 * sec}, 10 * sec)
	if s, e, ok := LoopBounds(open, true); !ok || s != 2*sec || e != 10*sec {
		t.Errorf("open loop = %v %v %v, want asset end", s, e, ok)
	}

	stuck := NewWindow(&api.Selection{Start: 10 * sec}, 10 * sec)
	if _, _, ok := LoopBounds(stuck, true); ok {
		t.Error("a loop that cannot advance must be disabled")
	}
}

func TestResume(t *testing.T) {
	w := NewWindow(&api.Selection{Start: sec, End: 4 * sec}, 10 * sec)

	tests := []struct {
		name    string
		looping bool
		elapsed time.Duration
		want    Cue
	}{
		{"from start", false, 0, Cue{Offset: sec, Duration: 3 * sec, OK: true}},
		{"resume after pause", false, 2 * sec, Cue{Offset: 3 * sec, Duration: sec, OK: true}},
		{"clamped to end", false, 5 * sec, Cue{Offset: 4 * sec}},
		{"loop keeps phase", true, 5 * sec, Cue{Offset: 3 * sec, OK: true}},
		{"loop exact multiple", true, 6 * sec, Cue{Offset: sec, OK: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resume(w, tt.looping, tt.elapsed); got != tt.want {
				t.Errorf("Resume() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAuditionStartsInsideWindow(t *testing.T) {
	w := NewWindow(&api.Selection{Start: 2 * sec, End: 6 * sec}, 10 * sec)

	if c := Audition(w, false, 3*sec); c.Offset != 3*sec || c.Duration != 3*sec {
		t.Errorf("Audition from playhead = %+v", c)
	}
	if c := Audition(w, false, 8*sec); c.Offset != 2*sec || c.Duration != 4*sec {
		t.Errorf("Audition outside window = %+v", c)
	}
	if c := Audition(Window{}, false, 0); c.OK {
		t.Error("empty window must not play")
	}
}

func TestClockWrapsIntoLoop(t *testing.T) {
	w := NewWindow(&api.Selection{Start: sec, End: 3 * sec}, 10 * sec)
	c := NewClock(5*sec, sec, w, true)

	for ms := 0; ms < 20000; ms += 137 {
		now := 5*sec + time.Duration(ms)*time.Millisecond
		p := c.Playhead(now)
		if p < sec || p >= 3*sec {
			t.Fatalf("Playhead(%v) = %v, outside loop [1s,3s)", now, p)
		}
	}
	if p := c.Playhead(8 * sec); p != 2*sec {
		t.Errorf("Playhead after 3s = %v, want 2s", p)
	}
	if p := c.Playhead(0); p != sec {
		t.Errorf("Playhead before start = %v, want offset", p)
	}
}

func TestClockSetLoopKeepsPosition(t *testing.T) {
	full := NewWindow(nil, 10*sec)
	c := NewClock(0, 0, full, false)

	narrow := NewWindow(&api.Selection{Start: sec, End: 8 * sec}, 10 * sec)
	c.SetLoop(5*sec, narrow, true)
	if p := c.Playhead(5 * sec); p != 5*sec {
		t.Errorf("Playhead right after SetLoop = %v, want 5s", p)
	}
	if p := c.Playhead(9 * sec); p != 2*sec {
		t.Errorf("Playhead after wrap = %v, want 2s", p)
	}

	short := NewWindow(&api.Selection{Start: sec, End: 2 * sec}, 10 * sec)
	c.SetLoop(9*sec, short, true)
	if p := c.Playhead(9 * sec); p != sec {
		t.Errorf("Playhead past new loop end = %v, want loop start", p)
	}
}
