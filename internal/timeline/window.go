// Package timeline holds the pure time arithmetic shared by the sync
// controller, the players and the offline renderer: selection clamping,
// loop policy, resume offsets and playhead projection.
package timeline

import (
	"time"

	"github.com/jscyril/multitrack/api"
)

// Window is the playable range derived from a selection and an asset
// duration. Limit is where playback stops: the selection end when the
// window is bounded, otherwise the end of the asset.
type Window struct {
	Start   time.Duration
	End     time.Duration
	Bounded bool
	Limit   time.Duration
}

// Duration returns the playable length. ok is false for windows that
// cannot play anything, such as those of zero-length assets.
func (w Window) Duration() (d time.Duration, ok bool) {
	if w.Limit <= w.Start {
		return 0, false
	}
	return w.Limit - w.Start, true
}

// Clamp confines pos to [Start, Limit].
func (w Window) Clamp(pos time.Duration) time.Duration {
	if pos < w.Start {
		return w.Start
	}
	if pos > w.Limit {
		return w.Limit
	}
	return pos
}

// Contains reports whether pos lies in [Start, Limit).
func (w Window) Contains(pos time.Duration) bool {
	return pos >= w.Start && pos < w.Limit
}

// NewWindow clamps sel to an asset of the given duration. A nil selection
// plays the whole asset.
func NewWindow(sel *api.Selection, assetDuration time.Duration) Window {
	if assetDuration <= 0 {
		return Window{}
	}
	if sel == nil {
		return Window{Limit: assetDuration}
	}
	norm := Normalize(*sel, assetDuration)
	w := Window{Start: norm.Start, Limit: assetDuration}
	if norm.Bounded() {
		w.End = norm.End
		w.Bounded = true
		w.Limit = norm.End
	}
	return w
}

// Normalize clamps a selection so that 0 <= Start <= End <= assetDuration.
// An end at or before the start collapses to "play to end".
func Normalize(sel api.Selection, assetDuration time.Duration) api.Selection {
	if assetDuration < 0 {
		assetDuration = 0
	}
	start := clamp(sel.Start, 0, assetDuration)
	end := sel.End
	if end > assetDuration {
		end = assetDuration
	}
	if end <= start {
		end = 0
	}
	return api.Selection{Start: start, End: end}
}

// LoopBounds applies the looping policy: the loop runs from the window
// start to the selection end, or to the end of the asset when the
// selection is open. ok is false when looping is off or the loop would not
// advance.
func LoopBounds(w Window, looping bool) (start, end time.Duration, ok bool) {
	if !looping || w.Limit <= w.Start {
		return 0, 0, false
	}
	return w.Start, w.Limit, true
}

// Cue describes how a player should be started.
type Cue struct {
	Offset   time.Duration
	Duration time.Duration // zero plays until stopped (looping)
	OK       bool          // false when nothing remains to play
}

// Resume computes where playback of a window stands after elapsed time on
// the transport. Looping windows wrap into the loop so the phase is kept;
// others are clamped to the window limit.
func Resume(w Window, looping bool, elapsed time.Duration) Cue {
	if elapsed < 0 {
		elapsed = 0
	}
	if _, ok := w.Duration(); !ok {
		return Cue{Offset: w.Start}
	}
	if start, end, ok := LoopBounds(w, looping); ok {
		return Cue{Offset: start + elapsed%(end-start), OK: true}
	}
	offset := w.Start + elapsed
	if offset >= w.Limit {
		return Cue{Offset: w.Limit}
	}
	return Cue{Offset: offset, Duration: w.Limit - offset, OK: true}
}

// Audition computes the cue for standalone playback starting at the
// playhead, falling back to the window start when the playhead sits
// outside the window.
func Audition(w Window, looping bool, playhead time.Duration) Cue {
	if _, ok := w.Duration(); !ok {
		return Cue{Offset: w.Start}
	}
	if !w.Contains(playhead) {
		playhead = w.Start
	}
	if _, _, ok := LoopBounds(w, looping); ok {
		return Cue{Offset: playhead, OK: true}
	}
	return Cue{Offset: playhead, Duration: w.Limit - playhead, OK: true}
}

func clamp(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
