package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/jscyril/multitrack/api"
)

// Clock reports the realtime audio clock
type Clock interface {
	Now() time.Duration
}

// FireFunc starts a track's player at audio clock time at, offset into the
// asset, for duration (zero: open ended).
type FireFunc func(at, offset, duration time.Duration) error

// Event is a pending start on the transport timeline.
type Event struct {
	Track    string
	At       time.Duration // transport position the start belongs to
	Offset   time.Duration
	Duration time.Duration
	Fire     FireFunc
}

// Transport is the master transport: a position that advances with the
// audio clock while started, and the start events of synced tracks.
// It is driven from the session loop only.
type Transport struct {
	clock     Clock
	state     api.TransportState
	base      time.Duration // position when last started or paused
	startedAt time.Duration // audio time of the last start
	pending   map[string]Event
	order     []string
}

// New creates a stopped transport at position 0
func New(clock Clock) *Transport {
	return &Transport{
		clock:   clock,
		state:   api.TransportStopped,
		pending: make(map[string]Event),
	}
}

// State returns the transport state
func (t *Transport) State() api.TransportState { return t.state }

// Started reports whether the transport is running
func (t *Transport) Started() bool { return t.state == api.TransportStarted }

// Position returns the current transport position
func (t *Transport) Position() time.Duration {
	if t.state == api.TransportStarted {
		return t.base + t.clock.Now() - t.startedAt
	}
	return t.base
}

// Snapshot returns the transport state and position
func (t *Transport) Snapshot() api.Transport {
	return api.Transport{State: t.state, Position: t.Position()}
}

// Schedule places ev on the timeline, replacing any pending event of the
// same track. On a running transport the event fires right away; it never
// fails because ev.At lies behind the current position.
func (t *Transport) Schedule(ev Event) error {
	t.Cancel(ev.Track)
	if t.state == api.TransportStarted {
		return t.fire(ev, t.clock.Now(), t.Position())
	}
	t.pending[ev.Track] = ev
	t.order = append(t.order, ev.Track)
	return nil
}

// Cancel removes the pending event of track
func (t *Transport) Cancel(track string) {
	if _, ok := t.pending[track]; !ok {
		return
	}
	delete(t.pending, track)
	for i, id := range t.order {
		if id == track {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Pending reports whether track has an unfired event
func (t *Transport) Pending(track string) bool {
	_, ok := t.pending[track]
	return ok
}

// Start runs the transport and fires every pending event in the order it
// was scheduled. Errors of individual events are joined.
func (t *Transport) Start() error {
	if t.state == api.TransportStarted {
		return nil
	}
	now := t.clock.Now()
	t.startedAt = now
	t.state = api.TransportStarted

	var errs []error
	for _, id := range t.order {
		if err := t.fire(t.pending[id], now, t.base); err != nil {
			errs = append(errs, err)
		}
	}
	t.pending = make(map[string]Event)
	t.order = nil
	return errors.Join(errs...)
}

// Pause freezes the position
func (t *Transport) Pause() {
	if t.state == api.TransportStarted {
		t.base = t.Position()
	}
	t.state = api.TransportPaused
}

// Stop halts the transport and returns to position 0
func (t *Transport) Stop() {
	t.state = api.TransportStopped
	t.base = 0
}

// Rewind returns to position 0 and leaves the transport stopped
func (t *Transport) Rewind() {
	t.Stop()
}

// Seek moves a halted transport to pos
func (t *Transport) Seek(pos time.Duration) error {
	if t.state == api.TransportStarted {
		return errors.New("seek on a running transport")
	}
	if pos < 0 {
		pos = 0
	}
	t.base = pos
	return nil
}

// fire starts ev relative to the audio time now at transport position pos.
// Future events are started ahead on the audio clock; late ones skip the
// part of the asset that is already behind the position.
func (t *Transport) fire(ev Event, now, pos time.Duration) error {
	at := now
	offset := ev.Offset
	duration := ev.Duration
	if ev.At >= pos {
		at = now + ev.At - pos
	} else {
		late := pos - ev.At
		offset += late
		if duration > 0 {
			duration -= late
			if duration <= 0 {
				return nil
			}
		}
	}
	if err := ev.Fire(at, offset, duration); err != nil {
		return fmt.Errorf("start track %s: %w", ev.Track, err)
	}
	return nil
}
