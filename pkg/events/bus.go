// Package events fans session events out to subscribers over channels.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/jscyril/multitrack/api"
)

type subscriber struct {
	ch    chan api.AudioEvent
	types map[api.EventType]bool // nil: every type
	track string                 // empty: every track
}

func (s *subscriber) wants(ev api.AudioEvent) bool {
	if s.types != nil && !s.types[ev.Type] {
		return false
	}
	return s.track == "" || s.track == ev.Track
}

// EventBus handles event distribution using channels. Publishing never
// blocks: an event for a subscriber whose buffer is full is dropped and
// counted.
type EventBus struct {
	mu      sync.RWMutex
	subs    []*subscriber
	closed  bool
	dropped atomic.Uint64
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) add(s *subscriber) <-chan api.AudioEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s.ch
	}
	b.subs = append(b.subs, s)
	return s.ch
}

// Subscribe returns a channel for receiving events of the specified types
func (b *EventBus) Subscribe(eventTypes ...api.EventType) <-chan api.AudioEvent {
	types := make(map[api.EventType]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	return b.add(&subscriber{ch: make(chan api.AudioEvent, 16), types: types})
}

// SubscribeAll returns a channel for receiving all event types
func (b *EventBus) SubscribeAll() <-chan api.AudioEvent {
	return b.add(&subscriber{ch: make(chan api.AudioEvent, 64)})
}

// SubscribeTrack returns a channel for the events of one track. With no
// types it receives every type.
func (b *EventBus) SubscribeTrack(trackID string, eventTypes ...api.EventType) <-chan api.AudioEvent {
	s := &subscriber{ch: make(chan api.AudioEvent, 16), track: trackID}
	if len(eventTypes) > 0 {
		s.types = make(map[api.EventType]bool, len(eventTypes))
		for _, t := range eventTypes {
			s.types[t] = true
		}
	}
	return b.add(s)
}

// Publish broadcasts an event to every interested subscriber
func (b *EventBus) Publish(event api.AudioEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs {
		if !s.wants(event) {
			continue
		}
		select {
		case s.ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber
// was not keeping up
func (b *EventBus) Dropped() uint64 {
	return b.dropped.Load()
}

// Unsubscribe removes a subscriber channel. The channel is left open.
func (b *EventBus) Unsubscribe(ch <-chan api.AudioEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.ch == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Close closes every subscriber channel. Later subscriptions get a closed
// channel and later publishes go nowhere.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
}
