package events

import (
	"testing"

	"github.com/jscyril/multitrack/api"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewEventBus()
	errs := bus.Subscribe(api.EventError)
	all := bus.SubscribeAll()

	bus.Publish(api.AudioEvent{Type: api.EventError, Track: "t1"})
	bus.Publish(api.AudioEvent{Type: api.EventTrackChanged, Track: "t2"})

	if ev := <-errs; ev.Track != "t1" {
		t.Errorf("error subscriber got track %q, want t1", ev.Track)
	}
	select {
	case ev := <-errs:
		t.Errorf("error subscriber received unexpected %v", ev.Type)
	default:
	}

	got := []string{(<-all).Track, (<-all).Track}
	if got[0] != "t1" || got[1] != "t2" {
		t.Errorf("SubscribeAll got %v, want [t1 t2]", got)
	}
}

func TestPublishDoesNotBlockOnFullChannel(t *testing.T) {
	bus := NewEventBus()
	bus.Subscribe(api.EventTrackChanged)
	for i := 0; i < 100; i++ {
		bus.Publish(api.AudioEvent{Type: api.EventTrackChanged})
	}
}

func TestUnsubscribeAndClose(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe(api.EventError, api.EventTrackRemoved)
	bus.Unsubscribe(ch)
	bus.Publish(api.AudioEvent{Type: api.EventError})

	select {
	case <-ch:
		t.Error("unsubscribed channel still receives events")
	default:
	}

	all := bus.SubscribeAll()
	bus.Close()
	if _, ok := <-all; ok {
		t.Error("channel should be closed after Close")
	}
}

func TestSubscribeTrack(t *testing.T) {
	bus := NewEventBus()
	t1 := bus.SubscribeTrack("t1")
	t1Errors := bus.SubscribeTrack("t1", api.EventError)

	bus.Publish(api.AudioEvent{Type: api.EventTrackChanged, Track: "t2"})
	bus.Publish(api.AudioEvent{Type: api.EventTrackChanged, Track: "t1"})
	bus.Publish(api.AudioEvent{Type: api.EventError, Track: "t1"})

	if ev := <-t1; ev.Type != api.EventTrackChanged {
		t.Errorf("first t1 event = %v", ev.Type)
	}
	if ev := <-t1; ev.Type != api.EventError {
		t.Errorf("second t1 event = %v", ev.Type)
	}
	if ev := <-t1Errors; ev.Type != api.EventError {
		t.Errorf("filtered event = %v", ev.Type)
	}
	select {
	case ev := <-t1Errors:
		t.Errorf("unexpected event %v", ev.Type)
	default:
	}
}

func TestDroppedAndCloseTwice(t *testing.T) {
	bus := NewEventBus()
	bus.Subscribe(api.EventTrackChanged)
	for i := 0; i < 20; i++ {
		bus.Publish(api.AudioEvent{Type: api.EventTrackChanged})
	}
	if got := bus.Dropped(); got != 4 {
		t.Errorf("Dropped() = %d, want 4", got)
	}

	bus.Close()
	bus.Close()
	if _, ok := <-bus.SubscribeAll(); ok {
		t.Error("subscription after Close should be closed")
	}
	bus.Publish(api.AudioEvent{Type: api.EventError})
}
