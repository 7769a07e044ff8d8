// Package session is the workstation core: one explicit context object that
// owns the tracks, the master transport, the effect registry and the shared
// recorder, and serializes every mutation through a single command loop.
//
// Long-running work (decoding, effect preparation, offline rendering) runs
// outside the loop. Its results come back through the loop and are dropped
// when the track changed in the meantime.
package session

import (
	"context"
	"log/slog"
	"os"

	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/audio"
	"github.com/jscyril/multitrack/internal/effects"
	"github.com/jscyril/multitrack/internal/recording"
	"github.com/jscyril/multitrack/internal/render"
	"github.com/jscyril/multitrack/internal/track"
	"github.com/jscyril/multitrack/internal/transport"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
	"github.com/jscyril/multitrack/pkg/events"
)

// Options configures a session. Only Engine is required.
type Options struct {
	Engine        *audio.Engine
	Devices       audio.DeviceFactory // defaults to Engine
	Store         *audio.Store
	Effects       effects.Factory
	Presets       *effects.Presets
	Input         recording.Input
	PoolSize      int
	RecordingsDir string
	Logger        *slog.Logger
	Bus           *events.EventBus
}

type command struct {
	fn    func() error
	reply chan error
}

// Session is the explicit context shared by every controller
type Session struct {
	engine        *audio.Engine
	devices       audio.DeviceFactory
	store         *audio.Store
	factory       effects.Factory
	presets       *effects.Presets
	input         recording.Input
	poolSize      int
	recordingsDir string
	logger        *slog.Logger
	bus           *events.EventBus

	registry  *effects.Registry
	transport *transport.Transport
	recorder  *recording.Recorder
	renderer  *render.Renderer

	// owned by the loop
	tracks   map[string]*track.Track
	order    []string
	byDevice map[uint64]*track.Track
	nextName int
	lostSeen uint64

	commands chan command
	done     chan struct{}
}

// New creates a session. Call Start before using it.
func New(opts Options) *Session {
	sr := opts.Engine.SampleRate()
	s := &Session{
		engine:        opts.Engine,
		devices:       opts.Devices,
		store:         opts.Store,
		factory:       opts.Effects,
		presets:       opts.Presets,
		input:         opts.Input,
		poolSize:      opts.PoolSize,
		recordingsDir: opts.RecordingsDir,
		logger:        opts.Logger,
		bus:           opts.Bus,
		registry:      effects.NewRegistry(),
		recorder:      recording.NewRecorder(sr),
		tracks:        make(map[string]*track.Track),
		byDevice:      make(map[uint64]*track.Track),
		commands:      make(chan command),
		done:          make(chan struct{}),
	}
	if s.devices == nil {
		s.devices = opts.Engine
	}
	if s.store == nil {
		s.store = audio.NewStore(audio.NewDecoder(sr))
	}
	if s.factory == nil {
		s.factory = effects.NewFactory(sr)
	}
	if s.presets == nil {
		s.presets = effects.DefaultPresets()
	}
	if s.input == nil {
		s.input = recording.NoInput{}
	}
	if s.poolSize < 1 {
		s.poolSize = track.DefaultPoolSize
	}
	if s.recordingsDir == "" {
		s.recordingsDir = os.TempDir()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.bus == nil {
		s.bus = events.NewEventBus()
	}
	s.transport = transport.New(opts.Engine)
	s.renderer = render.NewRenderer(sr, s.factory, s.logger)
	s.engine.AddTap(s.recorder)
	return s
}

// Start runs the command loop until ctx is done
func (s *Session) Start(ctx context.Context) {
	go s.run(ctx)
}

// Done is closed once the session has shut down
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Bus returns the event bus the session publishes on
func (s *Session) Bus() *events.EventBus {
	return s.bus
}

// Presets returns the effect presets
func (s *Session) Presets() *effects.Presets {
	return s.presets
}

// run is the main command processing loop
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.cleanup()
			return

		case ev := <-s.devices.Events():
			s.handleEnded(ev)

		case cmd := <-s.commands:
			// completions that are already queued apply before the command
			s.drainEvents()
			cmd.reply <- cmd.fn()
		}
	}
}

// do runs fn on the loop and waits for its result
func (s *Session) do(fn func() error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.commands <- cmd:
	case <-s.done:
		return playerrors.ErrSessionClosed
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-s.done:
		return playerrors.ErrSessionClosed
	}
}

func (s *Session) drainEvents() {
	for {
		select {
		case ev := <-s.devices.Events():
			s.handleEnded(ev)
		default:
			s.recoverLost()
			return
		}
	}
}

// recoverLost ends the tracks whose completion the engine had to drop:
// their player went idle while their clock still runs.
func (s *Session) recoverLost() {
	lost := s.engine.LostEvents()
	if lost == s.lostSeen {
		return
	}
	s.logger.Warn("device completions dropped", "count", lost-s.lostSeen)
	s.lostSeen = lost
	for _, id := range append([]string(nil), s.order...) {
		t := s.tracks[id]
		if t == nil || t.Clock == nil || t.Active == nil || t.Active.State() != api.PlayerStopped {
			continue
		}
		s.handleEnded(audio.DeviceEvent{Device: t.Active.ID(), Run: t.Active.Run()})
	}
}

func (s *Session) cleanup() {
	for _, id := range append([]string(nil), s.order...) {
		s.disposeTrack(s.tracks[id])
	}
	s.engine.RemoveTap(s.recorder)
	s.bus.Close()
	s.logger.Debug("session closed", "dropped_events", s.bus.Dropped(), "lost_completions", s.engine.LostEvents())
}

// lookup returns the track with id; it must be called on the loop
func (s *Session) lookup(op, id string) (*track.Track, error) {
	t, ok := s.tracks[id]
	if !ok {
		return nil, playerrors.NewTrackError(op, id, playerrors.ErrTrackNotFound)
	}
	return t, nil
}

func (s *Session) publish(typ api.EventType, trackID string, payload interface{}) {
	s.bus.Publish(api.AudioEvent{Type: typ, Track: trackID, Payload: payload})
}

// publishTrack publishes the current snapshot of t
func (s *Session) publishTrack(t *track.Track) {
	s.publish(api.EventTrackChanged, t.ID, t.Snapshot(s.engine.Now()))
}

// fail publishes err and returns it
func (s *Session) fail(trackID string, err error) error {
	if err != nil {
		s.publish(api.EventError, trackID, err)
	}
	return err
}

func (s *Session) anySolo() bool {
	for _, t := range s.tracks {
		if t.Solo {
			return true
		}
	}
	return false
}

// applyMix pushes mix settings into every strip, since solo on one track
// changes the audibility of all of them
func (s *Session) applyMix() {
	solo := s.anySolo()
	for _, t := range s.tracks {
		t.ApplyMix(solo)
	}
}

// Tracks returns snapshots of every track in display order
func (s *Session) Tracks() ([]api.Track, error) {
	var out []api.Track
	err := s.do(func() error {
		now := s.engine.Now()
		out = make([]api.Track, 0, len(s.order))
		for _, id := range s.order {
			out = append(out, s.tracks[id].Snapshot(now))
		}
		return nil
	})
	return out, err
}

// Track returns the snapshot of one track
func (s *Session) Track(id string) (api.Track, error) {
	var out api.Track
	err := s.do(func() error {
		t, err := s.lookup("track", id)
		if err != nil {
			return err
		}
		out = t.Snapshot(s.engine.Now())
		return nil
	})
	return out, err
}

// Transport returns the master transport snapshot
func (s *Session) Transport() (api.Transport, error) {
	var out api.Transport
	err := s.do(func() error {
		out = s.transport.Snapshot()
		return nil
	})
	return out, err
}

// Recording returns the shared recorder's status
func (s *Session) Recording() api.RecordingStatus {
	return s.recorder.Status()
}
