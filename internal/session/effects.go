package session

import (
	"context"

	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/effects"
	"github.com/jscyril/multitrack/internal/track"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

// ReconcileEffects makes descs the track's effect chain. Nodes that keep
// their id and type are reused with the new parameters; new ones are
// prepared off the loop and wired in only if no newer chain was requested
// meanwhile.
func (s *Session) ReconcileEffects(ctx context.Context, id string, descs []api.EffectDescriptor) error {
	var plan *effects.Plan
	var prev []api.EffectDescriptor
	err := s.do(func() error {
		t, err := s.lookup("effects", id)
		if err != nil {
			return err
		}
		prev = t.Effects
		t.Effects = effects.Normalize(descs)
		t.EffectsGen++
		p := s.registry.Plan(t.ID, t.EffectsGen, t.Effects)
		if p.Pending() == 0 {
			return s.commitEffects(t, p)
		}
		plan = p
		return nil
	})
	if err != nil || plan == nil {
		return err
	}

	buildErr := plan.Build(ctx, s.factory)

	return s.do(func() error {
		t, ok := s.tracks[id]
		if !ok || t.EffectsGen != plan.Gen {
			plan.Discard()
			s.logger.Debug("discarding stale effect chain", "track", id, "gen", plan.Gen)
			return playerrors.NewTrackError("effects", id, playerrors.ErrStale)
		}
		if buildErr != nil {
			s.restoreEffects(t, prev)
			return s.fail(id, playerrors.NewTrackError("effects", id, buildErr))
		}
		return s.commitEffects(t, plan)
	})
}

// ApplyPreset replaces the track's chain with the named preset
func (s *Session) ApplyPreset(ctx context.Context, id, name string) error {
	descs, err := s.presets.Chain(name)
	if err != nil {
		return s.fail(id, playerrors.NewTrackError("preset", id, err))
	}
	return s.ReconcileEffects(ctx, id, descs)
}

func (s *Session) commitEffects(t *track.Track, plan *effects.Plan) error {
	chain, retired, err := s.registry.Commit(plan)
	if err != nil {
		return playerrors.NewTrackError("effects", t.ID, err)
	}
	t.Strip.SetChain(chain)
	effects.Close(retired)
	effects.Close(s.registry.Sweep(s.liveEffects()))
	s.logger.Debug("effect chain wired", "track", t.ID, "nodes", len(chain))
	s.publishTrack(t)
	return nil
}

// restoreEffects puts the previous descriptors back after a failed build.
// Their nodes are still live, so only parameters need pushing again.
func (s *Session) restoreEffects(t *track.Track, prev []api.EffectDescriptor) {
	t.Effects = prev
	t.EffectsGen++
	p := s.registry.Plan(t.ID, t.EffectsGen, prev)
	if p.Pending() > 0 {
		s.logger.Warn("previous effect chain is incomplete", "track", t.ID, "missing", p.Pending())
		p.Discard()
		s.publishTrack(t)
		return
	}
	if err := s.commitEffects(t, p); err != nil {
		s.logger.Warn("restore effect chain", "track", t.ID, "error", err)
	}
}
