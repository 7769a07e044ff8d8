package effects

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jscyril/multitrack/api"
	"github.com/jscyril/multitrack/internal/audio"
	"golang.org/x/sync/errgroup"
)

// Key names one live node. Descriptor ids are unique within a track's
// chain only, so two tracks may use the same id.
type Key struct {
	Track string
	ID    string
}

// Registry maps effect descriptors to live nodes. It belongs to the
// session loop and is not safe for concurrent use; only Plan.Build runs
// elsewhere, and it touches nothing but its own plan.
type Registry struct {
	entries map[Key]Node
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Key]Node)}
}

// Plan is one reconciliation of a track's descriptor list. Nodes whose
// type still matches are reused and already carry the new parameters;
// the rest are built by Build and wired in by Commit.
type Plan struct {
	Track string
	Gen   uint64
	slots []slot
}

type slot struct {
	desc  api.EffectDescriptor
	node  Node
	fresh bool
}

// Pending returns how many nodes the plan still has to build
func (p *Plan) Pending() int {
	n := 0
	for _, s := range p.slots {
		if s.node == nil {
			n++
		}
	}
	return n
}

// Plan resolves descs against the live nodes. Parameters of nodes that are
// kept are pushed in place immediately.
func (r *Registry) Plan(track string, gen uint64, descs []api.EffectDescriptor) *Plan {
	p := &Plan{Track: track, Gen: gen, slots: make([]slot, len(descs))}
	for i, d := range descs {
		p.slots[i].desc = d.Clone()
		n, ok := r.entries[Key{track, d.ID}]
		if !ok || n.Type() != d.Type {
			continue
		}
		n.SetWet(d.Wet)
		n.SetParams(d.Params)
		p.slots[i].node = n
	}
	return p
}

// Build instantiates the plan's missing nodes concurrently. On failure
// every node built so far is closed.
func (p *Plan) Build(ctx context.Context, factory Factory) error {
	g, ctx := errgroup.WithContext(ctx)
	built := make([]Node, len(p.slots))
	for i := range p.slots {
		if p.slots[i].node != nil {
			continue
		}
		i := i
		g.Go(func() error {
			n, err := factory.Instantiate(ctx, p.slots[i].desc)
			if err != nil {
				return fmt.Errorf("effect %s: %w", p.slots[i].desc.ID, err)
			}
			built[i] = n
			return nil
		})
	}
	err := g.Wait()
	for i, n := range built {
		if n == nil {
			continue
		}
		if err != nil {
			n.Close()
			continue
		}
		p.slots[i].node = n
		p.slots[i].fresh = true
	}
	return err
}

// Discard closes the nodes a plan built but never committed
func (p *Plan) Discard() {
	for i := range p.slots {
		if p.slots[i].fresh {
			p.slots[i].node.Close()
			p.slots[i].node = nil
			p.slots[i].fresh = false
		}
	}
}

// Commit installs a fully built plan. It returns the chain to wire, in
// descriptor order, and the nodes it replaced or orphaned; the caller
// closes those once the new chain is wired.
func (r *Registry) Commit(p *Plan) (chain []audio.Processor, retired []Node, err error) {
	if n := p.Pending(); n > 0 {
		return nil, nil, fmt.Errorf("commit plan for track %s: %d effects not built", p.Track, n)
	}
	keep := make(map[string]bool, len(p.slots))
	chain = make([]audio.Processor, 0, len(p.slots))
	for i := range p.slots {
		s := &p.slots[i]
		k := Key{p.Track, s.desc.ID}
		keep[s.desc.ID] = true
		if old, ok := r.entries[k]; ok && old != s.node {
			retired = append(retired, old)
		}
		r.entries[k] = s.node
		s.fresh = false
		chain = append(chain, s.node)
	}
	for k, n := range r.entries {
		if k.Track == p.Track && !keep[k.ID] {
			retired = append(retired, n)
			delete(r.entries, k)
		}
	}
	return chain, retired, nil
}

// RemoveTrack forgets every node of track and returns them for disposal
func (r *Registry) RemoveTrack(track string) []Node {
	var out []Node
	for k, n := range r.entries {
		if k.Track == track {
			out = append(out, n)
			delete(r.entries, k)
		}
	}
	return out
}

// Sweep drops every node whose key is not in live and returns them
func (r *Registry) Sweep(live map[Key]bool) []Node {
	var out []Node
	for k, n := range r.entries {
		if !live[k] {
			out = append(out, n)
			delete(r.entries, k)
		}
	}
	return out
}

// Node returns the live node for id on track
func (r *Registry) Node(track, id string) (Node, bool) {
	n, ok := r.entries[Key{track, id}]
	return n, ok
}

// Len returns the number of live nodes
func (r *Registry) Len() int { return len(r.entries) }

// IDs returns the ids of track's live nodes, sorted
func (r *Registry) IDs(track string) []string {
	var ids []string
	for k := range r.entries {
		if k.Track == track {
			ids = append(ids, k.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Normalize clones descs, clamps wet mixes and gives every descriptor a
// unique id.
func Normalize(descs []api.EffectDescriptor) []api.EffectDescriptor {
	out := make([]api.EffectDescriptor, len(descs))
	seen := make(map[string]bool, len(descs))
	for i, d := range descs {
		c := d.Clone()
		if c.ID == "" || seen[c.ID] {
			c.ID = uuid.NewString()
		}
		seen[c.ID] = true
		c.Wet = clamp(c.Wet, 0, 1)
		out[i] = c
	}
	return out
}

// Close disposes every node in nodes
func Close(nodes []Node) {
	for _, n := range nodes {
		n.Close()
	}
}
