package track

import (
	"errors"
	"fmt"

	"github.com/jscyril/multitrack/internal/audio"
)

// DefaultPoolSize is the number of idle players kept per track
const DefaultPoolSize = 3

// Pool keeps idle players pre-bound to one asset so a failed start can be
// retried on a fresh handle without waiting for a decode or a device.
type Pool struct {
	factory audio.DeviceFactory
	asset   *audio.Asset
	size    int
	idle    []audio.Device
}

// NewPool creates a pool of size idle players for asset
func NewPool(factory audio.DeviceFactory, asset *audio.Asset, size int) (*Pool, error) {
	if size < 1 {
		size = DefaultPoolSize
	}
	p := &Pool{factory: factory, asset: asset, size: size}
	if err := p.fill(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Take pops an idle player and tops the pool back up. The caller owns the
// returned player. A player is returned whenever one could be built; the
// error then only reports that the pool is short.
func (p *Pool) Take() (audio.Device, error) {
	var err error
	if len(p.idle) == 0 {
		err = p.fill()
		if len(p.idle) == 0 {
			return nil, err
		}
	}
	dev := p.idle[0]
	p.idle = p.idle[1:]
	if err == nil {
		err = p.fill()
	}
	if err != nil {
		return dev, fmt.Errorf("replenish pool: %w", err)
	}
	return dev, nil
}

// Len returns the number of idle players
func (p *Pool) Len() int { return len(p.idle) }

// Size returns the target number of idle players
func (p *Pool) Size() int { return p.size }

// Close disposes every idle player
func (p *Pool) Close() error {
	var errs []error
	for _, dev := range p.idle {
		errs = append(errs, dev.Close())
	}
	p.idle = nil
	return errors.Join(errs...)
}

func (p *Pool) fill() error {
	for len(p.idle) < p.size {
		dev, err := p.factory.NewDevice(p.asset)
		if err != nil {
			return fmt.Errorf("new player: %w", err)
		}
		p.idle = append(p.idle, dev)
	}
	return nil
}
