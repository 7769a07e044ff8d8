package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/jscyril/multitrack/api"
	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

// releaseFrames is the length of the fade applied when a started player is
// stopped. The stop settles once the audio thread has rendered the fade.
const releaseFrames = 128

type playerState int

const (
	playerIdle playerState = iota
	playerStarted
	playerStopping
	playerClosed
)

// Player plays an asset into a channel strip. It is driven from the
// session thread and streamed from the audio thread; mu guards both sides.
type Player struct {
	id     uint64
	asset  *Asset
	engine *Engine

	mu         sync.Mutex
	state      playerState
	run        uint64
	startFrame int64 // engine frame of the first audible sample
	pos        int   // next asset frame
	remaining  int   // frames left to play, -1 for unbounded; unused while bounded
	bounded    bool  // playback is confined to [winStart, winEnd)
	loop       bool
	winStart   int
	winEnd     int
	fade       int
	strip      *Strip
}

var _ Device = (*Player)(nil)

func newPlayer(id uint64, asset *Asset, engine *Engine) *Player {
	return &Player{id: id, asset: asset, engine: engine, remaining: -1}
}

// ID returns the device id
func (p *Player) ID() uint64 { return p.id }

// Asset returns the asset the player is bound to
func (p *Player) Asset() *Asset { return p.asset }

// Run returns the number of successful starts
func (p *Player) Run() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run
}

// Start schedules playback at audio clock time at, from offset into the
// asset. duration limits a player without a window; a windowed player stops
// at the window end instead, so a window changed mid-flight moves the stop.
// A player whose previous stop has not settled on the audio thread rejects
// the start.
func (p *Player) Start(at, offset, duration time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case playerClosed:
		return playerrors.ErrDeviceClosed
	case playerStopping:
		return fmt.Errorf("%w: previous stop of player %d has not settled", playerrors.ErrScheduleConflict, p.id)
	case playerStarted:
		return fmt.Errorf("%w: player %d is already started", playerrors.ErrScheduleConflict, p.id)
	}

	sr := p.asset.Format().SampleRate
	p.pos = clampFrame(sr.N(offset), p.asset.Len())
	p.startFrame = int64(sr.N(at))
	p.remaining = -1
	if duration > 0 && !p.bounded {
		p.remaining = sr.N(duration)
	}
	p.state = playerStarted
	p.run++
	return nil
}

// Stop begins a short release fade. Stopping an idle player is a no-op.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case playerClosed:
		return playerrors.ErrDeviceClosed
	case playerStarted:
		p.state = playerStopping
		p.fade = releaseFrames
		if p.engine.frames.Load() <= p.startFrame {
			// nothing audible yet: settle on the next block without a fade
			p.fade = 0
		}
	}
	return nil
}

// Seek moves the position of an idle player
func (p *Player) Seek(offset time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == playerClosed {
		return playerrors.ErrDeviceClosed
	}
	p.pos = clampFrame(p.asset.Format().SampleRate.N(offset), p.asset.Len())
	return nil
}

// State reports started while the player is scheduled or audible
func (p *Player) State() api.PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == playerStarted {
		return api.PlayerStarted
	}
	return api.PlayerStopped
}

// SetLoop confines playback to [start, end), wrapping to start when enabled
// and stopping at end otherwise. A playing player picks the change up on
// the next frame; the window replaces any duration limit.
func (p *Player) SetLoop(enabled bool, start, end time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sr := p.asset.Format().SampleRate
	p.winStart = clampFrame(sr.N(start), p.asset.Len())
	p.winEnd = clampFrame(sr.N(end), p.asset.Len())
	p.bounded = p.winEnd > p.winStart
	p.loop = enabled && p.bounded
	if p.bounded {
		p.remaining = -1
	}
}

// Connect routes the player into strip, replacing the strip's previous
// source.
func (p *Player) Connect(strip *Strip) {
	p.mu.Lock()
	p.strip = strip
	p.mu.Unlock()
	strip.SetSource(p)
}

// Disconnect removes the player from its strip
func (p *Player) Disconnect() {
	p.mu.Lock()
	strip := p.strip
	p.strip = nil
	p.mu.Unlock()
	if strip != nil {
		strip.ClearSource(p)
	}
}

// Close disposes the player and drops its asset reference
func (p *Player) Close() error {
	p.Disconnect()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == playerClosed {
		return nil
	}
	p.state = playerClosed
	p.asset.Release()
	return nil
}

// Stream renders the player's share of the current engine block.
func (p *Player) Stream(samples [][2]float64) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range samples {
		samples[i] = [2]float64{}
	}
	if p.state != playerStarted && p.state != playerStopping {
		return len(samples), true
	}

	block := p.engine.blockStart()
	for i := range samples {
		if block+int64(i) < p.startFrame {
			continue
		}
		if p.state == playerStopping {
			if p.fade <= 0 {
				p.state = playerIdle
				break
			}
			frame, ok := p.next()
			if !ok {
				p.state = playerIdle
				break
			}
			gain := float64(p.fade) / releaseFrames
			samples[i] = [2]float64{frame[0] * gain, frame[1] * gain}
			p.fade--
			continue
		}
		frame, ok := p.next()
		if !ok {
			p.state = playerIdle
			p.engine.emit(DeviceEvent{Device: p.id, Run: p.run})
			break
		}
		samples[i] = frame
	}
	if p.state == playerStopping && p.fade <= 0 {
		p.state = playerIdle
	}
	return len(samples), true
}

// Err implements beep.Streamer
func (p *Player) Err() error { return nil }

// next returns the next asset frame, honouring the window, the loop and
// the remaining duration.
func (p *Player) next() ([2]float64, bool) {
	if p.remaining == 0 {
		return [2]float64{}, false
	}
	if p.bounded && p.pos >= p.winEnd {
		if !p.loop {
			return [2]float64{}, false
		}
		p.pos = p.winStart
	}
	if p.pos >= p.asset.Len() {
		return [2]float64{}, false
	}
	frame := p.asset.Frame(p.pos)
	p.pos++
	if p.remaining > 0 {
		p.remaining--
	}
	return frame, true
}

func clampFrame(n, max int) int {
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}
