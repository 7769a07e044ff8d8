package timeline

import "time"

// Clock projects the audio clock into a playhead for one playing track.
// It exists from play start until stop or natural end.
type Clock struct {
	StartTime time.Duration // audio clock time at which Offset is heard
	Offset    time.Duration
	LoopStart time.Duration
	LoopEnd   time.Duration
	Looping   bool
}

// NewClock creates a clock for playback starting at startTime from offset.
func NewClock(startTime, offset time.Duration, w Window, looping bool) *Clock {
	c := &Clock{StartTime: startTime, Offset: offset}
	c.LoopStart, c.LoopEnd, c.Looping = LoopBounds(w, looping)
	return c
}

// Playhead returns the asset position heard at now. Before the start time
// the playhead rests at the offset.
func (c *Clock) Playhead(now time.Duration) time.Duration {
	elapsed := now - c.StartTime
	if elapsed < 0 {
		elapsed = 0
	}
	pos := c.Offset + elapsed
	if c.Looping && pos >= c.LoopEnd {
		length := c.LoopEnd - c.LoopStart
		if c.Offset >= c.LoopEnd {
			return c.LoopStart
		}
		pos = c.LoopStart + (pos-c.LoopStart)%length
	}
	return pos
}

// SetLoop swaps the loop bounds of an in-flight clock without moving the
// heard position. A position past the new loop end jumps to the loop
// start, as the players do.
func (c *Clock) SetLoop(now time.Duration, w Window, looping bool) {
	pos := c.Playhead(now)
	if now > c.StartTime {
		c.StartTime = now
	}
	c.LoopStart, c.LoopEnd, c.Looping = LoopBounds(w, looping)
	if c.Looping && pos >= c.LoopEnd {
		pos = c.LoopStart
	}
	c.Offset = pos
}
