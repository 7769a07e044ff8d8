package audio

import (
	"time"

	"github.com/jscyril/multitrack/api"
)

// Device is a playback handle bound to one asset.
//
// Times passed to Start are audio clock times (see Engine.Now). A zero
// duration plays until the end of the asset, or forever while looping.
type Device interface {
	ID() uint64
	Asset() *Asset
	Start(at, offset, duration time.Duration) error
	Stop() error
	Seek(offset time.Duration) error
	State() api.PlayerState
	// SetLoop sets the playable window; playback wraps inside it when
	// enabled and stops at its end otherwise.
	SetLoop(enabled bool, start, end time.Duration)
	Connect(strip *Strip)
	Disconnect()
	// Run counts Start calls; completion events carry the run they end.
	Run() uint64
	Close() error
}

// DeviceFactory builds devices and reports their completions.
type DeviceFactory interface {
	NewDevice(asset *Asset) (Device, error)
	Events() <-chan DeviceEvent
}

// DeviceEvent reports that a device reached the end of its playback.
type DeviceEvent struct {
	Device uint64
	Run    uint64
}
