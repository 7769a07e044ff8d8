package api

import "time"

// Selection is a user-chosen sub-range of a track's asset. An End that is
// not after Start means "play to the end of the asset".
type Selection struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end,omitempty"`
}

// Bounded reports whether the selection carries an end point.
func (s Selection) Bounded() bool {
	return s.End > s.Start
}

// EffectType is the fixed vocabulary of effect kinds.
type EffectType string

const (
	EffectGain       EffectType = "gain"
	EffectPan        EffectType = "pan"
	EffectLowpass    EffectType = "lowpass"
	EffectDelay      EffectType = "delay"
	EffectReverb     EffectType = "reverb"
	EffectDistortion EffectType = "distortion"
)

// EffectTypes returns every known effect type
func EffectTypes() []EffectType {
	return []EffectType{EffectGain, EffectPan, EffectLowpass, EffectDelay, EffectReverb, EffectDistortion}
}

// EffectParams is the type-specific parameter bag of an effect.
type EffectParams map[string]float64

// EffectDescriptor is the serializable form of one effect.
type EffectDescriptor struct {
	ID     string       `json:"id" yaml:"id,omitempty"`
	Type   EffectType   `json:"type" yaml:"type"`
	Wet    float64      `json:"wet" yaml:"wet"`
	Params EffectParams `json:"params,omitempty" yaml:"params,omitempty"`
}

// Clone returns a deep copy of the descriptor
func (d EffectDescriptor) Clone() EffectDescriptor {
	c := d
	if d.Params != nil {
		c.Params = make(EffectParams, len(d.Params))
		for k, v := range d.Params {
			c.Params[k] = v
		}
	}
	return c
}

// SyncState tells whether a track's player is attached to the transport
// timeline and whether a start event is queued on it.
type SyncState int

const (
	SyncUnsynced SyncState = iota
	SyncIdle
	SyncScheduled
)

func (s SyncState) String() string {
	switch s {
	case SyncUnsynced:
		return "unsynced"
	case SyncIdle:
		return "idle"
	case SyncScheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

// TransportState is the state of the master transport
type TransportState int

const (
	TransportStopped TransportState = iota
	TransportStarted
	TransportPaused
)

func (s TransportState) String() string {
	switch s {
	case TransportStarted:
		return "started"
	case TransportPaused:
		return "paused"
	default:
		return "stopped"
	}
}

// PlayerState is the state reported by a playback device
type PlayerState int

const (
	PlayerStopped PlayerState = iota
	PlayerStarted
)

// RecordingMode selects what a recording captures.
type RecordingMode int

const (
	// RecordMix captures the final output bus into a new track.
	RecordMix RecordingMode = iota
	// RecordTrack captures live input into an existing track's asset.
	RecordTrack
)

// Track is the snapshot of one channel strip handed to the UI layer.
type Track struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	HasAsset    bool               `json:"has_asset"`
	Duration    time.Duration      `json:"duration"`
	SampleRate  int                `json:"sample_rate"`
	Channels    int                `json:"channels"`
	AssetPath   string             `json:"asset_path,omitempty"`
	Effects     []EffectDescriptor `json:"effects"`
	VolumeDB    float64            `json:"volume_db"`
	Pan         float64            `json:"pan"`
	Mute        bool               `json:"mute"`
	Solo        bool               `json:"solo"`
	Selection   *Selection         `json:"selection,omitempty"`
	Loop        bool               `json:"loop"`
	Playhead    time.Duration      `json:"playhead"`
	Playing     bool               `json:"playing"`
	Auditioning bool               `json:"auditioning"`
	Recording   bool               `json:"recording"`
	Sync        SyncState          `json:"sync"`
	PoolSize    int                `json:"pool_size"`
}

// Transport is the snapshot of the master transport.
type Transport struct {
	State    TransportState `json:"state"`
	Position time.Duration  `json:"position"`
}

// RecordingStatus describes the shared recorder
type RecordingStatus struct {
	Active   bool          `json:"active"`
	Mode     RecordingMode `json:"mode"`
	Track    string        `json:"track,omitempty"`
	Captured time.Duration `json:"captured"`
}

// EventType identifies what an AudioEvent reports.
type EventType int

const (
	EventTrackChanged EventType = iota
	EventTrackRemoved
	EventTransportChanged
	EventPlaybackEnded
	EventRecordingChanged
	EventExportFinished
	EventError
)

// AllEventTypes lists every event type published by the session
func AllEventTypes() []EventType {
	return []EventType{
		EventTrackChanged,
		EventTrackRemoved,
		EventTransportChanged,
		EventPlaybackEnded,
		EventRecordingChanged,
		EventExportFinished,
		EventError,
	}
}

// AudioEvent is published on the event bus.
type AudioEvent struct {
	Type    EventType
	Track   string
	Payload interface{}
}

// ExportResult describes a finished mixdown
type ExportResult struct {
	Path     string        `json:"path,omitempty"`
	Tracks   []string      `json:"tracks"`
	Duration time.Duration `json:"duration"`
	Peak     float64       `json:"peak"`
}
