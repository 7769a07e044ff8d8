package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrTrackNotFound       = errors.New("track not found")
	ErrNoAsset             = errors.New("track has no audio asset")
	ErrInvalidFormat       = errors.New("unsupported audio format")
	ErrDecode              = errors.New("audio could not be decoded")
	ErrPermission          = errors.New("recording device unavailable")
	ErrScheduleConflict    = errors.New("player start rejected")
	ErrNoAudibleTracks     = errors.New("no audible tracks to export")
	ErrEmptyProject        = errors.New("project has nothing to export")
	ErrConcurrentRecording = errors.New("a recording is already in progress")
	ErrNotRecording        = errors.New("no recording in progress")
	ErrEmptyTake           = errors.New("recording captured no audio")
	ErrStale               = errors.New("result discarded: track changed while it was pending")
	ErrUnknownEffect       = errors.New("unknown effect type")
	ErrDeviceClosed        = errors.New("playback device is closed")
	ErrSessionClosed       = errors.New("session is closed")
	ErrInvalidRange        = errors.New("invalid time range")
	ErrPresetNotFound      = errors.New("effect preset not found")
	ErrProjectNotFound     = errors.New("project not found")
)

// TrackError wraps errors with the operation and track they belong to
type TrackError struct {
	Op    string // Operation that failed
	Track string // Track ID if applicable
	Err   error  // Underlying error
}

func (e *TrackError) Error() string {
	if e.Track != "" {
		return fmt.Sprintf("%s failed for track %s: %v", e.Op, e.Track, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TrackError) Unwrap() error {
	return e.Err
}

// NewTrackError creates a new TrackError
func NewTrackError(op, track string, err error) *TrackError {
	return &TrackError{Op: op, Track: track, Err: err}
}

// DecodeError reports corrupt or unsupported input
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes every DecodeError match ErrDecode.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// ScanError reports a file or directory that could not be scanned
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
