package backend

import "errors"

// Sentinel errors for target resolution and session handling. These enable
// callers to programmatically distinguish failure modes using errors.Is.
var (
	ErrUnknownTarget    = errors.New("backend: target is not a channel or recording")
	ErrRecordingDeleted = errors.New("backend: recording has been deleted")
	ErrNotPlaying       = errors.New("backend: no stream is currently playing")
	ErrChannelNotFound  = errors.New("backend: channel not found")
	ErrRecordingNotFound = errors.New("backend: recording not found")
)
