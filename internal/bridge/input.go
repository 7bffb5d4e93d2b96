package bridge

import (
	"github.com/zsiec/pvrbridge/internal/backend"
	"github.com/zsiec/pvrbridge/internal/session"
)

// The byte-level input surface. When the backend demultiplexes the stream
// itself these operations are unused; otherwise the player reads raw
// container bytes here and demultiplexes them on its own.

// Read reads raw container bytes. A zero count with a nil error marks the
// stream as exhausted rather than failing.
func (b *Bridge) Read(p []byte) (int, error) {
	return b.session.Read(p)
}

// Seek repositions the byte stream, or probes seek feasibility with the
// session.SeekProbe whence value.
func (b *Bridge) Seek(offset int64, whence int) (int64, error) {
	return b.session.Seek(offset, whence)
}

// Length reports the stream's byte length, -1 when nothing is open.
func (b *Bridge) Length() int64 {
	return b.session.Length()
}

// Times reports the backend's timing window for the open stream.
func (b *Bridge) Times() backend.StreamTimes {
	return b.session.Times()
}

// TotalTime reports the playable span in milliseconds; always 0 for
// recording sessions.
func (b *Bridge) TotalTime() int64 {
	return b.session.TotalTime()
}

// PlayingTime reports the current position in milliseconds; always 0 for
// recording sessions.
func (b *Bridge) PlayingTime() int64 {
	return b.session.PlayingTime()
}

// IsEndOfStream reports end-of-stream, debounced by the scan timeout.
func (b *Bridge) IsEndOfStream() bool {
	return b.session.IsEndOfStream()
}

// NextStreamAction advises the player once its read loop runs dry.
func (b *Bridge) NextStreamAction() session.Action {
	return b.session.NextAction()
}

// IsOpen reports whether a target is currently open.
func (b *Bridge) IsOpen() bool {
	return b.session.IsOpen()
}

// IsRecordingSession reports whether the open target is a recording.
func (b *Bridge) IsRecordingSession() bool {
	return b.session.IsRecording()
}

// DemuxActive reports whether the backend demultiplexes the open stream
// itself, making the demux surface of this bridge the read path.
func (b *Bridge) DemuxActive() bool {
	return b.session.DemuxActive()
}

// IsRealTime reports whether the open stream is realtime. Without a
// playing session it reports false.
func (b *Bridge) IsRealTime() bool {
	cl := b.session.Client()
	return cl != nil && cl.IsRealTimeStream()
}

// CanPause reports whether the backend can pause the open stream.
func (b *Bridge) CanPause() bool {
	cl := b.session.Client()
	return cl != nil && cl.CanPauseStream()
}

// CanSeek reports whether the backend can seek the open stream.
func (b *Bridge) CanSeek() bool {
	cl := b.session.Client()
	return cl != nil && cl.CanSeekStream()
}

// Pause pauses or resumes the open stream.
func (b *Bridge) Pause(on bool) error {
	cl := b.session.Client()
	if cl == nil {
		return backend.ErrNotPlaying
	}
	return cl.PauseStream(on)
}

// CanRecord reports whether the backend can start an instant recording on
// the playing channel.
func (b *Bridge) CanRecord() bool {
	cl := b.session.Client()
	return cl != nil && cl.CanRecordInstantly()
}

// IsRecording reports whether an instant recording is running on the
// playing channel.
func (b *Bridge) IsRecording() bool {
	cl := b.session.Client()
	return cl != nil && cl.IsRecordingOnPlayingChannel()
}

// Record starts or stops an instant recording on the playing channel.
func (b *Bridge) Record(on bool) error {
	cl := b.session.Client()
	if cl == nil {
		return backend.ErrNotPlaying
	}
	return cl.StartRecordingOnPlayingChannel(on)
}
