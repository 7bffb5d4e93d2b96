// Package session owns the open/close lifecycle of one playback attempt
// against a backend: live-versus-recording classification, the end-of-stream
// and scan-timeout contract, and delegation of raw read/seek operations.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/looplab/fsm"

	"github.com/zsiec/pvrbridge/internal/backend"
)

// Lifecycle states. A session is created closed, moves to live or
// recording on a successful Open, and returns to closed on Close.
const (
	StateClosed    = "closed"
	StateLive      = "live"
	StateRecording = "recording"
)

const (
	eventOpenLive      = "open_live"
	eventOpenRecording = "open_recording"
	eventClose         = "close"
)

// DefaultScanTimeout is the grace period during which end-of-stream reports
// are suppressed after Open, tolerating backends that are still populating
// their initial channel scan.
const DefaultScanTimeout = 10 * time.Second

// SeekProbe is a whence value that queries seek feasibility instead of
// performing a seek. The result is 1 when the backend can seek the open
// stream and 0 otherwise.
const SeekProbe = 0x10000000

// Action is the session's advice to the player once a read loop runs dry.
type Action int

// Next-stream actions.
const (
	// ActionNone means the stream is terminal; stop playback.
	ActionNone Action = iota
	// ActionRetry means more data may arrive; keep reading.
	ActionRetry
	// ActionReopen means the stream is exhausted but the source is live;
	// reopen to continue.
	ActionReopen
)

func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionReopen:
		return "reopen"
	default:
		return "none"
	}
}

// Session tracks one open stream on a backend client. It has no internal
// locking: a single logical owner thread issues Open, Read, Seek, and
// Close.
type Session struct {
	log      *slog.Logger
	client   backend.Client
	resolver backend.Resolver
	state    *fsm.FSM

	eos          bool
	scanTimeout  time.Duration
	scanDeadline time.Time
	demuxActive  bool
	now          func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithScanTimeout overrides the end-of-stream suppression window armed by
// Open.
func WithScanTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.scanTimeout = d
	}
}

// WithClock overrides the monotonic clock read used to evaluate the scan
// deadline. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithLogger sets the session logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// New creates a closed session bound to one backend client handle and one
// resolver. The handle's lifetime is scoped to a single playback attempt.
func New(client backend.Client, resolver backend.Resolver, opts ...Option) *Session {
	s := &Session{
		client:      client,
		resolver:    resolver,
		scanTimeout: DefaultScanTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("component", "session")
	s.state = newLifecycleFSM()
	return s
}

func newLifecycleFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateClosed,
		fsm.Events{
			{Name: eventOpenLive, Src: []string{StateClosed}, Dst: StateLive},
			{Name: eventOpenRecording, Src: []string{StateClosed}, Dst: StateRecording},
			{Name: eventClose, Src: []string{StateLive, StateRecording}, Dst: StateClosed},
		}, nil,
	)
}

// Open resolves a logical target path and opens the matching stream on the
// backend. Targets outside the channel and recording categories, and
// recordings marked deleted, fail without creating a backend session. On
// success the end-of-stream flag is cleared and the scan timeout is armed.
func (s *Session) Open(target string) error {
	if s.client == nil || s.resolver == nil {
		return backend.ErrNotPlaying
	}
	if s.IsOpen() {
		s.Close()
	}

	t, err := s.resolver.Resolve(target)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", target, err)
	}

	switch t.Kind {
	case backend.TargetLiveChannel:
		if err := s.client.OpenLiveStream(t.Channel); err != nil {
			return fmt.Errorf("open live stream: %w", err)
		}
		// A backend that reports no container format demultiplexes the
		// channel itself.
		s.demuxActive = s.client.CurrentInputFormat() == ""
		s.mustEvent(eventOpenLive)
		s.log.Info("live stream opened",
			"channel", t.Channel.ID, "name", t.Channel.Name, "demux_active", s.demuxActive)

	case backend.TargetRecording:
		if err := s.client.OpenRecordedStream(t.Recording); err != nil {
			return fmt.Errorf("open recorded stream: %w", err)
		}
		s.demuxActive = false
		s.mustEvent(eventOpenRecording)
		s.log.Info("recorded stream opened", "recording", t.Recording.ID, "title", t.Recording.Title)

	case backend.TargetDeletedRecording:
		return backend.ErrRecordingDeleted

	default:
		return backend.ErrUnknownTarget
	}

	s.eos = false
	s.scanDeadline = s.now().Add(s.scanTimeout)
	return nil
}

func (s *Session) mustEvent(name string) {
	// Transitions are driven only from Open/Close on legal source states.
	if err := s.state.Event(context.Background(), name); err != nil {
		s.log.Error("lifecycle transition rejected", "event", name, "error", err)
	}
}

// Close releases the backend stream and forces end-of-stream.
func (s *Session) Close() {
	if !s.IsOpen() {
		return
	}
	s.client.CloseStream()
	s.mustEvent(eventClose)
	s.eos = true
	s.log.Info("stream closed")
}

// IsOpen reports whether a stream is currently open.
func (s *Session) IsOpen() bool {
	return s.state.Current() != StateClosed
}

// IsRecording reports whether the open stream is a recording.
func (s *Session) IsRecording() bool {
	return s.state.Current() == StateRecording
}

// DemuxActive reports whether the backend performs its own demultiplexing
// for the open stream.
func (s *Session) DemuxActive() bool {
	return s.demuxActive
}

// IsEndOfStream reports the tracked end-of-stream flag, suppressed while
// the scan timeout has not elapsed. Without the suppression a backend that
// is slow to produce its first packet would be misreported as exhausted.
func (s *Session) IsEndOfStream() bool {
	if s.now().Before(s.scanDeadline) {
		return false
	}
	return s.eos
}

// NextAction recomputes end-of-stream and advises the player what to do
// when the read loop runs dry. Live streams ask for a reopen when
// exhausted and a retry otherwise; recordings are terminal once exhausted.
func (s *Session) NextAction() Action {
	eos := s.IsEndOfStream()
	switch s.state.Current() {
	case StateLive:
		if eos {
			return ActionReopen
		}
		return ActionRetry
	default:
		return ActionNone
	}
}

// Read reads raw container bytes from the backend. A zero-byte result is
// recorded as end-of-stream, not an error.
func (s *Session) Read(p []byte) (int, error) {
	if !s.IsOpen() {
		return 0, backend.ErrNotPlaying
	}
	n, err := s.client.ReadStream(p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		s.eos = true
	}
	return n, nil
}

// Seek repositions the raw byte stream. With whence SeekProbe it performs
// a feasibility query instead, returning 1 or 0 without moving the stream.
// A successful non-negative seek clears end-of-stream: the stream is
// demonstrably still producible.
func (s *Session) Seek(offset int64, whence int) (int64, error) {
	if !s.IsOpen() {
		return -1, backend.ErrNotPlaying
	}
	if whence == SeekProbe {
		if s.client.CanSeekStream() {
			return 1, nil
		}
		return 0, nil
	}
	ret, err := s.client.SeekStream(offset, whence)
	if err != nil {
		return ret, err
	}
	if ret >= 0 {
		s.eos = false
	}
	return ret, nil
}

// Length reports the open stream's byte length, or -1 when no stream is
// open.
func (s *Session) Length() int64 {
	if !s.IsOpen() {
		return -1
	}
	return s.client.StreamLength()
}

// Times reports the backend's current timing window, zero when no stream
// is open.
func (s *Session) Times() backend.StreamTimes {
	if !s.IsOpen() {
		return backend.StreamTimes{}
	}
	t, err := s.client.StreamTimes()
	if err != nil {
		s.log.Warn("stream times unavailable", "error", err)
		return backend.StreamTimes{}
	}
	return t
}

// TotalTime reports the playable span in milliseconds. Recording sessions
// do not report live timing and always return 0.
func (s *Session) TotalTime() int64 {
	if !s.IsOpen() || s.IsRecording() {
		return 0
	}
	t := s.Times()
	return (t.PTSEnd - t.PTSBegin) / 1000
}

// PlayingTime reports the current position in milliseconds relative to the
// beginning of the timing window. Recording sessions always return 0.
func (s *Session) PlayingTime() int64 {
	if !s.IsOpen() || s.IsRecording() {
		return 0
	}
	t := s.Times()
	return (t.PTSStart - t.PTSBegin) / 1000
}

// Client exposes the underlying backend handle for demux-level operations.
// Returns nil while the session is closed.
func (s *Session) Client() backend.Client {
	if !s.IsOpen() {
		return nil
	}
	return s.client
}
