// Package bridge adapts a backend client to the player's demultiplexer
// contract: open/read/flush/abort plus typed, identity-stable stream
// enumeration. It owns one session and one stream catalog per playback
// attempt.
package bridge

import (
	"log/slog"
	"time"

	"github.com/zsiec/pvrbridge/internal/backend"
	"github.com/zsiec/pvrbridge/internal/session"
	"github.com/zsiec/pvrbridge/internal/stream"
)

// Recorder receives telemetry callbacks from the bridge. The metrics
// package implements this interface; the bridge itself stays free of any
// metrics dependency.
type Recorder interface {
	RecordPacket(streamID int, bytes int)
	RecordCatalogRefresh(streams int)
	RecordSessionOpen(kind string)
	RecordSessionClose()
	RecordReadError()
}

type nopRecorder struct{}

func (nopRecorder) RecordPacket(int, int)    {}
func (nopRecorder) RecordCatalogRefresh(int) {}
func (nopRecorder) RecordSessionOpen(string) {}
func (nopRecorder) RecordSessionClose()      {}
func (nopRecorder) RecordReadError()         {}

// Bridge is the player-facing adapter over one backend client handle. It is
// not safe for concurrent use: the surrounding player serializes access to
// one Bridge per playback session, and a ReadDemux must complete or be
// aborted before the next one is issued.
type Bridge struct {
	log     *slog.Logger
	client  backend.Client
	session *session.Session
	catalog *stream.Catalog
	rec     Recorder

	demuxOpen bool
}

// Option configures a Bridge.
type Option func(*options)

type options struct {
	log              *slog.Logger
	rec              Recorder
	scanTimeout      time.Duration
	includeAncillary bool
	clock            func() time.Time
}

// WithLogger sets the bridge logger. If unset, slog.Default() is used.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithRecorder attaches a telemetry recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.rec = r }
}

// WithScanTimeout overrides the session's end-of-stream suppression window.
func WithScanTimeout(d time.Duration) Option {
	return func(o *options) { o.scanTimeout = d }
}

// WithAncillaryStreams controls whether ancillary-data streams are surfaced
// as typed catalog entries.
func WithAncillaryStreams(enabled bool) Option {
	return func(o *options) { o.includeAncillary = enabled }
}

// WithClock overrides the clock used for the scan-timeout deadline.
// Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New creates a Bridge over one backend client handle and one resolver. The
// handle's lifetime is scoped to a single playback attempt; no hidden
// global lookup is performed.
func New(client backend.Client, resolver backend.Resolver, opts ...Option) *Bridge {
	o := &options{
		rec:         nopRecorder{},
		scanTimeout: session.DefaultScanTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}

	sessOpts := []session.Option{
		session.WithScanTimeout(o.scanTimeout),
		session.WithLogger(o.log),
	}
	if o.clock != nil {
		sessOpts = append(sessOpts, session.WithClock(o.clock))
	}

	return &Bridge{
		log:     o.log.With("component", "bridge"),
		client:  client,
		session: session.New(client, resolver, sessOpts...),
		catalog: stream.NewCatalog(o.includeAncillary, o.log),
		rec:     o.rec,
	}
}

// Open resolves and opens a playback target. See session.Open for the
// failure taxonomy.
func (b *Bridge) Open(target string) error {
	if err := b.session.Open(target); err != nil {
		return err
	}
	kind := "live"
	if b.session.IsRecording() {
		kind = "recording"
	}
	b.rec.RecordSessionOpen(kind)
	return nil
}

// Close releases the backend session and clears the catalog. No descriptor
// survives beyond one open/close cycle.
func (b *Bridge) Close() {
	if !b.session.IsOpen() {
		return
	}
	b.session.Close()
	b.catalog.Clear()
	b.demuxOpen = false
	b.rec.RecordSessionClose()
}

// OpenDemux fetches the initial property snapshot and builds the stream
// catalog. It fails when no backend session is currently playing. Calling
// it again refreshes the catalog without duplicating entries for unchanged
// stream ids.
func (b *Bridge) OpenDemux() error {
	cl := b.session.Client()
	if cl == nil {
		return backend.ErrNotPlaying
	}
	if err := b.refreshStreams(cl); err != nil {
		return err
	}
	b.demuxOpen = true
	b.log.Info("demux opened", "streams", b.catalog.Count())
	return nil
}

// ReadDemux pulls one packet from the backend. Packets tagged with the
// stream-info identifier refresh the catalog and are returned unchanged;
// packets tagged with the stream-change identifier refresh the catalog and
// yield no packet for this invocation. An unopened demux, a missing
// backend session, and an empty backend queue all yield a nil packet
// without error.
func (b *Bridge) ReadDemux() (*backend.DemuxPacket, error) {
	if !b.demuxOpen {
		return nil, nil
	}
	cl := b.session.Client()
	if cl == nil {
		return nil, nil
	}

	pkt, err := cl.DemuxRead()
	if err != nil {
		b.rec.RecordReadError()
		return nil, err
	}
	if pkt == nil {
		return nil, nil
	}

	switch pkt.StreamID {
	case backend.StreamIDInfo:
		// Metadata refresh; the packet carries no payload to decode but is
		// handed up so the player can observe the event.
		if err := b.refreshStreams(cl); err != nil {
			b.log.Warn("stream info refresh failed", "error", err)
		}
		return pkt, nil

	case backend.StreamIDChange:
		if err := b.refreshStreams(cl); err != nil {
			b.log.Warn("stream change refresh failed", "error", err)
		}
		b.log.Debug("stream layout changed", "streams", b.catalog.Count())
		return nil, nil

	default:
		b.rec.RecordPacket(pkt.StreamID, len(pkt.Data))
		return pkt, nil
	}
}

// refreshStreams reconciles the catalog against a fresh property snapshot.
// On a failed fetch the previous mapping is left untouched; reconciliation
// never partially applies.
func (b *Bridge) refreshStreams(cl backend.Client) error {
	props, err := cl.StreamProperties()
	if err != nil {
		return err
	}
	b.catalog.Reconcile(props)
	b.rec.RecordCatalogRefresh(b.catalog.Count())
	return nil
}

// Streams returns the current catalog snapshot in no guaranteed order.
func (b *Bridge) Streams() []*stream.Descriptor {
	return b.catalog.Snapshot()
}

// Stream returns the descriptor for a stream id.
func (b *Bridge) Stream(id int) (*stream.Descriptor, bool) {
	return b.catalog.Lookup(id)
}

// StreamCount returns the number of catalog entries.
func (b *Bridge) StreamCount() int {
	return b.catalog.Count()
}

// AbortDemux cancels an in-flight ReadDemux. It is one of the two
// operations that may be invoked to unblock a thread parked in a blocking
// read.
func (b *Bridge) AbortDemux() {
	if cl := b.session.Client(); cl != nil {
		cl.DemuxAbort()
	}
}

// FlushDemux discards buffered packets after a seek or reconfiguration.
func (b *Bridge) FlushDemux() {
	if cl := b.session.Client(); cl != nil {
		cl.DemuxFlush()
	}
}

// SetSpeed forwards the playback speed to the backend.
func (b *Bridge) SetSpeed(speed int) {
	if cl := b.session.Client(); cl != nil {
		cl.SetSpeed(speed)
	}
}

// SeekTime seeks to an absolute time in milliseconds. It reports the
// achieved start presentation timestamp in microseconds and whether the
// seek was honored. Without a playing session it reports false.
func (b *Bridge) SeekTime(millis int, backwards bool) (startPTS int64, ok bool) {
	cl := b.session.Client()
	if cl == nil {
		return 0, false
	}
	return cl.SeekTime(millis, backwards)
}
