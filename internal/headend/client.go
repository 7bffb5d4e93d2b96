package headend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zsiec/pvrbridge/internal/backend"
	"github.com/zsiec/pvrbridge/internal/mpegts"
)

// mimeTypeMPEGTS is the container format reported for recorded streams.
// Live streams are demultiplexed by the headend itself and report none.
const mimeTypeMPEGTS = "video/mp2t"

// Client is one playback session against the headend. It implements
// backend.Client. At most one stream is open at a time.
type Client struct {
	log     *slog.Logger
	headend *Headend
	handle  string

	mu    sync.Mutex
	live  *liveStream
	rec   *recordedStream
	speed int
}

func newClient(h *Headend, log *slog.Logger) *Client {
	handle := uuid.NewString()
	return &Client{
		log:     log.With("component", "client", "session", handle),
		headend: h,
		handle:  handle,
	}
}

// Handle returns the unique identifier of this session.
func (c *Client) Handle() string {
	return c.handle
}

// OpenLiveStream tunes to a lineup channel and starts demultiplexing its
// feed. The feed may attach after the subscription; until then reads
// deliver nothing.
func (c *Client) OpenLiveStream(channel backend.ChannelRef) error {
	ch, ok := c.headend.Channel(channel.ID)
	if !ok {
		return fmt.Errorf("headend: channel %d: %w", channel.ID, backend.ErrChannelNotFound)
	}

	c.CloseStream()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.live = newLiveStream(c.headend, ch)
	c.log.Info("live stream opened", "channel", ch.ID, "name", ch.Name)
	return nil
}

// OpenRecordedStream opens a recording file for raw byte playback.
func (c *Client) OpenRecordedStream(recording backend.RecordingRef) error {
	path := c.headend.recordingPath(recording.ID, recording.Deleted)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("headend: recording %s: %w", recording.ID, backend.ErrRecordingNotFound)
		}
		return fmt.Errorf("headend: open recording %s: %w", recording.ID, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("headend: stat recording %s: %w", recording.ID, err)
	}

	c.CloseStream()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec = &recordedStream{file: f, size: info.Size()}
	c.log.Info("recorded stream opened", "recording", recording.ID, "bytes", info.Size())
	return nil
}

// CloseStream releases the open stream, if any.
func (c *Client) CloseStream() {
	c.mu.Lock()
	live, rec := c.live, c.rec
	c.live, c.rec = nil, nil
	c.mu.Unlock()

	if live != nil {
		live.close()
		c.log.Info("live stream closed", "channel", live.channel.ID)
	}
	if rec != nil {
		rec.file.Close()
		c.log.Info("recorded stream closed")
	}
}

// ReadStream reads raw container bytes. Only recorded streams carry raw
// bytes; live streams are demultiplexed server-side.
func (c *Client) ReadStream(p []byte) (int, error) {
	c.mu.Lock()
	rec := c.rec
	c.mu.Unlock()

	if rec == nil {
		return 0, nil
	}
	n, err := rec.file.Read(p)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

// SeekStream repositions the raw byte stream of a recording.
func (c *Client) SeekStream(offset int64, whence int) (int64, error) {
	c.mu.Lock()
	rec := c.rec
	c.mu.Unlock()

	if rec == nil {
		return -1, nil
	}
	return rec.file.Seek(offset, whence)
}

// StreamLength reports the recording size, or -1 for live streams.
func (c *Client) StreamLength() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rec != nil {
		return c.rec.size
	}
	return -1
}

// StreamTimes reports the timing window of the open stream.
func (c *Client) StreamTimes() (backend.StreamTimes, error) {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()

	if live == nil {
		return backend.StreamTimes{}, nil
	}
	return live.times(), nil
}

func (c *Client) CanSeekStream() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec != nil
}

func (c *Client) CanPauseStream() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec != nil
}

// PauseStream is a no-op for file-backed recordings: the player simply
// stops reading.
func (c *Client) PauseStream(paused bool) error {
	return nil
}

// SetSpeed records the requested playback speed. The headend delivers
// packets at the feed's pace regardless.
func (c *Client) SetSpeed(speed int) {
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
}

// DemuxRead returns the next demultiplexed packet of a live stream.
func (c *Client) DemuxRead() (*backend.DemuxPacket, error) {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()

	if live == nil {
		return nil, nil
	}
	return live.nextPacket()
}

// StreamProperties returns the elementary stream records discovered from
// the live feed's PMT.
func (c *Client) StreamProperties() ([]backend.StreamProperties, error) {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()

	if live == nil {
		return nil, nil
	}
	return live.properties(), nil
}

// DemuxAbort cancels an in-flight DemuxRead.
func (c *Client) DemuxAbort() {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()

	if live != nil {
		live.abort()
	}
}

// DemuxFlush discards queued packets.
func (c *Client) DemuxFlush() {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()

	if live != nil {
		live.flush()
	}
}

// SeekTime is not honored: live feeds have no timeshift buffer.
func (c *Client) SeekTime(millis int, backwards bool) (int64, bool) {
	return 0, false
}

func (c *Client) IsRealTimeStream() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live != nil
}

func (c *Client) CanRecordInstantly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live != nil
}

func (c *Client) IsRecordingOnPlayingChannel() bool {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()

	return live != nil && live.tapping()
}

// StartRecordingOnPlayingChannel starts or stops writing the raw channel
// feed to a new recording file.
func (c *Client) StartRecordingOnPlayingChannel(on bool) error {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()

	if live == nil {
		return backend.ErrNotPlaying
	}
	if on {
		path, err := live.startTap(c.headend.recordingsDir)
		if err != nil {
			return err
		}
		c.log.Info("instant recording started", "path", path)
		return nil
	}
	live.stopTap()
	c.log.Info("instant recording stopped")
	return nil
}

// CurrentInputFormat reports the container type of the open stream. Live
// streams are demultiplexed by the headend and report none.
func (c *Client) CurrentInputFormat() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rec != nil {
		return mimeTypeMPEGTS
	}
	return ""
}

// recordedStream is a file-backed recording being played back.
type recordedStream struct {
	file *os.File
	size int64
}

// liveStream is one live channel subscription being demultiplexed. A
// background goroutine pulls the demuxer and queues deliverable packets;
// DemuxRead drains the queue without blocking.
type liveStream struct {
	headend *Headend
	channel *Channel
	subID   uint64
	cancel  context.CancelFunc
	out     chan *backend.DemuxPacket

	mu         sync.Mutex
	props      []backend.StreamProperties
	pmtVersion int
	started    time.Time
	ptsFirst   int64
	ptsLast    int64

	tapMu   sync.Mutex
	tapFile *os.File
	tapSub  uint64
	tapDone chan struct{}
}

// outQueueSize bounds the packet queue between the demux goroutine and
// the reader. The goroutine stalls when the reader falls behind.
const outQueueSize = 256

func newLiveStream(h *Headend, ch *Channel) *liveStream {
	ctx, cancel := context.WithCancel(context.Background())
	subID, feed := ch.Subscribe()

	ls := &liveStream{
		headend:    h,
		channel:    ch,
		subID:      subID,
		cancel:     cancel,
		out:        make(chan *backend.DemuxPacket, outQueueSize),
		pmtVersion: -1,
		started:    time.Now(),
		ptsFirst:   backend.NoPTS,
		ptsLast:    backend.NoPTS,
	}

	dmx := mpegts.NewDemuxer(ctx, &feedReader{ctx: ctx, feed: feed})
	go ls.run(ctx, dmx)
	return ls
}

// run pulls demuxer output and queues deliverable packets and layout
// sentinels until the feed ends or the stream is closed.
func (ls *liveStream) run(ctx context.Context, dmx *mpegts.Demuxer) {
	defer close(ls.out)

	for {
		data, err := dmx.NextData()
		if err != nil {
			return
		}

		var pkt *backend.DemuxPacket
		switch {
		case data.PMT != nil:
			pkt = ls.handlePMT(data.PMT)
		case data.PES != nil:
			pkt = ls.handlePES(data.PID, data.PES)
		}
		if pkt == nil {
			continue
		}

		select {
		case ls.out <- pkt:
		case <-ctx.Done():
			return
		}
	}
}

func (ls *liveStream) close() {
	ls.stopTap()
	ls.cancel()
	ls.channel.Unsubscribe(ls.subID)
}

func (ls *liveStream) abort() {
	ls.cancel()
}

// flush discards queued packets without blocking.
func (ls *liveStream) flush() {
	for {
		select {
		case _, ok := <-ls.out:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// nextPacket returns the next queued packet, or nil when none is
// available yet or the feed has ended.
func (ls *liveStream) nextPacket() (*backend.DemuxPacket, error) {
	select {
	case pkt := <-ls.out:
		// pkt is nil when the queue was closed.
		if pkt != nil && pkt.PTS != backend.NoPTS {
			ls.notePTS(pkt.PTS)
		}
		return pkt, nil
	default:
		return nil, nil
	}
}

// handlePMT reconstructs stream properties from a PMT and reports the
// change to the caller: a layout sentinel when streams appeared or
// disappeared, an info sentinel when only their definitions moved.
func (ls *liveStream) handlePMT(pmt *mpegts.PMTData) *backend.DemuxPacket {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if int(pmt.Version) == ls.pmtVersion {
		return nil
	}

	prev := ls.props
	first := ls.pmtVersion < 0
	ls.pmtVersion = int(pmt.Version)
	ls.props = propertiesFromPMT(pmt)

	if first || layoutChanged(prev, ls.props) {
		return &backend.DemuxPacket{StreamID: backend.StreamIDChange, PTS: backend.NoPTS, DTS: backend.NoPTS}
	}
	return &backend.DemuxPacket{StreamID: backend.StreamIDInfo, PTS: backend.NoPTS, DTS: backend.NoPTS}
}

func (ls *liveStream) handlePES(pid uint16, pes *mpegts.PESData) *backend.DemuxPacket {
	ls.mu.Lock()
	known := false
	for _, p := range ls.props {
		if p.ID == int(pid) {
			known = true
			break
		}
	}
	ls.mu.Unlock()
	if !known {
		return nil
	}

	pkt := &backend.DemuxPacket{
		StreamID: int(pid),
		PTS:      backend.NoPTS,
		DTS:      backend.NoPTS,
		Data:     pes.Data,
	}
	if oh := pes.Header.OptionalHeader; oh != nil {
		if oh.PTS != nil {
			pkt.PTS = oh.PTS.Micros()
		}
		if oh.DTS != nil {
			pkt.DTS = oh.DTS.Micros()
		}
	}
	return pkt
}

func (ls *liveStream) notePTS(pts int64) {
	ls.mu.Lock()
	if ls.ptsFirst == backend.NoPTS {
		ls.ptsFirst = pts
	}
	ls.ptsLast = pts
	ls.mu.Unlock()
}

func (ls *liveStream) properties() []backend.StreamProperties {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	out := make([]backend.StreamProperties, len(ls.props))
	copy(out, ls.props)
	return out
}

func (ls *liveStream) times() backend.StreamTimes {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	t := backend.StreamTimes{Start: ls.started.UnixMilli()}
	if ls.ptsFirst != backend.NoPTS {
		t.PTSBegin = ls.ptsFirst
		t.PTSStart = ls.ptsLast
		t.PTSEnd = ls.ptsLast
	}
	return t
}

func (ls *liveStream) tapping() bool {
	ls.tapMu.Lock()
	defer ls.tapMu.Unlock()
	return ls.tapFile != nil
}

// startTap subscribes a second feed reader that writes raw TS chunks to a
// fresh recording file.
func (ls *liveStream) startTap(dir string) (string, error) {
	ls.tapMu.Lock()
	defer ls.tapMu.Unlock()

	if ls.tapFile != nil {
		return ls.tapFile.Name(), nil
	}

	name := fmt.Sprintf("%s-%s.ts", sanitizeName(ls.channel.Name), uuid.NewString())
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("headend: create recording: %w", err)
	}

	subID, feed := ls.channel.Subscribe()
	done := make(chan struct{})

	ls.tapFile = f
	ls.tapSub = subID
	ls.tapDone = done

	go func() {
		defer close(done)
		for chunk := range feed {
			if _, err := f.Write(chunk); err != nil {
				return
			}
		}
	}()

	return path, nil
}

func (ls *liveStream) stopTap() {
	ls.tapMu.Lock()
	f, subID, done := ls.tapFile, ls.tapSub, ls.tapDone
	ls.tapFile, ls.tapSub, ls.tapDone = nil, 0, nil
	ls.tapMu.Unlock()

	if f == nil {
		return
	}
	ls.channel.Unsubscribe(subID)
	<-done
	f.Close()
}

// feedReader adapts a subscription channel of TS chunks to io.Reader for
// the demuxer.
type feedReader struct {
	ctx  context.Context
	feed <-chan []byte
	buf  []byte
}

func (r *feedReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		select {
		case <-r.ctx.Done():
			return 0, r.ctx.Err()
		case chunk, ok := <-r.feed:
			if !ok {
				return 0, io.EOF
			}
			r.buf = chunk
		}
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ', r == '-', r == '_':
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "recording"
	}
	return string(out)
}
