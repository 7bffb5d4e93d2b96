package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/pvrbridge/internal/backend"
)

// stubClient is a scriptable backend.Client for session tests.
type stubClient struct {
	liveOpened     int
	recordedOpened int
	closed         int
	openErr        error

	readData    []byte
	readErr     error
	seekResult  int64
	seekErr     error
	canSeek     bool
	canPause    bool
	inputFormat string
	times       backend.StreamTimes
	length      int64
}

func (c *stubClient) OpenLiveStream(backend.ChannelRef) error {
	if c.openErr != nil {
		return c.openErr
	}
	c.liveOpened++
	return nil
}

func (c *stubClient) OpenRecordedStream(backend.RecordingRef) error {
	if c.openErr != nil {
		return c.openErr
	}
	c.recordedOpened++
	return nil
}

func (c *stubClient) CloseStream() { c.closed++ }

func (c *stubClient) ReadStream(p []byte) (int, error) {
	if c.readErr != nil {
		return 0, c.readErr
	}
	return copy(p, c.readData), nil
}

func (c *stubClient) SeekStream(int64, int) (int64, error) { return c.seekResult, c.seekErr }
func (c *stubClient) StreamLength() int64                  { return c.length }

func (c *stubClient) StreamTimes() (backend.StreamTimes, error) {
	return c.times, nil
}

func (c *stubClient) CanSeekStream() bool                      { return c.canSeek }
func (c *stubClient) CanPauseStream() bool                     { return c.canPause }
func (c *stubClient) PauseStream(bool) error                   { return nil }
func (c *stubClient) SetSpeed(int)                             {}
func (c *stubClient) DemuxRead() (*backend.DemuxPacket, error) { return nil, nil }

func (c *stubClient) StreamProperties() ([]backend.StreamProperties, error) {
	return nil, nil
}

func (c *stubClient) DemuxAbort()                               {}
func (c *stubClient) DemuxFlush()                               {}
func (c *stubClient) SeekTime(int, bool) (int64, bool)          { return 0, false }
func (c *stubClient) IsRealTimeStream() bool                    { return true }
func (c *stubClient) CanRecordInstantly() bool                  { return false }
func (c *stubClient) IsRecordingOnPlayingChannel() bool         { return false }
func (c *stubClient) StartRecordingOnPlayingChannel(bool) error { return nil }
func (c *stubClient) CurrentInputFormat() string                { return c.inputFormat }

// stubResolver classifies targets from a fixed table.
type stubResolver struct {
	targets map[string]backend.Target
}

func (r *stubResolver) Resolve(target string) (backend.Target, error) {
	t, ok := r.targets[target]
	if !ok {
		return backend.Target{Kind: backend.TargetUnknown}, nil
	}
	return t, nil
}

func newTestResolver() *stubResolver {
	return &stubResolver{targets: map[string]backend.Target{
		"pvr://channels/1": {
			Kind:    backend.TargetLiveChannel,
			Channel: backend.ChannelRef{ID: 1, Name: "One"},
		},
		"pvr://recordings/show": {
			Kind:      backend.TargetRecording,
			Recording: backend.RecordingRef{ID: "show", Title: "Show"},
		},
		"pvr://recordings/gone": {
			Kind: backend.TargetDeletedRecording,
		},
	}}
}

// fakeClock is a settable clock for deadline tests.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newLiveSession(t *testing.T, client *stubClient, clk *fakeClock) *Session {
	t.Helper()
	s := New(client, newTestResolver(),
		WithScanTimeout(10*time.Second), WithClock(clk.now))
	require.NoError(t, s.Open("pvr://channels/1"))
	return s
}

func TestOpenLiveChannel(t *testing.T) {
	t.Parallel()
	client := &stubClient{}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := newLiveSession(t, client, clk)

	assert.True(t, s.IsOpen())
	assert.False(t, s.IsRecording())
	assert.Equal(t, 1, client.liveOpened)
	// Empty input format means the backend demuxes the channel itself.
	assert.True(t, s.DemuxActive())
}

func TestOpenRecording(t *testing.T) {
	t.Parallel()
	client := &stubClient{inputFormat: "video/mp2t"}
	s := New(client, newTestResolver())
	require.NoError(t, s.Open("pvr://recordings/show"))

	assert.True(t, s.IsRecording())
	assert.False(t, s.DemuxActive())
	assert.Equal(t, 1, client.recordedOpened)
}

func TestOpenDeletedRecordingFails(t *testing.T) {
	t.Parallel()
	client := &stubClient{}
	s := New(client, newTestResolver())

	err := s.Open("pvr://recordings/gone")
	require.ErrorIs(t, err, backend.ErrRecordingDeleted)
	assert.False(t, s.IsOpen())
	// No backend session may be created for a deleted recording.
	assert.Zero(t, client.liveOpened)
	assert.Zero(t, client.recordedOpened)
}

func TestOpenUnknownTargetFails(t *testing.T) {
	t.Parallel()
	client := &stubClient{}
	s := New(client, newTestResolver())

	err := s.Open("ftp://somewhere/else")
	require.ErrorIs(t, err, backend.ErrUnknownTarget)
	assert.False(t, s.IsOpen())
}

func TestScanTimeoutSuppressesEndOfStream(t *testing.T) {
	t.Parallel()
	client := &stubClient{}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := newLiveSession(t, client, clk)

	// Zero-byte read records end-of-stream.
	n, err := s.Read(make([]byte, 16))
	require.NoError(t, err)
	assert.Zero(t, n)

	// Before the deadline the flag is suppressed.
	assert.False(t, s.IsEndOfStream())
	clk.advance(9 * time.Second)
	assert.False(t, s.IsEndOfStream())

	// After the deadline the tracked flag shows through.
	clk.advance(2 * time.Second)
	assert.True(t, s.IsEndOfStream())
}

func TestSeekClearsEndOfStream(t *testing.T) {
	t.Parallel()
	client := &stubClient{seekResult: 4096}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := newLiveSession(t, client, clk)
	clk.advance(time.Minute)

	_, err := s.Read(make([]byte, 16))
	require.NoError(t, err)
	require.True(t, s.IsEndOfStream())

	ret, err := s.Seek(4096, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 4096, ret)
	assert.False(t, s.IsEndOfStream(), "a non-negative seek proves the stream is still producible")
}

func TestNegativeSeekKeepsEndOfStream(t *testing.T) {
	t.Parallel()
	client := &stubClient{seekResult: -1}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := newLiveSession(t, client, clk)
	clk.advance(time.Minute)

	_, _ = s.Read(make([]byte, 16))
	require.True(t, s.IsEndOfStream())

	_, err := s.Seek(4096, 0)
	require.NoError(t, err)
	assert.True(t, s.IsEndOfStream())
}

func TestSeekProbe(t *testing.T) {
	t.Parallel()
	client := &stubClient{canSeek: true}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := newLiveSession(t, client, clk)

	ret, err := s.Seek(0, SeekProbe)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ret)

	client.canSeek = false
	ret, err = s.Seek(0, SeekProbe)
	require.NoError(t, err)
	assert.EqualValues(t, 0, ret)
}

func TestNextAction(t *testing.T) {
	t.Parallel()
	client := &stubClient{}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := newLiveSession(t, client, clk)

	// Live, not exhausted: retry.
	assert.Equal(t, ActionRetry, s.NextAction())

	// Live and exhausted: reopen.
	_, _ = s.Read(make([]byte, 16))
	clk.advance(time.Minute)
	assert.Equal(t, ActionReopen, s.NextAction())

	// Recordings are terminal regardless of the flag.
	rec := New(&stubClient{}, newTestResolver(), WithClock(clk.now))
	require.NoError(t, rec.Open("pvr://recordings/show"))
	assert.Equal(t, ActionNone, rec.NextAction())
}

func TestCloseForcesEndOfStream(t *testing.T) {
	t.Parallel()
	client := &stubClient{readData: []byte{1, 2, 3}}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := newLiveSession(t, client, clk)
	clk.advance(time.Minute)

	s.Close()
	assert.False(t, s.IsOpen())
	assert.True(t, s.IsEndOfStream())
	assert.Equal(t, 1, client.closed)

	// Closing twice releases the backend only once.
	s.Close()
	assert.Equal(t, 1, client.closed)
}

func TestRecordingTimesAreZero(t *testing.T) {
	t.Parallel()
	client := &stubClient{times: backend.StreamTimes{
		Start: 1, PTSStart: 30_000_000, PTSBegin: 0, PTSEnd: 60_000_000,
	}}
	s := New(client, newTestResolver())
	require.NoError(t, s.Open("pvr://recordings/show"))

	assert.Zero(t, s.TotalTime())
	assert.Zero(t, s.PlayingTime())
}

func TestLiveTimesDeriveFromBackendWindow(t *testing.T) {
	t.Parallel()
	client := &stubClient{times: backend.StreamTimes{
		Start: 1, PTSStart: 30_000_000, PTSBegin: 0, PTSEnd: 60_000_000,
	}}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := newLiveSession(t, client, clk)

	assert.EqualValues(t, 60_000, s.TotalTime())
	assert.EqualValues(t, 30_000, s.PlayingTime())
}

func TestReadErrorPropagates(t *testing.T) {
	t.Parallel()
	client := &stubClient{readErr: errors.New("socket reset")}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := newLiveSession(t, client, clk)
	clk.advance(time.Minute)

	_, err := s.Read(make([]byte, 16))
	require.Error(t, err)
	// An I/O error is not recorded as end-of-stream.
	assert.False(t, s.IsEndOfStream())
}

func TestOperationsOnClosedSession(t *testing.T) {
	t.Parallel()
	s := New(&stubClient{}, newTestResolver())

	_, err := s.Read(make([]byte, 16))
	assert.ErrorIs(t, err, backend.ErrNotPlaying)
	_, err = s.Seek(0, 0)
	assert.ErrorIs(t, err, backend.ErrNotPlaying)
	assert.EqualValues(t, -1, s.Length())
	assert.Equal(t, backend.StreamTimes{}, s.Times())
	assert.Nil(t, s.Client())
	assert.Equal(t, ActionNone, s.NextAction())
}

func TestReopenClosesPreviousStream(t *testing.T) {
	t.Parallel()
	client := &stubClient{}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := newLiveSession(t, client, clk)

	require.NoError(t, s.Open("pvr://recordings/show"))
	assert.Equal(t, 1, client.closed, "opening over an open session must close it first")
	assert.True(t, s.IsRecording())
}
