package headend

import (
	"sync"
	"sync/atomic"
	"time"
)

// subscriberBufferSize is the per-subscriber chunk queue depth. A slow
// subscriber drops chunks rather than stalling the feed.
const subscriberBufferSize = 64

// ChannelStats captures feed-level metrics for a channel, exposed via the
// status API for monitoring source health.
type ChannelStats struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Radio         bool   `json:"radio"`
	Live          bool   `json:"live"`
	BytesReceived int64  `json:"bytesReceived"`
	ChunkCount    int64  `json:"chunkCount"`
	Subscribers   int    `json:"subscribers"`
	ConnectedAt   int64  `json:"connectedAt,omitempty"`
}

// Channel is one entry of the headend lineup. A live SRT feed writes TS
// chunks into it; playback sessions subscribe to receive copies.
type Channel struct {
	ID       int
	Name     string
	StreamID string
	Radio    bool

	mu     sync.Mutex
	subs   map[uint64]chan []byte
	nextID uint64

	live        atomic.Bool
	connectedAt atomic.Int64
	bytes       atomic.Int64
	chunks      atomic.Int64
}

func newChannel(id int, name, streamID string, radio bool) *Channel {
	return &Channel{
		ID:       id,
		Name:     name,
		StreamID: streamID,
		Radio:    radio,
		subs:     make(map[uint64]chan []byte),
	}
}

// Subscribe attaches a new feed subscriber. The returned channel is closed
// when the feed ends or the subscriber is detached.
func (c *Channel) Subscribe() (uint64, <-chan []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	ch := make(chan []byte, subscriberBufferSize)
	c.subs[id] = ch
	return id, ch
}

// Unsubscribe detaches a subscriber and closes its channel.
func (c *Channel) Unsubscribe(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch, ok := c.subs[id]; ok {
		delete(c.subs, id)
		close(ch)
	}
}

// feedStart marks the channel live. Only one feed at a time is accepted.
func (c *Channel) feedStart() bool {
	if !c.live.CompareAndSwap(false, true) {
		return false
	}
	c.connectedAt.Store(time.Now().UnixMilli())
	return true
}

// feedStop marks the channel off-air and closes all subscriber channels.
func (c *Channel) feedStop() {
	c.live.Store(false)
	c.connectedAt.Store(0)

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// feedWrite copies one chunk of TS bytes to every subscriber. Subscribers
// whose queue is full miss the chunk.
func (c *Channel) feedWrite(p []byte) {
	c.bytes.Add(int64(len(p)))
	c.chunks.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		chunk := make([]byte, len(p))
		copy(chunk, p)
		select {
		case ch <- chunk:
		default:
		}
	}
}

// Live reports whether a feed is currently attached.
func (c *Channel) Live() bool {
	return c.live.Load()
}

// Stats returns a snapshot of channel feed metrics.
func (c *Channel) Stats() ChannelStats {
	c.mu.Lock()
	subs := len(c.subs)
	c.mu.Unlock()

	return ChannelStats{
		ID:            c.ID,
		Name:          c.Name,
		Radio:         c.Radio,
		Live:          c.live.Load(),
		BytesReceived: c.bytes.Load(),
		ChunkCount:    c.chunks.Load(),
		Subscribers:   subs,
		ConnectedAt:   c.connectedAt.Load(),
	}
}
