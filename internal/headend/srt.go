package headend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	srtgo "github.com/zsiec/srtgo"
)

// srtReadBufferSize is the read buffer for SRT socket reads.
// 1316 bytes = 7 MPEG-TS packets (188 * 7), the standard SRT payload size.
const srtReadBufferSize = 1316 * 10

// srtLatencyNs is the SRT latency setting in nanoseconds (120ms).
const srtLatencyNs = 120_000_000

// SRTServer accepts incoming SRT publish connections and feeds them into
// the matching lineup channel.
type SRTServer struct {
	log     *slog.Logger
	addr    string
	headend *Headend
}

// NewSRTServer creates an SRT server that listens on addr and feeds the
// given headend. If log is nil, slog.Default() is used.
func NewSRTServer(addr string, headend *Headend, log *slog.Logger) *SRTServer {
	if log == nil {
		log = slog.Default()
	}
	return &SRTServer{
		log:     log.With("component", "srt-server"),
		addr:    addr,
		headend: headend,
	}
}

// Start begins accepting SRT publish connections. It blocks until the
// context is cancelled.
func (s *SRTServer) Start(ctx context.Context) error {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs

	l, err := srtgo.Listen(s.addr, cfg)
	if err != nil {
		return fmt.Errorf("SRT listen on %s: %w", s.addr, err)
	}
	s.log.Info("listening", "addr", s.addr)

	l.SetAcceptRejectFunc(func(req srtgo.ConnRequest) srtgo.RejectReason {
		key := extractStreamKey(req.StreamID)
		if _, ok := s.headend.channelByStreamKey(key); !ok {
			return srtgo.RejPeer
		}
		return 0
	})

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("accept error", "error", err)
			continue
		}

		key := extractStreamKey(conn.StreamID())
		ch, ok := s.headend.channelByStreamKey(key)
		if !ok {
			conn.Close()
			continue
		}

		s.log.Info("publish", "stream_key", key, "channel", ch.ID, "remote", conn.RemoteAddr())
		go s.handleConnection(ctx, conn, ch)
	}
}

func (s *SRTServer) handleConnection(ctx context.Context, conn *srtgo.Conn, ch *Channel) {
	defer conn.Close()

	if !ch.feedStart() {
		s.log.Warn("channel already live, rejecting feed", "channel", ch.ID)
		return
	}
	defer ch.feedStop()

	buf := make([]byte, srtReadBufferSize)
	for {
		if ctx.Err() != nil {
			break
		}
		n, err := conn.Read(buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Debug("read error", "channel", ch.ID, "error", err)
			}
			break
		}
		ch.feedWrite(buf[:n])
	}

	stats := ch.Stats()
	s.log.Info("feed closed", "channel", ch.ID,
		"bytes", stats.BytesReceived, "chunks", stats.ChunkCount)
}

func extractStreamKey(streamID string) string {
	streamID = strings.TrimPrefix(streamID, "/")
	streamID = strings.TrimPrefix(streamID, "live/")
	return streamID
}
