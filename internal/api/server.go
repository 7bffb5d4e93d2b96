// Package api serves the HTTP/3 status API: channel lineup health and the
// state of the playback session.
package api

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"github.com/zsiec/pvrbridge/internal/certs"
	"github.com/zsiec/pvrbridge/internal/headend"
)

// StreamInfo is the JSON-serializable summary of one catalogued stream.
type StreamInfo struct {
	ID       int    `json:"id"`
	Kind     string `json:"kind"`
	Codec    uint32 `json:"codec"`
	Language string `json:"language,omitempty"`
	Realtime bool   `json:"realtime,omitempty"`
}

// SessionStatus summarizes the playback session for the status endpoint.
type SessionStatus struct {
	Open        bool         `json:"open"`
	Recording   bool         `json:"recording"`
	DemuxActive bool         `json:"demuxActive"`
	EndOfStream bool         `json:"endOfStream"`
	Streams     []StreamInfo `json:"streams"`
}

// SessionProvider supplies the current playback session state.
type SessionProvider interface {
	SessionStatus() SessionStatus
}

// ChannelProvider supplies lineup feed metrics.
type ChannelProvider interface {
	Stats() []headend.ChannelStats
}

// Server is the HTTP/3 status API server.
type Server struct {
	log      *slog.Logger
	addr     string
	cert     *certs.CertInfo
	channels ChannelProvider
	session  SessionProvider
	started  time.Time
}

// NewServer creates a status API server. If log is nil, slog.Default() is
// used.
func NewServer(addr string, cert *certs.CertInfo, channels ChannelProvider, session SessionProvider, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:      log.With("component", "api"),
		addr:     addr,
		cert:     cert,
		channels: channels,
		session:  session,
		started:  time.Now(),
	}
}

// Handler returns the API route handler, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/channels", s.handleChannels)
	return corsMiddleware(mux)
}

// Start launches the HTTP/3 server and blocks until the context is
// cancelled or a fatal error occurs.
func (s *Server) Start(ctx context.Context) error {
	srv := &http3.Server{
		Addr:      s.addr,
		Handler:   s.Handler(),
		TLSConfig: &tls.Config{Certificates: []tls.Certificate{s.cert.TLSCert}},
		QUICConfig: &quic.Config{
			MaxIdleTimeout: 30 * time.Second,
		},
	}

	s.log.Info("listening", "addr", s.addr, "cert_hash", s.cert.FingerprintBase64())

	stop := context.AfterFunc(ctx, func() { srv.Close() })
	defer stop()

	err := srv.ListenAndServe()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

type statusResponse struct {
	UptimeMs        int64         `json:"uptimeMs"`
	CertFingerprint string        `json:"certFingerprint"`
	CertNotAfter    int64         `json:"certNotAfter"`
	Session         SessionStatus `json:"session"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		UptimeMs:        time.Since(s.started).Milliseconds(),
		CertFingerprint: s.cert.FingerprintBase64(),
		CertNotAfter:    s.cert.NotAfter.UnixMilli(),
		Session:         s.session.SessionStatus(),
	})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.channels.Stats())
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}
