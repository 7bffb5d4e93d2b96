package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/pvrbridge/internal/api"
	"github.com/zsiec/pvrbridge/internal/bridge"
	"github.com/zsiec/pvrbridge/internal/certs"
	"github.com/zsiec/pvrbridge/internal/config"
	"github.com/zsiec/pvrbridge/internal/headend"
	"github.com/zsiec/pvrbridge/internal/metrics"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}

	level := logLevel(cfg.Logging.Level)
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("generating self-signed certificate")
	cert, err := certs.Generate(14 * 24 * time.Hour)
	if err != nil {
		slog.Error("failed to generate cert", "error", err)
		os.Exit(1)
	}
	slog.Info("certificate generated",
		"fingerprint", cert.FingerprintBase64(),
		"expires", cert.NotAfter.Format(time.RFC3339),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	h := headend.New(cfg.Headend, nil)
	m := metrics.New()
	b := bridge.New(h.NewClient(), h,
		bridge.WithRecorder(m),
		bridge.WithScanTimeout(cfg.Bridge.ScanTimeoutDuration()),
		bridge.WithAncillaryStreams(cfg.Bridge.AncillaryStreams),
	)
	a := &app{bridge: b}

	slog.Info("pvrbridge starting",
		"version", version,
		"srt", cfg.Headend.SRTAddress,
		"api", cfg.API.Address,
		"channels", len(cfg.Headend.Channels),
		"cert_hash", cert.FingerprintBase64(),
	)

	g, ctx := errgroup.WithContext(ctx)

	srtSrv := headend.NewSRTServer(cfg.Headend.SRTAddress, h, nil)
	g.Go(func() error {
		return srtSrv.Start(ctx)
	})

	if cfg.API.Enabled {
		apiSrv := api.NewServer(cfg.API.Address, cert, h, a, nil)
		g.Go(func() error {
			return apiSrv.Start(ctx)
		})
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		metricsSrv := &http.Server{
			Addr:    cfg.Metrics.Address,
			Handler: mux,
		}
		g.Go(func() error {
			slog.Info("metrics server listening", "addr", cfg.Metrics.Address)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	b.Close()
	if err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

type app struct {
	bridge *bridge.Bridge
}

// SessionStatus snapshots the playback session for the status API.
func (a *app) SessionStatus() api.SessionStatus {
	st := api.SessionStatus{
		Open:        a.bridge.IsOpen(),
		Recording:   a.bridge.IsRecordingSession(),
		DemuxActive: a.bridge.DemuxActive(),
		EndOfStream: a.bridge.IsEndOfStream(),
	}
	for _, d := range a.bridge.Streams() {
		st.Streams = append(st.Streams, api.StreamInfo{
			ID:       d.ID,
			Kind:     d.Kind.String(),
			Codec:    uint32(d.Codec),
			Language: d.Language,
			Realtime: d.Realtime,
		})
	}
	return st
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
