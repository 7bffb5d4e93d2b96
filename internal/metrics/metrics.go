// Package metrics exposes Prometheus metrics for the demux bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the bridge. It satisfies
// the bridge Recorder interface.
type Metrics struct {
	// Demux packet metrics
	PacketsRead prometheus.Counter
	BytesRead   prometheus.Counter
	ReadErrors  prometheus.Counter

	// Stream catalog metrics
	CatalogRefreshes prometheus.Counter
	CatalogSize      prometheus.Gauge

	// Session metrics
	SessionsOpened *prometheus.CounterVec
	SessionsClosed prometheus.Counter
}

// New creates and registers all bridge metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		PacketsRead: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pvrbridge_demux_packets_total",
			Help: "Total number of demux packets delivered to the player",
		}),
		BytesRead: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pvrbridge_demux_bytes_total",
			Help: "Total payload bytes delivered through the demux path",
		}),
		ReadErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pvrbridge_read_errors_total",
			Help: "Total number of failed demux reads",
		}),

		CatalogRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pvrbridge_catalog_refreshes_total",
			Help: "Total number of stream catalog reconciliations",
		}),
		CatalogSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pvrbridge_catalog_streams",
			Help: "Current number of streams in the catalog",
		}),

		SessionsOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pvrbridge_sessions_opened_total",
			Help: "Total number of playback sessions opened, by kind",
		}, []string{"kind"}),
		SessionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pvrbridge_sessions_closed_total",
			Help: "Total number of playback sessions closed",
		}),
	}
}

// RecordPacket counts one delivered demux packet and its payload size.
func (m *Metrics) RecordPacket(streamID int, bytes int) {
	m.PacketsRead.Inc()
	m.BytesRead.Add(float64(bytes))
}

// RecordCatalogRefresh counts a reconciliation and tracks catalog size.
func (m *Metrics) RecordCatalogRefresh(streams int) {
	m.CatalogRefreshes.Inc()
	m.CatalogSize.Set(float64(streams))
}

// RecordSessionOpen counts an opened session by kind (live, recording).
func (m *Metrics) RecordSessionOpen(kind string) {
	m.SessionsOpened.WithLabelValues(kind).Inc()
}

// RecordSessionClose counts a closed session.
func (m *Metrics) RecordSessionClose() {
	m.SessionsClosed.Inc()
}

// RecordReadError counts a failed demux read.
func (m *Metrics) RecordReadError() {
	m.ReadErrors.Inc()
}
