// Package metrics holds the Prometheus collectors updated during a run.
//
// drillcut is a batch tool, so nothing is served over HTTP. When a textfile
// path is configured the registry is written once at the end of a run in the
// node-exporter textfile collector format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for a drillcut run.
type Metrics struct {
	reg *prometheus.Registry

	Units        *prometheus.CounterVec
	Failures     *prometheus.CounterVec
	ClipsWritten *prometheus.CounterVec
	Retries      *prometheus.CounterVec
	UnitDuration *prometheus.HistogramVec
	LastRun      prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		reg: reg,
		Units: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "drillcut_units_total",
			Help: "Units processed by stage and outcome",
		}, []string{"stage", "status"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "drillcut_unit_failures_total",
			Help: "Failed units by stage and failure kind",
		}, []string{"stage", "kind"}),
		ClipsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "drillcut_clips_written_total",
			Help: "Clips written to an output pool",
		}, []string{"stage"}),
		Retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "drillcut_extraction_retries_total",
			Help: "Extra extraction attempts after a failed ffmpeg copy",
		}, []string{"stage"}),
		UnitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "drillcut_unit_duration_seconds",
			Help:    "Wall time spent on one recording or clip",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}, []string{"stage"}),
		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "drillcut_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// ObserveUnit records one unit outcome. kind is empty unless the unit failed.
func (m *Metrics) ObserveUnit(stage, status, kind string, clips, retries int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Units.WithLabelValues(stage, status).Inc()
	if strings.TrimSpace(kind) != "" {
		m.Failures.WithLabelValues(stage, kind).Inc()
	}
	if clips > 0 {
		m.ClipsWritten.WithLabelValues(stage).Add(float64(clips))
	}
	if retries > 0 {
		m.Retries.WithLabelValues(stage).Add(float64(retries))
	}
	m.UnitDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// MarkRunFinished stamps the last-run gauge.
func (m *Metrics) MarkRunFinished(at time.Time) {
	if m == nil {
		return
	}
	m.LastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
