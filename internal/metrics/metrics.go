// Package metrics exposes capture session counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all session metrics
type Metrics struct {
	// Frame processing
	FramesProcessed   atomic.Uint64
	FramesUntracked   atomic.Uint64
	CandidatesOffered atomic.Uint64
	SnapshotsDropped  atomic.Uint64

	// Commands
	Commits          atomic.Uint64
	CommitNoops      atomic.Uint64
	Undos            atomic.Uint64
	Clears           atomic.Uint64
	CommandsRejected atomic.Uint64

	// Export
	ExportsSucceeded atomic.Uint64
	ExportsFailed    atomic.Uint64

	// Current capture stage (0=empty .. 4=done)
	Stage atomic.Uint64

	// Last pose processing time in microseconds
	ProcessLatencyUs atomic.Uint64

	registry *prometheus.Registry
}

// New creates a new Metrics instance with its own Prometheus registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name  string
		help  string
		value *atomic.Uint64
	}{
		{"arbox_frames_processed_total", "Total camera poses processed", &m.FramesProcessed},
		{"arbox_frames_untracked_total", "Poses processed without normal tracking", &m.FramesUntracked},
		{"arbox_candidates_offered_total", "Poses that produced a candidate point", &m.CandidatesOffered},
		{"arbox_snapshots_dropped_total", "Snapshots dropped because a subscriber was full", &m.SnapshotsDropped},
		{"arbox_commits_total", "Commits that added geometry", &m.Commits},
		{"arbox_commit_noops_total", "Commits without a candidate", &m.CommitNoops},
		{"arbox_undos_total", "Undo commands applied", &m.Undos},
		{"arbox_clears_total", "Clear commands applied", &m.Clears},
		{"arbox_commands_rejected_total", "Commands received after teardown", &m.CommandsRejected},
		{"arbox_exports_succeeded_total", "View exports written", &m.ExportsSucceeded},
		{"arbox_exports_failed_total", "View exports that failed", &m.ExportsFailed},
		{"arbox_capture_stage", "Current capture stage (0=empty, 4=done)", &m.Stage},
		{"arbox_process_latency_us", "Last pose processing time in microseconds", &m.ProcessLatencyUs},
	}

	for _, g := range gauges {
		value := g.value
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: g.name,
				Help: g.help,
			},
			func() float64 { return float64(value.Load()) },
		))
	}
}

// UpdateProcessLatency records how long the last pose took to process
func (m *Metrics) UpdateProcessLatency(d time.Duration) {
	m.ProcessLatencyUs.Store(uint64(d.Microseconds()))
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
