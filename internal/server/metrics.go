package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports run history as Prometheus metrics. It implements tasks.RunObserver.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal       *prometheus.CounterVec
	TracksTotal     *prometheus.CounterVec
	FilesDeleted    prometheus.Counter
	FailuresTotal   *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	LastRunUnixTime *prometheus.GaugeVec

	mu      sync.RWMutex
	lastRun *models.SyncRun
	started time.Time
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotsync_runs_total",
				Help: "Finished runs by kind and status",
			},
			[]string{"kind", "status"},
		),
		TracksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotsync_tracks_total",
				Help: "Tracks added to or removed from playlists",
			},
			[]string{"change"},
		),
		FilesDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "spotsync_files_deleted_total",
				Help: "Local files deleted for removed tracks",
			},
		),
		FailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotsync_failures_total",
				Help: "Per-playlist and per-track failures by run kind",
			},
			[]string{"kind"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spotsync_run_duration_seconds",
				Help:    "Run duration",
				Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
			},
			[]string{"kind"},
		),
		LastRunUnixTime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spotsync_last_run_timestamp_seconds",
				Help: "Unix time the last run of each kind finished",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		m.RunsTotal,
		m.TracksTotal,
		m.FilesDeleted,
		m.FailuresTotal,
		m.RunDuration,
		m.LastRunUnixTime,
	)
	return m
}

// ObserveRun folds a finished run into the collectors.
func (m *Metrics) ObserveRun(run *models.SyncRun) {
	if run == nil {
		return
	}

	kind := string(run.Kind)
	m.RunsTotal.WithLabelValues(kind, string(run.Status)).Inc()
	m.TracksTotal.WithLabelValues("added").Add(float64(run.Added))
	m.TracksTotal.WithLabelValues("removed").Add(float64(run.Removed))
	m.FilesDeleted.Add(float64(run.DeletedFiles))
	m.FailuresTotal.WithLabelValues(kind).Add(float64(run.Failures))
	m.RunDuration.WithLabelValues(kind).Observe(run.Duration().Seconds())
	if !run.FinishedAt.IsZero() {
		m.LastRunUnixTime.WithLabelValues(kind).Set(float64(run.FinishedAt.Unix()))
	}

	m.mu.Lock()
	m.lastRun = run
	m.mu.Unlock()
}

// LastRun returns the most recently observed run, or nil.
func (m *Metrics) LastRun() *models.SyncRun {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRun
}

// Handler returns the Prometheus exposition handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

type healthResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	LastRunStatus string    `json:"last_run_status,omitempty"`
	LastRunAt     time.Time `json:"last_run_at,omitzero"`
}

// HealthHandler reports liveness and the outcome of the last run as JSON.
func (m *Metrics) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{
			Status: "ok",
			Uptime: time.Since(m.started).Round(time.Second).String(),
		}
		if run := m.LastRun(); run != nil {
			resp.LastRunStatus = string(run.Status)
			resp.LastRunAt = run.FinishedAt
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	})
}

// Register adds /metrics and /healthz to r.
func (m *Metrics) Register(r Router) {
	r.Handle(http.MethodGet, "/metrics", m.Handler())
	r.Handle(http.MethodGet, "/healthz", m.HealthHandler())
}
