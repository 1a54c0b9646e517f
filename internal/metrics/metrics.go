package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelEndpoint = "endpoint"
	labelOutcome  = "outcome"
	labelPhase    = "phase"
	labelMethod   = "method"
	labelPath     = "path"
	labelStatus   = "status"

	defaultStatusCode = http.StatusOK
)

// Metrics groups every collector of the process. A nil *Metrics is valid and records nothing.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	SyncRuns         *prometheus.CounterVec
	SyncPhase        *prometheus.HistogramVec
	SyncPersisted    prometheus.Gauge
	SyncRunning      prometheus.Gauge
	Requests         *prometheus.CounterVec
	Latency          *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_upstream_requests_total",
				Help: "Requests sent to the upstream catalog API",
			},
			[]string{labelEndpoint, labelOutcome},
		),
		SyncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_sync_runs_total",
				Help: "Finished synchronization runs",
			},
			[]string{labelOutcome},
		),
		SyncPhase: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_sync_phase_duration_seconds",
				Help:    "Duration of each synchronization phase",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{labelPhase},
		),
		SyncPersisted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_sync_persisted_products",
			Help: "Products written by the last successful run",
		}),
		SyncRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_sync_running",
			Help: "1 while a synchronization run is in flight",
		}),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{labelMethod, labelPath, labelStatus},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP latency",
			},
			[]string{labelMethod, labelPath},
		),
	}

	reg.MustRegister(
		m.UpstreamRequests,
		m.SyncRuns,
		m.SyncPhase,
		m.SyncPersisted,
		m.SyncRunning,
		m.Requests,
		m.Latency,
	)
	return m
}

func (m *Metrics) ObserveUpstream(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.SyncPhase.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *Metrics) SetSyncRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.SyncRunning.Set(1)
	} else {
		m.SyncRunning.Set(0)
	}
}

func (m *Metrics) ObserveRun(outcome string, persisted int) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(outcome).Inc()
	if outcome == "succeeded" {
		m.SyncPersisted.Set(float64(persisted))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency labelled by pathLabel(r)
func (m *Metrics) Middleware(pathLabel func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{
				ResponseWriter: w,
				status:         defaultStatusCode,
			}

			start := time.Now()
			next.ServeHTTP(sw, r)

			path := pathLabel(r)
			m.Latency.WithLabelValues(r.Method, path).
				Observe(time.Since(start).Seconds())

			m.Requests.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).
				Inc()
		})
	}
}
