package infra

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the pipeline's Prometheus collectors around an explicitly
// constructed registry so both binaries can own their own instance instead of
// sharing process-global state.
type Metrics struct {
	registry *prometheus.Registry

	JobsEnqueued   *prometheus.CounterVec
	JobsProcessed  *prometheus.CounterVec
	JobDuration    *prometheus.HistogramVec
	JobsReclaimed  prometheus.Counter
	SSESubscribers prometheus.Gauge
	EventsDropped  prometheus.Counter
}

// NewMetrics builds a registry with the pipeline collectors plus the standard
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		JobsEnqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "generation_jobs_enqueued_total",
			Help: "Jobs accepted by the queue, by entity and job type.",
		}, []string{"entity_type", "job_type"}),
		JobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "generation_jobs_processed_total",
			Help: "Jobs finished by workers, by job type and terminal status.",
		}, []string{"job_type", "status"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "generation_job_duration_seconds",
			Help:    "Wall time from claim to terminal state.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"job_type"}),
		JobsReclaimed: factory.NewCounter(prometheus.CounterOpts{
			Name: "generation_jobs_reclaimed_total",
			Help: "Stale processing jobs returned to pending.",
		}),
		SSESubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sse_subscribers",
			Help: "Currently open event stream subscriptions.",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "sse_events_dropped_total",
			Help: "Events discarded because a subscriber channel was full.",
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
