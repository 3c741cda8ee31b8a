// Package metrics exposes collection-run counters for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amishk599/jobfeed/internal/collector"
)

const namespace = "jobfeed"

// Ensure Metrics implements collector.Recorder.
var _ collector.Recorder = (*Metrics)(nil)

// Metrics holds the run counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	normalized      *prometheus.CounterVec
	runs            prometheus.Counter
	runDuration     prometheus.Histogram
	inserted        prometheus.Counter
	skipped         prometheus.Counter
	failed          prometheus.Counter
	budgetExhausted prometheus.Counter
	lastRun         prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_requests_total",
			Help:      "Provider API calls, by provider and outcome.",
		}, []string{"provider", "ok"}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Pages served from the response cache.",
		}, []string{"provider"}),
		normalized: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalized_items_total",
			Help:      "Raw items mapped to listings, by result.",
		}, []string{"provider", "result"}),
		runs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed collection runs.",
		}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a collection run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5min
		}),
		inserted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_inserted_total",
			Help:      "Listings written to storage.",
		}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_skipped_total",
			Help:      "Listings already stored.",
		}),
		failed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_failed_total",
			Help:      "Listings whose write was rolled back.",
		}),
		budgetExhausted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_exhausted_total",
			Help:      "Runs that hit the request budget.",
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
}

func (m *Metrics) ExternalRequest(provider string, ok bool) {
	m.requests.WithLabelValues(provider, strconv.FormatBool(ok)).Inc()
}

func (m *Metrics) CacheHit(provider string) {
	m.cacheHits.WithLabelValues(provider).Inc()
}

func (m *Metrics) Normalized(provider string, kept, dropped int) {
	m.normalized.WithLabelValues(provider, "kept").Add(float64(kept))
	m.normalized.WithLabelValues(provider, "dropped").Add(float64(dropped))
}

func (m *Metrics) RunFinished(r collector.RunReport, d time.Duration) {
	m.runs.Inc()
	m.runDuration.Observe(d.Seconds())
	m.inserted.Add(float64(r.Ingest.Inserted))
	m.skipped.Add(float64(r.Ingest.Skipped))
	m.failed.Add(float64(len(r.Ingest.Failed)))
	if r.BudgetExhausted {
		m.budgetExhausted.Inc()
	}
	m.lastRun.SetToCurrentTime()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
