package querycache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the query cache.
type Metrics struct {
	LookupsTotal   *prometheus.CounterVec
	BuildsTotal    *prometheus.CounterVec
	AnswersTotal   *prometheus.CounterVec
	EngineSeconds  *prometheus.HistogramVec
	EvictionsTotal prometheus.Counter
	Entries        prometheus.Gauge
}

// NewMetrics registers the cache collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "puckquery_cache_lookups_total",
				Help: "Query context lookups by result",
			},
			[]string{"result"},
		),
		BuildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "puckquery_cache_builds_total",
				Help: "Query context builds by resulting state",
			},
			[]string{"state"},
		),
		AnswersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "puckquery_answers_total",
				Help: "Chat answers by outcome",
			},
			[]string{"outcome"},
		),
		EngineSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "puckquery_engine_seconds",
				Help:    "Query engine latency",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		EvictionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "puckquery_cache_evictions_total",
				Help: "Query contexts evicted for capacity",
			},
		),
		Entries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "puckquery_cache_entries",
				Help: "Query contexts currently cached",
			},
		),
	}
}
