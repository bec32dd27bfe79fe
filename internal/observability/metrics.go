package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the key validation pipeline.
type Metrics struct {
	ValidationsTotal   *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec
	UpsertsTotal       *prometheus.CounterVec
	ResolutionsTotal   *prometheus.CounterVec
}

// durationBuckets cover static checks (sub-millisecond) through slow vendor
// probes (seconds).
var durationBuckets = []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10}

// NewMetrics creates and registers all metrics. Pass nil to use the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "keywarden",
				Subsystem: "validation",
				Name:      "requests_total",
				Help:      "Total key validation attempts by service kind and verdict",
			},
			[]string{"kind", "result"},
		),
		ValidationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "keywarden",
				Subsystem: "validation",
				Name:      "duration_seconds",
				Help:      "Duration of key validation including vendor probes",
				Buckets:   durationBuckets,
			},
			[]string{"kind"},
		),
		UpsertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "keywarden",
				Subsystem: "storage",
				Name:      "upserts_total",
				Help:      "Total service key upserts by outcome",
			},
			[]string{"outcome"},
		),
		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "keywarden",
				Subsystem: "keyring",
				Name:      "resolutions_total",
				Help:      "Total function credential resolutions by outcome",
			},
			[]string{"outcome"},
		),
	}
}
