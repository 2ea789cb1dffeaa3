package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	ProviderCalls     *prometheus.CounterVec
	ProviderCost      *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
	AggregationTime   prometheus.Histogram
	IntegrityWarnings *prometheus.CounterVec
	ListingsEnriched  *prometheus.CounterVec
	ErrorsCount       *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics on reg. Pass
// prometheus.DefaultRegisterer to expose them on promhttp.Handler().
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProviderCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Provider calls by service and outcome",
		}, []string{"service", "outcome"}),
		ProviderCost: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_cost_total",
			Help:      "Accumulated provider spend in GBP",
		}, []string{"service"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Vehicle cache lookups by result",
		}, []string{"result"}),
		AggregationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Time taken to aggregate a vehicle check",
			Buckets:   prometheus.DefBuckets,
		}),
		IntegrityWarnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_warnings_total",
			Help:      "Data integrity problems found in stored records",
		}, []string{"kind"}),
		ListingsEnriched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_enriched_total",
			Help:      "Listings processed by the enrichment loop",
		}, []string{"outcome"}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
