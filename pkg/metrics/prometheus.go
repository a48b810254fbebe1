package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	FlightsPolled     prometheus.Counter
	ProviderRequests  *prometheus.CounterVec
	StatusChanges     prometheus.Counter
	NotificationsSent prometheus.Counter
	ReconcileTime     prometheus.Histogram
	ErrorsCount       *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics on the default registry
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates new prometheus metrics on the given registry
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FlightsPolled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flights_polled_total",
			Help:      "The total number of flight poll passes",
		}),
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "The total number of requests per flight data provider",
		}, []string{"provider"}),
		StatusChanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "The total number of detected status transitions",
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "The total number of notifications pushed to subscribers",
		}),
		ReconcileTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_time_seconds",
			Help:      "Time taken to reconcile a single flight",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
