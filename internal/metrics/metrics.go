package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	ReviewsCreated prometheus.Counter
	QRScans        prometheus.Counter
	SeedRuns       *prometheus.CounterVec
	StoreErrors    *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by route and status code.",
			}, []string{"route", "method", "status"}),
			HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency distribution of HTTP requests by route.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
			ReviewsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reviews_created_total",
				Help:      "Total reviews persisted.",
			}),
			QRScans: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "qr_scans_total",
				Help:      "Total QR artifact resolves counted as scans.",
			}),
			SeedRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "seed_runs_total",
				Help:      "Bootstrap invocations by outcome.",
			}, []string{"outcome"}),
			StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Key-value store errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.HTTPRequests,
			metricsInstance.HTTPDuration,
			metricsInstance.ReviewsCreated,
			metricsInstance.QRScans,
			metricsInstance.SeedRuns,
			metricsInstance.StoreErrors,
		)
	})
	return metricsInstance
}
