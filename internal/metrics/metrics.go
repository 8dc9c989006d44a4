// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	mutationsTotal   *prometheus.CounterVec
	usersTotal       prometheus.Gauge
	importsTotal     *prometheus.CounterVec
	importRowsTotal  *prometheus.CounterVec
	importDuration   prometheus.Histogram
	recommendTotal   *prometheus.CounterVec
	recommendLatency *prometheus.HistogramVec
	gridSessions     prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		mutationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "useradmin",
			Name:      "mutations_total",
			Help:      "Total number of user collection mutations by operation.",
		}, []string{"operation"}),
		usersTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "useradmin",
			Name:      "users",
			Help:      "Current number of users in the collection.",
		}),
		importsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "useradmin",
			Name:      "imports_total",
			Help:      "Total number of CSV imports by status.",
		}, []string{"status"}),
		importRowsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "useradmin",
			Name:      "import_rows_total",
			Help:      "Total number of CSV data rows by outcome.",
		}, []string{"outcome"}),
		importDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "useradmin",
			Name:      "import_duration_seconds",
			Help:      "Latency distribution for CSV imports.",
			Buckets:   prometheus.DefBuckets,
		}),
		recommendTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "useradmin",
			Name:      "recommendation_requests_total",
			Help:      "Total number of recommendation requests by result.",
		}, []string{"result"}),
		recommendLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "useradmin",
			Name:      "recommendation_latency_seconds",
			Help:      "Latency distribution for recommendation requests.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"result"}),
		gridSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "useradmin",
			Name:      "grid_sessions",
			Help:      "Current number of open grid sessions.",
		}),
	}
})

// Mutation counts one collection mutation
func Mutation(operation string, users int) {
	m := metricsSingleton()
	m.mutationsTotal.WithLabelValues(operation).Inc()
	m.usersTotal.Set(float64(users))
}

// Users records the collection size
func Users(n int) {
	metricsSingleton().usersTotal.Set(float64(n))
}

// Import records one finished import
func Import(status string, imported, skipped, coerced int, d time.Duration) {
	m := metricsSingleton()
	m.importsTotal.WithLabelValues(status).Inc()
	m.importRowsTotal.WithLabelValues("imported").Add(float64(imported))
	m.importRowsTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.importRowsTotal.WithLabelValues("coerced").Add(float64(coerced))
	m.importDuration.Observe(d.Seconds())
}

// Recommendation records one settled recommendation request.
// result is "success", "error" or "stale".
func Recommendation(result string, d time.Duration) {
	m := metricsSingleton()
	m.recommendTotal.WithLabelValues(result).Inc()
	m.recommendLatency.WithLabelValues(result).Observe(d.Seconds())
}

// GridSessions records the number of open grid sessions
func GridSessions(n int) {
	metricsSingleton().gridSessions.Set(float64(n))
}
