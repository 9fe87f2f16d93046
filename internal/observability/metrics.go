package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Generation metrics
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_generations_total",
			Help: "Total number of generation requests",
		},
		[]string{"provider", "status"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parley_generation_duration_seconds",
			Help:    "Generation request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	streamChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_stream_chunks_total",
			Help: "Total number of streamed chunks per channel",
		},
		[]string{"provider", "channel"},
	)

	// Session metrics
	sessionOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parley_session_operations_total",
			Help: "Total number of session store operations",
		},
		[]string{"operation", "status"},
	)

	sessionsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "parley_sessions_swept_total",
			Help: "Total number of sessions removed by retention sweeps",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers the Prometheus collectors. Safe to call more
// than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			generationsTotal,
			generationDuration,
			streamChunksTotal,
			sessionOpsTotal,
			sessionsSweptTotal,
		)
	})
}

// MetricsHandler returns an HTTP handler serving Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordGeneration records a completed generation request.
func RecordGeneration(provider, status string, duration time.Duration) {
	generationsTotal.WithLabelValues(provider, status).Inc()
	generationDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordStreamChunk records one streamed chunk on the given channel
// ("answer" or "thinking").
func RecordStreamChunk(provider, channel string) {
	streamChunksTotal.WithLabelValues(provider, channel).Inc()
}

// RecordSessionOp records a session store operation.
func RecordSessionOp(operation, status string) {
	sessionOpsTotal.WithLabelValues(operation, status).Inc()
}

// RecordSweptSessions records sessions removed by a retention sweep.
func RecordSweptSessions(count int) {
	if count > 0 {
		sessionsSweptTotal.Add(float64(count))
	}
}
