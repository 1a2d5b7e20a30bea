package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dreamweaver"

var (
	// Registry - коллекторы приложения
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	oracleCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Total number of Gemini calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	oracleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "call_duration_seconds",
			Help:      "Duration of Gemini calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms .. ~50s
		},
		[]string{"operation"},
	)

	dreamsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "dreams_created_total",
			Help:      "Total number of analyzed dreams saved.",
		},
	)

	quotaRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "gate_rejections_total",
			Help:      "Requests blocked by the plan gate.",
		},
		[]string{"reason"},
	)

	scribeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scribe",
			Name:      "active_sessions",
			Help:      "Currently connected voice capture sessions.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		oracleCalls,
		oracleDuration,
		dreamsCreated,
		quotaRejections,
		scribeSessions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler отдает метрики в формате Prometheus
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// HTTPStarted / HTTPFinished вызываются middleware вокруг запроса
func HTTPStarted() { httpInFlight.Inc() }

func HTTPFinished(method, path, status string, duration time.Duration) {
	httpInFlight.Dec()
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOracleCall - outcome: ok, error, canceled
func RecordOracleCall(operation, outcome string, duration time.Duration) {
	oracleCalls.WithLabelValues(operation, outcome).Inc()
	oracleDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordDreamCreated() { dreamsCreated.Inc() }

// RecordGateRejection - reason: quota, upgrade
func RecordGateRejection(reason string) { quotaRejections.WithLabelValues(reason).Inc() }

func ScribeSessionOpened() { scribeSessions.Inc() }
func ScribeSessionClosed() { scribeSessions.Dec() }
