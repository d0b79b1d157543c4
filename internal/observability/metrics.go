package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nfh",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nfh",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	sessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nfh",
			Subsystem: "session",
			Name:      "completed_total",
			Help:      "Sessions that reached DIE, by outcome.",
		},
		[]string{"role", "mode", "success"},
	)
	phaseFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nfh",
			Subsystem: "session",
			Name:      "phase_failures_total",
			Help:      "Failed FSM phases by state and error kind.",
		},
		[]string{"role", "state", "kind"},
	)
	transferBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nfh",
			Subsystem: "transfer",
			Name:      "bytes_total",
			Help:      "Payload bytes moved.",
		},
		[]string{"role", "mode"},
	)
	transferDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nfh",
			Subsystem: "transfer",
			Name:      "duration_seconds",
			Help:      "Payload streaming time in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"role", "mode"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, sessionsTotal, phaseFailures, transferBytes, transferDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordSession(role, mode string, success bool) {
	RegisterMetrics()
	sessionsTotal.WithLabelValues(role, mode, strconv.FormatBool(success)).Inc()
}

func RecordPhaseFailure(role, state, kind string) {
	RegisterMetrics()
	phaseFailures.WithLabelValues(role, state, kind).Inc()
}

func RecordTransfer(role, mode string, bytes uint64, duration time.Duration) {
	RegisterMetrics()
	transferBytes.WithLabelValues(role, mode).Add(float64(bytes))
	transferDuration.WithLabelValues(role, mode).Observe(duration.Seconds())
}
