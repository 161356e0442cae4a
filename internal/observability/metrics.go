package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pxcanvas"

var (
	registerOnce sync.Once

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "owner",
			Name:      "commands_total",
			Help:      "Commands executed by the canvas owner.",
		},
		[]string{"kind"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "owner",
			Name:      "command_duration_seconds",
			Help:      "Time from dequeue to completion of one command.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"kind"},
	)
	queueWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "owner",
			Name:      "queue_wait_seconds",
			Help:      "Time a command spent in the intake queue.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	outOfBounds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "owner",
			Name:      "out_of_bounds_total",
			Help:      "PX commands addressing no canvas slot.",
		},
		[]string{"kind"},
	)
	intakeDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "owner",
			Name:      "intake_queue_depth",
			Help:      "Commands waiting in the intake queue.",
		},
	)
	connections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conn",
			Name:      "total",
			Help:      "Pixel protocol connections by outcome.",
		},
		[]string{"result"},
	)
	parseErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conn",
			Name:      "parse_errors_total",
			Help:      "Request lines rejected by the protocol codec.",
		},
		[]string{"reason"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

// Connection outcomes recorded by RecordConnection.
const (
	ConnAccepted    = "accepted"
	ConnReadFailed  = "read_failed"
	ConnParseFailed = "parse_failed"
	ConnSubmitted   = "submitted"
	ConnRejected    = "rejected"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			commandsTotal,
			commandDuration,
			queueWait,
			outOfBounds,
			intakeDepth,
			connections,
			parseErrors,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordCommand(kind string, waited, duration time.Duration) {
	RegisterMetrics()
	commandsTotal.WithLabelValues(kind).Inc()
	commandDuration.WithLabelValues(kind).Observe(duration.Seconds())
	queueWait.Observe(waited.Seconds())
}

func RecordOutOfBounds(kind string) {
	RegisterMetrics()
	outOfBounds.WithLabelValues(kind).Inc()
}

func SetIntakeDepth(depth int) {
	RegisterMetrics()
	intakeDepth.Set(float64(depth))
}

func RecordConnection(result string) {
	RegisterMetrics()
	connections.WithLabelValues(result).Inc()
}

func RecordParseError(reason string) {
	RegisterMetrics()
	parseErrors.WithLabelValues(reason).Inc()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
