package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	frameEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uartctl",
			Subsystem: "link",
			Name:      "frames_total",
			Help:      "Assembler events by kind.",
		},
		[]string{"event"},
	)
	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uartctl",
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Dispatched commands by opcode.",
		},
		[]string{"opcode"},
	)
	actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uartctl",
			Subsystem: "actions",
			Name:      "invocations_total",
			Help:      "Action provider invocations.",
		},
		[]string{"action", "success"},
	)
	actionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "uartctl",
			Subsystem: "actions",
			Name:      "duration_seconds",
			Help:      "Action provider call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action", "success"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "uartctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests on the metrics listener.",
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(frameEvents, commands, actions, actionDuration, httpRequests)
	})
}

func RecordFrameEvent(event string) {
	RegisterMetrics()
	frameEvents.WithLabelValues(event).Inc()
}

func RecordCommand(opcode string) {
	RegisterMetrics()
	commands.WithLabelValues(opcode).Inc()
}

func RecordAction(action string, success bool, duration time.Duration) {
	RegisterMetrics()
	successLabel := strconv.FormatBool(success)
	actions.WithLabelValues(action, successLabel).Inc()
	actionDuration.WithLabelValues(action, successLabel).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, path string, status int) {
	RegisterMetrics()
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
