package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SourceREST = "rest"
	SourceLive = "live"

	ResultAccepted = "accepted"
	ResultInvalid  = "invalid"
	ResultFailed   = "failed"
)

var (
	punchSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlourpunch",
		Subsystem: "attendance",
		Name:      "submissions_total",
		Help:      "Punch submissions by entry point and outcome.",
	}, []string{"source", "result"})
	lastPersistedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "parlourpunch",
		Subsystem: "attendance",
		Name:      "last_event_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent attendance event persisted.",
	})
	liveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "parlourpunch",
		Subsystem: "hub",
		Name:      "connections",
		Help:      "Currently connected live clients.",
	})
	deliveredFrames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parlourpunch",
		Subsystem: "hub",
		Name:      "frames_delivered_total",
		Help:      "Frames queued to live clients, by event name.",
	}, []string{"event"})
	droppedConnections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "parlourpunch",
		Subsystem: "hub",
		Name:      "slow_consumers_dropped_total",
		Help:      "Connections closed because their send buffer was full.",
	})
)

func init() {
	prometheus.MustRegister(punchSubmissions, lastPersistedGauge, liveConnections, deliveredFrames, droppedConnections)
}

func RecordSubmission(source, result string) {
	punchSubmissions.WithLabelValues(source, result).Inc()
}

// RecordEventPersisted updates the persistence watermark gauge.
func RecordEventPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastPersistedGauge.Set(float64(ts.Unix()))
}

func ConnectionOpened() { liveConnections.Inc() }

func ConnectionClosed() { liveConnections.Dec() }

func RecordFrameDelivered(event string) {
	deliveredFrames.WithLabelValues(event).Inc()
}

func RecordSlowConsumerDropped() {
	droppedConnections.Inc()
}
