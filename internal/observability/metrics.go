package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for decoded frames beyond the protocol failure kinds.
const (
	OutcomeOK = "ok"
)

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logwire",
			Subsystem: "codec",
			Name:      "frames_total",
			Help:      "Frames decoded by outcome.",
		},
		[]string{"protocol", "outcome"},
	)
	frameBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "logwire",
			Subsystem: "codec",
			Name:      "frame_bytes",
			Help:      "Size of successfully decoded frames in bytes.",
			Buckets:   prometheus.ExponentialBuckets(32, 4, 10),
		},
		[]string{"protocol"},
	)
	activeStreams = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "logwire",
			Subsystem: "receiver",
			Name:      "active_streams",
			Help:      "Streams currently being decoded.",
		},
		[]string{"source"},
	)
	streamsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logwire",
			Subsystem: "receiver",
			Name:      "streams_total",
			Help:      "Finished streams by how they ended.",
		},
		[]string{"source", "end"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesTotal, frameBytes, activeStreams, streamsTotal)
	})
}

// RecordFrame counts one decoded frame. outcome is OutcomeOK or a failure
// kind name.
func RecordFrame(protocolName, outcome string, size int) {
	RegisterMetrics()
	framesTotal.WithLabelValues(protocolName, outcome).Inc()
	if outcome == OutcomeOK && size > 0 {
		frameBytes.WithLabelValues(protocolName).Observe(float64(size))
	}
}

// StreamOpened marks a stream as active and returns the func that closes it
// with the given end label.
func StreamOpened(source string) func(end string) {
	RegisterMetrics()
	activeStreams.WithLabelValues(source).Inc()
	var once sync.Once
	return func(end string) {
		once.Do(func() {
			activeStreams.WithLabelValues(source).Dec()
			streamsTotal.WithLabelValues(source, end).Inc()
		})
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}
