package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(streamEventsTotal, streamReadersActive) }

var streamEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stream_events_appended_total",
		Help: "Events appended to job event logs, labeled by event type.",
	},
	[]string{"type"}, // 'start', 'chunk', 'end', 'error'
)

var streamReadersActive = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "stream_readers_active",
		Help: "Currently connected event-stream readers.",
	},
)

func IncEventAppended(eventType string) {
	streamEventsTotal.WithLabelValues(norm(eventType)).Inc()
}

func StreamReaderConnected()    { streamReadersActive.Inc() }
func StreamReaderDisconnected() { streamReadersActive.Dec() }
