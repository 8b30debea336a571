package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(turnLoopIterations, memoryUpdatesTotal) }

var turnLoopIterations = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "turn_loop_iterations",
		Help:    "Decide visits per completed conversation turn.",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 8},
	},
)

var memoryUpdatesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "memory_updates_total",
		Help: "Long-term memory update steps executed, labeled by record kind.",
	},
	[]string{"kind"}, // 'profile', 'todo', 'instructions'
)

func ObserveTurnLoops(n int) {
	turnLoopIterations.Observe(float64(n))
}

func IncMemoryUpdate(kind string) {
	memoryUpdatesTotal.WithLabelValues(norm(kind)).Inc()
}
