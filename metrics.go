package monitorbuf

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "monitorbuf"

// Metrics holds the collectors updated by a run.
type Metrics struct {
	itemsPushed    prometheus.Counter
	itemsProcessed prometheus.Counter
	sinkFailures   prometheus.Counter
	sentinels      prometheus.Counter
	workerPanics   *prometheus.CounterVec
	queueDepth     prometheus.Gauge

	registerOnce sync.Once
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		itemsPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "items_pushed_total",
			Help:      "Count of items pushed into the shared buffer by producers.",
		}),
		itemsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "items_processed_total",
			Help:      "Count of items popped and handed to the sink by consumers.",
		}),
		sinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "sink_failures_total",
			Help:      "Count of items the sink failed to process.",
		}),
		sentinels: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "sentinels_pushed_total",
			Help:      "Count of shutdown sentinels pushed into the shared buffer.",
		}),
		workerPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "worker_panics_total",
			Help:      "Count of workers that terminated by panicking.",
		}, []string{"role"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Entries currently held by the shared buffer, sentinels included.",
		}),
	}
}

// Register all metrics. Calls after the first are no-ops.
func (m *Metrics) Register(reg prometheus.Registerer) {
	m.registerOnce.Do(func() {
		reg.MustRegister(
			m.itemsPushed,
			m.itemsProcessed,
			m.sinkFailures,
			m.sentinels,
			m.workerPanics,
			m.queueDepth,
		)
	})
}

func (m *Metrics) recordPushed() {
	m.itemsPushed.Inc()
}

func (m *Metrics) recordProcessed() {
	m.itemsProcessed.Inc()
}

func (m *Metrics) recordSinkFailure() {
	m.sinkFailures.Inc()
}

func (m *Metrics) recordSentinels(n int) {
	m.sentinels.Add(float64(n))
}

func (m *Metrics) recordPanic(role Role) {
	m.workerPanics.WithLabelValues(string(role)).Inc()
}
