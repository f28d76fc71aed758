package transform

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/theoremus-urban-solutions/gtfs-transformer/gtfs"
)

const metricsNamespace = "gtfs_transformer"

// Metrics records strategy outcomes and dataset sizes. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	entities *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "strategy_runs_total",
			Help:      "Strategy runs by outcome.",
		}, []string{"strategy", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "strategy_duration_seconds",
			Help:      "Time spent in each strategy.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"strategy"}),
		entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "entities",
			Help:      "Dataset entities after the last run, by GTFS file.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.duration, m.entities)
	}
	return m
}

func (m *Metrics) observeStrategy(name string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.runs.WithLabelValues(name, status).Inc()
	m.duration.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (m *Metrics) observeDataset(ds *gtfs.Dataset) {
	if m == nil {
		return
	}
	for kind, n := range ds.Counts() {
		m.entities.WithLabelValues(kind).Set(float64(n))
	}
}
