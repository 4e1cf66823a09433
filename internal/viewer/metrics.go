package viewer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics exported by the API server.
type Metrics struct {
	Analyses        *prometheus.CounterVec
	AnalysisSeconds prometheus.Histogram
	NetworkTasks    prometheus.Histogram
}

// NewMetrics creates and registers the server metrics with registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Analyses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pert_analyses_total",
				Help: "Total number of analysis requests by result kind",
			},
			[]string{"result"},
		),
		AnalysisSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pert_analysis_duration_seconds",
				Help:    "Time spent running the analysis pipeline",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
		),
		NetworkTasks: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pert_network_tasks",
				Help:    "Number of tasks per analysed network",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
	}
}
