package generator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes recorded in specgen_runs_total.
const (
	OutcomeSuccess = "success"
	OutcomeDryRun  = "dry_run"
	OutcomeFailure = "failure"
)

// Metrics holds the pipeline collectors. Each Metrics registers on its own
// registry so that several generators can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal         *prometheus.CounterVec
	artifactsWritten  prometheus.Counter
	featuresExtracted prometheus.Gauge
	runDuration       prometheus.Histogram
}

// NewMetrics creates the collectors on reg. A nil reg gets a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "specgen_runs_total",
			Help: "Total number of generation runs by outcome",
		}, []string{"outcome"}),
		artifactsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "specgen_artifacts_written_total",
			Help: "Total number of generated documents written to disk",
		}),
		featuresExtracted: factory.NewGauge(prometheus.GaugeOpts{
			Name: "specgen_features_extracted",
			Help: "Number of features extracted by the most recent run",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "specgen_run_duration_seconds",
			Help:    "Duration of generation runs",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeRun(outcome string, elapsed time.Duration) {
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeResult(features, written int) {
	m.featuresExtracted.Set(float64(features))
	m.artifactsWritten.Add(float64(written))
}

// WriteTextfile writes the current metrics in the Prometheus text format for
// the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
