package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stage label values for run metrics.
const (
	StageExtract       = "extract"
	StageTransformLoad = "transform_load"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL service.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec // labels: stage, outcome
	SnapshotsIngested  prometheus.Counter
	StationsLoaded     prometheus.Counter
	AvailabilityLoaded prometheus.Counter
	RecordsSkipped     prometheus.Counter
	RunDuration        *prometheus.HistogramVec // labels: stage
	SchedulerRunning   prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RunsTotal,
		m.SnapshotsIngested,
		m.StationsLoaded,
		m.AvailabilityLoaded,
		m.RecordsSkipped,
		m.RunDuration,
		m.SchedulerRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "velib_etl",
			Name:      "runs_total",
			Help:      "Completed runs by stage and outcome.",
		}, []string{"stage", "outcome"}),
		SnapshotsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "velib_etl",
			Name:      "snapshots_ingested_total",
			Help:      "Raw snapshots appended to the data lake.",
		}),
		StationsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "velib_etl",
			Name:      "stations_loaded_total",
			Help:      "Station dimension rows upserted.",
		}),
		AvailabilityLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "velib_etl",
			Name:      "availability_loaded_total",
			Help:      "Availability fact rows inserted.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "velib_etl",
			Name:      "records_skipped_total",
			Help:      "Feed records dropped during normalization.",
		}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "velib_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of one pipeline run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "velib_etl",
			Name:      "scheduler_running",
			Help:      "1 when the scheduler is active, 0 when shut down.",
		}),
	}
}
