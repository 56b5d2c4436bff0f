package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ocean_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for an extraction run.
type Metrics struct {
	SamplesAssembled   *prometheus.CounterVec // labels: split={train,val,test}, region={interior,west,east}
	TimestepsProcessed *prometheus.CounterVec // labels: split
	PipelineRunning    prometheus.Gauge

	// Stage timings.
	FrameReadDuration      prometheus.Histogram
	RegionAssemblyDuration *prometheus.HistogramVec // labels: region
	RunDuration            prometheus.Gauge

	// Outcome.
	DegenerateColumns prometheus.Gauge
	LastRunSuccess    prometheus.Gauge
	LastRunTimestamp  prometheus.Gauge
	LoadErrors        *prometheus.CounterVec // labels: loader
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// Registry returns a registry holding only these metrics, for pushing to a
// Pushgateway without the Go runtime collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	return reg
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SamplesAssembled,
		m.TimestepsProcessed,
		m.PipelineRunning,
		m.FrameReadDuration,
		m.RegionAssemblyDuration,
		m.RunDuration,
		m.DegenerateColumns,
		m.LastRunSuccess,
		m.LastRunTimestamp,
		m.LoadErrors,
	}
}

func newMetrics() *Metrics {
	return &Metrics{
		SamplesAssembled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_assembled_total",
			Help:      "Samples assembled by split and region.",
		}, []string{"split", "region"}),
		TimestepsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timesteps_processed_total",
			Help:      "Timesteps turned into samples, by split.",
		}, []string{"split"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while an extraction run is active, 0 otherwise.",
		}),
		FrameReadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_read_duration_seconds",
			Help:      "Duration of reading one timestep from the source.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RegionAssemblyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "region_assembly_duration_seconds",
			Help:      "Duration of building one region's samples for one timestep.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"region"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last extraction run.",
		}),
		DegenerateColumns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "degenerate_columns",
			Help:      "Feature columns with zero or non-finite training variance in the last run.",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run completed, 0 if it failed.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the last run finished.",
		}),
		LoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_errors_total",
			Help:      "Failures writing run results, by loader.",
		}, []string{"loader"}),
	}
}
