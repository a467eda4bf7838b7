package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// susceptibility pipeline.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	RunDuration     prometheus.Histogram

	SlicesCompleted prometheus.Counter
	SlicesFailed    prometheus.Counter

	StageDuration    *prometheus.HistogramVec // label: stage={read,write,stats,grid,reproject,resample,clip}
	CollaboratorErrs *prometheus.CounterVec   // label: stage
	CacheLookups     *prometheus.CounterVec   // labels: artifact kind, result={hit,miss}
	ArtifactsWritten *prometheus.CounterVec   // label: artifact kind
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "riskmap",
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "riskmap",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		}),
		SlicesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskmap",
			Name:      "slices_completed_total",
			Help:      "Rainfall time-slices whose stage chain finished.",
		}),
		SlicesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskmap",
			Name:      "slices_failed_total",
			Help:      "Rainfall time-slices aborted by a stage failure.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "riskmap",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual raster engine stages.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"stage"}),
		CollaboratorErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskmap",
			Name:      "collaborator_errors_total",
			Help:      "Raster engine failures by stage.",
		}, []string{"stage"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskmap",
			Name:      "cache_lookups_total",
			Help:      "Artifact cache existence checks by kind and result.",
		}, []string{"artifact", "result"}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskmap",
			Name:      "artifacts_written_total",
			Help:      "Artifacts persisted by kind.",
		}, []string{"artifact"}),
	}

	prometheus.MustRegister(
		m.PipelineRunning,
		m.RunDuration,
		m.SlicesCompleted,
		m.SlicesFailed,
		m.StageDuration,
		m.CollaboratorErrs,
		m.CacheLookups,
		m.ArtifactsWritten,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PipelineRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "riskmap", Name: "pipeline_running"}),
		RunDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "riskmap", Name: "run_duration_seconds"}),
		SlicesCompleted:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "riskmap", Name: "slices_completed_total"}),
		SlicesFailed:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "riskmap", Name: "slices_failed_total"}),
		StageDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "riskmap", Name: "stage_duration_seconds"}, []string{"stage"}),
		CollaboratorErrs: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "riskmap", Name: "collaborator_errors_total"}, []string{"stage"}),
		CacheLookups:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "riskmap", Name: "cache_lookups_total"}, []string{"artifact", "result"}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "riskmap", Name: "artifacts_written_total"}, []string{"artifact"}),
	}
}
