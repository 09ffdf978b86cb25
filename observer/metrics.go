package observer

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dcshock/passengerpipe/errs"
	"github.com/dcshock/passengerpipe/pipeline"
)

// MetricsObserver records run metrics in its own registry so a batch run
// exports only what it measured.
type MetricsObserver struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	datasetRows   *prometheus.GaugeVec
	runs          *prometheus.CounterVec
}

// NewMetricsObserver creates the collectors and registers them on a fresh registry.
func NewMetricsObserver() *MetricsObserver {
	o := &MetricsObserver{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "passengerpipe_stage_duration_seconds",
				Help:    "Stage execution time in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"pipeline", "stage", "status"},
		),
		stageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passengerpipe_stage_failures_total",
				Help: "Total number of failed stages",
			},
			[]string{"pipeline", "stage", "code"},
		),
		datasetRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "passengerpipe_dataset_rows",
				Help: "Rows in each dataset after a stage",
			},
			[]string{"pipeline", "stage", "dataset"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passengerpipe_runs_total",
				Help: "Total number of pipeline runs",
			},
			[]string{"pipeline", "status"},
		),
	}
	o.registry.MustRegister(o.stageDuration, o.stageFailures, o.datasetRows, o.runs)
	return o
}

// Registry returns the registry holding the observer's collectors.
func (o *MetricsObserver) Registry() *prometheus.Registry { return o.registry }

// WriteTextfile writes the registry in the text exposition format to path,
// atomically replacing it.
func (o *MetricsObserver) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, o.registry)
}

// BeforePipeline implements pipeline.Observer.
func (o *MetricsObserver) BeforePipeline(context.Context, string, string, interface{}) error {
	return nil
}

// AfterPipeline implements pipeline.Observer.
func (o *MetricsObserver) AfterPipeline(_ context.Context, _, name string, _ interface{}, err error) error {
	o.runs.WithLabelValues(name, status(err)).Inc()
	return nil
}

// BeforeStage implements pipeline.Observer.
func (o *MetricsObserver) BeforeStage(context.Context, string, pipeline.StageInfo, interface{}) error {
	return nil
}

// AfterStage implements pipeline.Observer.
func (o *MetricsObserver) AfterStage(_ context.Context, _ string, stage pipeline.StageInfo, _, output interface{}, stageErr error, duration time.Duration) error {
	o.stageDuration.WithLabelValues(stage.Pipeline, stage.Name, status(stageErr)).Observe(duration.Seconds())
	if stageErr != nil {
		o.stageFailures.WithLabelValues(stage.Pipeline, stage.Name, errs.Code(stageErr)).Inc()
		return nil
	}
	for ds, n := range rowCounts(output) {
		o.datasetRows.WithLabelValues(stage.Pipeline, stage.Name, ds).Set(float64(n))
	}
	return nil
}

func status(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}
