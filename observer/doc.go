// Package observer provides pipeline.Observer implementations for passenger
// pipeline runs.
//
//   - LogObserver: logs pipeline and stage progress through zap. Stage
//     failures are logged at error level with their error code, so they also
//     reach the error log file.
//   - MetricsObserver: records stage durations, failures, dataset row counts
//     and run outcomes in a Prometheus registry. WriteTextfile exports the
//     registry for the node-exporter textfile collector, which suits a batch
//     job that exits after one run.
//   - RunStore: persists each run and its stages to Postgres (pipeline_run,
//     pipeline_run_stage) for monitoring. Apply the schema with Migrate.
//
// Combine them with pipeline.MultiObserver.
package observer
