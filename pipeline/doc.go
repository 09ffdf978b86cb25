// Package pipeline provides single-value pipeline and sequence types. A Pipeline
// runs stages in order (optionally with its own Source for standalone use); each
// stage's output is the next stage's input. A Sequence runs multiple pipelines
// in order with the same payload: the caller's payload is passed to every pipeline
// (payload → pipeline1, payload → pipeline2, …), not piped between pipelines.
//
// Execution is strictly sequential. The first stage error aborts the run: later
// stages are not attempted and the error is returned wrapped with the stage index
// and name, so errors.As still reaches the typed error a stage produced. There are
// no retries; a failed run is re-run from the start.
//
// Optional pre/post hooks (Observer) let you log, measure or persist each run:
// BeforePipeline, BeforeStage/AfterStage (input, output, duration), AfterPipeline
// (result or error). Combine several with MultiObserver and pass them in
// RunOptions{Observer: obs}.
//
// Every stage context carries the run ID and StageInfo; read them with
// MetaFromContext, e.g. to tag log records.
package pipeline
