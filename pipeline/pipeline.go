package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConvertFunc converts value of type A to type B. Used by Transform to build a stage.
type ConvertFunc[A, B any] func(ctx context.Context, a A) (B, error)

// Transform returns a stage that converts the previous stage's output (type A) to type B.
// Use it between stages: stage1 | Transform(convert) | stage2, where stage1 outputs A
// and stage2 expects B.
func Transform[A, B any](convert ConvertFunc[A, B]) Stage {
	return func(ctx context.Context, input interface{}) (interface{}, error) {
		a, ok := input.(A)
		if !ok {
			var zero A
			return nil, fmt.Errorf("transform: expected %T, got %T", zero, input)
		}
		return convert(ctx, a)
	}
}

// StageInfo identifies a stage within a run. Index is global across a Sequence;
// Name comes from Pipeline.StageNames (or "stage-<index>" when unnamed).
type StageInfo struct {
	Pipeline string
	Index    int
	Name     string
}

// Observer provides pre/post hooks for pipeline and stage execution: logging, metrics,
// or a persistent run ledger. BeforePipeline is called before any stage runs.
// BeforeStage/AfterStage are called around each stage. AfterPipeline is called when the
// pipeline finishes (success or error), including when BeforePipeline itself failed.
// A non-nil error from a Before hook aborts the run.
type Observer interface {
	BeforePipeline(ctx context.Context, runID, name string, payload interface{}) error
	AfterPipeline(ctx context.Context, runID, name string, result interface{}, err error) error
	BeforeStage(ctx context.Context, runID string, stage StageInfo, input interface{}) error
	AfterStage(ctx context.Context, runID string, stage StageInfo, input, output interface{}, stageErr error, duration time.Duration) error
}

// MultiObserver fans every hook out to observers in order. Before hooks stop at the
// first error; After hooks always reach every observer and return the joined errors.
func MultiObserver(observers ...Observer) Observer {
	list := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) BeforePipeline(ctx context.Context, runID, name string, payload interface{}) error {
	for _, o := range m {
		if err := o.BeforePipeline(ctx, runID, name, payload); err != nil {
			return err
		}
	}
	return nil
}

func (m multiObserver) AfterPipeline(ctx context.Context, runID, name string, result interface{}, err error) error {
	var errs []error
	for _, o := range m {
		errs = append(errs, o.AfterPipeline(ctx, runID, name, result, err))
	}
	return errors.Join(errs...)
}

func (m multiObserver) BeforeStage(ctx context.Context, runID string, stage StageInfo, input interface{}) error {
	for _, o := range m {
		if err := o.BeforeStage(ctx, runID, stage, input); err != nil {
			return err
		}
	}
	return nil
}

func (m multiObserver) AfterStage(ctx context.Context, runID string, stage StageInfo, input, output interface{}, stageErr error, duration time.Duration) error {
	var errs []error
	for _, o := range m {
		errs = append(errs, o.AfterStage(ctx, runID, stage, input, output, stageErr, duration))
	}
	return errors.Join(errs...)
}

// RunOptions is optional and used to attach an Observer and optional RunID.
// If RunID is empty, a new UUID is generated for the run.
type RunOptions struct {
	Observer Observer
	RunID    string
}

type runMetaKey struct{}

// RunMeta is injected into each stage's context.
type RunMeta struct {
	RunID string
	Stage StageInfo
}

// MetaFromContext returns the run metadata for the stage currently executing.
func MetaFromContext(ctx context.Context) (RunMeta, bool) {
	m, ok := ctx.Value(runMetaKey{}).(RunMeta)
	return m, ok
}

// Stage is a single step in a pipeline. It receives the output of the previous
// stage (or the source) and returns the input for the next stage.
type Stage func(ctx context.Context, input interface{}) (interface{}, error)

// Pipeline runs a linear chain of stages (stage1 | stage2 | ...). Optionally
// Source can be set for standalone Run(ctx); when used inside a Sequence,
// the payload is piped in via RunWithInput and Source is ignored.
type Pipeline struct {
	Name       string
	Source     func(ctx context.Context) (interface{}, error) // optional; used only by Run
	Stages     []Stage
	StageNames []string // optional; parallel to Stages
}

// StageName returns the configured name of stage i.
func (p *Pipeline) StageName(i int) string {
	if i < len(p.StageNames) && p.StageNames[i] != "" {
		return p.StageNames[i]
	}
	return fmt.Sprintf("stage-%d", i)
}

// Run executes the pipeline: runs the source (if non-nil), then runs each stage in order.
// Returns the last stage's output or the first error.
func (p *Pipeline) Run(ctx context.Context, opts *RunOptions) (interface{}, error) {
	var out interface{}
	if p.Source != nil {
		var err error
		out, err = p.Source(ctx)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
	}
	return p.RunWithInput(ctx, out, opts)
}

// RunWithInput runs the pipeline's stages starting with the given input. The payload
// is piped to the first stage; each stage's output is the next stage's input.
// Returns the last stage's output or the first error; later stages are not attempted.
func (p *Pipeline) RunWithInput(ctx context.Context, input interface{}, opts *RunOptions) (interface{}, error) {
	runID, obs := resolve(opts)
	if obs != nil {
		if err := obs.BeforePipeline(ctx, runID, p.Name, input); err != nil {
			return nil, abortBeforePipeline(ctx, obs, runID, p.Name, err)
		}
	}
	next := 0
	result, err := p.runStages(ctx, input, obs, runID, &next)
	if obs != nil {
		if postErr := obs.AfterPipeline(ctx, runID, p.Name, result, err); postErr != nil {
			// Don't mask pipeline error
			if err == nil {
				err = fmt.Errorf("after pipeline: %w", postErr)
			}
		}
	}
	return result, err
}

// abortBeforePipeline reports a failed BeforePipeline hook through AfterPipeline,
// so every observer sees the run end, and returns the wrapped hook error.
func abortBeforePipeline(ctx context.Context, obs Observer, runID, name string, hookErr error) error {
	err := fmt.Errorf("before pipeline: %w", hookErr)
	_ = obs.AfterPipeline(ctx, runID, name, nil, err) // the hook error is the one returned
	return err
}

func resolve(opts *RunOptions) (string, Observer) {
	var runID string
	var obs Observer
	if opts != nil {
		runID, obs = opts.RunID, opts.Observer
	}
	if runID == "" {
		runID = uuid.New().String()
	}
	return runID, obs
}

// runStages runs stages with optional observer hooks. globalIndex is advanced once per
// stage so a Sequence reports indices across all of its pipelines.
func (p *Pipeline) runStages(ctx context.Context, input interface{}, obs Observer, runID string, globalIndex *int) (interface{}, error) {
	out := input
	for i, stage := range p.Stages {
		info := StageInfo{Pipeline: p.Name, Index: *globalIndex, Name: p.StageName(i)}
		*globalIndex++
		if obs != nil {
			if err := obs.BeforeStage(ctx, runID, info, out); err != nil {
				return nil, fmt.Errorf("before stage %d (%s): %w", info.Index, info.Name, err)
			}
		}
		start := time.Now()
		stageCtx := context.WithValue(ctx, runMetaKey{}, RunMeta{RunID: runID, Stage: info})
		next, stageErr := stage(stageCtx, out)
		duration := time.Since(start)
		if obs != nil {
			if postErr := obs.AfterStage(ctx, runID, info, out, next, stageErr, duration); postErr != nil {
				if stageErr == nil {
					stageErr = fmt.Errorf("after stage: %w", postErr)
				}
			}
		}
		if stageErr != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", info.Index, info.Name, stageErr)
		}
		out = next
	}
	return out, nil
}

// Sequence runs multiple pipelines in order. The caller supplies a payload that
// is passed to every pipeline: each pipeline receives the same source payload, not
// the previous pipeline's output. Stops on first error (like shell &&).
type Sequence struct {
	Name      string
	Pipelines []*Pipeline
}

// Run executes the sequence with the given payload. Returns the results of every
// pipeline in order when all succeed, or the first error. With an observer, the
// sequence as a whole is reported through Before/AfterPipeline under the sequence
// name, and stage indices are global across all pipelines.
func (s *Sequence) Run(ctx context.Context, payload interface{}, opts *RunOptions) ([]interface{}, error) {
	runID, obs := resolve(opts)
	if obs != nil {
		if err := obs.BeforePipeline(ctx, runID, s.Name, payload); err != nil {
			return nil, abortBeforePipeline(ctx, obs, runID, s.Name, err)
		}
	}
	results, err := s.runPipelines(ctx, payload, obs, runID)
	if obs != nil {
		if postErr := obs.AfterPipeline(ctx, runID, s.Name, results, err); postErr != nil {
			if err == nil {
				err = fmt.Errorf("after pipeline: %w", postErr)
			}
		}
	}
	return results, err
}

// runPipelines runs each pipeline in order; each receives the same payload.
func (s *Sequence) runPipelines(ctx context.Context, payload interface{}, obs Observer, runID string) ([]interface{}, error) {
	results := make([]interface{}, 0, len(s.Pipelines))
	globalStageIndex := 0
	for i, p := range s.Pipelines {
		result, err := p.runStages(ctx, payload, obs, runID, &globalStageIndex)
		if err != nil {
			return nil, fmt.Errorf("pipeline %d (%s): %w", i, p.Name, err)
		}
		results = append(results, result)
	}
	return results, nil
}
