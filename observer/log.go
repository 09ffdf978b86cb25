package observer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dcshock/passengerpipe/errs"
	"github.com/dcshock/passengerpipe/pipeline"
)

// LogObserver logs run progress. Start and success records are info level;
// failures are error level and carry the error code.
type LogObserver struct {
	log *zap.Logger

	mu sync.Mutex
	// runs whose failure was already logged by AfterStage
	stageFailed map[string]bool
}

// NewLogObserver returns a LogObserver writing to log.
func NewLogObserver(log *zap.Logger) *LogObserver {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogObserver{log: log, stageFailed: make(map[string]bool)}
}

// BeforePipeline implements pipeline.Observer.
func (o *LogObserver) BeforePipeline(_ context.Context, runID, name string, _ interface{}) error {
	o.log.Named(name).Info("pipeline started", zap.String("run_id", runID))
	return nil
}

// AfterPipeline implements pipeline.Observer. A failure already reported by
// AfterStage is logged again only at info level.
func (o *LogObserver) AfterPipeline(_ context.Context, runID, name string, _ interface{}, err error) error {
	log := o.log.Named(name).With(zap.String("run_id", runID))

	o.mu.Lock()
	logged := o.stageFailed[runID]
	delete(o.stageFailed, runID)
	o.mu.Unlock()

	switch {
	case err == nil:
		log.Info("pipeline finished")
	case logged:
		log.Info("pipeline aborted", zap.String("code", errs.Code(err)))
	default:
		log.Error("pipeline failed", zap.String("code", errs.Code(err)), zap.Error(err))
	}
	return nil
}

// BeforeStage implements pipeline.Observer.
func (o *LogObserver) BeforeStage(_ context.Context, runID string, stage pipeline.StageInfo, _ interface{}) error {
	o.stageLogger(runID, stage).Info("stage started")
	return nil
}

// AfterStage implements pipeline.Observer.
func (o *LogObserver) AfterStage(_ context.Context, runID string, stage pipeline.StageInfo, _, output interface{}, stageErr error, duration time.Duration) error {
	log := o.stageLogger(runID, stage).With(zap.Duration("duration", duration))
	if stageErr != nil {
		o.mu.Lock()
		o.stageFailed[runID] = true
		o.mu.Unlock()
		fields := []zap.Field{zap.String("code", errs.Code(stageErr)), zap.Error(stageErr)}
		var we *errs.WriteError
		if errors.As(stageErr, &we) && len(we.Written) > 0 {
			fields = append(fields, zap.Strings("already_written", we.Written))
		}
		log.Error("stage failed", fields...)
		return nil
	}
	fields := make([]zap.Field, 0, 2)
	for _, name := range []string{"train", "test"} {
		if n, ok := rowCounts(output)[name]; ok {
			fields = append(fields, zap.Int(name+"_rows", n))
		}
	}
	log.Info("stage succeeded", fields...)
	return nil
}

func (o *LogObserver) stageLogger(runID string, stage pipeline.StageInfo) *zap.Logger {
	return o.log.Named(stage.Pipeline).With(
		zap.String("run_id", runID),
		zap.String("stage", stage.Name),
		zap.Int("index", stage.Index),
	)
}
