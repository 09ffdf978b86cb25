// Package stages implements the passenger dataset stages (load, drop columns,
// impute missing values, split the Name column, persist) and registers them
// under the names used in pipeline definitions.
//
// The plain functions (Load, DropColumns, ImputeMissing, SplitNameColumn,
// Persist) hold the logic and mutate the pair in place. Set wraps them as
// pipeline stages with progress logging.
package stages

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dcshock/passengerpipe/config"
	"github.com/dcshock/passengerpipe/dataset"
	"github.com/dcshock/passengerpipe/pipeline"
)

// Registered stage names.
const (
	StageLoad             = "load"
	StageDropColumns      = "drop-columns"
	StageImputeMissing    = "impute-missing"
	StageSplitName        = "split-name"
	StagePersistProcessed = "persist-processed"
	StagePersistInterim   = "persist-interim"
)

// Output subdirectories below the data root.
const (
	ProcessedDir = "processed"
	InterimDir   = "interim"
)

// Set builds the registered stages.
type Set struct {
	Log   *zap.Logger
	Root  string     // data root; outputs go to Root/processed and Root/interim
	Drops []DropSpec // columns removed by drop-columns; IngestionDrops when nil
}

// Register adds every stage of the set to reg.
func (s *Set) Register(reg *config.Registry) {
	reg.Register(StageLoad, s.Load())
	reg.Register(StageDropColumns, s.DropColumns())
	reg.Register(StageImputeMissing, s.ImputeMissing())
	reg.Register(StageSplitName, s.SplitName())
	reg.Register(StagePersistProcessed, s.Persist(ProcessedDir))
	reg.Register(StagePersistInterim, s.Persist(InterimDir))
}

func (s *Set) logger(ctx context.Context) *zap.Logger {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	if meta, ok := pipeline.MetaFromContext(ctx); ok {
		log = log.Named(meta.Stage.Pipeline).With(zap.String("stage", meta.Stage.Name))
	}
	return log
}

// Load reads the train and test files named by the run's Params.
func (s *Set) Load() pipeline.Stage {
	return pipeline.Transform(func(ctx context.Context, params *config.Params) (*dataset.Pair, error) {
		log := s.logger(ctx)
		log.Info("loading data", zap.String("train", params.TrainPath), zap.String("test", params.TestPath))
		pair, err := Load(params.TrainPath, params.TestPath)
		if err != nil {
			return nil, err
		}
		log.Info("data loaded",
			zap.Int("train_rows", pair.Train.NumRows()),
			zap.Int("test_rows", pair.Test.NumRows()))
		return pair, nil
	})
}

// DropColumns removes the set's Drops from the pair.
func (s *Set) DropColumns() pipeline.Stage {
	drops := s.Drops
	if drops == nil {
		drops = IngestionDrops
	}
	return pipeline.Transform(func(ctx context.Context, pair *dataset.Pair) (*dataset.Pair, error) {
		if err := DropColumns(pair, drops); err != nil {
			return nil, err
		}
		log := s.logger(ctx)
		for _, d := range drops {
			log.Info("column removed", zap.String("column", d.Column), zap.Stringer("scope", d.Scope))
		}
		return pair, nil
	})
}

// ImputeMissing applies the missing-value policy and logs every fill.
func (s *Set) ImputeMissing() pipeline.Stage {
	return pipeline.Transform(func(ctx context.Context, pair *dataset.Pair) (*dataset.Pair, error) {
		fills, err := ImputeMissing(pair)
		if err != nil {
			return nil, err
		}
		log := s.logger(ctx)
		log.Info("Cabin column removed")
		for _, f := range fills {
			log.Info("missing values filled",
				zap.String("dataset", f.Dataset),
				zap.String("column", f.Column),
				zap.String("strategy", string(f.Strategy)),
				zap.String("value", f.Value),
				zap.Int("filled", f.Filled))
		}
		return pair, nil
	})
}

// SplitName splits the Name column into surname and Name.
func (s *Set) SplitName() pipeline.Stage {
	return pipeline.Transform(func(ctx context.Context, pair *dataset.Pair) (*dataset.Pair, error) {
		if err := SplitNameColumn(pair); err != nil {
			return nil, err
		}
		s.logger(ctx).Info("Name column split", zap.Int("surname_position", SurnamePosition))
		return pair, nil
	})
}

// Persist writes the pair to Root/subdir.
func (s *Set) Persist(subdir string) pipeline.Stage {
	return pipeline.Transform(func(ctx context.Context, pair *dataset.Pair) (*Written, error) {
		dir := filepath.Join(s.Root, subdir)
		log := s.logger(ctx)
		log.Info("saving data", zap.String("dir", dir))
		w, err := Persist(pair, dir)
		if err != nil {
			return nil, err
		}
		log.Info("data saved", zap.Strings("files", w.Files))
		return w, nil
	})
}
