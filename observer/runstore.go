package observer

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dcshock/passengerpipe/errs"
	"github.com/dcshock/passengerpipe/pipeline"
)

//go:embed schema.sql
var schemaSQL string

// Execer is the subset of *pgxpool.Pool (or pgx.Conn, pgx.Tx) used by RunStore.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Migrate creates the pipeline_run and pipeline_run_stage tables if needed.
func Migrate(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate run store: %w", err)
	}
	return nil
}

// RunStore persists pipeline and stage execution to Postgres. Stage inputs
// and outputs are stored as dataset shapes, never as cell data.
type RunStore struct {
	db Execer
}

// NewRunStore returns a RunStore writing through db.
func NewRunStore(db Execer) *RunStore {
	return &RunStore{db: db}
}

const (
	upsertRunSQL = `
		INSERT INTO pipeline_run (run_id, name, status, payload, started_at)
		VALUES ($1, $2, 'running', $3, now())
		ON CONFLICT (run_id) DO UPDATE
		SET name = EXCLUDED.name, status = 'running', payload = EXCLUDED.payload,
		    result = NULL, error = NULL, error_code = NULL, finished_at = NULL
	`
	completeRunSQL = `
		UPDATE pipeline_run
		SET status = $2, result = $3, error = $4, error_code = $5, finished_at = now()
		WHERE run_id = $1
	`
	insertStageSQL = `
		INSERT INTO pipeline_run_stage (pipeline_run_id, stage_index, pipeline, stage, status, input_json, started_at)
		VALUES ($1, $2, $3, $4, 'running', $5, now())
		ON CONFLICT (pipeline_run_id, stage_index) DO UPDATE
		SET pipeline = EXCLUDED.pipeline, stage = EXCLUDED.stage, status = 'running',
		    input_json = EXCLUDED.input_json, output_json = NULL, error = NULL,
		    error_code = NULL, duration_ms = NULL, started_at = now()
	`
	completeStageSQL = `
		UPDATE pipeline_run_stage
		SET status = $3, output_json = $4, error = $5, error_code = $6, duration_ms = $7
		WHERE pipeline_run_id = $1 AND stage_index = $2
	`
)

// BeforePipeline implements pipeline.Observer. Upserts the run so a reused
// run ID starts over.
func (s *RunStore) BeforePipeline(ctx context.Context, runID, name string, payload interface{}) error {
	payloadJSON, err := marshalOptional(summary(payload))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if _, err := s.db.Exec(ctx, upsertRunSQL, runID, name, payloadJSON); err != nil {
		return fmt.Errorf("record run %s: %w", runID, err)
	}
	return nil
}

// AfterPipeline implements pipeline.Observer.
func (s *RunStore) AfterPipeline(ctx context.Context, runID, _ string, result interface{}, err error) error {
	resultJSON, marshalErr := marshalOptional(summary(result))
	if marshalErr != nil {
		return fmt.Errorf("marshal result: %w", marshalErr)
	}
	errText, code := errorColumns(err)
	if _, execErr := s.db.Exec(ctx, completeRunSQL, runID, status(err), resultJSON, errText, code); execErr != nil {
		return fmt.Errorf("complete run %s: %w", runID, execErr)
	}
	return nil
}

// BeforeStage implements pipeline.Observer.
func (s *RunStore) BeforeStage(ctx context.Context, runID string, stage pipeline.StageInfo, input interface{}) error {
	inputJSON, err := marshalOptional(summary(input))
	if err != nil {
		return fmt.Errorf("marshal stage input: %w", err)
	}
	if _, err := s.db.Exec(ctx, insertStageSQL, runID, int32(stage.Index), stage.Pipeline, stage.Name, inputJSON); err != nil {
		return fmt.Errorf("record stage %d: %w", stage.Index, err)
	}
	return nil
}

// AfterStage implements pipeline.Observer.
func (s *RunStore) AfterStage(ctx context.Context, runID string, stage pipeline.StageInfo, _, output interface{}, stageErr error, duration time.Duration) error {
	outputJSON, err := marshalOptional(summary(output))
	if err != nil {
		return fmt.Errorf("marshal stage output: %w", err)
	}
	errText, code := errorColumns(stageErr)
	if _, err := s.db.Exec(ctx, completeStageSQL, runID, int32(stage.Index),
		status(stageErr), outputJSON, errText, code, duration.Milliseconds()); err != nil {
		return fmt.Errorf("complete stage %d: %w", stage.Index, err)
	}
	return nil
}

// errorColumns returns the nullable error and error_code values.
func errorColumns(err error) (*string, *string) {
	if err == nil {
		return nil, nil
	}
	text, code := err.Error(), errs.Code(err)
	return &text, &code
}

func marshalOptional(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
