package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
)

// ScriptRunRepository handles script run history in PostgreSQL.
type ScriptRunRepository struct {
	db *sqlx.DB
}

// NewScriptRunRepository creates a new script run repository
func NewScriptRunRepository(db *sqlx.DB) *ScriptRunRepository {
	return &ScriptRunRepository{db: db}
}

// Create records a newly enqueued run.
func (r *ScriptRunRepository) Create(ctx context.Context, run *domain.ScriptRun) error {
	query := `
		INSERT INTO script_runs (run_id, trace_id, analysis_name, source, status, error, enqueued_at)
		VALUES (:run_id, :trace_id, :analysis_name, :source, :status, :error, :enqueued_at)`

	_, err := r.db.NamedExecContext(ctx, query, run)
	if err != nil {
		return fmt.Errorf("failed to create script run: %w", err)
	}

	return nil
}

// GetByID retrieves a run by its run ID
func (r *ScriptRunRepository) GetByID(ctx context.Context, runID string) (*domain.ScriptRun, error) {
	query := `
		SELECT run_id, trace_id, analysis_name, source, status, error, enqueued_at, started_at, finished_at
		FROM script_runs
		WHERE run_id = $1`

	var run domain.ScriptRun
	if err := r.db.GetContext(ctx, &run, query, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("script run")
		}
		return nil, fmt.Errorf("failed to get script run: %w", err)
	}

	return &run, nil
}

// MarkRunning transitions a run to running and stamps its start time.
func (r *ScriptRunRepository) MarkRunning(ctx context.Context, runID string, startedAt time.Time) error {
	return r.setStatus(ctx, runID,
		`UPDATE script_runs SET status = $1, started_at = $2 WHERE run_id = $3`,
		domain.RunStatusRunning, startedAt, runID)
}

// MarkFinished transitions a run to its terminal status. The error
// message is empty on success.
func (r *ScriptRunRepository) MarkFinished(ctx context.Context, runID string, status domain.RunStatus, errMsg string, finishedAt time.Time) error {
	return r.setStatus(ctx, runID,
		`UPDATE script_runs SET status = $1, error = $2, finished_at = $3 WHERE run_id = $4`,
		status, errMsg, finishedAt, runID)
}

func (r *ScriptRunRepository) setStatus(ctx context.Context, runID, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update script run %s: %w", runID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update script run %s: %w", runID, err)
	}
	if rows == 0 {
		return apperrors.NotFound("script run")
	}
	return nil
}

// List retrieves runs with optional filtering, newest first.
func (r *ScriptRunRepository) List(ctx context.Context, filter *domain.ScriptRunFilter, limit, offset int) ([]domain.ScriptRun, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argN := 1

	if filter != nil {
		if filter.TraceID != nil {
			where += fmt.Sprintf(" AND trace_id = $%d", argN)
			args = append(args, *filter.TraceID)
			argN++
		}
		if filter.AnalysisName != nil {
			where += fmt.Sprintf(" AND analysis_name = $%d", argN)
			args = append(args, *filter.AnalysisName)
			argN++
		}
		if filter.Status != nil {
			where += fmt.Sprintf(" AND status = $%d", argN)
			args = append(args, *filter.Status)
			argN++
		}
	}

	query := fmt.Sprintf(`
		SELECT run_id, trace_id, analysis_name, source, status, error, enqueued_at, started_at, finished_at
		FROM script_runs %s
		ORDER BY enqueued_at DESC
		LIMIT $%d OFFSET $%d`, where, argN, argN+1)
	args = append(args, limit, offset)

	var runs []domain.ScriptRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list script runs: %w", err)
	}

	return runs, nil
}
