package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tracelab/tracelab/internal/domain"
	"github.com/tracelab/tracelab/internal/pkg/database"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
)

// BackendRepository handles analysis backend records in PostgreSQL.
// The UNIQUE(trace_id, analysis_name, kind) constraint is what enforces
// one record per key even under concurrent opens; Create resolves
// insert races in favor of the row that got there first.
type BackendRepository struct {
	db *database.PostgresDB
}

// NewBackendRepository creates a new backend record repository
func NewBackendRepository(db *database.PostgresDB) *BackendRepository {
	return &BackendRepository{db: db}
}

// Create inserts the record if its key is free. Losing the race to
// another writer is not an error: the caller's record is replaced with
// the winner's row, including its sealed state, so a record sealed by
// another process between lookup and insert is never unsealed.
func (r *BackendRepository) Create(ctx context.Context, record *domain.BackendRecord) error {
	query := `
		INSERT INTO analysis_backends (id, trace_id, analysis_name, kind, sealed, end_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (trace_id, analysis_name, kind) DO NOTHING
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		record.ID,
		record.TraceID,
		record.AnalysisName,
		record.Kind,
		record.Sealed,
		record.EndTime,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create backend record: %w", err)
	}

	if tag.RowsAffected() == 0 {
		existing, err := r.GetByKey(ctx, record.TraceID, record.AnalysisName, record.Kind)
		if err != nil {
			return fmt.Errorf("failed to load conflicting backend record: %w", err)
		}
		*record = *existing
	}

	return nil
}

// Upsert writes the record's sealed state and end time, inserting the
// row if needed. This is the seal path; creation goes through Create
// so an open can never regress a sealed record.
func (r *BackendRepository) Upsert(ctx context.Context, record *domain.BackendRecord) error {
	query := `
		INSERT INTO analysis_backends (id, trace_id, analysis_name, kind, sealed, end_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (trace_id, analysis_name, kind) DO UPDATE
		SET sealed = EXCLUDED.sealed,
			end_time = EXCLUDED.end_time,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		record.ID,
		record.TraceID,
		record.AnalysisName,
		record.Kind,
		record.Sealed,
		record.EndTime,
		record.CreatedAt,
		record.UpdatedAt,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert backend record: %w", err)
	}

	return nil
}

// GetByKey retrieves the record for (trace, analysis name, kind).
func (r *BackendRepository) GetByKey(ctx context.Context, traceID uuid.UUID, analysisName string, kind domain.BackendKind) (*domain.BackendRecord, error) {
	query := `
		SELECT id, trace_id, analysis_name, kind, sealed, end_time, created_at, updated_at
		FROM analysis_backends
		WHERE trace_id = $1 AND analysis_name = $2 AND kind = $3
	`

	var record domain.BackendRecord
	err := r.db.Pool.QueryRow(ctx, query, traceID, analysisName, kind).Scan(
		&record.ID,
		&record.TraceID,
		&record.AnalysisName,
		&record.Kind,
		&record.Sealed,
		&record.EndTime,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("backend record")
		}
		return nil, fmt.Errorf("failed to get backend record: %w", err)
	}

	return &record, nil
}

// ListByTrace returns all backend records attached to a trace.
func (r *BackendRepository) ListByTrace(ctx context.Context, traceID uuid.UUID) ([]domain.BackendRecord, error) {
	query := `
		SELECT id, trace_id, analysis_name, kind, sealed, end_time, created_at, updated_at
		FROM analysis_backends
		WHERE trace_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, traceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list backend records: %w", err)
	}
	defer rows.Close()

	var records []domain.BackendRecord
	for rows.Next() {
		var record domain.BackendRecord
		if err := rows.Scan(
			&record.ID,
			&record.TraceID,
			&record.AnalysisName,
			&record.Kind,
			&record.Sealed,
			&record.EndTime,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan backend record: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}

// DeleteOlderThan removes sealed records not updated since the cutoff.
// Intervals and segments go with them via ON DELETE CASCADE.
func (r *BackendRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx,
		`DELETE FROM analysis_backends WHERE sealed = true AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired backend records: %w", err)
	}
	return result.RowsAffected(), nil
}
