package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tracelab/tracelab/internal/domain"
	"github.com/tracelab/tracelab/internal/pkg/database"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
)

// TraceRepository handles trace metadata in PostgreSQL
type TraceRepository struct {
	db *database.PostgresDB
}

// NewTraceRepository creates a new trace repository
func NewTraceRepository(db *database.PostgresDB) *TraceRepository {
	return &TraceRepository{db: db}
}

// Create inserts a new trace
func (r *TraceRepository) Create(ctx context.Context, trace *domain.Trace) error {
	query := `
		INSERT INTO traces (id, name, path, child_ids, start_time, end_time, event_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		trace.ID,
		trace.Name,
		trace.Path,
		trace.ChildIDs,
		trace.StartTime,
		trace.EndTime,
		trace.EventCount,
		trace.CreatedAt,
		trace.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create trace: %w", err)
	}

	return nil
}

// GetByID retrieves a trace by ID
func (r *TraceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trace, error) {
	query := `
		SELECT id, name, path, child_ids, start_time, end_time, event_count, created_at, updated_at
		FROM traces
		WHERE id = $1
	`

	var trace domain.Trace
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&trace.ID,
		&trace.Name,
		&trace.Path,
		&trace.ChildIDs,
		&trace.StartTime,
		&trace.EndTime,
		&trace.EventCount,
		&trace.CreatedAt,
		&trace.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("trace")
		}
		return nil, fmt.Errorf("failed to get trace: %w", err)
	}

	return &trace, nil
}

// GetByIDs retrieves multiple traces preserving the requested order
func (r *TraceRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Trace, error) {
	traces := make([]*domain.Trace, 0, len(ids))
	for _, id := range ids {
		trace, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		traces = append(traces, trace)
	}
	return traces, nil
}

// List retrieves traces with filtering and pagination
func (r *TraceRepository) List(ctx context.Context, filter *domain.TraceFilter, limit, offset int) (*domain.TraceList, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argN := 1

	if filter != nil {
		if filter.Name != nil {
			where += fmt.Sprintf(" AND name = $%d", argN)
			args = append(args, *filter.Name)
			argN++
		}
		if filter.Experiment != nil {
			if *filter.Experiment {
				where += " AND cardinality(child_ids) > 0"
			} else {
				where += " AND cardinality(child_ids) = 0"
			}
		}
		if filter.FromTime != nil {
			where += fmt.Sprintf(" AND end_time >= $%d", argN)
			args = append(args, *filter.FromTime)
			argN++
		}
		if filter.ToTime != nil {
			where += fmt.Sprintf(" AND start_time <= $%d", argN)
			args = append(args, *filter.ToTime)
			argN++
		}
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM traces " + where
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count traces: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, name, path, child_ids, start_time, end_time, event_count, created_at, updated_at
		FROM traces %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argN, argN+1)
	args = append(args, limit, offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list traces: %w", err)
	}
	defer rows.Close()

	var traces []domain.Trace
	for rows.Next() {
		var trace domain.Trace
		if err := rows.Scan(
			&trace.ID,
			&trace.Name,
			&trace.Path,
			&trace.ChildIDs,
			&trace.StartTime,
			&trace.EndTime,
			&trace.EventCount,
			&trace.CreatedAt,
			&trace.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trace: %w", err)
		}
		traces = append(traces, trace)
	}

	return &domain.TraceList{
		Traces:     traces,
		TotalCount: total,
		HasMore:    int64(offset+len(traces)) < total,
	}, nil
}

// Delete removes a trace
func (r *TraceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM traces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trace: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound("trace")
	}
	return nil
}
