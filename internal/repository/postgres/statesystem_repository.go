package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tracelab/tracelab/internal/domain"
	"github.com/tracelab/tracelab/internal/pkg/database"
)

// StateSystemRepository persists state-system attributes and intervals.
// Interval batches can be large, so writes go through CopyFrom.
type StateSystemRepository struct {
	db *database.PostgresDB
}

// NewStateSystemRepository creates a new state system repository
func NewStateSystemRepository(db *database.PostgresDB) *StateSystemRepository {
	return &StateSystemRepository{db: db}
}

// SaveAttributes replaces the attribute tree of a backend.
func (r *StateSystemRepository) SaveAttributes(ctx context.Context, backendID uuid.UUID, attrs []domain.StateAttribute) error {
	if _, err := r.db.Pool.Exec(ctx,
		`DELETE FROM state_attributes WHERE backend_id = $1`, backendID); err != nil {
		return fmt.Errorf("failed to clear state attributes: %w", err)
	}

	if len(attrs) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(attrs))
	for _, attr := range attrs {
		rows = append(rows, []interface{}{backendID, attr.Quark, attr.Path})
	}

	_, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"state_attributes"},
		[]string{"backend_id", "quark", "path"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy state attributes: %w", err)
	}

	return nil
}

// SaveIntervals replaces the sealed intervals of a backend.
func (r *StateSystemRepository) SaveIntervals(ctx context.Context, backendID uuid.UUID, intervals []domain.StateInterval) error {
	if _, err := r.db.Pool.Exec(ctx,
		`DELETE FROM state_intervals WHERE backend_id = $1`, backendID); err != nil {
		return fmt.Errorf("failed to clear state intervals: %w", err)
	}

	if len(intervals) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(intervals))
	for _, iv := range intervals {
		rows = append(rows, []interface{}{backendID, iv.Quark, iv.Start, iv.End, iv.Value})
	}

	_, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"state_intervals"},
		[]string{"backend_id", "quark", "start_time", "end_time", "value"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy state intervals: %w", err)
	}

	return nil
}

// LoadAttributes returns a backend's attributes in quark order.
func (r *StateSystemRepository) LoadAttributes(ctx context.Context, backendID uuid.UUID) ([]domain.StateAttribute, error) {
	query := `
		SELECT backend_id, quark, path
		FROM state_attributes
		WHERE backend_id = $1
		ORDER BY quark ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, backendID)
	if err != nil {
		return nil, fmt.Errorf("failed to load state attributes: %w", err)
	}
	defer rows.Close()

	var attrs []domain.StateAttribute
	for rows.Next() {
		var attr domain.StateAttribute
		if err := rows.Scan(&attr.BackendID, &attr.Quark, &attr.Path); err != nil {
			return nil, fmt.Errorf("failed to scan state attribute: %w", err)
		}
		attrs = append(attrs, attr)
	}

	return attrs, nil
}

// LoadIntervals returns a backend's intervals ordered by quark then start.
func (r *StateSystemRepository) LoadIntervals(ctx context.Context, backendID uuid.UUID) ([]domain.StateInterval, error) {
	query := `
		SELECT backend_id, quark, start_time, end_time, value
		FROM state_intervals
		WHERE backend_id = $1
		ORDER BY quark ASC, start_time ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, backendID)
	if err != nil {
		return nil, fmt.Errorf("failed to load state intervals: %w", err)
	}
	defer rows.Close()

	var intervals []domain.StateInterval
	for rows.Next() {
		var iv domain.StateInterval
		if err := rows.Scan(&iv.BackendID, &iv.Quark, &iv.Start, &iv.End, &iv.Value); err != nil {
			return nil, fmt.Errorf("failed to scan state interval: %w", err)
		}
		intervals = append(intervals, iv)
	}

	return intervals, nil
}
