package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tracelab/tracelab/internal/domain"
	"github.com/tracelab/tracelab/internal/pkg/database"
)

// SegmentRepository persists segment stores in PostgreSQL.
type SegmentRepository struct {
	db *database.PostgresDB
}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository(db *database.PostgresDB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// SaveSegments replaces the segments of a backend.
func (r *SegmentRepository) SaveSegments(ctx context.Context, backendID uuid.UUID, segments []domain.Segment) error {
	if _, err := r.db.Pool.Exec(ctx,
		`DELETE FROM segments WHERE backend_id = $1`, backendID); err != nil {
		return fmt.Errorf("failed to clear segments: %w", err)
	}

	if len(segments) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(segments))
	for _, seg := range segments {
		rows = append(rows, []interface{}{backendID, seg.Start, seg.End, seg.Label, seg.Value})
	}

	_, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"segments"},
		[]string{"backend_id", "start_time", "end_time", "label", "value"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy segments: %w", err)
	}

	return nil
}

// LoadSegments returns a backend's segments ordered by start time.
func (r *SegmentRepository) LoadSegments(ctx context.Context, backendID uuid.UUID) ([]domain.Segment, error) {
	query := `
		SELECT backend_id, start_time, end_time, label, value
		FROM segments
		WHERE backend_id = $1
		ORDER BY start_time ASC, end_time ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, backendID)
	if err != nil {
		return nil, fmt.Errorf("failed to load segments: %w", err)
	}
	defer rows.Close()

	var segments []domain.Segment
	for rows.Next() {
		var seg domain.Segment
		if err := rows.Scan(&seg.BackendID, &seg.Start, &seg.End, &seg.Label, &seg.Value); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, seg)
	}

	return segments, nil
}
