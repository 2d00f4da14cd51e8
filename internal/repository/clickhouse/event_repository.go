package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tracelab/tracelab/internal/domain"
	"github.com/tracelab/tracelab/internal/pkg/database"
)

// EventRepository handles trace event operations in ClickHouse
type EventRepository struct {
	db *database.ClickHouseDB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *database.ClickHouseDB) *EventRepository {
	return &EventRepository{db: db}
}

// InsertBatch inserts a batch of trace events
func (r *EventRepository) InsertBatch(ctx context.Context, events []domain.TraceEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := r.db.PrepareBatch(ctx, `
		INSERT INTO trace_events (trace_id, timestamp, name, cpu, fields)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, event := range events {
		if err := batch.Append(
			event.TraceID,
			event.Timestamp,
			event.Name,
			event.CPU,
			event.Fields,
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	return nil
}

// StreamEvents reads matching events in timestamp order and hands each
// one to fn. Iteration stops on the first error fn returns.
func (r *EventRepository) StreamEvents(ctx context.Context, filter *domain.EventFilter, fn func(domain.TraceEvent) error) error {
	query, args := buildEventQuery(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var event domain.TraceEvent
		if err := rows.ScanStruct(&event); err != nil {
			return fmt.Errorf("failed to scan event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}

	return rows.Err()
}

// CountByTrace returns the number of events stored for a trace
func (r *EventRepository) CountByTrace(ctx context.Context, traceID uuid.UUID) (uint64, error) {
	var count uint64
	err := r.db.QueryRow(ctx,
		`SELECT count() FROM trace_events WHERE trace_id = ?`, traceID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// TimeRange returns the first and last event timestamps of a trace.
func (r *EventRepository) TimeRange(ctx context.Context, traceID uuid.UUID) (int64, int64, error) {
	var start, end int64
	err := r.db.QueryRow(ctx,
		`SELECT min(timestamp), max(timestamp) FROM trace_events WHERE trace_id = ?`, traceID,
	).Scan(&start, &end)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query time range: %w", err)
	}
	return start, end, nil
}

// DeleteByTrace removes all events of a trace
func (r *EventRepository) DeleteByTrace(ctx context.Context, traceID uuid.UUID) error {
	if err := r.db.Exec(ctx,
		`ALTER TABLE trace_events DELETE WHERE trace_id = ?`, traceID); err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}
	return nil
}

func buildEventQuery(filter *domain.EventFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT trace_id, timestamp, name, cpu, fields
		FROM trace_events
		WHERE trace_id = ?
	`)
	args := []interface{}{filter.TraceID}

	if filter.FromTime != nil {
		sb.WriteString(" AND timestamp >= ?")
		args = append(args, *filter.FromTime)
	}
	if filter.ToTime != nil {
		sb.WriteString(" AND timestamp <= ?")
		args = append(args, *filter.ToTime)
	}
	if len(filter.Names) > 0 {
		sb.WriteString(" AND name IN (?)")
		args = append(args, filter.Names)
	}

	sb.WriteString(" ORDER BY timestamp ASC")
	return sb.String(), args
}
