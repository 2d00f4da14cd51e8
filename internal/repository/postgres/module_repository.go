package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tracelab/tracelab/internal/domain"
	"github.com/tracelab/tracelab/internal/pkg/database"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
)

// ModuleRepository handles registered analysis modules in PostgreSQL.
// The seq column preserves registration order so listings come back in
// the order modules were attached to the trace.
type ModuleRepository struct {
	db *database.PostgresDB
}

// NewModuleRepository creates a new module repository
func NewModuleRepository(db *database.PostgresDB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// Create registers a module for a trace, appending it after all
// existing modules of that trace.
func (r *ModuleRepository) Create(ctx context.Context, module *domain.AnalysisModule) error {
	query := `
		INSERT INTO analysis_modules (id, name, type, trace_id, seq, created_at)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM analysis_modules WHERE trace_id = $4),
			$5)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		module.ID,
		module.Name,
		module.Type,
		module.TraceID,
		module.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("module already registered")
		}
		return fmt.Errorf("failed to create module: %w", err)
	}

	return nil
}

// ListByTrace returns a trace's modules in registration order.
func (r *ModuleRepository) ListByTrace(ctx context.Context, traceID uuid.UUID) ([]domain.AnalysisModule, error) {
	query := `
		SELECT id, name, type, trace_id, created_at
		FROM analysis_modules
		WHERE trace_id = $1
		ORDER BY seq ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, traceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var modules []domain.AnalysisModule
	for rows.Next() {
		var module domain.AnalysisModule
		if err := rows.Scan(
			&module.ID,
			&module.Name,
			&module.Type,
			&module.TraceID,
			&module.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		modules = append(modules, module)
	}

	return modules, nil
}

// DeleteByTrace removes all modules of a trace.
func (r *ModuleRepository) DeleteByTrace(ctx context.Context, traceID uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM analysis_modules WHERE trace_id = $1`, traceID)
	if err != nil {
		return fmt.Errorf("failed to delete modules: %w", err)
	}
	return nil
}
