package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
	"github.com/tracelab/tracelab/internal/pkg/logger"
	"github.com/tracelab/tracelab/internal/registry"
)

// TraceRepository defines trace metadata repository operations
type TraceRepository interface {
	Create(ctx context.Context, trace *domain.Trace) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Trace, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Trace, error)
	List(ctx context.Context, filter *domain.TraceFilter, limit, offset int) (*domain.TraceList, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ModuleRepository defines analysis module repository operations
type ModuleRepository interface {
	Create(ctx context.Context, module *domain.AnalysisModule) error
	ListByTrace(ctx context.Context, traceID uuid.UUID) ([]domain.AnalysisModule, error)
	DeleteByTrace(ctx context.Context, traceID uuid.UUID) error
}

// EventRepository defines trace event repository operations
type EventRepository interface {
	InsertBatch(ctx context.Context, events []domain.TraceEvent) error
	CountByTrace(ctx context.Context, traceID uuid.UUID) (uint64, error)
	TimeRange(ctx context.Context, traceID uuid.UUID) (int64, int64, error)
	DeleteByTrace(ctx context.Context, traceID uuid.UUID) error
}

// TraceService handles trace lifecycle: creation, opening into the
// registry, and closing. Opening a trace is what makes it visible to
// analysis lookups; its persisted modules are registered in their
// stored order.
type TraceService struct {
	traceRepo  TraceRepository
	moduleRepo ModuleRepository
	eventRepo  EventRepository
	registry   *registry.Registry
}

// NewTraceService creates a new trace service
func NewTraceService(
	traceRepo TraceRepository,
	moduleRepo ModuleRepository,
	eventRepo EventRepository,
	reg *registry.Registry,
) *TraceService {
	return &TraceService{
		traceRepo:  traceRepo,
		moduleRepo: moduleRepo,
		eventRepo:  eventRepo,
		registry:   reg,
	}
}

// Create persists a new trace. An experiment references its children by
// ID; all children must already exist.
func (s *TraceService) Create(ctx context.Context, input *domain.TraceInput) (*domain.Trace, error) {
	for _, childID := range input.ChildIDs {
		if _, err := s.traceRepo.GetByID(ctx, childID); err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.Validation("child trace not found: " + childID.String())
			}
			return nil, err
		}
	}

	now := time.Now()
	trace := &domain.Trace{
		ID:        uuid.New(),
		Name:      input.Name,
		Path:      input.Path,
		ChildIDs:  input.ChildIDs,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.traceRepo.Create(ctx, trace); err != nil {
		return nil, err
	}

	logger.Info("trace created",
		zap.String("trace_id", trace.ID.String()),
		zap.String("name", trace.Name),
		zap.Bool("experiment", trace.IsExperiment()),
	)

	return trace, nil
}

// Get retrieves a trace by ID
func (s *TraceService) Get(ctx context.Context, id uuid.UUID) (*domain.Trace, error) {
	return s.traceRepo.GetByID(ctx, id)
}

// List retrieves traces with filtering and pagination
func (s *TraceService) List(ctx context.Context, filter *domain.TraceFilter, limit, offset int) (*domain.TraceList, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.traceRepo.List(ctx, filter, limit, offset)
}

// Open loads a trace into the registry, registering its persisted
// modules in stored order. Opening an experiment opens its children
// first, loading them concurrently, so the experiment never appears
// open without its constituents.
func (s *TraceService) Open(ctx context.Context, id uuid.UUID) (*domain.Trace, error) {
	trace, err := s.traceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if trace.IsExperiment() {
		children := make([]*domain.Trace, len(trace.ChildIDs))
		childModules := make([][]domain.AnalysisModule, len(trace.ChildIDs))

		g, gctx := errgroup.WithContext(ctx)
		for i, childID := range trace.ChildIDs {
			g.Go(func() error {
				child, err := s.traceRepo.GetByID(gctx, childID)
				if err != nil {
					return fmt.Errorf("failed to load child trace %s: %w", childID, err)
				}
				modules, err := s.moduleRepo.ListByTrace(gctx, childID)
				if err != nil {
					return fmt.Errorf("failed to load modules of %s: %w", childID, err)
				}
				children[i] = child
				childModules[i] = modules
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		// Registration is sequential so children keep declared order.
		for i, child := range children {
			if err := s.openOne(child, childModules[i]); err != nil && !apperrors.IsConflict(err) {
				return nil, err
			}
		}
	}

	modules, err := s.moduleRepo.ListByTrace(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.openOne(trace, modules); err != nil {
		return nil, err
	}

	logger.Info("trace opened",
		zap.String("trace_id", trace.ID.String()),
		zap.String("name", trace.Name),
		zap.Int("modules", len(modules)),
	)

	return trace, nil
}

func (s *TraceService) openOne(trace *domain.Trace, modules []domain.AnalysisModule) error {
	if err := s.registry.Open(trace); err != nil {
		return err
	}
	for _, module := range modules {
		if err := s.registry.RegisterModule(trace.ID, module); err != nil {
			return err
		}
	}
	return nil
}

// Close removes a trace from the registry. Its persisted data stays.
func (s *TraceService) Close(ctx context.Context, id uuid.UUID) error {
	if err := s.registry.Close(id); err != nil {
		return err
	}
	logger.Info("trace closed", zap.String("trace_id", id.String()))
	return nil
}

// GetOpen returns an open trace from the registry.
func (s *TraceService) GetOpen(id uuid.UUID) (*domain.Trace, error) {
	trace, ok := s.registry.Get(id)
	if !ok {
		return nil, apperrors.NotFound("open trace")
	}
	return trace, nil
}

// ListOpen returns all open traces in open order.
func (s *TraceService) ListOpen() []*domain.Trace {
	return s.registry.List()
}

// RegisterModule registers an analysis module on an open trace and
// persists it so reopening the trace restores the same order.
func (s *TraceService) RegisterModule(ctx context.Context, traceID uuid.UUID, module domain.AnalysisModule) error {
	if module.ID == "" || module.Name == "" {
		return apperrors.Validation("module id and name are required")
	}
	module.TraceID = traceID
	if module.CreatedAt.IsZero() {
		module.CreatedAt = time.Now()
	}

	if err := s.registry.RegisterModule(traceID, module); err != nil {
		return err
	}
	if err := s.moduleRepo.Create(ctx, &module); err != nil {
		return err
	}
	return nil
}

// IngestEvents stores a batch of events for a trace.
func (s *TraceService) IngestEvents(ctx context.Context, traceID uuid.UUID, events []domain.TraceEvent) error {
	if _, err := s.traceRepo.GetByID(ctx, traceID); err != nil {
		return err
	}
	for i := range events {
		events[i].TraceID = traceID
	}
	return s.eventRepo.InsertBatch(ctx, events)
}

// Delete removes a trace, its modules, and its events. An open trace
// cannot be deleted.
func (s *TraceService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.registry.Get(id); ok {
		return apperrors.Conflict("trace is open")
	}
	if err := s.moduleRepo.DeleteByTrace(ctx, id); err != nil {
		return err
	}
	if err := s.eventRepo.DeleteByTrace(ctx, id); err != nil {
		return err
	}
	return s.traceRepo.Delete(ctx, id)
}
