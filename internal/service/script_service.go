package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tracelab/tracelab/internal/config"
	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
	"github.com/tracelab/tracelab/internal/pkg/id"
	"github.com/tracelab/tracelab/internal/pkg/logger"
	"github.com/tracelab/tracelab/internal/pkg/metrics"
	"github.com/tracelab/tracelab/internal/registry"
	"github.com/tracelab/tracelab/internal/scripting"
	"github.com/tracelab/tracelab/internal/validator"
)

// ScriptRunRepository defines script run repository operations
type ScriptRunRepository interface {
	Create(ctx context.Context, run *domain.ScriptRun) error
	GetByID(ctx context.Context, runID string) (*domain.ScriptRun, error)
	MarkRunning(ctx context.Context, runID string, startedAt time.Time) error
	MarkFinished(ctx context.Context, runID string, status domain.RunStatus, errMsg string, finishedAt time.Time) error
	List(ctx context.Context, filter *domain.ScriptRunFilter, limit, offset int) ([]domain.ScriptRun, error)
}

// RunEnqueuer hands a run off for background execution.
type RunEnqueuer interface {
	EnqueueScriptRun(ctx context.Context, runID string) error
}

// EventStreamer streams stored trace events.
type EventStreamer interface {
	StreamEvents(ctx context.Context, filter *domain.EventFilter, fn func(domain.TraceEvent) error) error
	CountByTrace(ctx context.Context, traceID uuid.UUID) (uint64, error)
}

// TraceOpener opens a trace into the registry by ID.
type TraceOpener interface {
	Open(ctx context.Context, id uuid.UUID) (*domain.Trace, error)
}

// ScriptService validates, records, and executes user scripts. Small
// scripts run synchronously; anything over the sync event budget, or
// explicitly marked background, goes through the task queue.
type ScriptService struct {
	cfg      config.ScriptConfig
	runRepo  ScriptRunRepository
	events   EventStreamer
	registry *registry.Registry
	module   *scripting.Module
	engine   *scripting.Engine
	enqueuer RunEnqueuer
	opener   TraceOpener
}

// NewScriptService creates a new script service
func NewScriptService(
	cfg config.ScriptConfig,
	runRepo ScriptRunRepository,
	events EventStreamer,
	reg *registry.Registry,
	module *scripting.Module,
	engine *scripting.Engine,
	enqueuer RunEnqueuer,
) *ScriptService {
	return &ScriptService{
		cfg:      cfg,
		runRepo:  runRepo,
		events:   events,
		registry: reg,
		module:   module,
		engine:   engine,
		enqueuer: enqueuer,
	}
}

// WithTraceOpener lets queued runs open their trace on demand. The
// worker process starts with an empty registry, so without an opener
// every queued run would fail.
func (s *ScriptService) WithTraceOpener(opener TraceOpener) {
	s.opener = opener
}

// Submit validates a submission against an open trace and either runs
// it inline or enqueues it. The returned run reflects the state at
// return time: terminal for sync runs, pending for background ones.
func (s *ScriptService) Submit(ctx context.Context, traceID uuid.UUID, submission *domain.ScriptSubmission) (*domain.ScriptRun, error) {
	if err := validator.Validate(submission); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if s.cfg.MaxSourceBytes > 0 && len(submission.Source) > s.cfg.MaxSourceBytes {
		return nil, apperrors.Unprocessable("script source exceeds size limit")
	}

	trace, ok := s.registry.Get(traceID)
	if !ok {
		return nil, apperrors.NotFound("open trace")
	}

	run := &domain.ScriptRun{
		RunID:        id.NewRunID(),
		TraceID:      traceID,
		AnalysisName: submission.AnalysisName,
		Source:       submission.Source,
		Status:       domain.RunStatusPending,
		EnqueuedAt:   time.Now(),
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	background := submission.Background
	if !background && s.cfg.SyncMaxEvents > 0 {
		count, err := s.events.CountByTrace(ctx, traceID)
		if err != nil {
			return nil, err
		}
		background = count > uint64(s.cfg.SyncMaxEvents)
	}

	if background {
		if err := s.enqueuer.EnqueueScriptRun(ctx, run.RunID); err != nil {
			return nil, err
		}
		logger.Info("script run enqueued",
			zap.String("run_id", run.RunID),
			zap.String("trace_id", traceID.String()),
			zap.String("analysis", run.AnalysisName),
		)
		return run, nil
	}

	if err := s.execute(ctx, run, trace); err != nil {
		return nil, err
	}
	return s.runRepo.GetByID(ctx, run.RunID)
}

// ExecuteRun runs a previously recorded script. This is the entry point
// the background worker uses.
func (s *ScriptService) ExecuteRun(ctx context.Context, runID string) error {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status == domain.RunStatusSucceeded || run.Status == domain.RunStatusFailed {
		return nil
	}

	trace, ok := s.registry.Get(run.TraceID)
	if !ok && s.opener != nil {
		opened, err := s.opener.Open(ctx, run.TraceID)
		if err == nil {
			trace, ok = opened, true
		}
	}
	if !ok {
		now := time.Now()
		if err := s.runRepo.MarkFinished(ctx, runID, domain.RunStatusFailed, "trace is not open", now); err != nil {
			return err
		}
		return apperrors.NotFound("open trace")
	}

	return s.execute(ctx, run, trace)
}

// execute drives one run through its lifecycle and records the outcome.
// Engine errors are the run's outcome, not the caller's error.
func (s *ScriptService) execute(ctx context.Context, run *domain.ScriptRun, trace *domain.Trace) error {
	started := time.Now()
	if err := s.runRepo.MarkRunning(ctx, run.RunID, started); err != nil {
		return err
	}

	execCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
	defer cancel()

	api := scripting.NewAPI(execCtx, trace, s.module, s.events)
	execErr := s.engine.Execute(execCtx, run.Source, api)

	finished := time.Now()
	status := domain.RunStatusSucceeded
	errMsg := ""
	if execErr != nil {
		status = domain.RunStatusFailed
		errMsg = execErr.Error()
	}

	metrics.RecordScriptRun(string(status), finished.Sub(started))
	logger.Info("script run finished",
		zap.String("run_id", run.RunID),
		zap.String("status", string(status)),
		zap.Duration("duration", finished.Sub(started)),
		zap.Error(execErr),
	)

	return s.runRepo.MarkFinished(ctx, run.RunID, status, errMsg, finished)
}

// GetRun retrieves a run by ID
func (s *ScriptService) GetRun(ctx context.Context, runID string) (*domain.ScriptRun, error) {
	return s.runRepo.GetByID(ctx, runID)
}

// ListRuns retrieves runs with optional filtering
func (s *ScriptService) ListRuns(ctx context.Context, filter *domain.ScriptRunFilter, limit, offset int) ([]domain.ScriptRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.runRepo.List(ctx, filter, limit, offset)
}
