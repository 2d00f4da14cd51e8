package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
	"github.com/tracelab/tracelab/internal/registry"
)

// BackendRecordRepository defines backend record lookup operations
type BackendRecordRepository interface {
	GetByKey(ctx context.Context, traceID uuid.UUID, analysisName string, kind domain.BackendKind) (*domain.BackendRecord, error)
	ListByTrace(ctx context.Context, traceID uuid.UUID) ([]domain.BackendRecord, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExportEnqueuer queues backend exports for background processing
type ExportEnqueuer interface {
	EnqueueAnalysisExport(ctx context.Context, traceID uuid.UUID, analysisName string, kind domain.BackendKind) error
}

// AnalysisService resolves analysis modules and exposes the backends a
// scripted analysis has persisted.
type AnalysisService struct {
	registry    *registry.Registry
	resolver    *registry.Resolver
	backendRepo BackendRecordRepository
	exports     ExportEnqueuer
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(reg *registry.Registry, resolver *registry.Resolver, backendRepo BackendRecordRepository, exports ExportEnqueuer) *AnalysisService {
	return &AnalysisService{
		registry:    reg,
		resolver:    resolver,
		backendRepo: backendRepo,
		exports:     exports,
	}
}

// GetTraceAnalysis resolves an analysis module of an open trace by name
// or ID across the trace's constituents. A missing module returns
// (nil, nil); only a missing or closed trace is an error.
func (s *AnalysisService) GetTraceAnalysis(ctx context.Context, traceID uuid.UUID, analysisName string) (*domain.AnalysisModule, error) {
	trace, ok := s.registry.Get(traceID)
	if !ok {
		return nil, apperrors.NotFound("open trace")
	}
	return s.resolver.GetTraceAnalysis(ctx, trace, analysisName)
}

// ListModules returns the modules of an open trace's full constituent
// set, in the order the resolver would walk them.
func (s *AnalysisService) ListModules(ctx context.Context, traceID uuid.UUID) ([]domain.AnalysisModule, error) {
	trace, ok := s.registry.Get(traceID)
	if !ok {
		return nil, apperrors.NotFound("open trace")
	}

	var modules []domain.AnalysisModule
	for _, constituent := range s.registry.TraceSet(trace) {
		modules = append(modules, s.registry.Modules(constituent.ID)...)
	}
	return modules, nil
}

// ListBackends returns the persisted backend records of a trace,
// whether or not the trace is currently open.
func (s *AnalysisService) ListBackends(ctx context.Context, traceID uuid.UUID) ([]domain.BackendRecord, error) {
	return s.backendRepo.ListByTrace(ctx, traceID)
}

// GetBackend returns one backend record by its storage key.
func (s *AnalysisService) GetBackend(ctx context.Context, traceID uuid.UUID, analysisName string, kind domain.BackendKind) (*domain.BackendRecord, error) {
	return s.backendRepo.GetByKey(ctx, traceID, analysisName, kind)
}

// RequestExport queues a background export of a saved backend to object
// storage. Only sealed backends export; anything else is rejected here
// rather than burning a worker attempt.
func (s *AnalysisService) RequestExport(ctx context.Context, traceID uuid.UUID, analysisName string, kind domain.BackendKind) error {
	record, err := s.backendRepo.GetByKey(ctx, traceID, analysisName, kind)
	if err != nil {
		return err
	}
	if !record.Sealed {
		return apperrors.Unprocessable("backend has no saved data to export")
	}
	return s.exports.EnqueueAnalysisExport(ctx, traceID, analysisName, kind)
}
