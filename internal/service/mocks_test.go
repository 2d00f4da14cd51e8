package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/tracelab/tracelab/internal/domain"
)

// MockTraceRepository is a mock implementation of TraceRepository
type MockTraceRepository struct {
	mock.Mock
}

func (m *MockTraceRepository) Create(ctx context.Context, trace *domain.Trace) error {
	args := m.Called(ctx, trace)
	return args.Error(0)
}

func (m *MockTraceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trace), args.Error(1)
}

func (m *MockTraceRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Trace, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Trace), args.Error(1)
}

func (m *MockTraceRepository) List(ctx context.Context, filter *domain.TraceFilter, limit, offset int) (*domain.TraceList, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TraceList), args.Error(1)
}

func (m *MockTraceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockModuleRepository is a mock implementation of ModuleRepository
type MockModuleRepository struct {
	mock.Mock
}

func (m *MockModuleRepository) Create(ctx context.Context, module *domain.AnalysisModule) error {
	args := m.Called(ctx, module)
	return args.Error(0)
}

func (m *MockModuleRepository) ListByTrace(ctx context.Context, traceID uuid.UUID) ([]domain.AnalysisModule, error) {
	args := m.Called(ctx, traceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AnalysisModule), args.Error(1)
}

func (m *MockModuleRepository) DeleteByTrace(ctx context.Context, traceID uuid.UUID) error {
	args := m.Called(ctx, traceID)
	return args.Error(0)
}

// MockEventRepository is a mock implementation of EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) InsertBatch(ctx context.Context, events []domain.TraceEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockEventRepository) CountByTrace(ctx context.Context, traceID uuid.UUID) (uint64, error) {
	args := m.Called(ctx, traceID)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockEventRepository) TimeRange(ctx context.Context, traceID uuid.UUID) (int64, int64, error) {
	args := m.Called(ctx, traceID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockEventRepository) DeleteByTrace(ctx context.Context, traceID uuid.UUID) error {
	args := m.Called(ctx, traceID)
	return args.Error(0)
}

func (m *MockEventRepository) StreamEvents(ctx context.Context, filter *domain.EventFilter, fn func(domain.TraceEvent) error) error {
	args := m.Called(ctx, filter, fn)
	return args.Error(0)
}

// MockScriptRunRepository is a mock implementation of ScriptRunRepository
type MockScriptRunRepository struct {
	mock.Mock
}

func (m *MockScriptRunRepository) Create(ctx context.Context, run *domain.ScriptRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockScriptRunRepository) GetByID(ctx context.Context, runID string) (*domain.ScriptRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScriptRun), args.Error(1)
}

func (m *MockScriptRunRepository) MarkRunning(ctx context.Context, runID string, startedAt time.Time) error {
	args := m.Called(ctx, runID, startedAt)
	return args.Error(0)
}

func (m *MockScriptRunRepository) MarkFinished(ctx context.Context, runID string, status domain.RunStatus, errMsg string, finishedAt time.Time) error {
	args := m.Called(ctx, runID, status, errMsg, finishedAt)
	return args.Error(0)
}

func (m *MockScriptRunRepository) List(ctx context.Context, filter *domain.ScriptRunFilter, limit, offset int) ([]domain.ScriptRun, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScriptRun), args.Error(1)
}

// MockBackendRecordRepository is a mock implementation of BackendRecordRepository
type MockBackendRecordRepository struct {
	mock.Mock
}

func (m *MockBackendRecordRepository) GetByKey(ctx context.Context, traceID uuid.UUID, analysisName string, kind domain.BackendKind) (*domain.BackendRecord, error) {
	args := m.Called(ctx, traceID, analysisName, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BackendRecord), args.Error(1)
}

func (m *MockBackendRecordRepository) ListByTrace(ctx context.Context, traceID uuid.UUID) ([]domain.BackendRecord, error) {
	args := m.Called(ctx, traceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BackendRecord), args.Error(1)
}

func (m *MockBackendRecordRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockRunEnqueuer is a mock implementation of RunEnqueuer
type MockRunEnqueuer struct {
	mock.Mock
}

func (m *MockRunEnqueuer) EnqueueScriptRun(ctx context.Context, runID string) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}

// MockExportEnqueuer is a mock implementation of ExportEnqueuer
type MockExportEnqueuer struct {
	mock.Mock
}

func (m *MockExportEnqueuer) EnqueueAnalysisExport(ctx context.Context, traceID uuid.UUID, analysisName string, kind domain.BackendKind) error {
	args := m.Called(ctx, traceID, analysisName, kind)
	return args.Error(0)
}
