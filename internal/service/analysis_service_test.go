package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
	"github.com/tracelab/tracelab/internal/registry"
)

func newAnalysisService() (*AnalysisService, *MockBackendRecordRepository, *MockExportEnqueuer, *registry.Registry) {
	reg := registry.New()
	backendRepo := new(MockBackendRecordRepository)
	exports := new(MockExportEnqueuer)
	svc := NewAnalysisService(reg, registry.NewResolver(reg), backendRepo, exports)
	return svc, backendRepo, exports, reg
}

func TestAnalysisServiceGetTraceAnalysis(t *testing.T) {
	t.Run("resolves by name on an open trace", func(t *testing.T) {
		svc, _, _, reg := newAnalysisService()
		trace := testTrace("kernel")
		require.NoError(t, reg.Open(trace))
		require.NoError(t, reg.RegisterModule(trace.ID, domain.AnalysisModule{
			ID: "cpu.usage", Name: "CPU Usage", Type: domain.AnalysisTypeBuiltin,
		}))

		module, err := svc.GetTraceAnalysis(context.Background(), trace.ID, "CPU Usage")
		require.NoError(t, err)
		require.NotNil(t, module)
		assert.Equal(t, "cpu.usage", module.ID)
	})

	t.Run("missing module returns nil without error", func(t *testing.T) {
		svc, _, _, reg := newAnalysisService()
		trace := testTrace("kernel")
		require.NoError(t, reg.Open(trace))

		module, err := svc.GetTraceAnalysis(context.Background(), trace.ID, "No Such Analysis")
		require.NoError(t, err)
		assert.Nil(t, module)
	})

	t.Run("closed trace is not found", func(t *testing.T) {
		svc, _, _, _ := newAnalysisService()

		_, err := svc.GetTraceAnalysis(context.Background(), uuid.New(), "CPU Usage")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestAnalysisServiceListModules(t *testing.T) {
	t.Run("walks the experiment's constituents in order", func(t *testing.T) {
		svc, _, _, reg := newAnalysisService()
		childA := testTrace("trace-a")
		childB := testTrace("trace-b")
		exp := testTrace("experiment")
		exp.ChildIDs = []uuid.UUID{childA.ID, childB.ID}

		require.NoError(t, reg.Open(childA))
		require.NoError(t, reg.Open(childB))
		require.NoError(t, reg.Open(exp))
		require.NoError(t, reg.RegisterModule(childA.ID, domain.AnalysisModule{ID: "cpu.usage", Name: "CPU Usage"}))
		require.NoError(t, reg.RegisterModule(childB.ID, domain.AnalysisModule{ID: "mem", Name: "Memory"}))

		modules, err := svc.ListModules(context.Background(), exp.ID)
		require.NoError(t, err)
		require.Len(t, modules, 2)
		assert.Equal(t, "cpu.usage", modules[0].ID)
		assert.Equal(t, "mem", modules[1].ID)
	})
}

func TestAnalysisServiceListBackends(t *testing.T) {
	svc, backendRepo, _, _ := newAnalysisService()
	traceID := uuid.New()
	records := []domain.BackendRecord{
		{ID: uuid.New(), TraceID: traceID, AnalysisName: "latency", Kind: domain.BackendSegmentStore, Sealed: true},
	}
	backendRepo.On("ListByTrace", context.Background(), traceID).Return(records, nil)

	got, err := svc.ListBackends(context.Background(), traceID)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestAnalysisServiceRequestExport(t *testing.T) {
	ctx := context.Background()

	t.Run("queues an export for a sealed backend", func(t *testing.T) {
		svc, backendRepo, exports, _ := newAnalysisService()
		traceID := uuid.New()
		record := &domain.BackendRecord{
			ID: uuid.New(), TraceID: traceID, AnalysisName: "latency",
			Kind: domain.BackendSegmentStore, Sealed: true,
		}
		backendRepo.On("GetByKey", ctx, traceID, "latency", domain.BackendSegmentStore).Return(record, nil)
		exports.On("EnqueueAnalysisExport", ctx, traceID, "latency", domain.BackendSegmentStore).Return(nil)

		err := svc.RequestExport(ctx, traceID, "latency", domain.BackendSegmentStore)
		require.NoError(t, err)
		exports.AssertExpectations(t)
	})

	t.Run("rejects an unsealed backend without enqueuing", func(t *testing.T) {
		svc, backendRepo, exports, _ := newAnalysisService()
		traceID := uuid.New()
		record := &domain.BackendRecord{
			ID: uuid.New(), TraceID: traceID, AnalysisName: "latency",
			Kind: domain.BackendSegmentStore, Sealed: false,
		}
		backendRepo.On("GetByKey", ctx, traceID, "latency", domain.BackendSegmentStore).Return(record, nil)

		err := svc.RequestExport(ctx, traceID, "latency", domain.BackendSegmentStore)
		require.Error(t, err)
		assert.True(t, apperrors.IsUnprocessable(err))
		exports.AssertNotCalled(t, "EnqueueAnalysisExport", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing backend is not found", func(t *testing.T) {
		svc, backendRepo, exports, _ := newAnalysisService()
		traceID := uuid.New()
		backendRepo.On("GetByKey", ctx, traceID, "latency", domain.BackendSegmentStore).
			Return(nil, apperrors.NotFound("backend record"))

		err := svc.RequestExport(ctx, traceID, "latency", domain.BackendSegmentStore)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
		exports.AssertNotCalled(t, "EnqueueAnalysisExport", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
