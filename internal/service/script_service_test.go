package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tracelab/tracelab/internal/backend"
	"github.com/tracelab/tracelab/internal/config"
	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
	"github.com/tracelab/tracelab/internal/registry"
	"github.com/tracelab/tracelab/internal/scripting"
)

// memoryBackendStore is an in-memory BackendOpener for script tests.
type memoryBackendStore struct{}

func (s *memoryBackendStore) Open(ctx context.Context, traceID uuid.UUID, analysisName string, kind domain.BackendKind) (*backend.Handle, error) {
	handle := &backend.Handle{Record: &domain.BackendRecord{
		ID: uuid.New(), TraceID: traceID, AnalysisName: analysisName, Kind: kind,
	}}
	switch kind {
	case domain.BackendStateSystem:
		handle.StateSystem = backend.NewStateSystem()
	case domain.BackendSegmentStore:
		handle.SegmentStore = backend.NewSegmentStore()
	}
	return handle, nil
}

func (s *memoryBackendStore) Save(ctx context.Context, handle *backend.Handle) error {
	handle.Record.Sealed = true
	return nil
}

func newScriptService(cfg config.ScriptConfig) (*ScriptService, *MockScriptRunRepository, *MockEventRepository, *MockRunEnqueuer, *registry.Registry) {
	runRepo := new(MockScriptRunRepository)
	eventRepo := new(MockEventRepository)
	enqueuer := new(MockRunEnqueuer)
	reg := registry.New()

	module := scripting.NewModule(registry.NewResolver(reg), &memoryBackendStore{})
	engine := scripting.NewEngine(cfg)
	svc := NewScriptService(cfg, runRepo, eventRepo, reg, module, engine, enqueuer)
	return svc, runRepo, eventRepo, enqueuer, reg
}

func scriptConfig() config.ScriptConfig {
	return config.ScriptConfig{
		TimeoutSeconds: 10,
		MaxSourceBytes: 1 << 20,
		SyncMaxEvents:  1000,
	}
}

const trivialScript = `
import "tracelab"

func Run(api *tracelab.API) error {
	return nil
}
`

func TestScriptServiceSubmit(t *testing.T) {
	t.Run("rejects empty submission", func(t *testing.T) {
		svc, _, _, _, _ := newScriptService(scriptConfig())

		_, err := svc.Submit(context.Background(), uuid.New(), &domain.ScriptSubmission{})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("rejects oversized source", func(t *testing.T) {
		cfg := scriptConfig()
		cfg.MaxSourceBytes = 8
		svc, _, _, _, _ := newScriptService(cfg)

		_, err := svc.Submit(context.Background(), uuid.New(), &domain.ScriptSubmission{
			AnalysisName: "latency",
			Source:       trivialScript,
		})
		require.Error(t, err)
	})

	t.Run("requires an open trace", func(t *testing.T) {
		svc, _, _, _, _ := newScriptService(scriptConfig())

		_, err := svc.Submit(context.Background(), uuid.New(), &domain.ScriptSubmission{
			AnalysisName: "latency",
			Source:       trivialScript,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("runs small scripts synchronously", func(t *testing.T) {
		svc, runRepo, eventRepo, _, reg := newScriptService(scriptConfig())
		trace := testTrace("kernel")
		require.NoError(t, reg.Open(trace))

		var created *domain.ScriptRun
		runRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ScriptRun")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*domain.ScriptRun)
			}).Return(nil)
		eventRepo.On("CountByTrace", mock.Anything, trace.ID).Return(uint64(10), nil)
		runRepo.On("MarkRunning", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(nil)
		runRepo.On("MarkFinished", mock.Anything, mock.AnythingOfType("string"), domain.RunStatusSucceeded, "", mock.Anything).Return(nil)
		runRepo.On("GetByID", mock.Anything, mock.AnythingOfType("string")).
			Return(&domain.ScriptRun{Status: domain.RunStatusSucceeded}, nil)

		run, err := svc.Submit(context.Background(), trace.ID, &domain.ScriptSubmission{
			AnalysisName: "latency",
			Source:       trivialScript,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RunStatusSucceeded, run.Status)
		require.NotNil(t, created)
		assert.Equal(t, "latency", created.AnalysisName)
		runRepo.AssertExpectations(t)
	})

	t.Run("script failure is recorded, not returned", func(t *testing.T) {
		svc, runRepo, eventRepo, _, reg := newScriptService(scriptConfig())
		trace := testTrace("kernel")
		require.NoError(t, reg.Open(trace))

		runRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		eventRepo.On("CountByTrace", mock.Anything, trace.ID).Return(uint64(10), nil)
		runRepo.On("MarkRunning", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		runRepo.On("MarkFinished", mock.Anything, mock.Anything, domain.RunStatusFailed, mock.AnythingOfType("string"), mock.Anything).Return(nil)
		runRepo.On("GetByID", mock.Anything, mock.Anything).
			Return(&domain.ScriptRun{Status: domain.RunStatusFailed, Error: "boom"}, nil)

		run, err := svc.Submit(context.Background(), trace.ID, &domain.ScriptSubmission{
			AnalysisName: "latency",
			Source: `
import (
	"errors"
	"tracelab"
)

func Run(api *tracelab.API) error {
	return errors.New("boom")
}
`,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RunStatusFailed, run.Status)
	})

	t.Run("background submissions are enqueued", func(t *testing.T) {
		svc, runRepo, _, enqueuer, reg := newScriptService(scriptConfig())
		trace := testTrace("kernel")
		require.NoError(t, reg.Open(trace))

		runRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		enqueuer.On("EnqueueScriptRun", mock.Anything, mock.AnythingOfType("string")).Return(nil)

		run, err := svc.Submit(context.Background(), trace.ID, &domain.ScriptSubmission{
			AnalysisName: "latency",
			Source:       trivialScript,
			Background:   true,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RunStatusPending, run.Status)
		enqueuer.AssertExpectations(t)
	})

	t.Run("large traces are pushed to the queue", func(t *testing.T) {
		cfg := scriptConfig()
		cfg.SyncMaxEvents = 5
		svc, runRepo, eventRepo, enqueuer, reg := newScriptService(cfg)
		trace := testTrace("kernel")
		require.NoError(t, reg.Open(trace))

		runRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		eventRepo.On("CountByTrace", mock.Anything, trace.ID).Return(uint64(100), nil)
		enqueuer.On("EnqueueScriptRun", mock.Anything, mock.AnythingOfType("string")).Return(nil)

		run, err := svc.Submit(context.Background(), trace.ID, &domain.ScriptSubmission{
			AnalysisName: "latency",
			Source:       trivialScript,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RunStatusPending, run.Status)
		enqueuer.AssertExpectations(t)
	})
}

func TestScriptServiceExecuteRun(t *testing.T) {
	t.Run("finished runs are not re-executed", func(t *testing.T) {
		svc, runRepo, _, _, _ := newScriptService(scriptConfig())
		runRepo.On("GetByID", mock.Anything, "run-1").
			Return(&domain.ScriptRun{RunID: "run-1", Status: domain.RunStatusSucceeded}, nil)

		require.NoError(t, svc.ExecuteRun(context.Background(), "run-1"))
		runRepo.AssertNotCalled(t, "MarkRunning", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("run against a closed trace fails the run", func(t *testing.T) {
		svc, runRepo, _, _, _ := newScriptService(scriptConfig())
		runRepo.On("GetByID", mock.Anything, "run-1").
			Return(&domain.ScriptRun{RunID: "run-1", TraceID: uuid.New(), Status: domain.RunStatusPending}, nil)
		runRepo.On("MarkFinished", mock.Anything, "run-1", domain.RunStatusFailed, "trace is not open", mock.Anything).Return(nil)

		err := svc.ExecuteRun(context.Background(), "run-1")
		require.Error(t, err)
		runRepo.AssertExpectations(t)
	})
}
