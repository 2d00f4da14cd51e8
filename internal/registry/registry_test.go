package registry

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
)

func newTestTrace(name string, children ...uuid.UUID) *domain.Trace {
	return &domain.Trace{
		ID:        uuid.New(),
		Name:      name,
		ChildIDs:  children,
		StartTime: 0,
		EndTime:   1_000_000_000,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestRegistryOpen(t *testing.T) {
	t.Run("opens a simple trace", func(t *testing.T) {
		reg := New()
		trace := newTestTrace("kernel")

		require.NoError(t, reg.Open(trace))

		got, ok := reg.Get(trace.ID)
		require.True(t, ok)
		assert.Equal(t, trace, got)
	})

	t.Run("rejects nil trace", func(t *testing.T) {
		reg := New()
		err := reg.Open(nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsInvariant(err))
	})

	t.Run("rejects duplicate open", func(t *testing.T) {
		reg := New()
		trace := newTestTrace("kernel")

		require.NoError(t, reg.Open(trace))
		err := reg.Open(trace)
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("rejects experiment with missing children", func(t *testing.T) {
		reg := New()
		exp := newTestTrace("exp", uuid.New())

		err := reg.Open(exp)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestRegistryClose(t *testing.T) {
	t.Run("closes an open trace", func(t *testing.T) {
		reg := New()
		trace := newTestTrace("kernel")
		require.NoError(t, reg.Open(trace))

		require.NoError(t, reg.Close(trace.ID))

		_, ok := reg.Get(trace.ID)
		assert.False(t, ok)
	})

	t.Run("refuses to close a child of an open experiment", func(t *testing.T) {
		reg := New()
		child := newTestTrace("child")
		require.NoError(t, reg.Open(child))
		exp := newTestTrace("exp", child.ID)
		require.NoError(t, reg.Open(exp))

		err := reg.Close(child.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("returns not found for unknown trace", func(t *testing.T) {
		reg := New()
		err := reg.Close(uuid.New())
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestRegistryModules(t *testing.T) {
	t.Run("preserves registration order", func(t *testing.T) {
		reg := New()
		trace := newTestTrace("kernel")
		require.NoError(t, reg.Open(trace))

		for _, id := range []string{"a", "b", "c"} {
			require.NoError(t, reg.RegisterModule(trace.ID, domain.AnalysisModule{
				ID:   id,
				Name: "Module " + id,
				Type: domain.AnalysisTypeBuiltin,
			}))
		}

		modules := reg.Modules(trace.ID)
		require.Len(t, modules, 3)
		assert.Equal(t, "a", modules[0].ID)
		assert.Equal(t, "b", modules[1].ID)
		assert.Equal(t, "c", modules[2].ID)
	})

	t.Run("rejects duplicate module id on same trace", func(t *testing.T) {
		reg := New()
		trace := newTestTrace("kernel")
		require.NoError(t, reg.Open(trace))

		module := domain.AnalysisModule{ID: "cpu.usage", Name: "CPU Usage"}
		require.NoError(t, reg.RegisterModule(trace.ID, module))
		err := reg.RegisterModule(trace.ID, module)
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("allows same module id on different traces", func(t *testing.T) {
		reg := New()
		a := newTestTrace("a")
		b := newTestTrace("b")
		require.NoError(t, reg.Open(a))
		require.NoError(t, reg.Open(b))

		module := domain.AnalysisModule{ID: "cpu.usage", Name: "CPU Usage"}
		require.NoError(t, reg.RegisterModule(a.ID, module))
		require.NoError(t, reg.RegisterModule(b.ID, module))
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		reg := New()
		trace := newTestTrace("kernel")
		require.NoError(t, reg.Open(trace))
		require.NoError(t, reg.RegisterModule(trace.ID, domain.AnalysisModule{ID: "a", Name: "A"}))

		modules := reg.Modules(trace.ID)
		modules[0].Name = "mutated"

		assert.Equal(t, "A", reg.Modules(trace.ID)[0].Name)
	})
}

func TestRegistryTraceSet(t *testing.T) {
	t.Run("singleton set for a simple trace", func(t *testing.T) {
		reg := New()
		trace := newTestTrace("kernel")
		require.NoError(t, reg.Open(trace))

		set := reg.TraceSet(trace)
		require.Len(t, set, 1)
		assert.Equal(t, trace.ID, set[0].ID)
	})

	t.Run("experiment expands to itself plus children in declared order", func(t *testing.T) {
		reg := New()
		a := newTestTrace("a")
		b := newTestTrace("b")
		require.NoError(t, reg.Open(a))
		require.NoError(t, reg.Open(b))
		exp := newTestTrace("exp", a.ID, b.ID)
		require.NoError(t, reg.Open(exp))

		set := reg.TraceSet(exp)
		require.Len(t, set, 3)
		assert.Equal(t, exp.ID, set[0].ID)
		assert.Equal(t, a.ID, set[1].ID)
		assert.Equal(t, b.ID, set[2].ID)
	})

	t.Run("nil trace yields nil set", func(t *testing.T) {
		reg := New()
		assert.Nil(t, reg.TraceSet(nil))
	})
}
