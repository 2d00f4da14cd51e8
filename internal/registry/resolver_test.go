package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
)

func TestResolverGetTraceAnalysis(t *testing.T) {
	ctx := context.Background()

	// Experiment T with constituents [A, B]; A has "CPU Usage" (id
	// cpu.usage), B has "Memory" (id mem).
	setup := func(t *testing.T) (*Resolver, *domain.Trace, *domain.Trace, *domain.Trace) {
		reg := New()
		a := newTestTrace("a")
		b := newTestTrace("b")
		require.NoError(t, reg.Open(a))
		require.NoError(t, reg.Open(b))
		exp := newTestTrace("exp", a.ID, b.ID)
		require.NoError(t, reg.Open(exp))

		require.NoError(t, reg.RegisterModule(a.ID, domain.AnalysisModule{
			ID: "cpu.usage", Name: "CPU Usage", Type: domain.AnalysisTypeBuiltin,
		}))
		require.NoError(t, reg.RegisterModule(b.ID, domain.AnalysisModule{
			ID: "mem", Name: "Memory", Type: domain.AnalysisTypeBuiltin,
		}))

		return NewResolver(reg), exp, a, b
	}

	t.Run("finds module on later constituent by name", func(t *testing.T) {
		resolver, exp, _, b := setup(t)

		module, err := resolver.GetTraceAnalysis(ctx, exp, "Memory")
		require.NoError(t, err)
		require.NotNil(t, module)
		assert.Equal(t, "mem", module.ID)
		assert.Equal(t, b.ID, module.TraceID)
	})

	t.Run("finds module by id", func(t *testing.T) {
		resolver, exp, a, _ := setup(t)

		module, err := resolver.GetTraceAnalysis(ctx, exp, "cpu.usage")
		require.NoError(t, err)
		require.NotNil(t, module)
		assert.Equal(t, "CPU Usage", module.Name)
		assert.Equal(t, a.ID, module.TraceID)
	})

	t.Run("unknown name is not an error", func(t *testing.T) {
		resolver, exp, _, _ := setup(t)

		module, err := resolver.GetTraceAnalysis(ctx, exp, "Disk")
		require.NoError(t, err)
		assert.Nil(t, module)
	})

	t.Run("match is exact and case sensitive", func(t *testing.T) {
		resolver, exp, _, _ := setup(t)

		for _, name := range []string{"memory", "Mem", "CPU", "cpu.usage "} {
			module, err := resolver.GetTraceAnalysis(ctx, exp, name)
			require.NoError(t, err)
			assert.Nil(t, module, "name %q must not match", name)
		}
	})

	t.Run("duplicate names resolve to the earlier constituent", func(t *testing.T) {
		reg := New()
		a := newTestTrace("a")
		b := newTestTrace("b")
		require.NoError(t, reg.Open(a))
		require.NoError(t, reg.Open(b))
		exp := newTestTrace("exp", a.ID, b.ID)
		require.NoError(t, reg.Open(exp))

		require.NoError(t, reg.RegisterModule(a.ID, domain.AnalysisModule{ID: "first", Name: "Latency"}))
		require.NoError(t, reg.RegisterModule(b.ID, domain.AnalysisModule{ID: "second", Name: "Latency"}))

		module, err := NewResolver(reg).GetTraceAnalysis(ctx, exp, "Latency")
		require.NoError(t, err)
		require.NotNil(t, module)
		assert.Equal(t, "first", module.ID)
		assert.Equal(t, a.ID, module.TraceID)
	})

	t.Run("never returns a module of an unrelated trace", func(t *testing.T) {
		resolver, exp, _, _ := setup(t)

		reg := New()
		other := newTestTrace("other")
		require.NoError(t, reg.Open(other))
		require.NoError(t, reg.RegisterModule(other.ID, domain.AnalysisModule{ID: "disk", Name: "Disk"}))

		module, err := resolver.GetTraceAnalysis(ctx, exp, "Disk")
		require.NoError(t, err)
		assert.Nil(t, module)
	})

	t.Run("nil trace violates the input contract", func(t *testing.T) {
		resolver, _, _, _ := setup(t)

		module, err := resolver.GetTraceAnalysis(ctx, nil, "Memory")
		require.Error(t, err)
		assert.Nil(t, module)
		assert.True(t, apperrors.IsInvariant(err))
	})

	t.Run("lookup does not mutate the registry", func(t *testing.T) {
		resolver, exp, a, b := setup(t)

		_, err := resolver.GetTraceAnalysis(ctx, exp, "Memory")
		require.NoError(t, err)

		assert.Len(t, resolver.registry.Modules(a.ID), 1)
		assert.Len(t, resolver.registry.Modules(b.ID), 1)
		assert.Len(t, resolver.registry.TraceSet(exp), 3)
	})
}
