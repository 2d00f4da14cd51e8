package registry

import (
	"context"

	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
	"github.com/tracelab/tracelab/internal/pkg/metrics"
)

// Resolver finds analysis modules across a trace's constituents.
type Resolver struct {
	registry *Registry
}

// NewResolver creates a resolver over the given registry.
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// GetTraceAnalysis returns the first registered module of the trace's
// constituent set whose name or ID equals analysisName. Constituents are
// walked in declared order and modules in registration order, so the
// first match is deterministic for a stable registration order.
//
// A missing module is a normal outcome and returns (nil, nil). The only
// error is a nil trace, which violates the input contract. The lookup is
// a pure read and never mutates registry state.
func (r *Resolver) GetTraceAnalysis(ctx context.Context, trace *domain.Trace, analysisName string) (*domain.AnalysisModule, error) {
	if trace == nil {
		return nil, apperrors.Invariant("trace must not be nil")
	}

	for _, constituent := range r.registry.TraceSet(trace) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, module := range r.registry.Modules(constituent.ID) {
			if module.Matches(analysisName) {
				metrics.RecordAnalysisLookup("hit")
				m := module
				return &m, nil
			}
		}
	}

	metrics.RecordAnalysisLookup("miss")
	return nil, nil
}
