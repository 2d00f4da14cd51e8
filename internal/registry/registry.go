// Package registry maintains the set of open traces and their registered
// analysis modules, and resolves analysis modules by name or identifier
// across composite traces.
package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
)

// entry pairs an open trace with its modules in registration order.
type entry struct {
	trace   *domain.Trace
	modules []domain.AnalysisModule
}

// Registry is the in-memory registry of open traces. All methods are safe
// for concurrent use; reads see a stable snapshot for the duration of one
// call.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
	order   []uuid.UUID
}

// New creates an empty trace registry.
func New() *Registry {
	return &Registry{
		entries: make(map[uuid.UUID]*entry),
	}
}

// Open adds a trace to the registry. An experiment requires all of its
// children to already be open; a missing child fails the open, not later
// expansions.
func (r *Registry) Open(trace *domain.Trace) error {
	if trace == nil {
		return apperrors.Invariant("trace must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[trace.ID]; ok {
		return apperrors.Conflict("trace already open")
	}
	for _, childID := range trace.ChildIDs {
		if _, ok := r.entries[childID]; !ok {
			return apperrors.Validation("experiment child trace not open: " + childID.String())
		}
	}

	r.entries[trace.ID] = &entry{trace: trace}
	r.order = append(r.order, trace.ID)
	return nil
}

// Close removes a trace from the registry. Closing a trace that is still
// a child of an open experiment is a conflict.
func (r *Registry) Close(traceID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[traceID]; !ok {
		return apperrors.NotFound("trace")
	}
	for _, e := range r.entries {
		for _, childID := range e.trace.ChildIDs {
			if childID == traceID {
				return apperrors.Conflict("trace is a child of open experiment " + e.trace.Name)
			}
		}
	}

	delete(r.entries, traceID)
	for i, id := range r.order {
		if id == traceID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns an open trace by ID.
func (r *Registry) Get(traceID uuid.UUID) (*domain.Trace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[traceID]
	if !ok {
		return nil, false
	}
	return e.trace, true
}

// List returns all open traces in open order.
func (r *Registry) List() []*domain.Trace {
	r.mu.RLock()
	defer r.mu.RUnlock()

	traces := make([]*domain.Trace, 0, len(r.order))
	for _, id := range r.order {
		traces = append(traces, r.entries[id].trace)
	}
	return traces
}

// RegisterModule registers an analysis module on an open trace. Modules
// keep registration order; a duplicate module ID on the same trace is a
// conflict.
func (r *Registry) RegisterModule(traceID uuid.UUID, module domain.AnalysisModule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[traceID]
	if !ok {
		return apperrors.NotFound("trace")
	}
	for _, m := range e.modules {
		if m.ID == module.ID {
			return apperrors.Conflict("analysis module already registered: " + module.ID)
		}
	}
	module.TraceID = traceID
	e.modules = append(e.modules, module)
	return nil
}

// Modules returns the registered modules of one trace in registration
// order. The returned slice is a copy.
func (r *Registry) Modules(traceID uuid.UUID) []domain.AnalysisModule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[traceID]
	if !ok {
		return nil
	}
	modules := make([]domain.AnalysisModule, len(e.modules))
	copy(modules, e.modules)
	return modules
}

// TraceSet expands a trace into its full constituent set: the trace
// itself followed by its children in declared order. A non-composite
// trace yields a singleton set. Children that were closed out from under
// an experiment are skipped rather than failing the read.
func (r *Registry) TraceSet(trace *domain.Trace) []*domain.Trace {
	if trace == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make([]*domain.Trace, 0, len(trace.ChildIDs)+1)
	set = append(set, trace)
	for _, childID := range trace.ChildIDs {
		if e, ok := r.entries[childID]; ok {
			set = append(set, e.trace)
		}
	}
	return set
}
