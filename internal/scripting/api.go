package scripting

import (
	"context"

	"github.com/tracelab/tracelab/internal/backend"
	"github.com/tracelab/tracelab/internal/domain"
)

// EventSource streams trace events in timestamp order.
type EventSource interface {
	StreamEvents(ctx context.Context, filter *domain.EventFilter, fn func(domain.TraceEvent) error) error
}

// API is the object handed to a running script. It binds the analysis
// module, the active trace, and the event source to one execution
// context so scripts never juggle contexts themselves.
type API struct {
	ctx    context.Context
	trace  *domain.Trace
	module *Module
	events EventSource
}

// NewAPI builds the script API for one execution.
func NewAPI(ctx context.Context, trace *domain.Trace, module *Module, events EventSource) *API {
	return &API{
		ctx:    ctx,
		trace:  trace,
		module: module,
		events: events,
	}
}

// ActiveTrace returns the trace the script was launched against.
func (a *API) ActiveTrace() *domain.Trace {
	return a.trace
}

// GetTraceAnalysis returns an existing analysis module of the trace by
// name or ID, or nil if none matches.
func (a *API) GetTraceAnalysis(trace *domain.Trace, analysisName string) (*domain.AnalysisModule, error) {
	return a.module.GetTraceAnalysis(a.ctx, trace, analysisName)
}

// CreateScriptedAnalysis creates a named scripted analysis for a trace.
func (a *API) CreateScriptedAnalysis(trace *domain.Trace, analysisName string) (*domain.ScriptedAnalysis, error) {
	return a.module.CreateScriptedAnalysis(a.ctx, trace, analysisName)
}

// StateSystem opens the state system backend of a scripted analysis.
func (a *API) StateSystem(sa *domain.ScriptedAnalysis) (*backend.Handle, error) {
	return a.module.StateSystem(a.ctx, sa)
}

// SegmentStore opens the segment store backend of a scripted analysis.
func (a *API) SegmentStore(sa *domain.ScriptedAnalysis) (*backend.Handle, error) {
	return a.module.SegmentStore(a.ctx, sa)
}

// Save persists a backend handle.
func (a *API) Save(handle *backend.Handle) error {
	return a.module.Save(a.ctx, handle)
}

// Events streams the active trace's events through fn in timestamp
// order. For an experiment the constituents are streamed one after the
// other in declared order. Returning an error from fn stops the stream.
func (a *API) Events(fn func(domain.TraceEvent) error) error {
	if a.events == nil {
		return nil
	}
	return a.events.StreamEvents(a.ctx, &domain.EventFilter{TraceID: a.trace.ID}, fn)
}
