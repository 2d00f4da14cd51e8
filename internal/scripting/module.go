// Package scripting exposes trace analysis operations to embedded user
// scripts: looking up registered analysis modules and creating named
// scripted analyses whose backends persist under the analysis name.
package scripting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tracelab/tracelab/internal/backend"
	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
)

// AnalysisResolver finds registered analysis modules for a trace.
type AnalysisResolver interface {
	GetTraceAnalysis(ctx context.Context, trace *domain.Trace, analysisName string) (*domain.AnalysisModule, error)
}

// BackendOpener opens and saves persisted analysis backends.
type BackendOpener interface {
	Open(ctx context.Context, traceID uuid.UUID, analysisName string, kind domain.BackendKind) (*backend.Handle, error)
	Save(ctx context.Context, handle *backend.Handle) error
}

// Module is the script-facing analysis API. It wraps the resolver and
// the backend registry behind the two operations the scripting host
// exposes, plus accessors for building backends.
type Module struct {
	resolver AnalysisResolver
	backends BackendOpener
}

// NewModule creates the scripting analysis module.
func NewModule(resolver AnalysisResolver, backends BackendOpener) *Module {
	return &Module{
		resolver: resolver,
		backends: backends,
	}
}

// GetTraceAnalysis returns an existing analysis of the trace, whether
// builtin or data-driven, matched by name or ID. These modules are read
// only from the script's perspective: their results can be queried but
// they cannot grow new backends. A missing module returns (nil, nil).
func (m *Module) GetTraceAnalysis(ctx context.Context, trace *domain.Trace, analysisName string) (*domain.AnalysisModule, error) {
	return m.resolver.GetTraceAnalysis(ctx, trace, analysisName)
}

// CreateScriptedAnalysis creates a scripted analysis with the given name
// for a trace. The handle is a script-side construct and is not inserted
// into the trace's module registry. If backends like state systems are
// saved by this analysis, the name is the key under which previous data
// is retrieved.
//
// A nil trace violates the construction invariant and fails immediately,
// before any handle exists.
func (m *Module) CreateScriptedAnalysis(ctx context.Context, trace *domain.Trace, analysisName string) (*domain.ScriptedAnalysis, error) {
	if trace == nil {
		return nil, apperrors.Invariant("trace must not be nil")
	}
	return &domain.ScriptedAnalysis{
		HandleID:  uuid.New(),
		Name:      analysisName,
		Trace:     trace,
		CreatedAt: time.Now(),
	}, nil
}

// StateSystem opens the state system backend of a scripted analysis,
// loading previously persisted history when the same (trace, name) pair
// was saved before.
func (m *Module) StateSystem(ctx context.Context, sa *domain.ScriptedAnalysis) (*backend.Handle, error) {
	if sa == nil || sa.Trace == nil {
		return nil, apperrors.Invariant("scripted analysis must reference a trace")
	}
	return m.backends.Open(ctx, sa.Trace.ID, sa.Name, domain.BackendStateSystem)
}

// SegmentStore opens the segment store backend of a scripted analysis.
func (m *Module) SegmentStore(ctx context.Context, sa *domain.ScriptedAnalysis) (*backend.Handle, error) {
	if sa == nil || sa.Trace == nil {
		return nil, apperrors.Invariant("scripted analysis must reference a trace")
	}
	return m.backends.Open(ctx, sa.Trace.ID, sa.Name, domain.BackendSegmentStore)
}

// Save persists a backend handle.
func (m *Module) Save(ctx context.Context, handle *backend.Handle) error {
	return m.backends.Save(ctx, handle)
}
