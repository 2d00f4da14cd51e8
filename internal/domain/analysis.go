package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisType classifies how an analysis module came to exist.
type AnalysisType string

const (
	// AnalysisTypeBuiltin is an analysis shipped with the host.
	AnalysisTypeBuiltin AnalysisType = "builtin"
	// AnalysisTypeDataDriven is an analysis defined by configuration.
	AnalysisTypeDataDriven AnalysisType = "data-driven"
	// AnalysisTypeScripted is an analysis created by a user script.
	AnalysisTypeScripted AnalysisType = "scripted"
)

// AnalysisModule is a registered unit of derived computation over a
// trace's events. Modules carry a unique identifier and a separate,
// possibly duplicated, human-readable name. This layer only reads
// modules; registration happens when a trace is opened.
type AnalysisModule struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      AnalysisType `json:"type"`
	TraceID   uuid.UUID    `json:"traceId"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Matches reports whether the module answers to the given name or ID.
// Matching is exact string equality, never case-insensitive or partial.
func (m *AnalysisModule) Matches(nameOrID string) bool {
	return m.Name == nameOrID || m.ID == nameOrID
}

// ScriptedAnalysis is a script-created analysis context bound to a trace
// and a caller-supplied name. It is not inserted into the trace's module
// registry; the name doubles as the storage key for any backends the
// script attaches, so re-creating with the same name on the same trace
// addresses previously persisted data.
//
// Invariant: Trace is never nil. Construction goes through the factory,
// which rejects nil traces before a handle exists.
type ScriptedAnalysis struct {
	HandleID  uuid.UUID `json:"handleId"`
	Name      string    `json:"name"`
	Trace     *Trace    `json:"trace"`
	CreatedAt time.Time `json:"createdAt"`
}

// Module returns the module view of this scripted analysis. The ID is
// derived from the trace and name so the same (trace, name) pair always
// yields the same module identity.
func (s *ScriptedAnalysis) Module() AnalysisModule {
	return AnalysisModule{
		ID:        "scripted." + s.Trace.ID.String() + "." + s.Name,
		Name:      s.Name,
		Type:      AnalysisTypeScripted,
		TraceID:   s.Trace.ID,
		CreatedAt: s.CreatedAt,
	}
}
