package domain

import (
	"time"

	"github.com/google/uuid"
)

// BackendKind identifies the storage structure behind a scripted analysis.
type BackendKind string

const (
	// BackendStateSystem is an attribute-tree interval store.
	BackendStateSystem BackendKind = "state_system"
	// BackendSegmentStore is an ordered store of labeled segments.
	BackendSegmentStore BackendKind = "segment_store"
)

// BackendRecord is the persisted identity of an analysis backend,
// keyed by (trace, analysis name, kind). The record is what makes the
// reuse-by-name contract explicit: opening the same key again finds the
// same record and therefore the same persisted data.
type BackendRecord struct {
	ID           uuid.UUID   `json:"id"`
	TraceID      uuid.UUID   `json:"traceId"`
	AnalysisName string      `json:"analysisName"`
	Kind         BackendKind `json:"kind"`
	Sealed       bool        `json:"sealed"`
	EndTime      int64       `json:"endTime"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// StateInterval is one sealed interval of a state-system attribute.
// An interval means the attribute held Value from Start to End inclusive.
type StateInterval struct {
	BackendID uuid.UUID `json:"backendId"`
	Quark     int32     `json:"quark"`
	Start     int64     `json:"start"`
	End       int64     `json:"end"`
	Value     string    `json:"value"`
}

// StateAttribute maps an attribute path to its quark within a backend.
type StateAttribute struct {
	BackendID uuid.UUID `json:"backendId"`
	Quark     int32     `json:"quark"`
	Path      string    `json:"path"`
}

// Segment is one entry of a segment store.
type Segment struct {
	BackendID uuid.UUID `json:"backendId"`
	Start     int64     `json:"start"`
	End       int64     `json:"end"`
	Label     string    `json:"label"`
	Value     float64   `json:"value"`
}

// Duration returns the segment length in nanoseconds.
func (s Segment) Duration() int64 {
	return s.End - s.Start
}
