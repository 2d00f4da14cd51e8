package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trace represents one recorded execution log. A trace may be a composite
// "experiment" of multiple child traces analyzed jointly; such a trace has
// a non-empty ChildIDs list and no events of its own.
type Trace struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	Path       string      `json:"path,omitempty"`
	ChildIDs   []uuid.UUID `json:"childIds,omitempty"`
	StartTime  int64       `json:"startTime"`
	EndTime    int64       `json:"endTime"`
	EventCount uint64      `json:"eventCount"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// IsExperiment reports whether the trace is a composite of child traces.
func (t *Trace) IsExperiment() bool {
	return len(t.ChildIDs) > 0
}

// TraceInput represents input for opening a trace
type TraceInput struct {
	Name      string      `json:"name" validate:"required"`
	Path      string      `json:"path,omitempty"`
	ChildIDs  []uuid.UUID `json:"childIds,omitempty"`
	StartTime int64       `json:"startTime"`
	EndTime   int64       `json:"endTime"`
}

// TraceFilter represents filter options for querying traces
type TraceFilter struct {
	Name       *string
	Experiment *bool
	FromTime   *int64
	ToTime     *int64
}

// TraceList represents a paginated list of traces
type TraceList struct {
	Traces     []Trace `json:"traces"`
	TotalCount int64   `json:"totalCount"`
	HasMore    bool    `json:"hasMore"`
}
