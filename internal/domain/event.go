package domain

import "github.com/google/uuid"

// TraceEvent is one timestamped event from a trace. Timestamps are
// nanoseconds since the epoch; events within a trace are ordered by
// timestamp with insertion order breaking ties.
type TraceEvent struct {
	TraceID   uuid.UUID         `json:"traceId" ch:"trace_id"`
	Timestamp int64             `json:"timestamp" ch:"timestamp"`
	Name      string            `json:"name" ch:"name"`
	CPU       int32             `json:"cpu" ch:"cpu"`
	Fields    map[string]string `json:"fields,omitempty" ch:"fields"`
}

// EventFilter represents filter options for streaming events
type EventFilter struct {
	TraceID  uuid.UUID
	FromTime *int64
	ToTime   *int64
	Names    []string
}
