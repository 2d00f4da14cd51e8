// Package testutil provides shared fixtures for tests.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/tracelab/tracelab/internal/domain"
)

// NewTestTrace creates a test trace with default values.
func NewTestTrace(name string) *domain.Trace {
	now := time.Now()
	return &domain.Trace{
		ID:        uuid.New(),
		Name:      name,
		Path:      "/traces/" + name,
		StartTime: 0,
		EndTime:   1_000_000,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestExperiment creates a test experiment referencing the given children.
func NewTestExperiment(name string, children ...*domain.Trace) *domain.Trace {
	exp := NewTestTrace(name)
	for _, child := range children {
		exp.ChildIDs = append(exp.ChildIDs, child.ID)
	}
	return exp
}

// NewTestModule creates a test analysis module bound to a trace.
func NewTestModule(traceID uuid.UUID, id, name string) domain.AnalysisModule {
	return domain.AnalysisModule{
		ID:        id,
		Name:      name,
		Type:      domain.AnalysisTypeBuiltin,
		TraceID:   traceID,
		CreatedAt: time.Now(),
	}
}

// NewTestEvents creates n evenly spaced test events for a trace.
func NewTestEvents(traceID uuid.UUID, n int) []domain.TraceEvent {
	events := make([]domain.TraceEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, domain.TraceEvent{
			TraceID:   traceID,
			Timestamp: int64(i) * 100,
			Name:      "sched_switch",
			CPU:       int32(i % 4),
			Fields:    map[string]string{"seq": string(rune('a' + i%26))},
		})
	}
	return events
}
