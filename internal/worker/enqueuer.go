package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/tracelab/tracelab/internal/domain"
)

// Enqueuer enqueues background tasks through asynq. It is the queue
// client the API server hands to services.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates a new enqueuer
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueScriptRun queues a recorded script run for background execution
func (e *Enqueuer) EnqueueScriptRun(ctx context.Context, runID string) error {
	task, err := NewScriptRunTask(&ScriptRunPayload{RunID: runID})
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue script run: %w", err)
	}
	return nil
}

// EnqueueAnalysisExport queues an export of a saved analysis backend
func (e *Enqueuer) EnqueueAnalysisExport(ctx context.Context, traceID uuid.UUID, analysisName string, kind domain.BackendKind) error {
	task, err := NewAnalysisExportTask(&AnalysisExportPayload{
		TraceID:      traceID,
		AnalysisName: analysisName,
		Kind:         kind,
	})
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue("low")); err != nil {
		return fmt.Errorf("failed to enqueue analysis export: %w", err)
	}
	return nil
}
