package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/tracelab/tracelab/internal/service"
)

const (
	// TypeScriptRun is the task type for background script execution
	TypeScriptRun = "script:run"
)

// ScriptRunPayload is the payload for script run tasks
type ScriptRunPayload struct {
	RunID string `json:"run_id"`
}

// NewScriptRunTask creates a script run task
func NewScriptRunTask(payload *ScriptRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal script run payload: %w", err)
	}
	return asynq.NewTask(TypeScriptRun, data, asynq.MaxRetry(2), asynq.Timeout(30*time.Minute)), nil
}

// ScriptWorker executes queued script runs
type ScriptWorker struct {
	logger        *zap.Logger
	scriptService *service.ScriptService
}

// NewScriptWorker creates a new script worker
func NewScriptWorker(logger *zap.Logger, scriptService *service.ScriptService) *ScriptWorker {
	return &ScriptWorker{
		logger:        logger,
		scriptService: scriptService,
	}
}

// ProcessTask executes one queued script run. A run that fails inside
// the script is a terminal outcome for the run, not a task error, so
// asynq does not retry it.
func (w *ScriptWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload ScriptRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal script run payload: %v: %w", err, asynq.SkipRetry)
	}

	w.logger.Info("processing script run",
		zap.String("run_id", payload.RunID),
	)

	if err := w.scriptService.ExecuteRun(ctx, payload.RunID); err != nil {
		w.logger.Error("script run task failed",
			zap.String("run_id", payload.RunID),
			zap.Error(err),
		)
		return err
	}

	return nil
}
