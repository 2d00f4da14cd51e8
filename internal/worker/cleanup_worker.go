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
	// TypeAnalysisCleanup is the task type for expiring old analysis backends
	TypeAnalysisCleanup = "analysis:cleanup"
)

// AnalysisCleanupPayload is the payload for analysis cleanup tasks
type AnalysisCleanupPayload struct {
	RetentionDays int  `json:"retention_days"`
	DryRun        bool `json:"dry_run"`
}

// NewAnalysisCleanupTask creates an analysis cleanup task
func NewAnalysisCleanupTask(payload *AnalysisCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis cleanup payload: %w", err)
	}
	return asynq.NewTask(TypeAnalysisCleanup, data, asynq.MaxRetry(3), asynq.Timeout(1*time.Hour)), nil
}

// CleanupWorker removes analysis backends past their retention window
type CleanupWorker struct {
	logger      *zap.Logger
	backendRepo service.BackendRecordRepository
}

// NewCleanupWorker creates a new cleanup worker
func NewCleanupWorker(logger *zap.Logger, backendRepo service.BackendRecordRepository) *CleanupWorker {
	return &CleanupWorker{
		logger:      logger,
		backendRepo: backendRepo,
	}
}

// ProcessTask deletes sealed backends older than the retention window.
// Intervals and segments cascade with their records.
func (w *CleanupWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload AnalysisCleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal analysis cleanup payload: %v: %w", err, asynq.SkipRetry)
	}

	if payload.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be positive: %w", asynq.SkipRetry)
	}

	cutoff := time.Now().AddDate(0, 0, -payload.RetentionDays)

	if payload.DryRun {
		w.logger.Info("analysis cleanup dry run",
			zap.Time("cutoff", cutoff),
		)
		return nil
	}

	deleted, err := w.backendRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete expired backends: %w", err)
	}

	w.logger.Info("analysis cleanup finished",
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", deleted),
	)

	return nil
}
