package worker

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/tracelab/tracelab/internal/backend"
	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
)

const (
	// TypeAnalysisExport is the task type for exporting analysis backends
	TypeAnalysisExport = "analysis:export"
)

// AnalysisExportPayload is the payload for analysis export tasks
type AnalysisExportPayload struct {
	TraceID      uuid.UUID          `json:"trace_id"`
	AnalysisName string             `json:"analysis_name"`
	Kind         domain.BackendKind `json:"kind"`
}

// NewAnalysisExportTask creates an analysis export task
func NewAnalysisExportTask(payload *AnalysisExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis export payload: %w", err)
	}
	return asynq.NewTask(TypeAnalysisExport, data, asynq.MaxRetry(3), asynq.Timeout(30*time.Minute)), nil
}

// ExportWorker writes saved analysis backends to object storage as CSV
type ExportWorker struct {
	logger      *zap.Logger
	backends    *backend.Registry
	minioClient *minio.Client
	bucket      string
}

// NewExportWorker creates a new export worker
func NewExportWorker(logger *zap.Logger, backends *backend.Registry, minioClient *minio.Client, bucket string) *ExportWorker {
	return &ExportWorker{
		logger:      logger,
		backends:    backends,
		minioClient: minioClient,
		bucket:      bucket,
	}
}

// ProcessTask exports one saved backend
func (w *ExportWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload AnalysisExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal analysis export payload: %v: %w", err, asynq.SkipRetry)
	}

	// Exports only read; a backend that was never created is a bad
	// payload, not a reason to create one.
	handle, err := w.backends.OpenExisting(ctx, payload.TraceID, payload.AnalysisName, payload.Kind)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return fmt.Errorf("backend %s/%s does not exist: %w", payload.TraceID, payload.AnalysisName, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to open backend: %w", err)
	}
	if !handle.Record.Sealed {
		return fmt.Errorf("backend %s/%s is not sealed: %w", payload.TraceID, payload.AnalysisName, asynq.SkipRetry)
	}

	var buf bytes.Buffer
	switch payload.Kind {
	case domain.BackendStateSystem:
		err = writeIntervalsCSV(&buf, handle.StateSystem)
	case domain.BackendSegmentStore:
		err = writeSegmentsCSV(&buf, handle.SegmentStore)
	default:
		return fmt.Errorf("unknown backend kind %q: %w", payload.Kind, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	objectName := fmt.Sprintf("exports/%s/%s-%s.csv", payload.TraceID, payload.AnalysisName, payload.Kind)
	_, err = w.minioClient.PutObject(ctx, w.bucket, objectName, &buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return fmt.Errorf("failed to upload export: %w", err)
	}

	w.logger.Info("analysis exported",
		zap.String("trace_id", payload.TraceID.String()),
		zap.String("analysis", payload.AnalysisName),
		zap.String("object", objectName),
	)

	return nil
}

func writeIntervalsCSV(buf *bytes.Buffer, ss *backend.StateSystem) error {
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"quark", "path", "start", "end", "value"}); err != nil {
		return err
	}

	paths := make(map[int32]string)
	for _, attr := range ss.Attributes() {
		paths[attr.Quark] = attr.Path
	}

	for _, iv := range ss.Intervals() {
		record := []string{
			strconv.FormatInt(int64(iv.Quark), 10),
			paths[iv.Quark],
			strconv.FormatInt(iv.Start, 10),
			strconv.FormatInt(iv.End, 10),
			iv.Value,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeSegmentsCSV(buf *bytes.Buffer, store *backend.SegmentStore) error {
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"start", "end", "duration", "label", "value"}); err != nil {
		return err
	}

	for _, seg := range store.All() {
		record := []string{
			strconv.FormatInt(seg.Start, 10),
			strconv.FormatInt(seg.End, 10),
			strconv.FormatInt(seg.Duration(), 10),
			seg.Label,
			strconv.FormatFloat(seg.Value, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
