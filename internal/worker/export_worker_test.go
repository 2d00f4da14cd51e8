package worker

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelab/tracelab/internal/backend"
	"github.com/tracelab/tracelab/internal/domain"
)

func TestNewAnalysisExportTask(t *testing.T) {
	payload := &AnalysisExportPayload{
		TraceID:      uuid.New(),
		AnalysisName: "latency",
		Kind:         domain.BackendSegmentStore,
	}

	task, err := NewAnalysisExportTask(payload)
	require.NoError(t, err)
	assert.Equal(t, TypeAnalysisExport, task.Type())

	var decoded AnalysisExportPayload
	err = json.Unmarshal(task.Payload(), &decoded)
	require.NoError(t, err)
	assert.Equal(t, payload.TraceID, decoded.TraceID)
	assert.Equal(t, "latency", decoded.AnalysisName)
	assert.Equal(t, domain.BackendSegmentStore, decoded.Kind)
}

func TestWriteSegmentsCSV(t *testing.T) {
	store := backend.NewSegmentStore()
	store.Add(domain.Segment{Start: 10, End: 30, Label: "req", Value: 1.5})
	store.Add(domain.Segment{Start: 5, End: 8, Label: "init"})

	var buf bytes.Buffer
	require.NoError(t, writeSegmentsCSV(&buf, store))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"start", "end", "duration", "label", "value"}, records[0])
	// Segments come out sorted by start time.
	assert.Equal(t, []string{"5", "8", "3", "init", "0"}, records[1])
	assert.Equal(t, []string{"10", "30", "20", "req", "1.5"}, records[2])
}

func TestWriteIntervalsCSV(t *testing.T) {
	ss := backend.NewStateSystem()
	quark := ss.Quark("CPUs", "0", "status")
	require.NoError(t, ss.ModifyAttribute(10, "running", quark))
	require.NoError(t, ss.ModifyAttribute(20, "idle", quark))
	require.NoError(t, ss.CloseHistory(30))

	var buf bytes.Buffer
	require.NoError(t, writeIntervalsCSV(&buf, ss))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"quark", "path", "start", "end", "value"}, records[0])
	assert.Equal(t, "CPUs/0/status", records[1][1])
	assert.Equal(t, "running", records[1][4])
	assert.Equal(t, "idle", records[2][4])
}
