package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
)

// RecordRepository persists backend identities keyed by
// (trace, analysis name, kind). Create must never overwrite an
// existing row: losing the insert race adopts the winner's row into
// the given record. Upsert is the seal path and may overwrite.
type RecordRepository interface {
	Create(ctx context.Context, record *domain.BackendRecord) error
	Upsert(ctx context.Context, record *domain.BackendRecord) error
	GetByKey(ctx context.Context, traceID uuid.UUID, analysisName string, kind domain.BackendKind) (*domain.BackendRecord, error)
	ListByTrace(ctx context.Context, traceID uuid.UUID) ([]domain.BackendRecord, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// StateRepository persists state-system attributes and intervals.
type StateRepository interface {
	SaveAttributes(ctx context.Context, backendID uuid.UUID, attrs []domain.StateAttribute) error
	SaveIntervals(ctx context.Context, backendID uuid.UUID, intervals []domain.StateInterval) error
	LoadAttributes(ctx context.Context, backendID uuid.UUID) ([]domain.StateAttribute, error)
	LoadIntervals(ctx context.Context, backendID uuid.UUID) ([]domain.StateInterval, error)
}

// SegmentRepository persists segment stores.
type SegmentRepository interface {
	SaveSegments(ctx context.Context, backendID uuid.UUID, segments []domain.Segment) error
	LoadSegments(ctx context.Context, backendID uuid.UUID) ([]domain.Segment, error)
}

// Handle is an open backend. Exactly one of StateSystem or SegmentStore
// is non-nil, matching Record.Kind.
type Handle struct {
	Record       *domain.BackendRecord
	StateSystem  *StateSystem
	SegmentStore *SegmentStore
}

// Registry is the namespaced backend storage: (traceID, analysisName,
// kind) addresses one persisted backend. Opening the same key again,
// even from another session, loads the previously persisted data. That
// makes the "name as persistence key" contract of scripted analyses an
// explicit, testable storage lookup.
//
// Concurrent opens of the same key are serialized and converge on one
// record; the returned handles are independent objects over the same
// namespace.
type Registry struct {
	records  RecordRepository
	states   StateRepository
	segments SegmentRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry creates a backend registry over the given repositories.
func NewRegistry(records RecordRepository, states StateRepository, segments SegmentRepository) *Registry {
	return &Registry{
		records:  records,
		states:   states,
		segments: segments,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (r *Registry) keyLock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	return lock
}

// Open returns a handle for the backend at (traceID, analysisName, kind),
// creating the record on first use and loading persisted data on reuse.
func (r *Registry) Open(ctx context.Context, traceID uuid.UUID, analysisName string, kind domain.BackendKind) (*Handle, error) {
	key := fmt.Sprintf("%s/%s/%s", traceID, analysisName, kind)
	lock := r.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	record, err := r.records.GetByKey(ctx, traceID, analysisName, kind)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up backend record: %w", err)
	}

	if record == nil {
		now := time.Now()
		record = &domain.BackendRecord{
			ID:           uuid.New(),
			TraceID:      traceID,
			AnalysisName: analysisName,
			Kind:         kind,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		// Create adopts the existing row when another process got
		// there first, so a record sealed after our lookup missed is
		// loaded below instead of overwritten.
		if err := r.records.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to create backend record: %w", err)
		}
	}

	return r.buildHandle(ctx, record)
}

// OpenExisting returns a handle for an already-created backend without
// creating anything. Read paths use this; a missing key is NotFound.
func (r *Registry) OpenExisting(ctx context.Context, traceID uuid.UUID, analysisName string, kind domain.BackendKind) (*Handle, error) {
	record, err := r.records.GetByKey(ctx, traceID, analysisName, kind)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperrors.NotFound("backend record")
	}
	return r.buildHandle(ctx, record)
}

// buildHandle loads a sealed record's persisted data, or hands out an
// empty builder for an unsealed one.
func (r *Registry) buildHandle(ctx context.Context, record *domain.BackendRecord) (*Handle, error) {
	handle := &Handle{Record: record}
	switch record.Kind {
	case domain.BackendStateSystem:
		if record.Sealed {
			attrs, err := r.states.LoadAttributes(ctx, record.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load state attributes: %w", err)
			}
			intervals, err := r.states.LoadIntervals(ctx, record.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load state intervals: %w", err)
			}
			handle.StateSystem = restoreStateSystem(attrs, intervals, record.EndTime)
		} else {
			handle.StateSystem = NewStateSystem()
		}
	case domain.BackendSegmentStore:
		if record.Sealed {
			segments, err := r.segments.LoadSegments(ctx, record.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load segments: %w", err)
			}
			handle.SegmentStore = restoreSegmentStore(segments)
		} else {
			handle.SegmentStore = NewSegmentStore()
		}
	default:
		return nil, fmt.Errorf("unknown backend kind %q", record.Kind)
	}

	return handle, nil
}

// Save persists the handle's data and marks the record sealed. A state
// system must have its history closed before saving.
func (r *Registry) Save(ctx context.Context, handle *Handle) error {
	record := handle.Record

	switch record.Kind {
	case domain.BackendStateSystem:
		ss := handle.StateSystem
		if !ss.Closed() {
			return fmt.Errorf("state system for %q must be closed before saving", record.AnalysisName)
		}
		if err := r.states.SaveAttributes(ctx, record.ID, ss.Attributes()); err != nil {
			return fmt.Errorf("failed to save state attributes: %w", err)
		}
		if err := r.states.SaveIntervals(ctx, record.ID, ss.Intervals()); err != nil {
			return fmt.Errorf("failed to save state intervals: %w", err)
		}
		record.EndTime = ss.EndTime()
	case domain.BackendSegmentStore:
		if err := r.segments.SaveSegments(ctx, record.ID, handle.SegmentStore.All()); err != nil {
			return fmt.Errorf("failed to save segments: %w", err)
		}
	default:
		return fmt.Errorf("unknown backend kind %q", record.Kind)
	}

	record.Sealed = true
	record.UpdatedAt = time.Now()
	if err := r.records.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to seal backend record: %w", err)
	}
	return nil
}
