package backend

import (
	"sort"
	"sync"

	"github.com/tracelab/tracelab/internal/domain"
)

// SegmentStore is an ordered store of labeled segments. Segments may be
// added in any order; reads see them sorted by start time.
type SegmentStore struct {
	mu       sync.RWMutex
	segments []domain.Segment
	sorted   bool
}

// NewSegmentStore creates an empty segment store.
func NewSegmentStore() *SegmentStore {
	return &SegmentStore{sorted: true}
}

// Add appends a segment.
func (s *SegmentStore) Add(segment domain.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.segments); s.sorted && n > 0 && segment.Start < s.segments[n-1].Start {
		s.sorted = false
	}
	s.segments = append(s.segments, segment)
}

// Len returns the number of segments.
func (s *SegmentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}

// All returns every segment in start order.
func (s *SegmentStore) All() []domain.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureSorted()
	out := make([]domain.Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Range returns segments intersecting [from, to] in start order.
func (s *SegmentStore) Range(from, to int64) []domain.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureSorted()
	var out []domain.Segment
	for _, seg := range s.segments {
		if seg.Start > to {
			break
		}
		if seg.End >= from {
			out = append(out, seg)
		}
	}
	return out
}

// caller must hold s.mu
func (s *SegmentStore) ensureSorted() {
	if s.sorted {
		return
	}
	sort.SliceStable(s.segments, func(i, j int) bool {
		return s.segments[i].Start < s.segments[j].Start
	})
	s.sorted = true
}

func restoreSegmentStore(segments []domain.Segment) *SegmentStore {
	store := NewSegmentStore()
	for _, seg := range segments {
		store.Add(seg)
	}
	return store
}
