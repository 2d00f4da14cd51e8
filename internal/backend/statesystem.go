// Package backend implements the storage structures scripted analyses
// fill: state systems (attribute-tree interval stores) and segment
// stores, plus the registry that keys them by (trace, analysis name).
package backend

import (
	"sort"
	"strings"
	"sync"

	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
)

type ongoingState struct {
	start int64
	value string
	set   bool
}

// StateSystem is an in-memory interval builder. Attributes form a tree
// addressed by path; each attribute gets a stable quark on first use.
// Writes must have non-decreasing timestamps per attribute; CloseHistory
// seals all ongoing states. Query results cover sealed history only, so
// close the history before querying a completed analysis.
type StateSystem struct {
	mu        sync.RWMutex
	quarks    map[string]int32
	paths     []string
	ongoing   []ongoingState
	intervals [][]domain.StateInterval
	closed    bool
	endTime   int64
}

// NewStateSystem creates an empty state system.
func NewStateSystem() *StateSystem {
	return &StateSystem{
		quarks: make(map[string]int32),
	}
}

// Quark returns the quark for the attribute at path, creating the
// attribute if needed.
func (s *StateSystem) Quark(path ...string) int32 {
	key := strings.Join(path, "/")

	s.mu.Lock()
	defer s.mu.Unlock()

	if q, ok := s.quarks[key]; ok {
		return q
	}
	q := int32(len(s.paths))
	s.quarks[key] = q
	s.paths = append(s.paths, key)
	s.ongoing = append(s.ongoing, ongoingState{})
	s.intervals = append(s.intervals, nil)
	return q
}

// AttributeCount returns the number of known attributes.
func (s *StateSystem) AttributeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.paths)
}

// AttributePath returns the path of a quark.
func (s *StateSystem) AttributePath(quark int32) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if quark < 0 || int(quark) >= len(s.paths) {
		return "", false
	}
	return s.paths[quark], true
}

// ModifyAttribute sets the value of an attribute at time t, sealing the
// previous ongoing state as an interval ending at t-1.
func (s *StateSystem) ModifyAttribute(t int64, value string, quark int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return apperrors.Invariant("state system history is closed")
	}
	if quark < 0 || int(quark) >= len(s.paths) {
		return apperrors.Invariant("unknown quark")
	}

	ongoing := &s.ongoing[quark]
	if ongoing.set {
		if t < ongoing.start {
			return apperrors.Validation("timestamps must be non-decreasing per attribute")
		}
		if t > ongoing.start {
			s.intervals[quark] = append(s.intervals[quark], domain.StateInterval{
				Quark: quark,
				Start: ongoing.start,
				End:   t - 1,
				Value: ongoing.value,
			})
		}
	}
	*ongoing = ongoingState{start: t, value: value, set: true}
	return nil
}

// CloseHistory seals all ongoing states at endTime. Further writes fail.
func (s *StateSystem) CloseHistory(endTime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return apperrors.Invariant("state system history already closed")
	}
	for quark := range s.ongoing {
		ongoing := &s.ongoing[quark]
		if !ongoing.set {
			continue
		}
		end := endTime
		if end < ongoing.start {
			end = ongoing.start
		}
		s.intervals[quark] = append(s.intervals[quark], domain.StateInterval{
			Quark: int32(quark),
			Start: ongoing.start,
			End:   end,
			Value: ongoing.value,
		})
		ongoing.set = false
	}
	s.closed = true
	s.endTime = endTime
	return nil
}

// Closed reports whether the history has been sealed.
func (s *StateSystem) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// EndTime returns the seal time of a closed history.
func (s *StateSystem) EndTime() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endTime
}

// QueryRange returns the sealed intervals of one attribute overlapping
// [from, to], in start order.
func (s *StateSystem) QueryRange(quark int32, from, to int64) []domain.StateInterval {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if quark < 0 || int(quark) >= len(s.intervals) {
		return nil
	}
	var out []domain.StateInterval
	for _, iv := range s.intervals[quark] {
		if iv.End >= from && iv.Start <= to {
			out = append(out, iv)
		}
	}
	return out
}

// QueryFull returns, for each attribute, the sealed interval covering t.
// Attributes with no interval at t are absent from the result.
func (s *StateSystem) QueryFull(t int64) []domain.StateInterval {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StateInterval
	for quark := range s.intervals {
		for _, iv := range s.intervals[quark] {
			if iv.Start <= t && t <= iv.End {
				out = append(out, iv)
				break
			}
		}
	}
	return out
}

// Intervals returns all sealed intervals in (quark, start) order. Used
// for persistence.
func (s *StateSystem) Intervals() []domain.StateInterval {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StateInterval
	for quark := range s.intervals {
		out = append(out, s.intervals[quark]...)
	}
	return out
}

// Attributes returns all attribute paths in quark order. Used for
// persistence.
func (s *StateSystem) Attributes() []domain.StateAttribute {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StateAttribute, len(s.paths))
	for i, path := range s.paths {
		out[i] = domain.StateAttribute{Quark: int32(i), Path: path}
	}
	return out
}

// restore rebuilds a sealed state system from persisted attributes and
// intervals. Intervals may arrive in any order.
func restoreStateSystem(attrs []domain.StateAttribute, intervals []domain.StateInterval, endTime int64) *StateSystem {
	s := NewStateSystem()
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Quark < attrs[j].Quark })
	for _, a := range attrs {
		s.Quark(strings.Split(a.Path, "/")...)
	}
	for _, iv := range intervals {
		if iv.Quark < 0 || int(iv.Quark) >= len(s.intervals) {
			continue
		}
		s.intervals[iv.Quark] = append(s.intervals[iv.Quark], iv)
	}
	for quark := range s.intervals {
		ivs := s.intervals[quark]
		sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start < ivs[j].Start })
	}
	s.closed = true
	s.endTime = endTime
	return s
}
