// Package store holds the authoritative in-memory report collection. Every
// read and write in the portal goes through this store; the remote database
// is a replication target, never a gate.
package store

import (
	"sync"

	"github.com/nagrik-gov/portal/internal/report/domain"
)

// Patch is a partial field-level update applied by the remote change feed.
// Nil fields are left untouched. OfficerIDSet distinguishes "unassign" from
// "leave alone" for the nullable officer id.
type Patch struct {
	Status             *domain.Status
	AssignedDepartment *string
	OfficerID          *string
	OfficerIDSet       bool
	OfficerName        *string
	Lat                *float64
	Lng                *float64
	Media              []string
}

// Store is a mutex-guarded report collection ordered newest first.
type Store struct {
	mu       sync.RWMutex
	order    []string
	reports  map[string]*domain.Report
	onChange func()
}

// New creates an empty store.
func New() *Store {
	return &Store{reports: make(map[string]*domain.Report)}
}

// SetOnChange installs a hook invoked after every mutation, outside the
// lock. The service uses it to schedule cache snapshots.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Insert adds a report at the head of the collection. Duplicate ids are
// ignored so a replayed feed event cannot double-insert.
func (s *Store) Insert(r *domain.Report) bool {
	s.mu.Lock()
	if _, exists := s.reports[r.ReportID]; exists {
		s.mu.Unlock()
		return false
	}
	s.reports[r.ReportID] = r.Clone()
	s.order = append([]string{r.ReportID}, s.order...)
	s.mu.Unlock()

	s.notify()
	return true
}

// Upsert places a report at the head of the collection, replacing any
// existing entry with the same id. The feed uses it so a remote insert
// always supersedes a stale local copy. It reports whether the id was new.
func (s *Store) Upsert(r *domain.Report) bool {
	s.mu.Lock()
	_, exists := s.reports[r.ReportID]
	if exists {
		for i, oid := range s.order {
			if oid == r.ReportID {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.reports[r.ReportID] = r.Clone()
	s.order = append([]string{r.ReportID}, s.order...)
	s.mu.Unlock()

	s.notify()
	return !exists
}

// List returns deep copies of all reports, newest first.
func (s *Store) List() []*domain.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Report, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.reports[id].Clone())
	}
	return out
}

// Get returns a deep copy of one report.
func (s *Store) Get(id string) (*domain.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Len returns the number of stored reports.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Remove deletes a report. Removing an unknown id is a no-op.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	if _, ok := s.reports[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.reports, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify()
	return true
}

// Mutate applies fn to the stored report under the lock and returns a copy
// of the result. Unknown ids return (nil, false) without calling fn.
func (s *Store) Mutate(id string, fn func(*domain.Report) error) (*domain.Report, error, bool) {
	s.mu.Lock()
	r, ok := s.reports[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil, false
	}
	if err := fn(r); err != nil {
		s.mu.Unlock()
		return nil, err, true
	}
	cp := r.Clone()
	s.mu.Unlock()

	s.notify()
	return cp, nil, true
}

// ApplyPatch merges a field-level patch into a report. A nil officer id
// always forces the officer name back to Unassigned.
func (s *Store) ApplyPatch(id string, p Patch) (*domain.Report, bool) {
	s.mu.Lock()
	r, ok := s.reports[id]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}

	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.AssignedDepartment != nil {
		r.AssignedDepartment = *p.AssignedDepartment
	}
	if p.OfficerIDSet {
		if p.OfficerID == nil {
			r.AssignedOfficerID = nil
		} else {
			id := *p.OfficerID
			r.AssignedOfficerID = &id
		}
	}
	if p.OfficerName != nil {
		r.AssignedOfficerName = *p.OfficerName
	}
	if r.AssignedOfficerID == nil {
		r.AssignedOfficerName = domain.UnassignedOfficer
	}
	if p.Lat != nil {
		r.Lat = *p.Lat
	}
	if p.Lng != nil {
		r.Lng = *p.Lng
	}
	if p.Media != nil {
		r.Media = append([]string(nil), p.Media...)
	}

	cp := r.Clone()
	s.mu.Unlock()

	s.notify()
	return cp, true
}

// AppendTimeline attaches a timeline entry produced outside the store.
func (s *Store) AppendTimeline(id string, entry domain.TimelineEntry) bool {
	s.mu.Lock()
	r, ok := s.reports[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	r.AppendTimeline(entry)
	s.mu.Unlock()

	s.notify()
	return true
}

// ReplaceAll swaps the whole collection for a reconciled one, preserving the
// given order.
func (s *Store) ReplaceAll(reports []*domain.Report) {
	s.mu.Lock()
	s.reports = make(map[string]*domain.Report, len(reports))
	s.order = make([]string, 0, len(reports))
	for _, r := range reports {
		if _, exists := s.reports[r.ReportID]; exists {
			continue
		}
		s.reports[r.ReportID] = r.Clone()
		s.order = append(s.order, r.ReportID)
	}
	s.mu.Unlock()

	s.notify()
}
