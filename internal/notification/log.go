// Package notification keeps the in-app notification log. Notifications are
// created alongside report activity and scoped per viewer at read time; they
// are never addressed to individual users.
package notification

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nagrik-gov/portal/internal/report/domain"
	"github.com/nagrik-gov/portal/internal/shared/auth"
)

// Notification is one entry of the activity feed.
type Notification struct {
	ID        string    `json:"id"`
	ReportID  string    `json:"report_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// CreatedMessage is the feed line for a locally submitted report.
func CreatedMessage(r *domain.Report) string {
	return fmt.Sprintf("New %s priority report %s submitted", strings.ToLower(string(r.Priority)), r.ReportID)
}

// RemoteCreatedMessage is the feed line for a report first seen on the remote
// change feed.
func RemoteCreatedMessage(r *domain.Report) string {
	return fmt.Sprintf("New %s report %s submitted", strings.ToLower(string(r.Priority)), r.ReportID)
}

// AssignmentRequestedMessage is the feed line for an assignment request.
func AssignmentRequestedMessage(actor, reportID string) string {
	return fmt.Sprintf("%s requested assignment for %s", actor, reportID)
}

// DepartmentLookup resolves the department currently assigned to a report.
// It returns false when the report no longer exists.
type DepartmentLookup func(reportID string) (string, bool)

// Log is the mutex-guarded notification collection, newest first.
type Log struct {
	mu       sync.RWMutex
	entries  []Notification
	onChange func()
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// SetOnChange installs a hook invoked after every mutation, outside the lock.
func (l *Log) SetOnChange(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

func (l *Log) notify() {
	l.mu.RLock()
	fn := l.onChange
	l.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Add prepends a new unread notification and returns it.
func (l *Log) Add(reportID, message string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		ReportID:  reportID,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	l.mu.Lock()
	l.entries = append([]Notification{n}, l.entries...)
	l.mu.Unlock()

	l.notify()
	return n
}

// VisibleTo returns the notifications the viewer may see, newest first.
// Super Admins see everything; everyone else sees only notifications whose
// report is currently assigned to their department. Notifications for
// deleted reports are hidden from scoped viewers.
func (l *Log) VisibleTo(viewer *auth.User, lookup DepartmentLookup) []Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Notification, 0, len(l.entries))
	for _, n := range l.entries {
		if l.visible(n, viewer, lookup) {
			out = append(out, n)
		}
	}
	return out
}

// UnreadCount returns the number of unread notifications visible to the
// viewer.
func (l *Log) UnreadCount(viewer *auth.User, lookup DepartmentLookup) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0
	for _, n := range l.entries {
		if !n.Read && l.visible(n, viewer, lookup) {
			count++
		}
	}
	return count
}

func (l *Log) visible(n Notification, viewer *auth.User, lookup DepartmentLookup) bool {
	if viewer.IsSuperAdmin() {
		return true
	}
	department, ok := lookup(n.ReportID)
	if !ok {
		return false
	}
	return department == viewer.Department
}

// MarkRead marks one notification read. Marking an already-read or unknown
// notification is a no-op.
func (l *Log) MarkRead(id string) bool {
	l.mu.Lock()
	changed := false
	for i := range l.entries {
		if l.entries[i].ID == id && !l.entries[i].Read {
			l.entries[i].Read = true
			changed = true
			break
		}
	}
	l.mu.Unlock()

	if changed {
		l.notify()
	}
	return changed
}

// Prune drops notifications older than the cutoff and returns how many were
// removed.
func (l *Log) Prune(cutoff time.Time) int {
	l.mu.Lock()
	kept := l.entries[:0]
	removed := 0
	for _, n := range l.entries {
		if n.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	l.entries = kept
	l.mu.Unlock()

	if removed > 0 {
		l.notify()
	}
	return removed
}

// Snapshot returns a copy of all entries for cache persistence.
func (l *Log) Snapshot() []Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Notification(nil), l.entries...)
}

// Restore replaces the log contents from a cache snapshot.
func (l *Log) Restore(entries []Notification) {
	l.mu.Lock()
	l.entries = append([]Notification(nil), entries...)
	l.mu.Unlock()
}
