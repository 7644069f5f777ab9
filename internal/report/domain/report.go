package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/nagrik-gov/portal/internal/shared/types"
)

// Priority defines report priority
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status defines the status of a report
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusRejected   Status = "Rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// UnassignedOfficer is the officer name carried by a report with no officer.
// The invariant throughout the portal: AssignedOfficerID is nil exactly when
// AssignedOfficerName is this value.
const UnassignedOfficer = "Unassigned"

// DefaultActor labels timeline entries whose actor was not supplied.
const DefaultActor = "System"

// Reporter is the citizen who filed a report. When Anonymous is set the name
// and phone must not be surfaced to other viewers.
type Reporter struct {
	Name      string  `json:"name"`
	Phone     *string `json:"phone"`
	Anonymous bool    `json:"anonymous"`
}

// TimelineEntry is one line of a report's append-only audit trail.
type TimelineEntry struct {
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// Report is the aggregate root for a citizen-submitted civic issue.
type Report struct {
	ReportID    string   `json:"report_id"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Summary     string   `json:"summary"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`

	SubmittedAt  time.Time `json:"submitted_at"`
	LocationText string    `json:"location_text"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`

	Reporter Reporter `json:"reporter"`
	Media    []string `json:"media"`

	AssignedDepartment  string  `json:"assigned_department"`
	AssignedOfficerID   *string `json:"assigned_officer_id"`
	AssignedOfficerName string  `json:"assigned_officer_name"`

	// Timeline is append-only; it is never edited or truncated except when
	// the report itself is deleted.
	Timeline []TimelineEntry `json:"timeline"`
}

// NewReportInput carries the citizen-supplied fields of a new report.
type NewReportInput struct {
	Category     string
	Priority     Priority
	Description  string
	LocationText string
	Lat          float64
	Lng          float64
	Reporter     Reporter
}

// Validate checks the required fields before any state is touched.
func (in NewReportInput) Validate() error {
	details := map[string]string{}
	if strings.TrimSpace(in.Category) == "" {
		details["category"] = "required"
	}
	if strings.TrimSpace(in.Description) == "" {
		details["description"] = "required"
	}
	if !in.Priority.Valid() {
		details["priority"] = "must be one of Low, Medium, High, Urgent"
	}
	if !in.Reporter.Anonymous && strings.TrimSpace(in.Reporter.Name) == "" {
		details["reporter.name"] = "required unless anonymous"
	}
	if len(details) > 0 {
		return validationError(details)
	}
	return nil
}

// NewReport builds a report from citizen input. The department is assigned by
// the category routing table and both the creation and the auto-assignment
// are recorded on the timeline.
func NewReport(in NewReportInput, router *Router) (*Report, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	department := router.Department(in.Category)

	reporter := in.Reporter
	if reporter.Name == "" {
		reporter.Name = "Citizen"
	}

	r := &Report{
		ReportID:            types.NewReportID(),
		Category:            in.Category,
		Description:         in.Description,
		Summary:             Summarize(in.Description, in.Category),
		Priority:            in.Priority,
		Status:              StatusPending,
		SubmittedAt:         now,
		LocationText:        in.LocationText,
		Lat:                 in.Lat,
		Lng:                 in.Lng,
		Reporter:            reporter,
		Media:               []string{},
		AssignedDepartment:  department,
		AssignedOfficerID:   nil,
		AssignedOfficerName: UnassignedOfficer,
	}

	r.appendEntry(DefaultActor, "Report created", now)
	r.appendEntry("Auto-Assignment", fmt.Sprintf("Assigned to %s department", department), now)

	return r, nil
}

// SetStatus applies a status change. Any target status is accepted, including
// the current one; the transition is always recorded on the timeline. A
// reason, when given, is quoted in the action text. Rejection reasons are a
// caller convention, not enforced here.
func (r *Report) SetStatus(status Status, actor, reason string) TimelineEntry {
	r.Status = status
	return r.appendEntry(actorOrDefault(actor), StatusAction(status, reason), time.Now().UTC())
}

// StatusAction builds the timeline action text for a status change.
func StatusAction(status Status, reason string) string {
	if reason != "" {
		return fmt.Sprintf("Marked as %s - %q", status, reason)
	}
	return fmt.Sprintf("Marked as %s", status)
}

// OfficerChange describes the officer side of an assignment update. A nil ID
// unassigns the officer; Name is ignored in that case.
type OfficerChange struct {
	ID   *string
	Name string
}

// AssignmentUpdate carries a partial assignment change. Nil fields are left
// untouched.
type AssignmentUpdate struct {
	Department *string
	Officer    *OfficerChange
	Actor      string
}

// IsZero reports whether the update changes nothing.
func (u AssignmentUpdate) IsZero() bool {
	return u.Department == nil && u.Officer == nil
}

// Validate rejects updates that would break the officer invariant.
func (u AssignmentUpdate) Validate() error {
	if u.Officer != nil && u.Officer.ID != nil && strings.TrimSpace(u.Officer.Name) == "" {
		return validationError(map[string]string{"officer.name": "required when assigning an officer"})
	}
	return nil
}

// UpdateAssignment applies a partial assignment change, appending a single
// composite timeline entry with one clause per changed field. Updates that
// change nothing leave the report untouched.
func (r *Report) UpdateAssignment(u AssignmentUpdate) (TimelineEntry, error) {
	if err := u.Validate(); err != nil {
		return TimelineEntry{}, err
	}
	if u.IsZero() {
		return TimelineEntry{}, nil
	}

	var actions []string

	if u.Department != nil {
		r.AssignedDepartment = *u.Department
		actions = append(actions, fmt.Sprintf("Assigned to %s department", *u.Department))
	}

	if u.Officer != nil {
		if u.Officer.ID == nil {
			r.AssignedOfficerID = nil
			r.AssignedOfficerName = UnassignedOfficer
		} else {
			id := *u.Officer.ID
			r.AssignedOfficerID = &id
			r.AssignedOfficerName = u.Officer.Name
		}
		actions = append(actions, fmt.Sprintf("Officer set to %s", r.AssignedOfficerName))
	}

	entry := r.appendEntry(actorOrDefault(u.Actor), strings.Join(actions, " • "), time.Now().UTC())
	return entry, nil
}

// AddProgressNote records a free-form progress note on the timeline.
func (r *Report) AddProgressNote(note, actor string) TimelineEntry {
	action := fmt.Sprintf("Added progress note - %q", note)
	return r.appendEntry(actorOrDefault(actor), action, time.Now().UTC())
}

// RequestAssignment records that an actor asked an admin to assign this
// report. The matching notification is created by the caller.
func (r *Report) RequestAssignment(actor string) TimelineEntry {
	action := fmt.Sprintf("Assignment requested by %s", actor)
	return r.appendEntry(actor, action, time.Now().UTC())
}

// AppendTimeline attaches an externally produced timeline entry (from the
// remote change feed). Ordering is clamped like local appends.
func (r *Report) AppendTimeline(entry TimelineEntry) {
	r.appendEntry(entry.Actor, entry.Action, entry.At)
}

// appendEntry appends one timeline entry. Timestamps never regress: an entry
// older than the current tail is clamped to the tail's time.
func (r *Report) appendEntry(actor, action string, at time.Time) TimelineEntry {
	if n := len(r.Timeline); n > 0 && at.Before(r.Timeline[n-1].At) {
		at = r.Timeline[n-1].At
	}
	entry := TimelineEntry{Actor: actor, Action: action, At: at}
	r.Timeline = append(r.Timeline, entry)
	return entry
}

// Clone returns a deep copy safe to hand out as a snapshot.
func (r *Report) Clone() *Report {
	cp := *r
	if r.AssignedOfficerID != nil {
		id := *r.AssignedOfficerID
		cp.AssignedOfficerID = &id
	}
	if r.Reporter.Phone != nil {
		phone := *r.Reporter.Phone
		cp.Reporter.Phone = &phone
	}
	cp.Media = append([]string(nil), r.Media...)
	cp.Timeline = append([]TimelineEntry(nil), r.Timeline...)
	return &cp
}

// Redacted returns a copy with reporter identity removed for anonymous
// submissions.
func (r *Report) Redacted() *Report {
	cp := r.Clone()
	if cp.Reporter.Anonymous {
		cp.Reporter.Name = ""
		cp.Reporter.Phone = nil
	}
	return cp
}

// Summarize produces the short dashboard summary for a description: the
// category followed by the first 15 words.
func Summarize(description, category string) string {
	words := strings.Fields(description)
	head := words
	suffix := ""
	if len(words) > 15 {
		head = words[:15]
		suffix = "..."
	}
	return fmt.Sprintf("%s issue: %s%s", category, strings.Join(head, " "), suffix)
}

func actorOrDefault(actor string) string {
	if actor == "" {
		return DefaultActor
	}
	return actor
}
