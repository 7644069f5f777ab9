// Package remote replicates the in-memory report state to shared
// infrastructure: a Postgres store for durability and an EventStoreDB stream
// that fans row changes out to every running portal instance. Remote writes
// never gate local state; failures are logged and swallowed by callers.
package remote

import (
	"time"

	"github.com/nagrik-gov/portal/internal/report/domain"
)

// Table names carried on change feed events.
const (
	TableReports  = "reports"
	TableTimeline = "report_timeline"
)

// Row operations carried on change feed events.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// ReportRow is the wire and database shape of a report, without its timeline
// or media (timeline rows travel separately; media lives in file storage).
type ReportRow struct {
	ReportID            string    `json:"report_id"`
	Category            string    `json:"category"`
	Description         string    `json:"description"`
	Summary             string    `json:"summary"`
	Priority            string    `json:"priority"`
	Status              string    `json:"status"`
	SubmittedAt         time.Time `json:"submitted_at"`
	LocationText        string    `json:"location_text"`
	Lat                 float64   `json:"lat"`
	Lng                 float64   `json:"lng"`
	ReporterName        string    `json:"reporter_name"`
	ReporterPhone       *string   `json:"reporter_phone"`
	Anonymous           bool      `json:"anonymous"`
	AssignedDepartment  string    `json:"assigned_department"`
	AssignedOfficerID   *string   `json:"assigned_officer_id"`
	AssignedOfficerName string    `json:"assigned_officer_name"`
}

// RowFromReport flattens a report into its row shape.
func RowFromReport(r *domain.Report) ReportRow {
	return ReportRow{
		ReportID:            r.ReportID,
		Category:            r.Category,
		Description:         r.Description,
		Summary:             r.Summary,
		Priority:            string(r.Priority),
		Status:              string(r.Status),
		SubmittedAt:         r.SubmittedAt,
		LocationText:        r.LocationText,
		Lat:                 r.Lat,
		Lng:                 r.Lng,
		ReporterName:        r.Reporter.Name,
		ReporterPhone:       r.Reporter.Phone,
		Anonymous:           r.Reporter.Anonymous,
		AssignedDepartment:  r.AssignedDepartment,
		AssignedOfficerID:   r.AssignedOfficerID,
		AssignedOfficerName: r.AssignedOfficerName,
	}
}

// ToReport rebuilds a domain report from its row. The timeline and media are
// attached separately by the caller.
func (row ReportRow) ToReport() *domain.Report {
	name := row.AssignedOfficerName
	if row.AssignedOfficerID == nil {
		name = domain.UnassignedOfficer
	}
	return &domain.Report{
		ReportID:            row.ReportID,
		Category:            row.Category,
		Description:         row.Description,
		Summary:             row.Summary,
		Priority:            domain.Priority(row.Priority),
		Status:              domain.Status(row.Status),
		SubmittedAt:         row.SubmittedAt,
		LocationText:        row.LocationText,
		Lat:                 row.Lat,
		Lng:                 row.Lng,
		Reporter:            domain.Reporter{Name: row.ReporterName, Phone: row.ReporterPhone, Anonymous: row.Anonymous},
		Media:               []string{},
		AssignedDepartment:  row.AssignedDepartment,
		AssignedOfficerID:   row.AssignedOfficerID,
		AssignedOfficerName: name,
	}
}

// ReportPatch is the field-level payload of an UPDATE row event. Only the
// mutable workflow columns travel on updates; nil fields are untouched.
// OfficerIDSet distinguishes an explicit unassignment from an absent field.
type ReportPatch struct {
	Status             *string `json:"status,omitempty"`
	AssignedDepartment *string `json:"assigned_department,omitempty"`
	OfficerID          *string `json:"assigned_officer_id,omitempty"`
	OfficerIDSet       bool    `json:"assigned_officer_id_set,omitempty"`
	OfficerName        *string `json:"assigned_officer_name,omitempty"`
}

// PatchFromReport extracts the workflow columns of a report as a full patch.
func PatchFromReport(r *domain.Report) ReportPatch {
	status := string(r.Status)
	dept := r.AssignedDepartment
	name := r.AssignedOfficerName
	return ReportPatch{
		Status:             &status,
		AssignedDepartment: &dept,
		OfficerID:          r.AssignedOfficerID,
		OfficerIDSet:       true,
		OfficerName:        &name,
	}
}

// TimelineRow is the wire and database shape of one timeline entry.
type TimelineRow struct {
	ReportID string    `json:"report_id"`
	Actor    string    `json:"actor"`
	Action   string    `json:"action"`
	At       time.Time `json:"at"`
}

// ToEntry converts the row to a domain timeline entry.
func (row TimelineRow) ToEntry() domain.TimelineEntry {
	return domain.TimelineEntry{Actor: row.Actor, Action: row.Action, At: row.At}
}

// RowEvent is one change on a replicated table, published by the instance
// that performed the write. Origin identifies that instance so subscribers
// can skip their own echoes.
type RowEvent struct {
	ID       string       `json:"id"`
	Origin   string       `json:"origin"`
	Table    string       `json:"table"`
	Op       string       `json:"op"`
	At       time.Time    `json:"at"`
	ReportID string       `json:"report_id"`
	Report   *ReportRow   `json:"report,omitempty"`
	Patch    *ReportPatch `json:"patch,omitempty"`
	Timeline *TimelineRow `json:"timeline,omitempty"`
}
