package remote

import (
	"testing"

	"github.com/nagrik-gov/portal/internal/report/domain"
)

func TestRowRoundTrip(t *testing.T) {
	r, err := domain.NewReport(domain.NewReportInput{
		Category:     "Water Leakage",
		Priority:     domain.PriorityHigh,
		Description:  "Pipe burst near the school",
		LocationText: "School Road",
		Lat:          18.95,
		Lng:          73.22,
		Reporter:     domain.Reporter{Name: "Tester"},
	}, domain.NewRouter())
	if err != nil {
		t.Fatalf("NewReport failed: %v", err)
	}

	got := RowFromReport(r).ToReport()

	if got.ReportID != r.ReportID {
		t.Errorf("report id lost: %s", got.ReportID)
	}
	if got.Status != domain.StatusPending || got.Priority != domain.PriorityHigh {
		t.Errorf("workflow fields lost: %+v", got)
	}
	if got.AssignedDepartment != "Water Supply" {
		t.Errorf("department lost: %s", got.AssignedDepartment)
	}
	if got.AssignedOfficerID != nil || got.AssignedOfficerName != domain.UnassignedOfficer {
		t.Errorf("officer invariant broken: %v / %s", got.AssignedOfficerID, got.AssignedOfficerName)
	}
	if len(got.Timeline) != 0 {
		t.Error("timeline should not travel on the report row")
	}
}

func TestToReportRepairsOfficerName(t *testing.T) {
	row := ReportRow{
		ReportID:            "RG-abc12345",
		Status:              "Pending",
		Priority:            "Low",
		AssignedOfficerID:   nil,
		AssignedOfficerName: "R. Patil", // stale remote data
	}

	got := row.ToReport()
	if got.AssignedOfficerName != domain.UnassignedOfficer {
		t.Errorf("expected Unassigned, got %s", got.AssignedOfficerName)
	}
}

func TestPatchFromReport(t *testing.T) {
	r, _ := domain.NewReport(domain.NewReportInput{
		Category:    "Pothole",
		Priority:    domain.PriorityLow,
		Description: "small pothole",
		Reporter:    domain.Reporter{Name: "Tester"},
	}, domain.NewRouter())
	officerID := "off-3"
	if _, err := r.UpdateAssignment(domain.AssignmentUpdate{
		Officer: &domain.OfficerChange{ID: &officerID, Name: "R. Patil"},
	}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	patch := PatchFromReport(r)
	if patch.Status == nil || *patch.Status != "Pending" {
		t.Error("status missing from patch")
	}
	if !patch.OfficerIDSet || patch.OfficerID == nil || *patch.OfficerID != "off-3" {
		t.Error("officer id missing from patch")
	}
	if patch.OfficerName == nil || *patch.OfficerName != "R. Patil" {
		t.Error("officer name missing from patch")
	}
}
