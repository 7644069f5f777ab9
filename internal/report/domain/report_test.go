package domain

import (
	"os"
	"strings"
	"testing"
)

func validInput() NewReportInput {
	return NewReportInput{
		Category:     "Pothole",
		Priority:     PriorityHigh,
		Description:  "Large pothole near the market entrance",
		LocationText: "Market Road",
		Lat:          18.95,
		Lng:          73.22,
		Reporter:     Reporter{Name: "Asha Kulkarni"},
	}
}

func TestNewReport(t *testing.T) {
	router := NewRouter()

	t.Run("valid input", func(t *testing.T) {
		r, err := NewReport(validInput(), router)
		if err != nil {
			t.Fatalf("NewReport failed: %v", err)
		}

		if !strings.HasPrefix(r.ReportID, "RG-") {
			t.Errorf("expected RG- prefix, got %s", r.ReportID)
		}
		if len(r.ReportID) != len("RG-")+8 {
			t.Errorf("expected 8-char suffix, got %s", r.ReportID)
		}
		if r.Status != StatusPending {
			t.Errorf("expected Pending, got %s", r.Status)
		}
		if r.AssignedDepartment != "Roads" {
			t.Errorf("expected Roads, got %s", r.AssignedDepartment)
		}
		if r.AssignedOfficerID != nil || r.AssignedOfficerName != UnassignedOfficer {
			t.Errorf("expected unassigned officer, got %v / %s", r.AssignedOfficerID, r.AssignedOfficerName)
		}
	})

	t.Run("creation timeline", func(t *testing.T) {
		r, err := NewReport(validInput(), router)
		if err != nil {
			t.Fatalf("NewReport failed: %v", err)
		}

		if len(r.Timeline) != 2 {
			t.Fatalf("expected 2 timeline entries, got %d", len(r.Timeline))
		}
		if r.Timeline[0].Actor != "System" || r.Timeline[0].Action != "Report created" {
			t.Errorf("unexpected first entry: %+v", r.Timeline[0])
		}
		if r.Timeline[1].Actor != "Auto-Assignment" || r.Timeline[1].Action != "Assigned to Roads department" {
			t.Errorf("unexpected second entry: %+v", r.Timeline[1])
		}
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*NewReportInput)
		}{
			{"missing category", func(in *NewReportInput) { in.Category = "" }},
			{"missing description", func(in *NewReportInput) { in.Description = "  " }},
			{"unknown priority", func(in *NewReportInput) { in.Priority = "Critical" }},
			{"named reporter without name", func(in *NewReportInput) { in.Reporter = Reporter{} }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				in := validInput()
				tt.mutate(&in)
				if _, err := NewReport(in, router); err == nil {
					t.Error("expected validation error")
				}
			})
		}
	})

	t.Run("anonymous reporter allowed without name", func(t *testing.T) {
		in := validInput()
		in.Reporter = Reporter{Anonymous: true}
		if _, err := NewReport(in, router); err != nil {
			t.Fatalf("NewReport failed: %v", err)
		}
	})
}

func TestSetStatus(t *testing.T) {
	router := NewRouter()

	tests := []struct {
		name   string
		status Status
		actor  string
		reason string
		action string
	}{
		{"no reason", StatusInProgress, "Officer Patil", "", "Marked as In Progress"},
		{"with reason", StatusRejected, "Admin", "duplicate", `Marked as Rejected - "duplicate"`},
		{"default actor", StatusResolved, "", "", "Marked as Resolved"},
		{"same status again", StatusPending, "Admin", "", "Marked as Pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReport(validInput(), router)
			if err != nil {
				t.Fatalf("NewReport failed: %v", err)
			}

			before := len(r.Timeline)
			entry := r.SetStatus(tt.status, tt.actor, tt.reason)

			if r.Status != tt.status {
				t.Errorf("expected %s, got %s", tt.status, r.Status)
			}
			if entry.Action != tt.action {
				t.Errorf("expected action %q, got %q", tt.action, entry.Action)
			}
			wantActor := tt.actor
			if wantActor == "" {
				wantActor = "System"
			}
			if entry.Actor != wantActor {
				t.Errorf("expected actor %q, got %q", wantActor, entry.Actor)
			}
			if len(r.Timeline) != before+1 {
				t.Errorf("expected one new timeline entry, got %d", len(r.Timeline)-before)
			}
		})
	}
}

func TestTimelineOrdering(t *testing.T) {
	r, err := NewReport(validInput(), NewRouter())
	if err != nil {
		t.Fatalf("NewReport failed: %v", err)
	}

	r.SetStatus(StatusInProgress, "Admin", "")
	r.AddProgressNote("crew dispatched", "Officer Patil")
	r.SetStatus(StatusResolved, "Officer Patil", "filled and sealed")

	for i := 1; i < len(r.Timeline); i++ {
		if r.Timeline[i].At.Before(r.Timeline[i-1].At) {
			t.Fatalf("timeline regressed at entry %d", i)
		}
	}
}

func TestUpdateAssignment(t *testing.T) {
	router := NewRouter()
	officerID := "off-7"

	t.Run("department only", func(t *testing.T) {
		r, _ := NewReport(validInput(), router)
		dept := "Drainage"
		entry, err := r.UpdateAssignment(AssignmentUpdate{Department: &dept, Actor: "Admin"})
		if err != nil {
			t.Fatalf("UpdateAssignment failed: %v", err)
		}
		if r.AssignedDepartment != "Drainage" {
			t.Errorf("expected Drainage, got %s", r.AssignedDepartment)
		}
		if entry.Action != "Assigned to Drainage department" {
			t.Errorf("unexpected action %q", entry.Action)
		}
	})

	t.Run("officer only", func(t *testing.T) {
		r, _ := NewReport(validInput(), router)
		entry, err := r.UpdateAssignment(AssignmentUpdate{
			Officer: &OfficerChange{ID: &officerID, Name: "R. Patil"},
			Actor:   "Admin",
		})
		if err != nil {
			t.Fatalf("UpdateAssignment failed: %v", err)
		}
		if r.AssignedOfficerID == nil || *r.AssignedOfficerID != officerID {
			t.Errorf("officer id not set")
		}
		if r.AssignedOfficerName != "R. Patil" {
			t.Errorf("expected R. Patil, got %s", r.AssignedOfficerName)
		}
		if entry.Action != "Officer set to R. Patil" {
			t.Errorf("unexpected action %q", entry.Action)
		}
	})

	t.Run("combined clauses joined", func(t *testing.T) {
		r, _ := NewReport(validInput(), router)
		dept := "Water Supply"
		entry, err := r.UpdateAssignment(AssignmentUpdate{
			Department: &dept,
			Officer:    &OfficerChange{ID: &officerID, Name: "R. Patil"},
			Actor:      "Admin",
		})
		if err != nil {
			t.Fatalf("UpdateAssignment failed: %v", err)
		}
		want := "Assigned to Water Supply department • Officer set to R. Patil"
		if entry.Action != want {
			t.Errorf("expected %q, got %q", want, entry.Action)
		}
	})

	t.Run("unassign restores invariant", func(t *testing.T) {
		r, _ := NewReport(validInput(), router)
		if _, err := r.UpdateAssignment(AssignmentUpdate{
			Officer: &OfficerChange{ID: &officerID, Name: "R. Patil"},
		}); err != nil {
			t.Fatalf("assign failed: %v", err)
		}
		entry, err := r.UpdateAssignment(AssignmentUpdate{Officer: &OfficerChange{}})
		if err != nil {
			t.Fatalf("unassign failed: %v", err)
		}
		if r.AssignedOfficerID != nil || r.AssignedOfficerName != UnassignedOfficer {
			t.Errorf("invariant broken: %v / %s", r.AssignedOfficerID, r.AssignedOfficerName)
		}
		if entry.Action != "Officer set to Unassigned" {
			t.Errorf("unexpected action %q", entry.Action)
		}
	})

	t.Run("empty update is a no-op", func(t *testing.T) {
		r, _ := NewReport(validInput(), router)
		before := len(r.Timeline)
		if _, err := r.UpdateAssignment(AssignmentUpdate{Actor: "Admin"}); err != nil {
			t.Fatalf("UpdateAssignment failed: %v", err)
		}
		if len(r.Timeline) != before {
			t.Error("no-op update appended a timeline entry")
		}
	})

	t.Run("officer without name rejected", func(t *testing.T) {
		r, _ := NewReport(validInput(), router)
		if _, err := r.UpdateAssignment(AssignmentUpdate{
			Officer: &OfficerChange{ID: &officerID},
		}); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestRequestAssignment(t *testing.T) {
	r, _ := NewReport(validInput(), NewRouter())
	entry := r.RequestAssignment("Officer Patil")
	if entry.Actor != "Officer Patil" {
		t.Errorf("unexpected actor %q", entry.Actor)
	}
	if entry.Action != "Assignment requested by Officer Patil" {
		t.Errorf("unexpected action %q", entry.Action)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name        string
		description string
		category    string
		want        string
	}{
		{
			"short description untruncated",
			"Water leaking from main pipe",
			"Water Leakage",
			"Water Leakage issue: Water leaking from main pipe",
		},
		{
			"long description truncated at 15 words",
			"one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen",
			"Pothole",
			"Pothole issue: one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen...",
		},
		{
			"exactly 15 words untruncated",
			"one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen",
			"Pothole",
			"Pothole issue: one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.description, tt.category); got != tt.want {
				t.Errorf("Summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRouter(t *testing.T) {
	router := NewRouter()

	tests := []struct {
		category   string
		department string
	}{
		{"Pothole", "Roads"},
		{"Road Damage", "Roads"},
		{"Garbage Collection", "Sanitation"},
		{"Illegal Dumping", "Sanitation"},
		{"Street Light", "Street Lighting"},
		{"Water Leakage", "Water Supply"},
		{"Drainage Block", "Drainage"},
		{"Tree Falling Risk", "Roads"},
		{"Sewage Overflow", "Drainage"},
		{"Park Maintenance", "Sanitation"},
		{"Alien Invasion", "Administration"},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			if got := router.Department(tt.category); got != tt.department {
				t.Errorf("Department(%q) = %q, want %q", tt.category, got, tt.department)
			}
		})
	}
}

func TestRouterOverrides(t *testing.T) {
	path := t.TempDir() + "/routing.yaml"
	data := "categories:\n  Pothole: Public Works\n  Graffiti: Sanitation\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("writing overrides: %v", err)
	}

	router, err := NewRouterFromFile(path)
	if err != nil {
		t.Fatalf("NewRouterFromFile failed: %v", err)
	}

	if got := router.Department("Pothole"); got != "Public Works" {
		t.Errorf("override not applied, got %q", got)
	}
	if got := router.Department("Graffiti"); got != "Sanitation" {
		t.Errorf("new category not applied, got %q", got)
	}
	if got := router.Department("Water Leakage"); got != "Water Supply" {
		t.Errorf("built-in mapping lost, got %q", got)
	}
}

func TestClone(t *testing.T) {
	r, _ := NewReport(validInput(), NewRouter())
	officerID := "off-1"
	if _, err := r.UpdateAssignment(AssignmentUpdate{
		Officer: &OfficerChange{ID: &officerID, Name: "R. Patil"},
	}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	cp := r.Clone()
	cp.SetStatus(StatusResolved, "Admin", "")
	*cp.AssignedOfficerID = "off-2"

	if r.Status == StatusResolved {
		t.Error("clone mutated original status")
	}
	if *r.AssignedOfficerID != "off-1" {
		t.Error("clone shares officer id pointer")
	}
	if len(r.Timeline) == len(cp.Timeline) {
		t.Error("clone shares timeline slice")
	}
}

func TestRedacted(t *testing.T) {
	in := validInput()
	phone := "9999999999"
	in.Reporter = Reporter{Name: "Asha", Phone: &phone, Anonymous: true}
	r, _ := NewReport(in, NewRouter())

	red := r.Redacted()
	if red.Reporter.Name != "" || red.Reporter.Phone != nil {
		t.Error("anonymous reporter identity leaked")
	}
	if r.Reporter.Name != "Asha" {
		t.Error("redaction mutated original")
	}
}
