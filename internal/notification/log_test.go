package notification

import (
	"testing"
	"time"

	"github.com/nagrik-gov/portal/internal/report/domain"
	"github.com/nagrik-gov/portal/internal/shared/auth"
)

var departments = map[string]string{
	"RG-aaaaaaaa": "Roads",
	"RG-bbbbbbbb": "Sanitation",
}

func lookup(reportID string) (string, bool) {
	d, ok := departments[reportID]
	return d, ok
}

func TestVisibility(t *testing.T) {
	log := NewLog()
	log.Add("RG-aaaaaaaa", "New high priority report RG-aaaaaaaa submitted")
	log.Add("RG-bbbbbbbb", "New low priority report RG-bbbbbbbb submitted")
	log.Add("RG-deleted", "New urgent priority report RG-deleted submitted")

	tests := []struct {
		name   string
		viewer *auth.User
		want   int
	}{
		{"super admin sees all", &auth.User{Role: auth.RoleSuperAdmin}, 3},
		{"roads admin sees roads only", &auth.User{Role: auth.RoleDepartmentAdmin, Department: "Roads"}, 1},
		{"sanitation officer sees sanitation only", &auth.User{Role: auth.RoleFieldOfficer, Department: "Sanitation"}, 1},
		{"viewer with no department sees nothing", &auth.User{Role: auth.RoleViewer}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := log.VisibleTo(tt.viewer, lookup)
			if len(got) != tt.want {
				t.Errorf("expected %d notifications, got %d", tt.want, len(got))
			}
		})
	}
}

func TestVisibilityFollowsReassignment(t *testing.T) {
	log := NewLog()
	log.Add("RG-moving01", "New high priority report RG-moving01 submitted")

	current := "Roads"
	dynamicLookup := func(string) (string, bool) { return current, true }

	roads := &auth.User{Role: auth.RoleDepartmentAdmin, Department: "Roads"}
	drainage := &auth.User{Role: auth.RoleDepartmentAdmin, Department: "Drainage"}

	if len(log.VisibleTo(roads, dynamicLookup)) != 1 {
		t.Error("roads admin should see the notification before reassignment")
	}

	current = "Drainage"

	if len(log.VisibleTo(roads, dynamicLookup)) != 0 {
		t.Error("roads admin should lose visibility after reassignment")
	}
	if len(log.VisibleTo(drainage, dynamicLookup)) != 1 {
		t.Error("drainage admin should gain visibility after reassignment")
	}
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	log := NewLog()
	a := log.Add("RG-aaaaaaaa", "first")
	log.Add("RG-aaaaaaaa", "second")

	admin := &auth.User{Role: auth.RoleSuperAdmin}
	if got := log.UnreadCount(admin, lookup); got != 2 {
		t.Fatalf("expected 2 unread, got %d", got)
	}

	if !log.MarkRead(a.ID) {
		t.Error("expected MarkRead to change state")
	}
	if log.MarkRead(a.ID) {
		t.Error("marking an already-read notification should be a no-op")
	}
	if log.MarkRead("missing") {
		t.Error("marking an unknown notification should be a no-op")
	}

	if got := log.UnreadCount(admin, lookup); got != 1 {
		t.Errorf("expected 1 unread, got %d", got)
	}
}

func TestOrderingNewestFirst(t *testing.T) {
	log := NewLog()
	log.Add("RG-aaaaaaaa", "first")
	log.Add("RG-aaaaaaaa", "second")

	got := log.VisibleTo(&auth.User{Role: auth.RoleSuperAdmin}, lookup)
	if got[0].Message != "second" || got[1].Message != "first" {
		t.Error("notifications not ordered newest first")
	}
}

func TestPrune(t *testing.T) {
	log := NewLog()
	log.Add("RG-aaaaaaaa", "old")
	log.Add("RG-aaaaaaaa", "new")

	snapshot := log.Snapshot()
	snapshot[1].Timestamp = time.Now().UTC().Add(-31 * 24 * time.Hour)
	log.Restore(snapshot)

	removed := log.Prune(time.Now().UTC().Add(-30 * 24 * time.Hour))
	if removed != 1 {
		t.Fatalf("expected 1 pruned, got %d", removed)
	}

	left := log.VisibleTo(&auth.User{Role: auth.RoleSuperAdmin}, lookup)
	if len(left) != 1 || left[0].Message != "new" {
		t.Errorf("unexpected survivors: %+v", left)
	}
}

func TestMessages(t *testing.T) {
	r := &domain.Report{ReportID: "RG-abc12345", Priority: domain.PriorityUrgent}

	if got := CreatedMessage(r); got != "New urgent priority report RG-abc12345 submitted" {
		t.Errorf("unexpected created message %q", got)
	}
	if got := RemoteCreatedMessage(r); got != "New urgent report RG-abc12345 submitted" {
		t.Errorf("unexpected remote created message %q", got)
	}
	if got := AssignmentRequestedMessage("Officer Patil", "RG-abc12345"); got != "Officer Patil requested assignment for RG-abc12345" {
		t.Errorf("unexpected message %q", got)
	}
}
