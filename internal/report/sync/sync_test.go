package sync

import (
	"context"
	"testing"
	"time"

	"github.com/nagrik-gov/portal/internal/localcache"
	"github.com/nagrik-gov/portal/internal/notification"
	"github.com/nagrik-gov/portal/internal/report/domain"
	"github.com/nagrik-gov/portal/internal/report/remote"
	"github.com/nagrik-gov/portal/internal/report/store"
	"github.com/nagrik-gov/portal/internal/shared/auth"
)

type fakeRepo struct {
	rows       []remote.ReportRow
	timelines  map[string][]remote.TimelineRow
	fetchCalls int
	deleted    []string
}

func (f *fakeRepo) FetchAll(context.Context) ([]remote.ReportRow, error) {
	f.fetchCalls++
	return f.rows, nil
}

func (f *fakeRepo) FetchTimelines(context.Context) (map[string][]remote.TimelineRow, error) {
	if f.timelines == nil {
		return map[string][]remote.TimelineRow{}, nil
	}
	return f.timelines, nil
}

func (f *fakeRepo) Delete(_ context.Context, reportID string) error {
	f.deleted = append(f.deleted, reportID)
	return nil
}

type fakeCache struct {
	docs map[string][]byte
}

func (f *fakeCache) Save(_ context.Context, key string, v interface{}) error {
	return nil
}

func (f *fakeCache) Load(_ context.Context, key string, v interface{}) (bool, error) {
	return false, nil
}

type seededCache struct {
	reports []*domain.Report
}

func (s *seededCache) Save(context.Context, string, interface{}) error { return nil }

func (s *seededCache) Load(_ context.Context, key string, v interface{}) (bool, error) {
	if key != localcache.DocReports {
		return false, nil
	}
	out := v.(*[]*domain.Report)
	*out = s.reports
	return true, nil
}

func newTestReport(t *testing.T, priority domain.Priority) *domain.Report {
	t.Helper()
	r, err := domain.NewReport(domain.NewReportInput{
		Category:    "Pothole",
		Priority:    priority,
		Description: "test report",
		Reporter:    domain.Reporter{Name: "Tester"},
	}, domain.NewRouter())
	if err != nil {
		t.Fatalf("NewReport failed: %v", err)
	}
	return r
}

func newReconciler(opts Options) *Reconciler {
	if opts.Store == nil {
		opts.Store = store.New()
	}
	if opts.Log == nil {
		opts.Log = notification.NewLog()
	}
	return New(opts)
}

func TestBootstrapSkipsFetchWithWarmCache(t *testing.T) {
	cached := newTestReport(t, domain.PriorityLow)
	repo := &fakeRepo{rows: []remote.ReportRow{{ReportID: "RG-remote01", Status: "Pending", Priority: "Low"}}}

	rc := newReconciler(Options{
		Repo:  repo,
		Cache: &seededCache{reports: []*domain.Report{cached}},
	})
	rc.Bootstrap(context.Background())

	if repo.fetchCalls != 0 {
		t.Error("bulk fetch should be skipped when the cache is warm")
	}
	if _, ok := rc.store.Get(cached.ReportID); !ok {
		t.Error("cached report not restored")
	}
}

func TestBootstrapBulkFetch(t *testing.T) {
	localReport := newTestReport(t, domain.PriorityHigh)
	localReport.SetStatus(domain.StatusInProgress, "Admin", "")

	old := time.Now().UTC().Add(-40 * 24 * time.Hour)

	repo := &fakeRepo{
		rows: []remote.ReportRow{
			// same id as local: local version must win
			{ReportID: localReport.ReportID, Status: "Pending", Priority: "High", SubmittedAt: localReport.SubmittedAt},
			{ReportID: "RG-fresh001", Status: "Pending", Priority: "Low", SubmittedAt: time.Now().UTC()},
			// resolved past retention: dropped
			{ReportID: "RG-ancient1", Status: "Resolved", Priority: "Low", SubmittedAt: old},
		},
		timelines: map[string][]remote.TimelineRow{
			"RG-fresh001": {{ReportID: "RG-fresh001", Actor: "System", Action: "Report created", At: time.Now().UTC()}},
		},
	}

	s := store.New()
	s.Insert(localReport)

	rc := newReconciler(Options{Store: s, Repo: repo, Cache: &fakeCache{}})
	rc.Bootstrap(context.Background())

	if _, ok := s.Get("RG-ancient1"); ok {
		t.Error("resolved report past retention should be dropped")
	}

	got, ok := s.Get(localReport.ReportID)
	if !ok {
		t.Fatal("local report lost in merge")
	}
	if got.Status != domain.StatusInProgress {
		t.Error("local version should win over the fetched row")
	}

	fresh, ok := s.Get("RG-fresh001")
	if !ok {
		t.Fatal("fetched report missing")
	}
	if len(fresh.Timeline) != 1 || fresh.Timeline[0].Action != "Report created" {
		t.Errorf("timeline not attached: %+v", fresh.Timeline)
	}
}

func TestHandleRemoteInsert(t *testing.T) {
	rc := newReconciler(Options{})

	event := remote.RowEvent{
		Table:    remote.TableReports,
		Op:       remote.OpInsert,
		ReportID: "RG-feed0001",
		Report: &remote.ReportRow{
			ReportID: "RG-feed0001", Status: "Pending", Priority: "Urgent",
			SubmittedAt: time.Now().UTC(),
		},
	}
	rc.HandleEvent(context.Background(), event)

	if _, ok := rc.store.Get("RG-feed0001"); !ok {
		t.Fatal("remote insert not applied")
	}

	admin := &auth.User{Role: auth.RoleSuperAdmin}
	lookup := func(string) (string, bool) { return "", false }
	feed := rc.log.VisibleTo(admin, lookup)
	if len(feed) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(feed))
	}
	if feed[0].Message != "New urgent report RG-feed0001 submitted" {
		t.Errorf("unexpected message %q", feed[0].Message)
	}

	// replay must not duplicate
	rc.HandleEvent(context.Background(), event)
	if got := len(rc.log.VisibleTo(admin, lookup)); got != 1 {
		t.Errorf("replayed insert duplicated notification: %d", got)
	}
}

func TestHandleRemoteInsertReplacesLocalCopy(t *testing.T) {
	rc := newReconciler(Options{})
	stale := newTestReport(t, domain.PriorityLow)
	rc.store.Insert(stale)
	rc.store.Insert(newTestReport(t, domain.PriorityLow))

	rc.HandleEvent(context.Background(), remote.RowEvent{
		Table:    remote.TableReports,
		Op:       remote.OpInsert,
		ReportID: stale.ReportID,
		Report: &remote.ReportRow{
			ReportID: stale.ReportID, Category: stale.Category,
			Status: "Resolved", Priority: string(stale.Priority),
			SubmittedAt: stale.SubmittedAt,
		},
	})

	got, ok := rc.store.Get(stale.ReportID)
	if !ok {
		t.Fatal("report missing after feed insert")
	}
	if got.Status != domain.StatusResolved {
		t.Errorf("feed insert must replace the existing entry, status still %q", got.Status)
	}
	if list := rc.store.List(); list[0].ReportID != stale.ReportID {
		t.Error("replaced report not moved to the front")
	}

	// a replacement is not a new report, so no notification is raised
	admin := &auth.User{Role: auth.RoleSuperAdmin}
	lookup := func(string) (string, bool) { return "", false }
	if got := len(rc.log.VisibleTo(admin, lookup)); got != 0 {
		t.Errorf("replacement raised %d notifications", got)
	}
}

func TestHandleRemoteUpdate(t *testing.T) {
	rc := newReconciler(Options{})
	r := newTestReport(t, domain.PriorityLow)
	officerID := "off-1"
	if _, err := r.UpdateAssignment(domain.AssignmentUpdate{
		Officer: &domain.OfficerChange{ID: &officerID, Name: "R. Patil"},
	}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	rc.store.Insert(r)

	status := "Resolved"
	rc.HandleEvent(context.Background(), remote.RowEvent{
		Table:    remote.TableReports,
		Op:       remote.OpUpdate,
		ReportID: r.ReportID,
		Patch:    &remote.ReportPatch{Status: &status, OfficerIDSet: true},
	})

	got, _ := rc.store.Get(r.ReportID)
	if got.Status != domain.StatusResolved {
		t.Error("status patch not applied")
	}
	if got.AssignedOfficerID != nil || got.AssignedOfficerName != domain.UnassignedOfficer {
		t.Error("unassignment patch broke the officer invariant")
	}
}

func TestHandleRemoteDelete(t *testing.T) {
	rc := newReconciler(Options{})
	r := newTestReport(t, domain.PriorityLow)
	rc.store.Insert(r)

	rc.HandleEvent(context.Background(), remote.RowEvent{
		Table:    remote.TableReports,
		Op:       remote.OpDelete,
		ReportID: r.ReportID,
	})

	if _, ok := rc.store.Get(r.ReportID); ok {
		t.Error("remote delete not applied")
	}
}

func TestHandleTimelineInsert(t *testing.T) {
	rc := newReconciler(Options{})
	r := newTestReport(t, domain.PriorityLow)
	rc.store.Insert(r)

	rc.HandleEvent(context.Background(), remote.RowEvent{
		Table:    remote.TableTimeline,
		Op:       remote.OpInsert,
		ReportID: r.ReportID,
		Timeline: &remote.TimelineRow{
			ReportID: r.ReportID, Actor: "Admin", Action: "Marked as In Progress", At: time.Now().UTC(),
		},
	})

	got, _ := rc.store.Get(r.ReportID)
	last := got.Timeline[len(got.Timeline)-1]
	if last.Action != "Marked as In Progress" {
		t.Errorf("timeline entry not appended: %+v", last)
	}
}

func TestSweep(t *testing.T) {
	repo := &fakeRepo{}
	rc := newReconciler(Options{Repo: repo})

	oldResolved := newTestReport(t, domain.PriorityLow)
	oldResolved.SetStatus(domain.StatusResolved, "Admin", "")
	oldResolved.SubmittedAt = time.Now().UTC().Add(-31 * 24 * time.Hour)

	oldPending := newTestReport(t, domain.PriorityLow)
	oldPending.SubmittedAt = time.Now().UTC().Add(-60 * 24 * time.Hour)

	freshResolved := newTestReport(t, domain.PriorityLow)
	freshResolved.SetStatus(domain.StatusResolved, "Admin", "")

	rc.store.Insert(oldResolved)
	rc.store.Insert(oldPending)
	rc.store.Insert(freshResolved)

	rc.Sweep(context.Background())

	if _, ok := rc.store.Get(oldResolved.ReportID); ok {
		t.Error("old resolved report should be swept")
	}
	if _, ok := rc.store.Get(oldPending.ReportID); !ok {
		t.Error("unresolved reports are never swept, regardless of age")
	}
	if _, ok := rc.store.Get(freshResolved.ReportID); !ok {
		t.Error("recently resolved report should survive")
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != oldResolved.ReportID {
		t.Errorf("remote sweep delete not issued: %v", repo.deleted)
	}
}
