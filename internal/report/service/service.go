// Package service is the portal's report engine. Every operation follows the
// same local-first shape: validate, mutate the in-memory store, then fan out
// remote replication, notifications and alerts in the background. Remote
// failures are logged and swallowed; the local mutation is never rolled back.
package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/nagrik-gov/portal/internal/alert"
	"github.com/nagrik-gov/portal/internal/notification"
	"github.com/nagrik-gov/portal/internal/report/domain"
	"github.com/nagrik-gov/portal/internal/report/remote"
	"github.com/nagrik-gov/portal/internal/report/store"
	"github.com/nagrik-gov/portal/internal/shared/auth"
	apperrors "github.com/nagrik-gov/portal/internal/shared/errors"
	"github.com/nagrik-gov/portal/internal/shared/metrics"
	"github.com/nagrik-gov/portal/internal/shared/types"
	"github.com/nagrik-gov/portal/internal/ws"
)

// replicationTimeout bounds each background remote write.
const replicationTimeout = 15 * time.Second

// Remote is the subset of the remote repository the service writes through.
type Remote interface {
	Insert(ctx context.Context, row remote.ReportRow) error
	Update(ctx context.Context, reportID string, patch remote.ReportPatch) (bool, error)
	Upsert(ctx context.Context, row remote.ReportRow) error
	Delete(ctx context.Context, reportID string) error
	InsertTimeline(ctx context.Context, row remote.TimelineRow) error
}

// FeedPublisher pushes row change events to other portal instances.
type FeedPublisher interface {
	Publish(ctx context.Context, event remote.RowEvent) error
}

// Geocoder resolves location text to coordinates, best-effort.
type Geocoder interface {
	Lookup(ctx context.Context, query string) *types.LatLng
}

// Alerter dispatches the admin email alert for a new report.
type Alerter interface {
	Notify(ctx context.Context, r *domain.Report)
}

// Broadcaster pushes live updates to connected dashboards.
type Broadcaster interface {
	Broadcast(msg ws.Message)
}

// MediaStorage stores and removes report attachments.
type MediaStorage interface {
	Save(reportID, filename string, r io.Reader) (string, error)
	List(reportID string) []string
	Remove(reportID string) error
}

// Options wires a Service. Store, Log and Router are required; the rest is
// optional and degrades gracefully when absent.
type Options struct {
	Store   *store.Store
	Log     *notification.Log
	Router  *domain.Router
	Remote  Remote
	Feed    FeedPublisher
	Geo     Geocoder
	Alerts  Alerter
	Hub     Broadcaster
	Media   MediaStorage
}

// Service coordinates the report lifecycle.
type Service struct {
	store  *store.Store
	log    *notification.Log
	router *domain.Router
	remote Remote
	feed   FeedPublisher
	geo    Geocoder
	alerts Alerter
	hub    Broadcaster
	media  MediaStorage

	logger *log.Entry
	wg     sync.WaitGroup
}

// New creates the report service.
func New(opts Options) *Service {
	return &Service{
		store:  opts.Store,
		log:    opts.Log,
		router: opts.Router,
		remote: opts.Remote,
		feed:   opts.Feed,
		geo:    opts.Geo,
		alerts: opts.Alerts,
		hub:    opts.Hub,
		media:  opts.Media,
		logger: log.WithField("component", "reports"),
	}
}

// Wait blocks until all background replication finishes. Used on shutdown
// and in tests.
func (s *Service) Wait() {
	s.wg.Wait()
}

// background runs fn on its own goroutine with a bounded context, recording
// a replication failure when it errors.
func (s *Service) background(operation string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), replicationTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.WithError(err).WithField("operation", operation).Warn("remote replication failed")
			metrics.RecordReplicationFailure(operation)
		}
	}()
}

// --- Reads ---

// List returns all reports, newest first.
func (s *Service) List() []*domain.Report {
	return s.store.List()
}

// Get returns one report.
func (s *Service) Get(id string) (*domain.Report, error) {
	r, ok := s.store.Get(id)
	if !ok {
		return nil, apperrors.NotFound("report", id)
	}
	return r, nil
}

// Notifications returns the viewer-scoped activity feed.
func (s *Service) Notifications(viewer *auth.User) []notification.Notification {
	return s.log.VisibleTo(viewer, s.departmentOf)
}

// UnreadCount returns the viewer's unread notification count.
func (s *Service) UnreadCount(viewer *auth.User) int {
	return s.log.UnreadCount(viewer, s.departmentOf)
}

// MarkNotificationRead marks one notification read.
func (s *Service) MarkNotificationRead(id string) {
	s.log.MarkRead(id)
}

func (s *Service) departmentOf(reportID string) (string, bool) {
	r, ok := s.store.Get(reportID)
	if !ok {
		return "", false
	}
	return r.AssignedDepartment, true
}

// --- Create ---

// Create validates and stores a new citizen report, then fans out
// replication, the activity feed entry, the alert email and a dashboard
// push. Only validation can fail; everything after the local insert is
// best-effort.
func (s *Service) Create(ctx context.Context, in domain.NewReportInput) (*domain.Report, error) {
	r, err := domain.NewReport(in, s.router)
	if err != nil {
		return nil, err
	}

	s.store.Insert(r)
	s.log.Add(r.ReportID, notification.CreatedMessage(r))

	metrics.RecordReportCreated(r.Category, string(r.Priority))
	metrics.RecordNotificationCreated()
	metrics.RecordAssignment(r.AssignedDepartment)

	snapshot := r.Clone()
	s.replicateCreate(snapshot)
	s.geocodeIfNeeded(snapshot)

	if s.alerts != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			alertCtx, cancel := context.WithTimeout(context.Background(), replicationTimeout)
			defer cancel()
			s.alerts.Notify(alertCtx, snapshot)
		}()
	}
	s.push(ws.Message{Kind: "report.created", ReportID: r.ReportID, Payload: snapshot.Redacted()})

	return r, nil
}

func (s *Service) replicateCreate(r *domain.Report) {
	if s.remote != nil {
		row := remote.RowFromReport(r)
		timeline := r.Timeline
		s.background("insert", func(ctx context.Context) error {
			if err := s.remote.Insert(ctx, row); err != nil {
				return err
			}
			for _, entry := range timeline {
				if err := s.remote.InsertTimeline(ctx, remote.TimelineRow{
					ReportID: r.ReportID, Actor: entry.Actor, Action: entry.Action, At: entry.At,
				}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if s.feed != nil {
		row := remote.RowFromReport(r)
		s.background("feed_insert", func(ctx context.Context) error {
			return s.feed.Publish(ctx, remote.RowEvent{
				Table:    remote.TableReports,
				Op:       remote.OpInsert,
				ReportID: r.ReportID,
				Report:   &row,
			})
		})
	}
}

// geocodeIfNeeded resolves coordinates for reports submitted without them.
// The resolved point is patched locally and healed into the remote row.
func (s *Service) geocodeIfNeeded(r *domain.Report) {
	if s.geo == nil || r.LocationText == "" || r.Lat != 0 || r.Lng != 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), replicationTimeout)
		defer cancel()

		point := s.geo.Lookup(ctx, r.LocationText)
		if point == nil {
			return
		}

		patched, ok := s.store.ApplyPatch(r.ReportID, store.Patch{Lat: &point.Lat, Lng: &point.Lng})
		if !ok {
			return
		}
		if s.remote != nil {
			row := remote.RowFromReport(patched)
			s.background("geocode_heal", func(ctx context.Context) error {
				return s.remote.Upsert(ctx, row)
			})
		}
	}()
}

// --- Workflow mutations ---

// SetStatus moves a report to any of the four statuses, recording the
// transition on the timeline.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.Status, actor, reason string) (*domain.Report, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("invalid status", map[string]string{
			"status": "must be one of Pending, In Progress, Resolved, Rejected",
		})
	}

	var entry domain.TimelineEntry
	r, err, found := s.store.Mutate(id, func(r *domain.Report) error {
		entry = r.SetStatus(status, actor, reason)
		return nil
	})
	if !found {
		return nil, apperrors.NotFound("report", id)
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordStatusChange(string(status))

	statusStr := string(status)
	s.replicateWorkflowChange(r, remote.ReportPatch{Status: &statusStr}, entry, "status")
	s.push(ws.Message{Kind: "report.status", ReportID: id, Payload: r.Redacted()})
	return r, nil
}

// UpdateAssignment applies a partial assignment change.
func (s *Service) UpdateAssignment(ctx context.Context, id string, u domain.AssignmentUpdate) (*domain.Report, error) {
	var entry domain.TimelineEntry
	r, err, found := s.store.Mutate(id, func(r *domain.Report) error {
		var mErr error
		entry, mErr = r.UpdateAssignment(u)
		return mErr
	})
	if !found {
		return nil, apperrors.NotFound("report", id)
	}
	if err != nil {
		return nil, err
	}
	if u.IsZero() {
		return r, nil
	}

	metrics.RecordAssignment(r.AssignedDepartment)

	s.replicateWorkflowChange(r, remote.PatchFromReport(r), entry, "assignment")
	s.push(ws.Message{Kind: "report.assignment", ReportID: id, Payload: r.Redacted()})
	return r, nil
}

// AddProgressNote appends a progress note to the timeline.
func (s *Service) AddProgressNote(ctx context.Context, id, note, actor string) (*domain.Report, error) {
	if note == "" {
		return nil, apperrors.Validation("invalid note", map[string]string{"note": "required"})
	}

	var entry domain.TimelineEntry
	r, err, found := s.store.Mutate(id, func(r *domain.Report) error {
		entry = r.AddProgressNote(note, actor)
		return nil
	})
	if !found {
		return nil, apperrors.NotFound("report", id)
	}
	if err != nil {
		return nil, err
	}

	s.replicateTimeline(id, entry, "note")
	s.push(ws.Message{Kind: "report.note", ReportID: id, Payload: r.Redacted()})
	return r, nil
}

// RequestAssignment records that an actor asked for the report to be
// assigned, and raises a notification for admins.
func (s *Service) RequestAssignment(ctx context.Context, id, actor string) (*domain.Report, error) {
	if actor == "" {
		actor = domain.DefaultActor
	}

	var entry domain.TimelineEntry
	r, err, found := s.store.Mutate(id, func(r *domain.Report) error {
		entry = r.RequestAssignment(actor)
		return nil
	})
	if !found {
		return nil, apperrors.NotFound("report", id)
	}
	if err != nil {
		return nil, err
	}

	s.log.Add(id, notification.AssignmentRequestedMessage(actor, id))
	metrics.RecordNotificationCreated()

	s.replicateTimeline(id, entry, "assignment_request")
	s.push(ws.Message{Kind: "report.assignment_requested", ReportID: id, Payload: r.Redacted()})
	return r, nil
}

// replicateWorkflowChange pushes a field patch plus its timeline entry to
// the remote store and the feed. When the remote row is missing, the whole
// local report is upserted instead.
func (s *Service) replicateWorkflowChange(r *domain.Report, patch remote.ReportPatch, entry domain.TimelineEntry, operation string) {
	if s.remote != nil {
		row := remote.RowFromReport(r)
		s.background(operation, func(ctx context.Context) error {
			matched, err := s.remote.Update(ctx, r.ReportID, patch)
			if err != nil {
				return err
			}
			if !matched {
				if err := s.remote.Upsert(ctx, row); err != nil {
					return err
				}
			}
			return s.remote.InsertTimeline(ctx, remote.TimelineRow{
				ReportID: r.ReportID, Actor: entry.Actor, Action: entry.Action, At: entry.At,
			})
		})
	}
	if s.feed != nil {
		patchCopy := patch
		timelineRow := remote.TimelineRow{
			ReportID: r.ReportID, Actor: entry.Actor, Action: entry.Action, At: entry.At,
		}
		s.background("feed_"+operation, func(ctx context.Context) error {
			if err := s.feed.Publish(ctx, remote.RowEvent{
				Table:    remote.TableReports,
				Op:       remote.OpUpdate,
				ReportID: r.ReportID,
				Patch:    &patchCopy,
			}); err != nil {
				return err
			}
			return s.feed.Publish(ctx, remote.RowEvent{
				Table:    remote.TableTimeline,
				Op:       remote.OpInsert,
				ReportID: r.ReportID,
				Timeline: &timelineRow,
			})
		})
	}
}

// replicateTimeline pushes a bare timeline entry (no field changes).
func (s *Service) replicateTimeline(reportID string, entry domain.TimelineEntry, operation string) {
	row := remote.TimelineRow{
		ReportID: reportID, Actor: entry.Actor, Action: entry.Action, At: entry.At,
	}
	if s.remote != nil {
		s.background(operation, func(ctx context.Context) error {
			return s.remote.InsertTimeline(ctx, row)
		})
	}
	if s.feed != nil {
		s.background("feed_"+operation, func(ctx context.Context) error {
			return s.feed.Publish(ctx, remote.RowEvent{
				Table:    remote.TableTimeline,
				Op:       remote.OpInsert,
				ReportID: reportID,
				Timeline: &row,
			})
		})
	}
}

// --- Delete ---

// Delete removes a report locally, then clears the remote rows and stored
// attachments best-effort. Deleting an unknown id is a no-op: the report is
// already gone, which is the state the caller asked for.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !s.store.Remove(id) {
		return nil
	}

	if s.remote != nil {
		s.background("delete", func(ctx context.Context) error {
			return s.remote.Delete(ctx, id)
		})
	}
	if s.feed != nil {
		s.background("feed_delete", func(ctx context.Context) error {
			return s.feed.Publish(ctx, remote.RowEvent{
				Table:    remote.TableReports,
				Op:       remote.OpDelete,
				ReportID: id,
			})
		})
	}
	if s.media != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.media.Remove(id); err != nil {
				s.logger.WithError(err).WithField("report_id", id).Warn("failed to remove attachments")
			}
		}()
	}

	s.push(ws.Message{Kind: "report.deleted", ReportID: id})
	return nil
}

// --- Media ---

// AttachMedia stores one attachment and records its URL on the report.
func (s *Service) AttachMedia(ctx context.Context, id, filename string, content io.Reader) (string, error) {
	if s.media == nil {
		return "", apperrors.BadRequest("attachments are not enabled")
	}
	if _, ok := s.store.Get(id); !ok {
		return "", apperrors.NotFound("report", id)
	}

	url, err := s.media.Save(id, filename, content)
	if err != nil {
		return "", err
	}

	urls := s.media.List(id)
	s.store.ApplyPatch(id, store.Patch{Media: urls})
	s.push(ws.Message{Kind: "report.media", ReportID: id})
	return url, nil
}

func (s *Service) push(msg ws.Message) {
	if s.hub != nil {
		s.hub.Broadcast(msg)
	}
}

var _ Alerter = (*alert.Dispatcher)(nil)
