// Package sync reconciles the authoritative in-memory state with the remote
// store and the live change feed. All remote interaction is best-effort: a
// dead database or feed degrades the portal to a single-instance tool, never
// to a broken one.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/nagrik-gov/portal/internal/localcache"
	"github.com/nagrik-gov/portal/internal/notification"
	"github.com/nagrik-gov/portal/internal/report/domain"
	"github.com/nagrik-gov/portal/internal/report/remote"
	"github.com/nagrik-gov/portal/internal/report/store"
	"github.com/nagrik-gov/portal/internal/shared/metrics"
)

// DefaultRetention is how long Resolved reports and notifications are kept.
const DefaultRetention = 30 * 24 * time.Hour

// DefaultSweepInterval is the cadence of the retention sweep.
const DefaultSweepInterval = 24 * time.Hour

// RemoteSource is the subset of the remote repository the reconciler reads
// and sweeps through.
type RemoteSource interface {
	FetchAll(ctx context.Context) ([]remote.ReportRow, error)
	FetchTimelines(ctx context.Context) (map[string][]remote.TimelineRow, error)
	Delete(ctx context.Context, reportID string) error
}

// FeedSource delivers live row change events.
type FeedSource interface {
	Subscribe(ctx context.Context, handler remote.FeedHandler) error
}

// Snapshotter persists JSON snapshots between runs.
type Snapshotter interface {
	Save(ctx context.Context, key string, v interface{}) error
	Load(ctx context.Context, key string, v interface{}) (bool, error)
}

// MediaLister resolves the stored attachment URLs for a report.
type MediaLister interface {
	List(reportID string) []string
}

// Options configures a Reconciler. Store and Log are required; everything
// else is optional and its absence simply disables that concern.
type Options struct {
	Store         *store.Store
	Log           *notification.Log
	Repo          RemoteSource
	Feed          FeedSource
	Cache         Snapshotter
	Media         MediaLister
	Retention     time.Duration
	SweepInterval time.Duration
}

// Reconciler owns startup reconciliation, the live feed, cache snapshots and
// the retention sweep.
type Reconciler struct {
	store         *store.Store
	log           *notification.Log
	repo          RemoteSource
	feed          FeedSource
	cache         Snapshotter
	media         MediaLister
	retention     time.Duration
	sweepInterval time.Duration

	logger *log.Entry
	now    func() time.Time

	saveCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a reconciler.
func New(opts Options) *Reconciler {
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	return &Reconciler{
		store:         opts.Store,
		log:           opts.Log,
		repo:          opts.Repo,
		feed:          opts.Feed,
		cache:         opts.Cache,
		media:         opts.Media,
		retention:     opts.Retention,
		sweepInterval: opts.SweepInterval,
		logger:        log.WithField("component", "sync"),
		now:           time.Now,
		saveCh:        make(chan struct{}, 1),
	}
}

// Bootstrap fills the store before the portal starts serving. A warm local
// cache replaces the bulk fetch entirely; otherwise the remote store is
// fetched once and merged under local-wins.
func (rc *Reconciler) Bootstrap(ctx context.Context) {
	if rc.restoreFromCache(ctx) {
		rc.logger.WithField("reports", rc.store.Len()).Info("restored from local cache")
		return
	}
	rc.bulkFetch(ctx)
}

func (rc *Reconciler) restoreFromCache(ctx context.Context) bool {
	if rc.cache == nil {
		return false
	}

	var reports []*domain.Report
	ok, err := rc.cache.Load(ctx, localcache.DocReports, &reports)
	if err != nil {
		rc.logger.WithError(err).Warn("failed to read report cache")
		return false
	}
	if !ok {
		return false
	}
	rc.store.ReplaceAll(reports)

	var notifications []notification.Notification
	if ok, err := rc.cache.Load(ctx, localcache.DocNotifications, &notifications); err != nil {
		rc.logger.WithError(err).Warn("failed to read notification cache")
	} else if ok {
		rc.log.Restore(notifications)
	}
	return true
}

// bulkFetch pulls the full remote state and merges it under the local store.
// Existing local reports win for overlapping ids; local-only reports are
// kept after the fetched ones. Resolved reports past retention are dropped.
func (rc *Reconciler) bulkFetch(ctx context.Context) {
	if rc.repo == nil {
		return
	}

	rows, err := rc.repo.FetchAll(ctx)
	if err != nil {
		rc.logger.WithError(err).Warn("initial fetch failed, continuing with local state")
		return
	}
	timelines, err := rc.repo.FetchTimelines(ctx)
	if err != nil {
		rc.logger.WithError(err).Warn("timeline fetch failed, continuing without history")
		timelines = map[string][]remote.TimelineRow{}
	}

	cutoff := rc.now().UTC().Add(-rc.retention)
	local := rc.store.List()
	localByID := make(map[string]*domain.Report, len(local))
	for _, r := range local {
		localByID[r.ReportID] = r
	}

	merged := make([]*domain.Report, 0, len(rows)+len(local))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		seen[row.ReportID] = true
		if existing, ok := localByID[row.ReportID]; ok {
			merged = append(merged, existing)
			continue
		}
		r := row.ToReport()
		if r.Status == domain.StatusResolved && r.SubmittedAt.Before(cutoff) {
			continue
		}
		for _, entry := range timelines[r.ReportID] {
			r.AppendTimeline(entry.ToEntry())
		}
		rc.enrichMedia(r)
		merged = append(merged, r)
	}
	for _, r := range local {
		if !seen[r.ReportID] {
			merged = append(merged, r)
		}
	}

	rc.store.ReplaceAll(merged)
	rc.logger.WithField("reports", len(merged)).Info("initial reconciliation complete")
}

func (rc *Reconciler) enrichMedia(r *domain.Report) {
	if rc.media == nil {
		return
	}
	if urls := rc.media.List(r.ReportID); len(urls) > 0 {
		r.Media = urls
	}
}

// Start wires cache persistence, subscribes to the live feed and launches
// the retention sweep. Everything stops when ctx is cancelled.
func (rc *Reconciler) Start(ctx context.Context) {
	if rc.cache != nil {
		rc.store.SetOnChange(rc.scheduleSave)
		rc.log.SetOnChange(rc.scheduleSave)
		rc.wg.Add(1)
		go rc.saveLoop(ctx)
	}

	if rc.feed != nil {
		if err := rc.feed.Subscribe(ctx, rc.HandleEvent); err != nil {
			rc.logger.WithError(err).Warn("live feed unavailable")
		}
	}

	rc.wg.Add(1)
	go rc.sweepLoop(ctx)
}

// Wait blocks until background goroutines exit after ctx cancellation.
func (rc *Reconciler) Wait() {
	rc.wg.Wait()
}

// HandleEvent applies one remote row change to the local store.
func (rc *Reconciler) HandleEvent(ctx context.Context, event remote.RowEvent) {
	switch event.Table {
	case remote.TableReports:
		rc.handleReportEvent(event)
	case remote.TableTimeline:
		rc.handleTimelineEvent(event)
	default:
		return
	}
	metrics.RecordSyncEvent(event.Table, event.Op)
}

func (rc *Reconciler) handleReportEvent(event remote.RowEvent) {
	switch event.Op {
	case remote.OpInsert:
		if event.Report == nil {
			return
		}
		r := event.Report.ToReport()
		rc.enrichMedia(r)
		// A feed insert supersedes any local copy of the same id; only a
		// genuinely new report raises a notification.
		if rc.store.Upsert(r) {
			rc.log.Add(r.ReportID, notification.RemoteCreatedMessage(r))
			metrics.RecordNotificationCreated()
		}

	case remote.OpUpdate:
		if event.Patch == nil {
			return
		}
		patch := store.Patch{
			AssignedDepartment: event.Patch.AssignedDepartment,
			OfficerID:          event.Patch.OfficerID,
			OfficerIDSet:       event.Patch.OfficerIDSet,
			OfficerName:        event.Patch.OfficerName,
		}
		if event.Patch.Status != nil {
			status := domain.Status(*event.Patch.Status)
			patch.Status = &status
		}
		rc.store.ApplyPatch(event.ReportID, patch)

	case remote.OpDelete:
		rc.store.Remove(event.ReportID)
	}
}

func (rc *Reconciler) handleTimelineEvent(event remote.RowEvent) {
	if event.Op != remote.OpInsert || event.Timeline == nil {
		return
	}
	rc.store.AppendTimeline(event.Timeline.ReportID, event.Timeline.ToEntry())
}

// scheduleSave requests a cache snapshot without blocking the mutation path.
func (rc *Reconciler) scheduleSave() {
	select {
	case rc.saveCh <- struct{}{}:
	default:
	}
}

func (rc *Reconciler) saveLoop(ctx context.Context) {
	defer rc.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// final snapshot on shutdown
			rc.persist(context.Background())
			return
		case <-rc.saveCh:
			rc.persist(ctx)
		}
	}
}

func (rc *Reconciler) persist(ctx context.Context) {
	if err := rc.cache.Save(ctx, localcache.DocReports, rc.store.List()); err != nil {
		rc.logger.WithError(err).Warn("failed to snapshot reports")
	}
	if err := rc.cache.Save(ctx, localcache.DocNotifications, rc.log.Snapshot()); err != nil {
		rc.logger.WithError(err).Warn("failed to snapshot notifications")
	}
}

func (rc *Reconciler) sweepLoop(ctx context.Context) {
	defer rc.wg.Done()

	ticker := time.NewTicker(rc.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rc.Sweep(ctx)
		}
	}
}

// Sweep removes Resolved reports past retention and prunes old
// notifications. Remote deletion of swept reports is best-effort.
func (rc *Reconciler) Sweep(ctx context.Context) {
	cutoff := rc.now().UTC().Add(-rc.retention)

	removed := 0
	for _, r := range rc.store.List() {
		if r.Status != domain.StatusResolved || !r.SubmittedAt.Before(cutoff) {
			continue
		}
		if rc.store.Remove(r.ReportID) {
			removed++
			if rc.repo != nil {
				if err := rc.repo.Delete(ctx, r.ReportID); err != nil {
					rc.logger.WithError(err).WithField("report_id", r.ReportID).
						Warn("remote sweep delete failed")
					metrics.RecordReplicationFailure("sweep_delete")
				}
			}
		}
	}

	pruned := rc.log.Prune(cutoff)
	if removed > 0 || pruned > 0 {
		rc.logger.WithFields(log.Fields{
			"reports":       removed,
			"notifications": pruned,
		}).Info("retention sweep complete")
	}
}
