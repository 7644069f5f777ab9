package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/nagrik-gov/portal/internal/shared/database"
	apperrors "github.com/nagrik-gov/portal/internal/shared/errors"
)

// Repository persists report and timeline rows in Postgres.
type Repository struct {
	db *database.DB
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

const reportColumns = `report_id, category, description, summary, priority, status,
	submitted_at, location_text, lat, lng,
	reporter_name, reporter_phone, anonymous,
	assigned_department, assigned_officer_id, assigned_officer_name`

// FetchAll returns every report row, newest first.
func (r *Repository) FetchAll(ctx context.Context) ([]ReportRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports ORDER BY submitted_at DESC`, reportColumns)

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "fetching reports")
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var row ReportRow
		err := rows.Scan(
			&row.ReportID, &row.Category, &row.Description, &row.Summary, &row.Priority, &row.Status,
			&row.SubmittedAt, &row.LocationText, &row.Lat, &row.Lng,
			&row.ReporterName, &row.ReporterPhone, &row.Anonymous,
			&row.AssignedDepartment, &row.AssignedOfficerID, &row.AssignedOfficerName,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "scanning report row")
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "iterating report rows")
	}
	return out, nil
}

// Insert stores a new report row.
func (r *Repository) Insert(ctx context.Context, row ReportRow) error {
	query := fmt.Sprintf(`INSERT INTO reports (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		reportColumns)

	_, err := r.db.Pool.Exec(ctx, query,
		row.ReportID, row.Category, row.Description, row.Summary, row.Priority, row.Status,
		row.SubmittedAt, row.LocationText, row.Lat, row.Lng,
		row.ReporterName, row.ReporterPhone, row.Anonymous,
		row.AssignedDepartment, row.AssignedOfficerID, row.AssignedOfficerName,
	)
	if err != nil {
		return apperrors.Wrap(err, "inserting report")
	}
	return nil
}

// Update applies a field-level patch and reports whether any row matched.
// A zero match means the report never reached the remote store; the caller
// falls back to Upsert with the full local row.
func (r *Repository) Update(ctx context.Context, reportID string, patch ReportPatch) (bool, error) {
	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.AssignedDepartment != nil {
		add("assigned_department", *patch.AssignedDepartment)
	}
	if patch.OfficerIDSet {
		add("assigned_officer_id", patch.OfficerID)
	}
	if patch.OfficerName != nil {
		add("assigned_officer_name", *patch.OfficerName)
	}
	if len(sets) == 0 {
		return true, nil
	}

	args = append(args, reportID)
	query := fmt.Sprintf(`UPDATE reports SET %s WHERE report_id = $%d`,
		strings.Join(sets, ", "), len(args))

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, apperrors.Wrap(err, "updating report")
	}
	return tag.RowsAffected() > 0, nil
}

// Upsert writes the full row, replacing any existing one. Used to heal the
// remote store when an update finds no row to patch.
func (r *Repository) Upsert(ctx context.Context, row ReportRow) error {
	query := fmt.Sprintf(`INSERT INTO reports (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (report_id) DO UPDATE SET
			category = excluded.category,
			description = excluded.description,
			summary = excluded.summary,
			priority = excluded.priority,
			status = excluded.status,
			submitted_at = excluded.submitted_at,
			location_text = excluded.location_text,
			lat = excluded.lat,
			lng = excluded.lng,
			reporter_name = excluded.reporter_name,
			reporter_phone = excluded.reporter_phone,
			anonymous = excluded.anonymous,
			assigned_department = excluded.assigned_department,
			assigned_officer_id = excluded.assigned_officer_id,
			assigned_officer_name = excluded.assigned_officer_name`,
		reportColumns)

	_, err := r.db.Pool.Exec(ctx, query,
		row.ReportID, row.Category, row.Description, row.Summary, row.Priority, row.Status,
		row.SubmittedAt, row.LocationText, row.Lat, row.Lng,
		row.ReporterName, row.ReporterPhone, row.Anonymous,
		row.AssignedDepartment, row.AssignedOfficerID, row.AssignedOfficerName,
	)
	if err != nil {
		return apperrors.Wrap(err, "upserting report")
	}
	return nil
}

// Delete removes a report and its timeline rows in one transaction. Timeline
// rows go first so a failure never leaves orphans behind a deleted report.
func (r *Repository) Delete(ctx context.Context, reportID string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return apperrors.Wrap(err, "beginning delete transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM report_timeline WHERE report_id = $1`, reportID); err != nil {
		return apperrors.Wrap(err, "deleting timeline rows")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM reports WHERE report_id = $1`, reportID); err != nil {
		return apperrors.Wrap(err, "deleting report row")
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(err, "committing delete")
	}
	return nil
}

// InsertTimeline appends one timeline row.
func (r *Repository) InsertTimeline(ctx context.Context, row TimelineRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO report_timeline (report_id, actor, action, at) VALUES ($1, $2, $3, $4)`,
		row.ReportID, row.Actor, row.Action, row.At,
	)
	if err != nil {
		return apperrors.Wrap(err, "inserting timeline row")
	}
	return nil
}

// FetchTimelines returns every timeline row grouped by report, oldest first
// within each report.
func (r *Repository) FetchTimelines(ctx context.Context) (map[string][]TimelineRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT report_id, actor, action, at FROM report_timeline ORDER BY at ASC, id ASC`)
	if err != nil {
		return nil, apperrors.Wrap(err, "fetching timelines")
	}
	defer rows.Close()

	out := make(map[string][]TimelineRow)
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.ReportID, &row.Actor, &row.Action, &row.At); err != nil {
			return nil, apperrors.Wrap(err, "scanning timeline row")
		}
		out[row.ReportID] = append(out[row.ReportID], row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "iterating timeline rows")
	}
	return out, nil
}
