// Package api exposes the portal over HTTP. The citizen submission endpoint
// is public behind a rate limiter; everything else requires a staff token.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nagrik-gov/portal/internal/directory"
	"github.com/nagrik-gov/portal/internal/draft"
	"github.com/nagrik-gov/portal/internal/heatmap"
	"github.com/nagrik-gov/portal/internal/report/domain"
	"github.com/nagrik-gov/portal/internal/report/service"
	"github.com/nagrik-gov/portal/internal/shared/auth"
	"github.com/nagrik-gov/portal/internal/shared/errors"
)

// maxAttachmentSize caps one uploaded attachment.
const maxAttachmentSize = 10 << 20

// Handler provides HTTP handlers for the report portal.
type Handler struct {
	svc       *service.Service
	directory *directory.Service
	hub       http.Handler
}

// NewHandler creates the portal handler. directory and hub may be nil.
func NewHandler(svc *service.Service, dir *directory.Service, hub http.Handler) *Handler {
	return &Handler{svc: svc, directory: dir, hub: hub}
}

// PublicRoutes registers the unauthenticated citizen surface.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/reports", h.CreateReport)
	r.Post("/reports/{reportID}/media", h.AttachMedia)
	r.Route("/drafts", func(r chi.Router) {
		r.Post("/classify", h.Classify)
		r.Post("/complaint", h.ComplaintDraft)
		r.Post("/rti", h.RTIDraft)
		r.Post("/follow-up", h.FollowUpDraft)
		r.Post("/escalation", h.EscalationDraft)
		r.Post("/normalize", h.Normalize)
	})
	return r
}

// StaffRoutes registers the authenticated dashboard surface.
func (h *Handler) StaffRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/reports", h.ListReports)
	r.Route("/reports/{reportID}", func(r chi.Router) {
		r.Get("/", h.GetReport)

		workflow := r.With(auth.RequireRoles(
			auth.RoleSuperAdmin, auth.RoleDepartmentAdmin, auth.RoleFieldOfficer,
		))
		workflow.Patch("/status", h.SetStatus)
		workflow.Post("/notes", h.AddNote)
		workflow.Post("/assignment-request", h.RequestAssignment)

		r.With(auth.RequireRoles(auth.RoleSuperAdmin, auth.RoleDepartmentAdmin)).
			Patch("/assignment", h.UpdateAssignment)

		r.With(auth.RequireRoles(auth.RoleSuperAdmin)).
			Delete("/", h.DeleteReport)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.ListNotifications)
		r.Get("/unread-count", h.UnreadCount)
		r.Post("/{notificationID}/read", h.MarkNotificationRead)
	})

	r.Get("/heatmap", h.Heatmap)

	if h.directory != nil {
		r.Route("/directory", func(r chi.Router) {
			r.Get("/departments", h.ListDepartments)
			r.Get("/officers", h.ListOfficers)
		})
	}
	if h.hub != nil {
		r.Get("/ws", h.hub.ServeHTTP)
	}

	return r
}

// --- Request types ---

type CreateReportRequest struct {
	Category      string          `json:"category"`
	Priority      domain.Priority `json:"priority"`
	Description   string          `json:"description"`
	LocationText  string          `json:"location_text"`
	Lat           float64         `json:"lat"`
	Lng           float64         `json:"lng"`
	ReporterName  string          `json:"reporter_name"`
	ReporterPhone *string         `json:"reporter_phone"`
	Anonymous     bool            `json:"anonymous"`
}

type SetStatusRequest struct {
	Status domain.Status `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

type UpdateAssignmentRequest struct {
	Department   *string `json:"department,omitempty"`
	OfficerID    *string `json:"officer_id,omitempty"`
	OfficerName  string  `json:"officer_name,omitempty"`
	ClearOfficer bool    `json:"clear_officer,omitempty"`
}

type AddNoteRequest struct {
	Note string `json:"note"`
}

type DraftRequest struct {
	Details     draft.IssueDetails `json:"details"`
	ComplaintID string             `json:"complaint_id,omitempty"`
}

type NormalizeRequest struct {
	Text string `json:"text"`
}

// --- Report handlers ---

func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	report, err := h.svc.Create(r.Context(), domain.NewReportInput{
		Category:     req.Category,
		Priority:     req.Priority,
		Description:  req.Description,
		LocationText: req.LocationText,
		Lat:          req.Lat,
		Lng:          req.Lng,
		Reporter: domain.Reporter{
			Name:      req.ReporterName,
			Phone:     req.ReporterPhone,
			Anonymous: req.Anonymous,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, report.Redacted())
}

func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	department := r.URL.Query().Get("department")

	reports := h.svc.List()
	out := make([]*domain.Report, 0, len(reports))
	for _, report := range reports {
		if status != "" && string(report.Status) != status {
			continue
		}
		if department != "" && report.AssignedDepartment != department {
			continue
		}
		out = append(out, report.Redacted())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  out,
		"total": len(out),
	})
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Get(chi.URLParam(r, "reportID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Redacted())
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	report, err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "reportID"), req.Status, actorName(r), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Redacted())
}

func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	var req UpdateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	update := domain.AssignmentUpdate{
		Department: req.Department,
		Actor:      actorName(r),
	}
	switch {
	case req.ClearOfficer:
		update.Officer = &domain.OfficerChange{}
	case req.OfficerID != nil:
		update.Officer = &domain.OfficerChange{ID: req.OfficerID, Name: req.OfficerName}
	}

	report, err := h.svc.UpdateAssignment(r.Context(), chi.URLParam(r, "reportID"), update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Redacted())
}

func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	var req AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	report, err := h.svc.AddProgressNote(r.Context(), chi.URLParam(r, "reportID"), req.Note, actorName(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Redacted())
}

func (h *Handler) RequestAssignment(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.RequestAssignment(r.Context(), chi.URLParam(r, "reportID"), actorName(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Redacted())
}

func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "reportID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AttachMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		writeError(w, errors.BadRequest("invalid multipart body"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, errors.BadRequest("missing file field"))
		return
	}
	defer file.Close()

	url, err := h.svc.AttachMedia(r.Context(), chi.URLParam(r, "reportID"), header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// --- Notification handlers ---

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Forbidden("authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": h.svc.Notifications(user),
	})
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Forbidden("authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": h.svc.UnreadCount(user)})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	h.svc.MarkNotificationRead(chi.URLParam(r, "notificationID"))
	w.WriteHeader(http.StatusNoContent)
}

// --- Draft handlers ---

func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	cls := draft.Classify(req.Details)
	writeJSON(w, http.StatusOK, map[string]any{
		"classification": cls,
		"guidance":       draft.GuidanceSteps(req.Details, cls),
	})
}

func (h *Handler) ComplaintDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	cls := draft.Classify(req.Details)
	writeJSON(w, http.StatusOK, map[string]string{
		"subject": draft.ComplaintSubject(req.Details),
		"body":    draft.ComplaintBody(req.Details, cls),
	})
}

func (h *Handler) RTIDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	cls := draft.Classify(req.Details)
	writeJSON(w, http.StatusOK, map[string]string{
		"body": draft.RTIBody(req.Details, cls, req.ComplaintID),
	})
}

func (h *Handler) FollowUpDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"body": draft.FollowUpEmail(req.Details, req.ComplaintID),
	})
}

func (h *Handler) EscalationDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"body": draft.EscalationEmail(req.Details, req.ComplaintID),
	})
}

func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	normalized := draft.NormalizeText(req.Text)
	writeJSON(w, http.StatusOK, map[string]any{
		"text":    normalized,
		"applied": normalized != req.Text,
	})
}

// --- Map handler ---

func (h *Handler) Heatmap(w http.ResponseWriter, r *http.Request) {
	vp, err := parseViewport(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clusters": heatmap.Build(vp, h.svc.List()),
	})
}

func parseViewport(r *http.Request) (heatmap.Viewport, error) {
	var vp heatmap.Viewport
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"lat_min", &vp.LatMin},
		{"lat_max", &vp.LatMax},
		{"lng_min", &vp.LngMin},
		{"lng_max", &vp.LngMax},
	} {
		raw := r.URL.Query().Get(f.name)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return vp, errors.Validation("invalid viewport", map[string]string{f.name: "must be a number"})
		}
		*f.dst = v
	}
	if vp.LatMin >= vp.LatMax || vp.LngMin >= vp.LngMax {
		return vp, errors.BadRequest("empty viewport")
	}
	return vp, nil
}

// --- Directory handlers ---

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.directory.Departments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": departments})
}

func (h *Handler) ListOfficers(w http.ResponseWriter, r *http.Request) {
	officers, err := h.directory.Officers(r.Context(), r.URL.Query().Get("department"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": officers})
}

// --- Helpers ---

func actorName(r *http.Request) string {
	if user := auth.GetUser(r.Context()); user != nil && user.Name != "" {
		return user.Name
	}
	return domain.DefaultActor
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
