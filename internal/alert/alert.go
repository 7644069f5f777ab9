// Package alert decides and dispatches the admin email alert for new
// high-severity reports. The decision is pure; delivery is fire-and-forget
// and never blocks or fails report submission.
package alert

import (
	"context"
	"fmt"

	"github.com/apex/log"

	"github.com/nagrik-gov/portal/internal/report/domain"
	"github.com/nagrik-gov/portal/internal/shared/config"
	"github.com/nagrik-gov/portal/internal/shared/metrics"
)

// Email is one outbound alert message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers alert emails.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// ShouldDispatch is the pure alert decision: alerts are enabled, an address
// is configured, and the report's priority has its flag set. Medium and Low
// never alert.
func ShouldDispatch(cfg config.AlertConfig, priority domain.Priority) bool {
	if !cfg.Enabled || cfg.ToEmail == "" {
		return false
	}
	switch priority {
	case domain.PriorityUrgent:
		return cfg.Urgent
	case domain.PriorityHigh:
		return cfg.High
	}
	return false
}

// Compose renders the alert email for a report.
func Compose(cfg config.AlertConfig, r *domain.Report) Email {
	subject := fmt.Sprintf("[%s] New report %s: %s", r.Priority, r.ReportID, r.Category)
	body := fmt.Sprintf(
		"A new %s priority report was submitted.\n\n"+
			"Report:     %s\n"+
			"Category:   %s\n"+
			"Department: %s\n"+
			"Location:   %s\n\n"+
			"%s\n",
		r.Priority, r.ReportID, r.Category, r.AssignedDepartment, r.LocationText, r.Summary,
	)
	return Email{To: cfg.ToEmail, Subject: subject, Body: body}
}

// Dispatcher evaluates and sends alerts for newly created reports.
type Dispatcher struct {
	cfg    config.AlertConfig
	sender Sender
	logger *log.Entry
}

// NewDispatcher creates a dispatcher. A nil sender disables delivery while
// keeping the decision observable in logs.
func NewDispatcher(cfg config.AlertConfig, sender Sender) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		sender: sender,
		logger: log.WithField("component", "alert"),
	}
}

// Notify sends the alert email for a report when the decision allows it.
// Failures are logged and swallowed.
func (d *Dispatcher) Notify(ctx context.Context, r *domain.Report) {
	if !ShouldDispatch(d.cfg, r.Priority) {
		metrics.RecordAlertEmail("skipped")
		return
	}
	if d.sender == nil {
		d.logger.WithField("report_id", r.ReportID).Warn("alert sender not configured")
		metrics.RecordAlertEmail("unconfigured")
		return
	}

	email := Compose(d.cfg, r)
	if err := d.sender.Send(ctx, email); err != nil {
		d.logger.WithError(err).WithField("report_id", r.ReportID).Error("alert email failed")
		metrics.RecordAlertEmail("failed")
		return
	}

	d.logger.WithFields(log.Fields{
		"report_id": r.ReportID,
		"priority":  string(r.Priority),
	}).Info("alert email sent")
	metrics.RecordAlertEmail("sent")
}
