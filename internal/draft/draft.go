// Package draft generates ready-to-send complaint paperwork for citizens:
// classification of an issue to the responsible municipal department, a
// formal complaint letter, an RTI application and follow-up/escalation
// emails. Everything is deterministic template work, no external calls.
package draft

import (
	"strings"
	"time"
)

// Authority is the addressee of all generated paperwork.
const Authority = "Municipal Corporation / Nagar Palika"

// IssueDetails describes the civic issue the citizen is drafting about.
type IssueDetails struct {
	City      string   `json:"city,omitempty"`
	Area      string   `json:"area,omitempty"`
	Landmark  string   `json:"landmark,omitempty"`
	Ward      string   `json:"ward,omitempty"`
	IssueType string   `json:"issue_type"`
	SinceWhen string   `json:"since_when,omitempty"`
	Details   string   `json:"description"`
	Evidence  []string `json:"evidence,omitempty"`
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Anonymous bool     `json:"anonymous"`

	PreviousComplaintID   string `json:"previous_complaint_id,omitempty"`
	PreviousComplaintDate string `json:"previous_complaint_date,omitempty"`
}

// Classification names the authority and department responsible for an issue.
type Classification struct {
	Authority  string `json:"authority"`
	Department string `json:"department"`
}

var formalDepartments = map[string]string{
	"Garbage Collection": "Solid Waste Management",
	"Road Damage":        "Roads and Bridges",
	"Street Light":       "Electrical / Street Lighting",
	"Water Leakage":      "Water Supply",
	"Drainage Block":     "Drainage / Sewerage",
	"Park Maintenance":   "Garden / Parks",
	"Noise Pollution":    "Health / Pollution Control",
	"Illegal Construction": "Building Permission / Estate",
}

// Classify maps a free-text issue type to the formal municipal department.
func Classify(details IssueDetails) Classification {
	t := strings.ToLower(details.IssueType)
	has := func(subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(t, sub) {
				return true
			}
		}
		return false
	}

	key := ""
	switch {
	case has("garbage", "dump"):
		key = "Garbage Collection"
	case has("pothole", "road"):
		key = "Road Damage"
	case has("street") && has("light"):
		key = "Street Light"
	case has("water") && has("leak", "supply"):
		key = "Water Leakage"
	case has("drain", "sewage", "flood"):
		key = "Drainage Block"
	case has("park", "garden"):
		key = "Park Maintenance"
	case has("pollution", "smoke", "noise"):
		key = "Noise Pollution"
	case has("encroach", "illegal"):
		key = "Illegal Construction"
	}

	department, ok := formalDepartments[key]
	if !ok {
		department = "Administration"
	}
	return Classification{Authority: Authority, Department: department}
}

// BuildLocationLine joins the location parts the citizen supplied.
func BuildLocationLine(details IssueDetails) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{details.Landmark, details.Area, details.City} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if details.Ward != "" {
		parts = append(parts, "Ward "+details.Ward)
	}
	return strings.Join(parts, ", ")
}

// GuidanceSteps lists what the citizen should do for this issue.
func GuidanceSteps(details IssueDetails, cls Classification) []string {
	return []string{
		"Collect clear photos/videos of the issue.",
		"Note exact location with landmark, area, and city.",
		"Submit a complaint to the " + cls.Department + " of the " + cls.Authority + " via portal/app or ward office.",
		"Save the complaint ID and acknowledgement.",
		"If no action within a reasonable time, follow up and escalate as needed.",
	}
}

// ComplaintSubject builds the subject line of the formal complaint.
func ComplaintSubject(details IssueDetails) string {
	loc := BuildLocationLine(details)
	if loc == "" {
		loc = "[Location]"
	}
	return "Complaint regarding " + details.IssueType + " at " + loc
}

func signature(details IssueDetails) string {
	if details.Anonymous {
		return "Citizen"
	}
	if details.Name != "" {
		return details.Name
	}
	return "[Your Name]"
}

func todayLine() string {
	return "Date: " + time.Now().Format("02/01/2006")
}

// ComplaintBody renders the formal complaint letter.
func ComplaintBody(details IssueDetails, cls Classification) string {
	loc := BuildLocationLine(details)
	if loc == "" {
		loc = "[Location]"
	}
	since := details.SinceWhen
	if since == "" {
		since = "[Since when]"
	}

	name := signature(details)
	if details.Anonymous {
		name = "Anonymous Citizen"
	}

	lines := []string{
		todayLine(),
		"To,",
		"The Ward Officer / Concerned Officer,",
		cls.Department + ",",
		cls.Authority + ".",
		"",
		"Subject: " + ComplaintSubject(details),
		"",
		"Respected Sir/Madam,",
		"I wish to bring to your notice the issue of " + details.IssueType + " at " + loc +
			". The problem has been occurring since " + since + ".",
		details.Details,
	}
	if details.PreviousComplaintID != "" {
		date := details.PreviousComplaintDate
		if date == "" {
			date = "[date]"
		}
		lines = append(lines, "Previous complaint reference: "+details.PreviousComplaintID+" dated "+date+".")
	}
	if len(details.Evidence) > 0 {
		lines = append(lines, "Evidence: "+strings.Join(details.Evidence, ", ")+".")
	}
	lines = append(lines,
		"This issue falls under "+cls.Department+" of the "+cls.Authority+
			". I request prompt action to resolve it at the earliest.",
		"",
		"Thank you.",
		name,
	)
	if details.Email != "" || details.Phone != "" {
		contact := make([]string, 0, 2)
		if details.Email != "" {
			contact = append(contact, details.Email)
		}
		if details.Phone != "" {
			contact = append(contact, details.Phone)
		}
		lines = append(lines, "Contact: "+strings.Join(contact, " / "))
	}

	return joinNonEmpty(lines)
}

// RTIBody renders an application under the RTI Act, 2005.
func RTIBody(details IssueDetails, cls Classification, complaintID string) string {
	loc := BuildLocationLine(details)
	if loc == "" {
		loc = "[Location]"
	}

	line2 := "2. Please provide the complaint registration number if available."
	if complaintID != "" {
		line2 = "2. Please provide action taken report for Complaint ID: " + complaintID + "."
	}

	return strings.Join([]string{
		todayLine(),
		"To,",
		"The Public Information Officer (PIO),",
		cls.Department + ",",
		cls.Authority + ".",
		"",
		"Subject: Application under RTI Act, 2005 regarding civic complaint",
		"",
		"Respected Sir/Madam,",
		"I am an Indian citizen and I seek the following information under the RTI Act, 2005:",
		"1. Status and action taken on complaint regarding " + details.IssueType + " at " + loc + ".",
		line2,
		"3. Name and designation of the officer responsible and expected timeline for resolution.",
		"",
		"I am willing to pay the prescribed fees. Please provide the information within the statutory time period.",
		"",
		"Thank you.",
		signature(details),
	}, "\n")
}

// FollowUpEmail renders the gentle reminder for an unanswered complaint.
func FollowUpEmail(details IssueDetails, complaintID string) string {
	return strings.Join([]string{
		"Subject: Follow-up on Complaint ID " + complaintID,
		"",
		"Respected Sir/Madam,",
		"This is a gentle reminder regarding my complaint (ID: " + complaintID + ") concerning " +
			details.IssueType + ". Kindly update on the current status and expected time to resolve.",
		"Thank you.",
		signature(details),
	}, "\n")
}

// EscalationEmail renders the escalation message after a stalled complaint.
func EscalationEmail(details IssueDetails, complaintID string) string {
	return strings.Join([]string{
		"Subject: Escalation - No response on Complaint ID " + complaintID,
		"",
		"Respected Sir/Madam,",
		"I wish to escalate my complaint (ID: " + complaintID + ") as there has been no satisfactory response/resolution within a reasonable time. Kindly intervene and ensure prompt action.",
		"Thank you.",
		signature(details),
	}, "\n")
}

// joinNonEmpty drops empty lines; the complaint letter carries no blank
// separators.
func joinNonEmpty(lines []string) string {
	kept := lines[:0]
	for _, line := range lines {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
