package models

import (
	"regexp"
	"time"
)

// ReportStatus enumerates the report lifecycle states.
type ReportStatus string

const (
	StatusPending       ReportStatus = "pending"
	StatusInvestigating ReportStatus = "investigating"
	StatusResolved      ReportStatus = "resolved"
	StatusClosed        ReportStatus = "closed"
)

// AllStatuses lists every lifecycle state in canonical order. Stats responses
// zero-fill from this list.
var AllStatuses = []ReportStatus{StatusPending, StatusInvestigating, StatusResolved, StatusClosed}

// ValidStatus reports whether the value is a known lifecycle state.
func ValidStatus(s ReportStatus) bool {
	switch s {
	case StatusPending, StatusInvestigating, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// RequiresAssignee reports whether the state may only be entered with an
// assignee present.
func (s ReportStatus) RequiresAssignee() bool {
	return s == StatusInvestigating || s == StatusResolved
}

// Category is a flat lookup table of crime categories.
type Category struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
}

// Location identifies where a crime happened. The (city, state, area,
// pincode) tuple is unique; identical locations are reused across reports.
type Location struct {
	ID      string `db:"id" json:"id"`
	City    string `db:"city" json:"city"`
	State   string `db:"state" json:"state"`
	Area    string `db:"area" json:"area"`
	Pincode string `db:"pincode" json:"pincode"`
}

var pincodePattern = regexp.MustCompile(`^\d{6}$`)

// ValidPincode checks for exactly six ASCII digits.
func ValidPincode(pincode string) bool {
	return pincodePattern.MatchString(pincode)
}

// Report represents a filed crime incident with lifecycle status. ReportedBy
// is immutable after creation; AssignedTo may be reassigned by staff.
type Report struct {
	ID           string       `db:"id" json:"id"`
	Title        string       `db:"title" json:"title"`
	Description  string       `db:"description" json:"description"`
	DateOfCrime  time.Time    `db:"date_of_crime" json:"date_of_crime"`
	TimeOfCrime  *string      `db:"time_of_crime" json:"time_of_crime,omitempty"`
	LocationID   string       `db:"location_id" json:"location_id"`
	CategoryID   string       `db:"category_id" json:"category_id"`
	ReportedBy   string       `db:"reported_by" json:"reported_by"`
	ReportedOn   time.Time    `db:"reported_on" json:"reported_on"`
	Status       ReportStatus `db:"status" json:"status"`
	AssignedTo   *string      `db:"assigned_to" json:"assigned_to,omitempty"`
	EvidencePath string       `db:"evidence_path" json:"evidence_path,omitempty"`
}

// ReportDetail joins the report with its denormalised references for reads.
type ReportDetail struct {
	Report
	CategoryName     string  `db:"category_name" json:"category_name"`
	City             string  `db:"city" json:"city"`
	State            string  `db:"state" json:"state"`
	Area             string  `db:"area" json:"area"`
	Pincode          string  `db:"pincode" json:"pincode"`
	ReporterUsername string  `db:"reporter_username" json:"reporter_username"`
	AssigneeUsername *string `db:"assignee_username" json:"assignee_username,omitempty"`
}

// CanViewDetails implements the visibility rule: reporter, current assignee,
// or any police/admin may view full report details.
func (r *Report) CanViewDetails(userID string, role Role) bool {
	if role == RolePolice || role == RoleAdmin {
		return true
	}
	if userID == "" {
		return false
	}
	if r.ReportedBy == userID {
		return true
	}
	return r.AssignedTo != nil && *r.AssignedTo == userID
}

// ReportUpdate is an append-only staff note attached to a report.
type ReportUpdate struct {
	ID        string    `db:"id" json:"id"`
	ReportID  string    `db:"report_id" json:"report_id"`
	Body      string    `db:"body" json:"body"`
	UpdatedBy string    `db:"updated_by" json:"updated_by"`
	UpdatedOn time.Time `db:"updated_on" json:"updated_on"`
}

// ReportFilter captures listing criteria for reports.
type ReportFilter struct {
	CategoryID string
	Status     *ReportStatus
	City       string
	DateFrom   *time.Time
	DateTo     *time.Time
	AssignedTo string
	ReportedBy string
	Page       int
	PageSize   int
}
