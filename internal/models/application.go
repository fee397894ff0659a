package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// NotAvailable is the sentinel stored wherever a timeline or officer value is unknown.
const NotAvailable = "N/A"

// ApplicationStatus enumerates the grievance lifecycle states.
type ApplicationStatus string

const (
	StatusNotAssignedYet ApplicationStatus = "NotAssignedYet"
	StatusInProcess      ApplicationStatus = "InProcess"
	StatusCompliance     ApplicationStatus = "Compliance"
	StatusDisposed       ApplicationStatus = "Disposed"
)

// AllStatuses lists the lifecycle states in lifecycle order.
var AllStatuses = []ApplicationStatus{StatusNotAssignedYet, StatusInProcess, StatusCompliance, StatusDisposed}

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusNotAssignedYet, StatusInProcess, StatusCompliance, StatusDisposed:
		return true
	}
	return false
}

// Terminal reports whether no forward transition leaves s.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusCompliance || s == StatusDisposed
}

// Timeline section labels.
const (
	SectionReceived   = "Application Received"
	SectionCompliance = "Compliance"
	SectionDisposed   = "Disposed"
)

// AssignedSection renders the label used for an assignment entry.
func AssignedSection(officer string) string {
	return "Assigned to " + officer
}

// Application is one grievance record together with its full audit timeline.
type Application struct {
	ApplicantID        string            `db:"applicant_id" json:"applicantId"`
	ApplicantName      string            `db:"applicant_name" json:"applicantName"`
	ApplicationDate    Date              `db:"application_date" json:"applicationDate"`
	ContactPhone       *string           `db:"contact_phone" json:"contactPhone,omitempty"`
	ContactEmail       *string           `db:"contact_email" json:"contactEmail,omitempty"`
	Subject            string            `db:"subject" json:"subject"`
	Block              string            `db:"originating_block" json:"block"`
	Attachment         *string           `db:"attachment_reference" json:"attachment,omitempty"`
	Status             ApplicationStatus `db:"status" json:"status"`
	AssignedOfficer    string            `db:"assigned_officer" json:"assignedOfficer"`
	AssignedDepartment string            `db:"assigned_department" json:"assignedDepartment"`
	Timeline           Timeline          `db:"timeline" json:"timeline"`
	Version            int               `db:"version" json:"version"`
	CreatedAt          time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updatedAt"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	c := *a
	c.ContactPhone = cloneString(a.ContactPhone)
	c.ContactEmail = cloneString(a.ContactEmail)
	c.Attachment = cloneString(a.Attachment)
	c.Timeline = append(Timeline(nil), a.Timeline...)
	return &c
}

// AttachmentOrNA returns the current attachment reference or the sentinel.
func (a *Application) AttachmentOrNA() string {
	if a.Attachment == nil || *a.Attachment == "" {
		return NotAvailable
	}
	return *a.Attachment
}

// Track projects the fields that may be shown to unauthenticated callers.
func (a *Application) Track() *TrackingView {
	return &TrackingView{
		ApplicantID:     a.ApplicantID,
		ApplicantName:   a.ApplicantName,
		ApplicationDate: a.ApplicationDate,
		Subject:         a.Subject,
		Block:           a.Block,
		Attachment:      a.AttachmentOrNA(),
		Timeline:        publicEntries(a.Timeline),
		Officer:         a.AssignedOfficer,
		Status:          a.Status,
	}
}

// TrackingView is the public read model returned by the tracking endpoint.
type TrackingView struct {
	ApplicantID     string            `json:"applicantId"`
	ApplicantName   string            `json:"applicantName"`
	ApplicationDate Date              `json:"applicationDate"`
	Subject         string            `json:"subject"`
	Block           string            `json:"block"`
	Attachment      string            `json:"attachment"`
	Timeline        []TrackingEntry   `json:"timeline"`
	Officer         string            `json:"officer"`
	Status          ApplicationStatus `json:"status"`
}

// TrackingEntry is a timeline entry as shown to the public. It omits who
// recorded the entry and the status it produced.
type TrackingEntry struct {
	Section    string `json:"sectionLabel"`
	Comment    string `json:"comment"`
	Date       Date   `json:"date"`
	Attachment string `json:"attachment"`
	Department string `json:"department"`
	Officer    string `json:"officer"`
}

func publicEntries(timeline Timeline) []TrackingEntry {
	out := make([]TrackingEntry, len(timeline))
	for i, e := range timeline {
		out[i] = TrackingEntry{
			Section:    e.Section,
			Comment:    e.Comment,
			Date:       e.Date,
			Attachment: e.Attachment,
			Department: e.Department,
			Officer:    e.Officer,
		}
	}
	return out
}

// TimelineEntry is one immutable audit record. Every field is always populated.
type TimelineEntry struct {
	Section    string            `json:"sectionLabel"`
	Comment    string            `json:"comment"`
	Date       Date              `json:"date"`
	Attachment string            `json:"attachment"`
	Department string            `json:"department"`
	Officer    string            `json:"officer"`
	RecordedBy string            `json:"recordedBy"`
	Status     ApplicationStatus `json:"status"`
}

// Timeline is the append-only history persisted as a JSONB column.
type Timeline []TimelineEntry

// Value implements driver.Valuer.
func (t Timeline) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner.
func (t *Timeline) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Timeline{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan timeline: unsupported type %T", src)
	}
	var out Timeline
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan timeline: %w", err)
	}
	*t = out
	return nil
}

// Last returns the most recent entry.
func (t Timeline) Last() (TimelineEntry, bool) {
	if len(t) == 0 {
		return TimelineEntry{}, false
	}
	return t[len(t)-1], true
}

// ApplicationFilter constrains listing queries.
type ApplicationFilter struct {
	Status   []ApplicationStatus
	Block    string
	Officer  string
	Search   string
	From     *Date
	To       *Date
	Page     int
	PageSize int
}

// BlockSummary aggregates application counts for one block.
type BlockSummary struct {
	Block      string `db:"block" json:"block"`
	Total      int    `db:"total" json:"total"`
	Pending    int    `db:"pending" json:"pending"`
	InProcess  int    `db:"in_process" json:"inProcess"`
	Compliance int    `db:"compliance" json:"compliance"`
	Disposed   int    `db:"disposed" json:"disposed"`
}

// StatusSummary is the dashboard aggregate.
type StatusSummary struct {
	Total       int                       `json:"total"`
	ByStatus    map[ApplicationStatus]int `json:"byStatus"`
	ByBlock     []BlockSummary            `json:"byBlock"`
	GeneratedAt time.Time                 `json:"generatedAt"`
}

// DateLayout is how calendar dates are rendered on the wire and in timeline comments.
const DateLayout = "02/01/2006"

const isoDateLayout = "2006-01-02"

// Date is a calendar date without time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate takes the calendar date of t in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate accepts DD/MM/YYYY or YYYY-MM-DD.
func ParseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{isoDateLayout, DateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			return NewDate(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", raw)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Time().After(other.Time())
}

// String renders DD/MM/YYYY.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if raw == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer for DATE columns.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time(), nil
}

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
}

func (d *Date) scanString(raw string) error {
	if len(raw) >= len(isoDateLayout) {
		raw = raw[:len(isoDateLayout)]
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return fmt.Errorf("scan date: %w", err)
	}
	*d = parsed
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
