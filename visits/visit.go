// Package visits holds the medical-visit domain: the Visit and Symptom records,
// their enumerations, normalization and validation rules, and the Repository
// contract every visit store implements.
package visits

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date format used for visit and follow-up dates.
const DateLayout = "2006-01-02"

// Category classifies a visit.
type Category string

const (
	CategoryCheckup    Category = "Checkup"
	CategoryFluCold    Category = "Flu/Cold"
	CategoryChronic    Category = "Chronic Condition"
	CategorySpecialist Category = "Specialist Consultation"
	CategoryEmergency  Category = "Emergency"
	CategoryFollowUp   Category = "Follow-up"
	CategoryVaccine    Category = "Vaccination"
	CategoryOther      Category = "Other"
)

// Categories returns the visit categories in form order.
func Categories() []Category {
	return []Category{
		CategoryCheckup,
		CategoryFluCold,
		CategoryChronic,
		CategorySpecialist,
		CategoryEmergency,
		CategoryFollowUp,
		CategoryVaccine,
		CategoryOther,
	}
}

// Valid reports whether c is one of the known visit categories.
func (c Category) Valid() bool {
	for _, k := range Categories() {
		if c == k {
			return true
		}
	}
	return false
}

// SymptomCategory classifies a symptom.
type SymptomCategory string

const (
	SymptomPain           SymptomCategory = "Pain"
	SymptomRespiratory    SymptomCategory = "Respiratory"
	SymptomDigestive      SymptomCategory = "Digestive"
	SymptomNeurological   SymptomCategory = "Neurological"
	SymptomSkin           SymptomCategory = "Skin"
	SymptomCardiovascular SymptomCategory = "Cardiovascular"
	SymptomGeneral        SymptomCategory = "General"
)

// SymptomCategories returns the symptom categories in form order.
func SymptomCategories() []SymptomCategory {
	return []SymptomCategory{
		SymptomPain,
		SymptomRespiratory,
		SymptomDigestive,
		SymptomNeurological,
		SymptomSkin,
		SymptomCardiovascular,
		SymptomGeneral,
	}
}

// Valid reports whether c is one of the known symptom categories.
func (c SymptomCategory) Valid() bool {
	for _, k := range SymptomCategories() {
		if c == k {
			return true
		}
	}
	return false
}

// Severity bounds for a symptom.
const (
	MinSeverity     = 1
	MaxSeverity     = 10
	DefaultSeverity = 5
)

// Symptom is one complaint reported during a visit.
type Symptom struct {
	ID       string          `json:"id" yaml:"id"`
	Name     string          `json:"name" yaml:"name"`
	Severity int             `json:"severity" yaml:"severity"`
	Category SymptomCategory `json:"category" yaml:"category"`
}

// Named reports whether the symptom carries a name. Unnamed symptoms are
// form placeholders and never count toward anything.
func (s Symptom) Named() bool {
	return strings.TrimSpace(s.Name) != ""
}

// Attachment is a scanned document stored alongside a visit.
type Attachment struct {
	Filename     string `json:"filename" yaml:"filename"`
	OriginalName string `json:"original_name" yaml:"original_name"`
	Width        int    `json:"width" yaml:"width"`
	Height       int    `json:"height" yaml:"height"`
	Size         int    `json:"size" yaml:"size"`
	UploadedAt   string `json:"uploaded_at" yaml:"uploaded_at"`
}

// Visit is one recorded medical encounter.
type Visit struct {
	ID           string       `json:"id" yaml:"id"`
	UserID       string       `json:"user_id" yaml:"-"`
	Date         string       `json:"visit_date" yaml:"visit_date"`
	DoctorName   string       `json:"doctor_name" yaml:"doctor_name"`
	Reason       string       `json:"reason" yaml:"reason"`
	Diagnosis    string       `json:"diagnosis" yaml:"diagnosis"`
	Notes        string       `json:"notes" yaml:"notes"`
	Category     Category     `json:"category" yaml:"category"`
	FollowUpDate string       `json:"follow_up_date,omitempty" yaml:"follow_up_date,omitempty"`
	Medications  []string     `json:"medications" yaml:"medications,omitempty"`
	TestResults  []string     `json:"test_results" yaml:"test_results,omitempty"`
	Symptoms     []Symptom    `json:"symptoms" yaml:"symptoms"`
	Attachments  []Attachment `json:"attachments,omitempty" yaml:"attachments,omitempty"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
}

// VisitDate parses the visit date. ok is false when the date is missing or
// malformed.
func (v Visit) VisitDate() (t time.Time, ok bool) {
	return ParseDate(v.Date)
}

// FollowUp parses the follow-up date. ok is false when none is set.
func (v Visit) FollowUp() (t time.Time, ok bool) {
	return ParseDate(v.FollowUpDate)
}

// NamedSymptoms returns the symptoms that carry a name.
func (v Visit) NamedSymptoms() []Symptom {
	var out []Symptom
	for _, s := range v.Symptoms {
		if s.Named() {
			out = append(out, s)
		}
	}
	return out
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC. RFC 3339
// timestamps are accepted too and reduced to the date they name.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

// FormatDate formats t as a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NewID returns a fresh time-ordered identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// userNamespace scopes user ids derived from email addresses.
var userNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://medlog.local/users"))

// ErrInvalidEmail is returned by ParseEmail for input that is not an address.
var ErrInvalidEmail = errors.New("invalid email address")

// ParseEmail extracts the bare, lowercased address from input such as
// "Alice <alice@example.com>".
func ParseEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

// UserIDFromEmail derives a stable opaque user id from an email address.
// It identifies a user; it does not authenticate one.
func UserIDFromEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	return uuid.NewSHA1(userNamespace, []byte(email)).String()
}
