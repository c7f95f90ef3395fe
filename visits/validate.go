package visits

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError maps form field names to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid visit: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Normalize trims free text and drops blank list entries and unnamed
// symptoms. Symptoms without an id get one. Parseable dates are rewritten
// as YYYY-MM-DD.
func Normalize(v Visit) Visit {
	v.Date = canonicalDate(v.Date)
	v.DoctorName = strings.TrimSpace(v.DoctorName)
	v.Reason = strings.TrimSpace(v.Reason)
	v.Diagnosis = strings.TrimSpace(v.Diagnosis)
	v.Notes = strings.TrimSpace(v.Notes)
	v.FollowUpDate = canonicalDate(v.FollowUpDate)
	v.Medications = FilterEmpty(v.Medications)
	v.TestResults = FilterEmpty(v.TestResults)

	symptoms := make([]Symptom, 0, len(v.Symptoms))
	for _, s := range v.Symptoms {
		if !s.Named() {
			continue
		}
		s.Name = strings.TrimSpace(s.Name)
		if s.ID == "" {
			s.ID = NewID()
		}
		if s.Category == "" {
			s.Category = SymptomGeneral
		}
		symptoms = append(symptoms, s)
	}
	v.Symptoms = symptoms
	return v
}

// canonicalDate rewrites a parseable date as YYYY-MM-DD and leaves anything
// else trimmed for Validate to report.
func canonicalDate(s string) string {
	s = strings.TrimSpace(s)
	if t, ok := ParseDate(s); ok {
		return FormatDate(t)
	}
	return s
}

// Validate checks a normalized visit. It returns a *ValidationError listing
// every offending field, or nil.
func Validate(v Visit) error {
	verr := &ValidationError{}
	if v.DoctorName == "" {
		verr.add("doctor_name", "Doctor name is required")
	}
	if v.Date == "" {
		verr.add("visit_date", "Visit date is required")
	} else if _, ok := ParseDate(v.Date); !ok {
		verr.add("visit_date", "Visit date must use YYYY-MM-DD")
	}
	if v.Reason == "" {
		verr.add("reason", "Reason for visit is required")
	}
	if v.Category == "" {
		verr.add("category", "Category is required")
	} else if !v.Category.Valid() {
		verr.add("category", fmt.Sprintf("Unknown category %q", v.Category))
	}
	if v.FollowUpDate != "" {
		if _, ok := ParseDate(v.FollowUpDate); !ok {
			verr.add("follow_up_date", "Follow-up date must use YYYY-MM-DD")
		}
	}
	named := 0
	seen := make(map[string]bool, len(v.Symptoms))
	for _, s := range v.Symptoms {
		if !s.Named() {
			continue
		}
		named++
		if s.ID != "" {
			if seen[s.ID] {
				verr.add("symptoms", fmt.Sprintf("Symptom id %q is used more than once", s.ID))
			}
			seen[s.ID] = true
		}
		if s.Severity < MinSeverity || s.Severity > MaxSeverity {
			verr.add("symptoms", fmt.Sprintf("Severity for %q must be between %d and %d", s.Name, MinSeverity, MaxSeverity))
		}
		if !s.Category.Valid() {
			verr.add("symptoms", fmt.Sprintf("Unknown symptom category %q", s.Category))
		}
	}
	if named == 0 {
		verr.add("symptoms", "At least one symptom must be provided")
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	out := []string{}
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Patch is a partial visit update. Nil fields are left untouched.
type Patch struct {
	Date         *string    `json:"visit_date"`
	DoctorName   *string    `json:"doctor_name"`
	Reason       *string    `json:"reason"`
	Diagnosis    *string    `json:"diagnosis"`
	Notes        *string    `json:"notes"`
	Category     *Category  `json:"category"`
	FollowUpDate *string    `json:"follow_up_date"`
	Medications  *[]string  `json:"medications"`
	TestResults  *[]string  `json:"test_results"`
	Symptoms     *[]Symptom `json:"symptoms"`
}

// Apply returns v with the non-nil fields of p applied. Identity, owner and
// creation time never change.
func Apply(v Visit, p Patch) Visit {
	if p.Date != nil {
		v.Date = *p.Date
	}
	if p.DoctorName != nil {
		v.DoctorName = *p.DoctorName
	}
	if p.Reason != nil {
		v.Reason = *p.Reason
	}
	if p.Diagnosis != nil {
		v.Diagnosis = *p.Diagnosis
	}
	if p.Notes != nil {
		v.Notes = *p.Notes
	}
	if p.Category != nil {
		v.Category = *p.Category
	}
	if p.FollowUpDate != nil {
		v.FollowUpDate = *p.FollowUpDate
	}
	if p.Medications != nil {
		v.Medications = append([]string(nil), (*p.Medications)...)
	}
	if p.TestResults != nil {
		v.TestResults = append([]string(nil), (*p.TestResults)...)
	}
	if p.Symptoms != nil {
		v.Symptoms = append([]Symptom(nil), (*p.Symptoms)...)
	}
	return v
}
