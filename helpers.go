package medlog

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/medlog/visits"
)

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// splitLines turns textarea input and repeated form values into one entry
// per line.
func splitLines(vals []string) []string {
	var out []string
	for _, v := range vals {
		out = append(out, strings.Split(strings.ReplaceAll(v, "\r\n", "\n"), "\n")...)
	}
	return visits.FilterEmpty(out)
}

// parseVisitForm reads the visit form. Symptom rows arrive as parallel
// symptom_id/symptom_name/symptom_severity/symptom_category lists.
func parseVisitForm(c echo.Context) (visits.Visit, error) {
	form, err := c.FormParams()
	if err != nil {
		return visits.Visit{}, err
	}
	v := visits.Visit{
		ID:           strings.TrimSpace(form.Get("id")),
		Date:         form.Get("visit_date"),
		DoctorName:   form.Get("doctor_name"),
		Reason:       form.Get("reason"),
		Diagnosis:    form.Get("diagnosis"),
		Notes:        form.Get("notes"),
		Category:     visits.Category(form.Get("category")),
		FollowUpDate: form.Get("follow_up_date"),
		Medications:  splitLines(form["medications"]),
		TestResults:  splitLines(form["test_results"]),
	}

	names := form["symptom_name"]
	ids := form["symptom_id"]
	severities := form["symptom_severity"]
	categories := form["symptom_category"]
	for i, name := range names {
		s := visits.Symptom{
			Name:     name,
			Severity: visits.DefaultSeverity,
			Category: visits.SymptomGeneral,
		}
		if i < len(ids) {
			s.ID = strings.TrimSpace(ids[i])
		}
		if i < len(severities) && strings.TrimSpace(severities[i]) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(severities[i]))
			if err != nil {
				// out of range on purpose so validation reports it
				n = 0
			}
			s.Severity = n
		}
		if i < len(categories) && categories[i] != "" {
			s.Category = visits.SymptomCategory(categories[i])
		}
		v.Symptoms = append(v.Symptoms, s)
	}
	return v, nil
}

// bindJSON decodes an application/json request body into dst. Any other
// content type is rejected.
func bindJSON(c echo.Context, dst any) error {
	mt, _, err := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
	if err != nil || mt != echo.MIMEApplicationJSON {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "expected application/json")
	}
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}
