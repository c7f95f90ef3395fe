package views

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/eringen/medlog"
	"github.com/eringen/medlog/visits"
)

// displayDate formats a YYYY-MM-DD date as "Jan 2, 2006". Unparseable input
// is shown as-is.
func displayDate(s string) string {
	t, ok := visits.ParseDate(s)
	if !ok {
		return s
	}
	return t.Format("Jan 2, 2006")
}

// categoryClass returns the CSS classes for a visit category pill.
func categoryClass(c visits.Category) string {
	return "pill pill-" + medlog.Slugify(string(c))
}

// severityLevel buckets a 1-10 severity into mild, moderate or severe.
func severityLevel(n int) string {
	switch {
	case n >= 8:
		return "severe"
	case n >= 4:
		return "moderate"
	default:
		return "mild"
	}
}

func severities() []int {
	out := make([]int, 0, visits.MaxSeverity)
	for i := visits.MinSeverity; i <= visits.MaxSeverity; i++ {
		out = append(out, i)
	}
	return out
}

// navClass marks the nav entry whose section contains path.
func navClass(path, href string) string {
	if path == href || (href != "/" && strings.HasPrefix(path, href)) {
		return "active"
	}
	return ""
}

var funcs = template.FuncMap{
	"date":          displayDate,
	"categoryClass": categoryClass,
	"severityLevel": severityLevel,
	"severities":    severities,
	"navClass":      navClass,
	"notes":         Notes,
	"lines":         func(vals []string) string { return strings.Join(vals, "\n") },
	"pathEscape":    url.PathEscape,
	"kb":            func(n int) string { return fmt.Sprintf("%.0f KB", float64(n)/1024) },
}
