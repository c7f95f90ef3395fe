// Package analytics derives statistics and chart series from a user's visit
// history. Compute is a pure function of its inputs; the HTTP handler and
// view models built on top of it live alongside.
package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/eringen/medlog/visits"
)

// MaxTopSymptoms caps the top-symptoms list.
const MaxTopSymptoms = 10

// Report holds everything derived from one visit snapshot and range.
type Report struct {
	RangeMonths       int                   `json:"range_months"`
	Cutoff            string                `json:"cutoff"`
	GeneratedAt       time.Time             `json:"generated_at"`
	Visits            []visits.Visit        `json:"-"`
	Monthly           []MonthlyCount        `json:"monthly"`
	Categories        []CategoryCount       `json:"categories"`
	SymptomCategories []SymptomCategoryStat `json:"symptom_categories"`
	TopSymptoms       []SymptomStat         `json:"top_symptoms"`
	Summary           Summary               `json:"summary"`
	Insights          Insights              `json:"insights"`
}

// MonthlyCount is the number of visits in one calendar month.
type MonthlyCount struct {
	Month  string `json:"month"` // 2006-01
	Label  string `json:"label"` // Jan 2006
	Visits int    `json:"visits"`
}

// CategoryCount is the number of visits in one visit category.
type CategoryCount struct {
	Name  visits.Category `json:"name"`
	Count int             `json:"count"`
}

// SymptomCategoryStat aggregates named symptoms of one symptom category.
type SymptomCategoryStat struct {
	Category        visits.SymptomCategory `json:"category"`
	Count           int                    `json:"count"`
	AverageSeverity float64                `json:"average_severity"`
}

// SymptomStat aggregates occurrences of one symptom name.
type SymptomStat struct {
	Name            string  `json:"name"`
	Count           int     `json:"count"`
	AverageSeverity float64 `json:"average_severity"`
}

// Summary holds the headline numbers.
type Summary struct {
	TotalVisits         int             `json:"total_visits"`
	AvgSymptomsPerVisit float64         `json:"avg_symptoms_per_visit"`
	AvgSeverity         float64         `json:"avg_severity"`
	MostCommonCategory  visits.Category `json:"most_common_category"`
}

// datedVisit pairs a visit with its parsed date in the caller's location.
type datedVisit struct {
	visit visits.Visit
	date  time.Time
}

// Compute filters vs to r relative to now and aggregates the result. Visits
// with a missing or malformed date are skipped. Identical inputs always
// produce identical reports.
func Compute(vs []visits.Visit, r Range, now time.Time) *Report {
	if !r.Valid() {
		r = DefaultRange
	}
	cutoff := r.Cutoff(now)
	filtered := filterSince(vs, cutoff, now.Location())

	report := &Report{
		RangeMonths: r.Months(),
		Cutoff:      visits.FormatDate(cutoff),
		GeneratedAt: now,
		Visits:      make([]visits.Visit, len(filtered)),
	}
	for i, dv := range filtered {
		report.Visits[i] = dv.visit
	}
	report.Monthly = monthlySeries(filtered, now)
	report.Categories = categoryDistribution(report.Visits)
	report.SymptomCategories = symptomCategoryDistribution(report.Visits)
	report.TopSymptoms = topSymptoms(report.Visits, MaxTopSymptoms)
	report.Summary = summarize(report.Visits, report.Categories)
	report.Insights = buildInsights(report, r)
	return report
}

// filterSince keeps visits dated on or after cutoff. Visit dates are calendar
// dates and are placed at midnight in loc before comparing.
func filterSince(vs []visits.Visit, cutoff time.Time, loc *time.Location) []datedVisit {
	var out []datedVisit
	for _, v := range vs {
		d, ok := v.VisitDate()
		if !ok {
			continue
		}
		local := inLocation(d, loc)
		if local.Before(cutoff) {
			continue
		}
		out = append(out, datedVisit{visit: v, date: local})
	}
	return out
}

// monthlySeries counts visits per calendar month from the earliest visit's
// month through the current month, with zero entries for empty months. A
// visit dated after the current month extends the series so every filtered
// visit lands in a bucket.
func monthlySeries(dvs []datedVisit, now time.Time) []MonthlyCount {
	if len(dvs) == 0 {
		return []MonthlyCount{}
	}
	first := startOfMonth(dvs[0].date)
	last := startOfMonth(now)
	counts := make(map[string]int)
	for _, dv := range dvs {
		m := startOfMonth(dv.date)
		if m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
		counts[m.Format("2006-01")]++
	}

	var series []MonthlyCount
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		key := m.Format("2006-01")
		series = append(series, MonthlyCount{
			Month:  key,
			Label:  m.Format("Jan 2006"),
			Visits: counts[key],
		})
	}
	return series
}

// categoryDistribution counts visits per category, most frequent first. Ties
// keep the order in which categories first appear in vs.
func categoryDistribution(vs []visits.Visit) []CategoryCount {
	idx := make(map[visits.Category]int)
	out := []CategoryCount{}
	for _, v := range vs {
		i, ok := idx[v.Category]
		if !ok {
			i = len(out)
			idx[v.Category] = i
			out = append(out, CategoryCount{Name: v.Category})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

type severityTally struct {
	count int
	total int
}

func (t severityTally) mean() float64 {
	if t.count == 0 {
		return 0
	}
	return round1(float64(t.total) / float64(t.count))
}

// symptomCategoryDistribution aggregates named symptoms by category in order
// of first appearance. Symptoms without a category count as General.
func symptomCategoryDistribution(vs []visits.Visit) []SymptomCategoryStat {
	idx := make(map[visits.SymptomCategory]int)
	var order []visits.SymptomCategory
	var tallies []severityTally
	for _, v := range vs {
		for _, s := range v.NamedSymptoms() {
			if s.Category == "" {
				s.Category = visits.SymptomGeneral
			}
			i, ok := idx[s.Category]
			if !ok {
				i = len(order)
				idx[s.Category] = i
				order = append(order, s.Category)
				tallies = append(tallies, severityTally{})
			}
			tallies[i].count++
			tallies[i].total += s.Severity
		}
	}
	out := make([]SymptomCategoryStat, len(order))
	for i, c := range order {
		out[i] = SymptomCategoryStat{
			Category:        c,
			Count:           tallies[i].count,
			AverageSeverity: tallies[i].mean(),
		}
	}
	return out
}

// topSymptoms aggregates named symptoms by name, most frequent first, and
// keeps at most limit entries. Ties keep first-appearance order.
func topSymptoms(vs []visits.Visit, limit int) []SymptomStat {
	idx := make(map[string]int)
	var names []string
	var tallies []severityTally
	for _, v := range vs {
		for _, s := range v.NamedSymptoms() {
			name := strings.TrimSpace(s.Name)
			i, ok := idx[name]
			if !ok {
				i = len(names)
				idx[name] = i
				names = append(names, name)
				tallies = append(tallies, severityTally{})
			}
			tallies[i].count++
			tallies[i].total += s.Severity
		}
	}
	out := make([]SymptomStat, len(names))
	for i, n := range names {
		out[i] = SymptomStat{Name: n, Count: tallies[i].count, AverageSeverity: tallies[i].mean()}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func summarize(vs []visits.Visit, categories []CategoryCount) Summary {
	var all severityTally
	for _, v := range vs {
		for _, s := range v.NamedSymptoms() {
			all.count++
			all.total += s.Severity
		}
	}
	sum := Summary{
		TotalVisits: len(vs),
		AvgSeverity: all.mean(),
	}
	if len(vs) > 0 {
		sum.AvgSymptomsPerVisit = round1(float64(all.count) / float64(len(vs)))
	}
	if len(categories) > 0 {
		sum.MostCommonCategory = categories[0].Name
	}
	return sum
}

// round1 rounds to one decimal place, halves away from zero.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
