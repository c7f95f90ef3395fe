// Package templates contains view model types and components for the
// analytics pages. These types mirror the analytics types to avoid import
// cycles.
package templates

// ReportViewModel represents an analytics report for templating.
type ReportViewModel struct {
	RangeMonths         int
	Cutoff              string
	Ranges              []RangeOption
	HasHistory          bool // the user has recorded any visit at all
	HasVisits           bool // the selected range contains visits
	TotalVisits         int
	AvgSymptomsPerVisit float64
	AvgSeverity         float64
	MostCommonCategory  string
	Monthly             []BarViewModel
	Categories          []BarViewModel
	SymptomCategories   []SeverityBarViewModel
	TopSymptoms         []SeverityBarViewModel
	Insights            []InsightViewModel
	Disclaimer          string
}

// RangeOption is one entry of the time-range selector.
type RangeOption struct {
	Value    int
	Label    string
	Selected bool
}

// BarViewModel is one bar of a count chart.
type BarViewModel struct {
	Label   string
	Value   int
	Percent int // bar width relative to the largest value
}

// SeverityBarViewModel pairs an occurrence count with an average severity.
type SeverityBarViewModel struct {
	Label           string
	Count           int
	AverageSeverity float64
	CountPercent    int
	SeverityPercent int
}

// InsightViewModel is one narrative insight.
type InsightViewModel struct {
	Title string
	Text  string
}
