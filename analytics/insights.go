package analytics

import "fmt"

// Fallback texts used when an insight has nothing to report.
const (
	NoVisitPatternData = "Not enough data to analyze visit patterns."
	NoCommonIssueData  = "Not enough data to identify common health issues."
	NoSymptomData      = "Not enough symptom data for analysis."

	Disclaimer = "Note: These insights are based on your self-reported data and should not replace professional medical advice."
)

// Insight is one narrative sentence derived from a report.
type Insight struct {
	Title     string `json:"title"`
	Text      string `json:"text"`
	Available bool   `json:"available"`
}

// Insights groups the narrative sentences shown under the charts.
type Insights struct {
	VisitPatterns   Insight `json:"visit_patterns"`
	CommonIssues    Insight `json:"common_issues"`
	SymptomAnalysis Insight `json:"symptom_analysis"`
	Disclaimer      string  `json:"disclaimer"`
}

func buildInsights(rep *Report, r Range) Insights {
	return Insights{
		VisitPatterns:   visitPatternInsight(rep, r),
		CommonIssues:    commonIssueInsight(rep),
		SymptomAnalysis: symptomInsight(rep),
		Disclaimer:      Disclaimer,
	}
}

// AverageVisitsPerMonth divides the visit count by the smaller of the range
// length and the number of monthly buckets.
func AverageVisitsPerMonth(total int, r Range, buckets int) float64 {
	months := r.Months()
	if buckets < months {
		months = buckets
	}
	if months <= 0 {
		return 0
	}
	return round1(float64(total) / float64(months))
}

func visitPatternInsight(rep *Report, r Range) Insight {
	in := Insight{Title: "Visit Patterns", Text: NoVisitPatternData}
	populated := false
	for _, m := range rep.Monthly {
		if m.Visits > 0 {
			populated = true
			break
		}
	}
	if !populated {
		return in
	}
	avg := AverageVisitsPerMonth(len(rep.Visits), r, len(rep.Monthly))
	in.Text = fmt.Sprintf("You had an average of %.1f visits per month in the selected period.", avg)
	in.Available = true
	return in
}

func commonIssueInsight(rep *Report) Insight {
	in := Insight{Title: "Common Health Issues", Text: NoCommonIssueData}
	if len(rep.Categories) == 0 {
		return in
	}
	top := rep.Categories[0]
	in.Text = fmt.Sprintf("Your most common health issue was %q with %d occurrences.", string(top.Name), top.Count)
	in.Available = true
	return in
}

func symptomInsight(rep *Report) Insight {
	in := Insight{Title: "Symptom Analysis", Text: NoSymptomData}
	if len(rep.TopSymptoms) == 0 {
		return in
	}
	top := rep.TopSymptoms[0]
	in.Text = fmt.Sprintf("Your most frequently reported symptom was %q with an average severity of %.1f/10.", top.Name, top.AverageSeverity)
	in.Available = true
	return in
}
