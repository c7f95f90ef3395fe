package analytics

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/medlog/analytics/templates"
	"github.com/eringen/medlog/visits"
)

// Source supplies a snapshot of one user's visits.
type Source interface {
	ListVisits(ctx context.Context, userID string) ([]visits.Visit, error)
}

// Layout wraps a page body in the site chrome.
type Layout func(c echo.Context, title string, body templ.Component) templ.Component

// Handler serves analytics as JSON and as HTML.
type Handler struct {
	source Source
	user   func(echo.Context) string
	layout Layout
	now    func() time.Time

	defaultRange Range // used when the request carries no range parameter
}

// NewHandler creates a handler reading visits from source. user extracts the
// current user id from the request; layout renders full pages.
func NewHandler(source Source, user func(echo.Context) string, layout Layout) *Handler {
	return &Handler{
		source:       source,
		user:         user,
		layout:       layout,
		now:          time.Now,
		defaultRange: DefaultRange,
	}
}

// WithClock replaces the wall clock used for "now".
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// WithDefaultRange sets the range shown when none is requested. Invalid
// ranges are ignored.
func (h *Handler) WithDefaultRange(r Range) *Handler {
	if r.Valid() {
		h.defaultRange = r
	}
	return h
}

// ReportResponse is the JSON response for the report endpoint.
type ReportResponse struct {
	Report *Report `json:"report"`
	Ranges []Range `json:"ranges"`
}

func (h *Handler) report(c echo.Context) (*Report, int, error) {
	r := h.defaultRange
	if q := c.QueryParam("range"); q != "" {
		r = ParseRange(q)
	}
	vs, err := h.source.ListVisits(c.Request().Context(), h.user(c))
	if err != nil {
		return nil, 0, err
	}
	return Compute(vs, r, h.now()), len(vs), nil
}

// GetReport returns the analytics report as JSON.
func (h *Handler) GetReport(c echo.Context) error {
	rep, _, err := h.report(c)
	if err != nil {
		c.Logger().Errorf("Failed to build report: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, ReportResponse{Report: rep, Ranges: Ranges()})
}

// GetDashboard returns the landing-page overview as JSON.
func (h *Handler) GetDashboard(c echo.Context) error {
	vs, err := h.source.ListVisits(c.Request().Context(), h.user(c))
	if err != nil {
		c.Logger().Errorf("Failed to build dashboard: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(http.StatusOK, Overview(vs, h.now()))
}

// GetReportFragment returns the report body as an HTML fragment.
func (h *Handler) GetReportFragment(c echo.Context) error {
	rep, total, err := h.report(c)
	if err != nil {
		c.Logger().Errorf("Failed to build report fragment: %v", err)
		return c.HTML(http.StatusInternalServerError, "<div class='loading'>Error loading data</div>")
	}
	vm := convertReportToViewModel(rep, total)
	return templates.ReportFragment(vm).Render(c.Request().Context(), c.Response())
}

// Page serves the full analytics page.
func (h *Handler) Page(c echo.Context) error {
	rep, total, err := h.report(c)
	if err != nil {
		return err
	}
	vm := convertReportToViewModel(rep, total)
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	return h.layout(c, "Health Analytics", templates.ReportPage(vm)).Render(c.Request().Context(), c.Response())
}

// RegisterRoutes registers analytics routes. authMiddleware guards every route.
func (h *Handler) RegisterRoutes(e *echo.Echo, authMiddleware echo.MiddlewareFunc) {
	api := e.Group("/api/analytics")
	api.Use(authMiddleware)
	api.GET("", h.GetReport)
	api.GET("/dashboard", h.GetDashboard)

	page := e.Group("/analytics")
	page.Use(authMiddleware)
	page.GET("/", h.Page)
	page.GET("/fragments/report", h.GetReportFragment)
}

// convertReportToViewModel converts a Report to templates.ReportViewModel.
// historySize is the number of visits before range filtering.
func convertReportToViewModel(rep *Report, historySize int) *templates.ReportViewModel {
	vm := &templates.ReportViewModel{
		RangeMonths:         rep.RangeMonths,
		Cutoff:              rep.Cutoff,
		HasHistory:          historySize > 0,
		HasVisits:           len(rep.Visits) > 0,
		TotalVisits:         rep.Summary.TotalVisits,
		AvgSymptomsPerVisit: rep.Summary.AvgSymptomsPerVisit,
		AvgSeverity:         rep.Summary.AvgSeverity,
		MostCommonCategory:  string(rep.Summary.MostCommonCategory),
		Disclaimer:          rep.Insights.Disclaimer,
	}

	for _, r := range Ranges() {
		vm.Ranges = append(vm.Ranges, templates.RangeOption{
			Value:    r.Months(),
			Label:    r.Label(),
			Selected: r.Months() == rep.RangeMonths,
		})
	}

	monthMax := 0
	for _, m := range rep.Monthly {
		monthMax = max(monthMax, m.Visits)
	}
	vm.Monthly = make([]templates.BarViewModel, len(rep.Monthly))
	for i, m := range rep.Monthly {
		vm.Monthly[i] = templates.BarViewModel{Label: m.Label, Value: m.Visits, Percent: percent(m.Visits, monthMax)}
	}

	catMax := 0
	for _, cc := range rep.Categories {
		catMax = max(catMax, cc.Count)
	}
	vm.Categories = make([]templates.BarViewModel, len(rep.Categories))
	for i, cc := range rep.Categories {
		vm.Categories[i] = templates.BarViewModel{Label: string(cc.Name), Value: cc.Count, Percent: percent(cc.Count, catMax)}
	}

	scMax := 0
	for _, s := range rep.SymptomCategories {
		scMax = max(scMax, s.Count)
	}
	vm.SymptomCategories = make([]templates.SeverityBarViewModel, len(rep.SymptomCategories))
	for i, s := range rep.SymptomCategories {
		vm.SymptomCategories[i] = templates.SeverityBarViewModel{
			Label:           string(s.Category),
			Count:           s.Count,
			AverageSeverity: s.AverageSeverity,
			CountPercent:    percent(s.Count, scMax),
			SeverityPercent: severityPercent(s.AverageSeverity),
		}
	}

	tsMax := 0
	for _, s := range rep.TopSymptoms {
		tsMax = max(tsMax, s.Count)
	}
	vm.TopSymptoms = make([]templates.SeverityBarViewModel, len(rep.TopSymptoms))
	for i, s := range rep.TopSymptoms {
		vm.TopSymptoms[i] = templates.SeverityBarViewModel{
			Label:           s.Name,
			Count:           s.Count,
			AverageSeverity: s.AverageSeverity,
			CountPercent:    percent(s.Count, tsMax),
			SeverityPercent: severityPercent(s.AverageSeverity),
		}
	}

	for _, in := range []Insight{rep.Insights.VisitPatterns, rep.Insights.CommonIssues, rep.Insights.SymptomAnalysis} {
		vm.Insights = append(vm.Insights, templates.InsightViewModel{Title: in.Title, Text: in.Text})
	}
	return vm
}

func percent(v, maxV int) int {
	if maxV == 0 {
		return 0
	}
	return v * 100 / maxV
}

// severityPercent maps a 1-10 severity to a bar width.
func severityPercent(avg float64) int {
	return int(math.Round(avg * 10))
}
