package medlog

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/eringen/medlog/analytics"
	"github.com/eringen/medlog/visits"
)

// blankSymptomRows is how many empty symptom rows the form offers.
const blankSymptomRows = 3

func (a *App) handleDashboard(c echo.Context) error {
	vs, err := a.Cache.ListVisits(c.Request().Context(), CurrentUser(c))
	if err != nil {
		return err
	}
	return Render(c, a.page(c, "Dashboard", a.Views.Dashboard(analytics.Overview(vs, a.now()))))
}

func (a *App) handleHistory(c echo.Context) error {
	vs, err := a.Cache.ListVisits(c.Request().Context(), CurrentUser(c))
	if err != nil {
		return err
	}
	q := visits.Query{
		Term:     c.QueryParam("q"),
		Category: visits.Category(c.QueryParam("category")),
	}
	return Render(c, a.page(c, "Visit History", a.Views.History(HistoryPage{
		Visits:     visits.Search(vs, q),
		Total:      len(vs),
		Query:      q.Term,
		Category:   q.Category,
		Categories: visits.DistinctCategories(vs),
		Message:    c.QueryParam("msg"),
		CSRFToken:  CsrfToken(c),
	})))
}

func (a *App) handleNewVisit(c echo.Context) error {
	v := visits.Visit{
		Date:     visits.FormatDate(a.now()),
		Category: visits.CategoryCheckup,
	}
	return a.renderVisitForm(c, http.StatusOK, v, true, nil)
}

func (a *App) handleEditVisit(c echo.Context) error {
	v, err := a.Cache.GetVisit(c.Request().Context(), CurrentUser(c), c.Param("id"))
	if err != nil {
		return err
	}
	return a.renderVisitForm(c, http.StatusOK, v, false, nil)
}

func (a *App) handleSaveVisit(c echo.Context) error {
	ctx := c.Request().Context()
	user := CurrentUser(c)
	v, err := parseVisitForm(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	isNew := v.ID == ""
	if isNew {
		v.ID = visits.NewID()
		v.CreatedAt = a.now().UTC()
	} else {
		existing, err := a.Cache.GetVisit(ctx, user, v.ID)
		if err != nil {
			return err
		}
		v.CreatedAt = existing.CreatedAt
		v.Attachments = existing.Attachments
	}
	v.UserID = user
	v = visits.Normalize(v)

	if err := visits.Validate(v); err != nil {
		var verr *visits.ValidationError
		if errors.As(err, &verr) {
			if isNew {
				v.ID = ""
			}
			return a.renderVisitForm(c, http.StatusUnprocessableEntity, v, isNew, verr.Fields)
		}
		return err
	}
	if err := a.Cache.SaveVisit(ctx, v); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/visits/?msg="+url.QueryEscape("Visit saved."))
}

func (a *App) handleDeleteVisit(c echo.Context) error {
	if err := a.deleteVisit(c, c.Param("id")); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/visits/?msg="+url.QueryEscape("Visit deleted."))
}

// deleteVisit removes a visit of the current user together with its
// attachment files.
func (a *App) deleteVisit(c echo.Context, id string) error {
	ctx := c.Request().Context()
	user := CurrentUser(c)
	v, err := a.Cache.GetVisit(ctx, user, id)
	if err != nil {
		return err
	}
	if err := a.Cache.DeleteVisit(ctx, user, id); err != nil {
		return err
	}
	for _, att := range v.Attachments {
		if err := a.removeAttachmentFile(user, att.Filename); err != nil {
			c.Logger().Errorf("remove attachment %s: %v", att.Filename, err)
		}
	}
	return nil
}

func (a *App) renderVisitForm(c echo.Context, code int, v visits.Visit, isNew bool, errs map[string]string) error {
	for i := 0; i < blankSymptomRows; i++ {
		v.Symptoms = append(v.Symptoms, visits.Symptom{
			Severity: visits.DefaultSeverity,
			Category: visits.SymptomGeneral,
		})
	}
	title := "Edit Visit"
	if isNew {
		title = "Add New Visit"
	}
	return RenderStatus(c, code, a.page(c, title, a.Views.VisitForm(VisitFormPage{
		Visit:             v,
		IsNew:             isNew,
		Errors:            errs,
		Categories:        visits.Categories(),
		SymptomCategories: visits.SymptomCategories(),
		CSRFToken:         CsrfToken(c),
	})))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var verr *visits.ValidationError
	if errors.As(err, &verr) {
		_ = c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		msg = http.StatusText(code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	case errors.Is(err, visits.ErrNotFound):
		code = http.StatusNotFound
		msg = err.Error()
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		msg = "Internal server error"
	}

	if isAPI(c) {
		_ = c.JSON(code, map[string]string{"error": msg})
		return
	}
	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, a.page(c, "Not Found", a.Views.NotFound()))
	case code >= 500:
		_ = RenderStatus(c, code, a.page(c, "Server Error", a.Views.ServerError()))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
