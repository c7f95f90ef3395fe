package medlog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/medlog/visits"
)

func (a *App) apiListVisits(c echo.Context) error {
	vs, err := a.Cache.ListVisits(c.Request().Context(), CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, visits.Search(vs, visits.Query{
		Term:     c.QueryParam("q"),
		Category: visits.Category(c.QueryParam("category")),
	}))
}

func (a *App) apiGetVisit(c echo.Context) error {
	v, err := a.Cache.GetVisit(c.Request().Context(), CurrentUser(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

// apiCreateVisit stores a new visit. Server-owned fields (id, owner,
// creation time, attachments) in the body are ignored.
func (a *App) apiCreateVisit(c echo.Context) error {
	var v visits.Visit
	if err := bindJSON(c, &v); err != nil {
		return err
	}
	v.ID = visits.NewID()
	v.UserID = CurrentUser(c)
	v.CreatedAt = a.now().UTC()
	v.Attachments = nil
	v = visits.Normalize(v)
	if err := visits.Validate(v); err != nil {
		return err
	}
	if err := a.Cache.SaveVisit(c.Request().Context(), v); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, v)
}

func (a *App) apiPatchVisit(c echo.Context) error {
	var p visits.Patch
	if err := bindJSON(c, &p); err != nil {
		return err
	}
	ctx := c.Request().Context()
	v, err := a.Cache.GetVisit(ctx, CurrentUser(c), c.Param("id"))
	if err != nil {
		return err
	}
	v = visits.Normalize(visits.Apply(v, p))
	if err := visits.Validate(v); err != nil {
		return err
	}
	if err := a.Cache.SaveVisit(ctx, v); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (a *App) apiDeleteVisit(c echo.Context) error {
	if err := a.deleteVisit(c, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
