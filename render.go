package medlog

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// page wraps body in the layout for the current request.
func (a *App) page(c echo.Context, title string, body templ.Component) templ.Component {
	return a.Views.Layout(a.pageMeta(c, title), body)
}

func (a *App) pageMeta(c echo.Context, title string) PageMeta {
	id := CurrentUser(c)
	return PageMeta{
		SiteName:  a.Config.Name,
		Title:     title,
		UserEmail: currentEmail(c),
		SignedIn:  id != "",
		CSRFToken: CsrfToken(c),
		Path:      c.Request().URL.Path,
	}
}
