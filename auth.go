package medlog

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/medlog/visits"
)

func (a *App) handleLoginPage(c echo.Context) error {
	if CurrentUser(c) != "" {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return Render(c, a.page(c, "Sign In", a.Views.Login(LoginPage{CSRFToken: CsrfToken(c)})))
}

// handleLogin stores the user id derived from the submitted email in the
// session. This identifies whose records to show; it does not authenticate.
func (a *App) handleLogin(c echo.Context) error {
	if !a.loginLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many sign-in attempts. Try again later.")
	}
	raw := strings.TrimSpace(c.FormValue("email"))
	email, err := visits.ParseEmail(raw)
	if err != nil {
		return RenderStatus(c, http.StatusUnprocessableEntity, a.page(c, "Sign In", a.Views.Login(LoginPage{
			Email:     raw,
			Error:     "Enter a valid email address.",
			CSRFToken: CsrfToken(c),
		})))
	}
	if err := setUserSession(c, visits.UserIDFromEmail(email), email); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func handleLogout(c echo.Context) error {
	if err := clearUserSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/login/")
}
