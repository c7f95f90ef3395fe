// Package medlog is a personal medical-visit tracker built with Go, Echo, and
// templ. It records doctor visits with their symptoms, medications and test
// results, and reports on them through the analytics package.
//
// Callers provide the templ components via the ViewFuncs struct; medlog owns
// the handler logic, middleware, identity and storage.
package medlog

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/medlog/analytics"
	"github.com/eringen/medlog/pgstore"
	"github.com/eringen/medlog/visits"
)

// App is the central medlog application. It wires together the repository,
// cache, handlers, middleware, and caller-provided templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Cache  *VisitCache
	Views  ViewFuncs

	repo         visits.Repository
	closeRepo    func() error
	now          func() time.Time
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	ready        bool
}

// New creates a new medlog App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views,
		now:    time.Now,
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the repository and sets up the cache, middleware and routes.
// Start calls it; tests call it directly and serve a.Echo.
func (a *App) Init() error {
	if a.ready {
		return nil
	}
	if err := a.Config.validate(); err != nil {
		return err
	}

	if a.repo == nil {
		repo, closeRepo, err := openRepository(a.Config)
		if err != nil {
			return fmt.Errorf("medlog: init store: %w", err)
		}
		a.repo = repo
		a.closeRepo = closeRepo
	}

	a.Cache = NewVisitCache(a.repo, a.Config.VisitCacheTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start initializes the app and starts the server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// OpenRepository opens the store selected by cfg.Driver. The returned func
// closes it.
func OpenRepository(cfg SiteConfig) (visits.Repository, func() error, error) {
	cfg.setDefaults()
	return openRepository(cfg)
}

func openRepository(cfg SiteConfig) (visits.Repository, func() error, error) {
	switch cfg.Driver {
	case DriverPostgres:
		s, err := pgstore.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case DriverSQLite:
		s, err := NewStore(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Stylesheet and the fragment loader ship inside the binary.
	assets, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.StaticFS("/public", assets)

	e.GET("/login/", a.handleLoginPage)
	e.POST("/login/", a.handleLogin)
	e.POST("/logout/", handleLogout)

	e.GET("/", a.handleDashboard, requireUser)
	e.GET("/visits/", a.handleHistory, requireUser)
	e.GET("/visits/new/", a.handleNewVisit, requireUser)
	e.GET("/visits/:id/edit/", a.handleEditVisit, requireUser)
	e.POST("/visits/save/", a.handleSaveVisit, requireUser)
	e.DELETE("/visits/:id/", a.handleDeleteVisit, requireUser)
	e.POST("/visits/:id/attachments/", a.handleAttachmentUpload, requireUser)
	e.DELETE("/visits/:id/attachments/:file/", a.handleAttachmentDelete, requireUser)
	e.GET("/uploads/:file", a.handleAttachmentFile, requireUser)

	api := e.Group("/api/visits", requireUser)
	api.GET("", a.apiListVisits)
	api.POST("", a.apiCreateVisit)
	api.GET("/:id", a.apiGetVisit)
	api.PATCH("/:id", a.apiPatchVisit)
	api.DELETE("/:id", a.apiDeleteVisit)

	analytics.NewHandler(a.Cache, CurrentUser, a.page).
		WithClock(a.now).
		WithDefaultRange(analytics.Range(a.Config.DefaultRangeMonths)).
		RegisterRoutes(e, requireUser)
}

// Repository returns the store behind the cache.
func (a *App) Repository() visits.Repository {
	return a.repo
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.closeRepo != nil {
		return a.closeRepo()
	}
	return nil
}
