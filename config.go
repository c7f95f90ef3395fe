package medlog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eringen/medlog/visits"
)

// Storage drivers accepted in SiteConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SiteConfig holds all configuration for a medlog instance.
type SiteConfig struct {
	Name string `yaml:"name"` // Site name (default "Medlog")
	URL  string `yaml:"url"`  // Canonical URL (default "http://localhost:3000")
	Addr string `yaml:"addr"` // Listen address (default ":3000")

	Driver       string `yaml:"driver"`        // "sqlite" (default) or "postgres"
	DatabasePath string `yaml:"database_path"` // SQLite path (default "data/medlog.db")
	PostgresDSN  string `yaml:"postgres_dsn"`  // Required when Driver is "postgres"
	UploadsDir   string `yaml:"uploads_dir"`   // Attachment directory (default "data/uploads")

	SessionSecret string `yaml:"session_secret"` // Required: session encryption secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS

	VisitCacheTTL      time.Duration `yaml:"visit_cache_ttl"`      // Per-user visit cache TTL (default 5min)
	DefaultRangeMonths int           `yaml:"default_range_months"` // Analytics range when none is chosen (default 6)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Medlog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/medlog.db"
	}
	if c.UploadsDir == "" {
		c.UploadsDir = "data/uploads"
	}
	if c.VisitCacheTTL == 0 {
		c.VisitCacheTTL = 5 * time.Minute
	}
	if c.DefaultRangeMonths == 0 {
		c.DefaultRangeMonths = 6
	}
}

func (c *SiteConfig) validate() error {
	if c.SessionSecret == "" {
		return errors.New("medlog: SessionSecret is required")
	}
	switch c.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("medlog: PostgresDSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("medlog: unknown driver %q", c.Driver)
	}
	return nil
}

// LoadConfig reads the YAML file at path, when it exists, and then applies
// MEDLOG_* environment overrides. An empty path skips the file.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("medlog: read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("medlog: parse config %s: %w", path, err)
			}
		}
	}

	cfg.Name = EnvOr("MEDLOG_NAME", cfg.Name)
	cfg.URL = EnvOr("MEDLOG_URL", cfg.URL)
	cfg.Addr = EnvOr("MEDLOG_ADDR", cfg.Addr)
	cfg.Driver = EnvOr("MEDLOG_DRIVER", cfg.Driver)
	cfg.DatabasePath = EnvOr("MEDLOG_DATABASE_PATH", cfg.DatabasePath)
	cfg.PostgresDSN = EnvOr("MEDLOG_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.UploadsDir = EnvOr("MEDLOG_UPLOADS_DIR", cfg.UploadsDir)
	cfg.SessionSecret = EnvOr("MEDLOG_SESSION_SECRET", cfg.SessionSecret)

	if v := os.Getenv("MEDLOG_COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("medlog: MEDLOG_COOKIE_SECURE: %w", err)
		}
		cfg.CookieSecure = b
	}
	if v := os.Getenv("MEDLOG_VISIT_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("medlog: MEDLOG_VISIT_CACHE_TTL: %w", err)
		}
		cfg.VisitCacheTTL = d
	}
	if v := os.Getenv("MEDLOG_DEFAULT_RANGE_MONTHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("medlog: MEDLOG_DEFAULT_RANGE_MONTHS: %w", err)
		}
		cfg.DefaultRangeMonths = n
	}

	cfg.setDefaults()
	return cfg, nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Option configures additional App behavior.
type Option func(*App)

// WithRepository replaces the store selected by Driver. The App does not
// close a repository supplied this way.
func WithRepository(repo visits.Repository) Option {
	return func(a *App) {
		a.repo = repo
	}
}

// WithClock replaces the wall clock used for dashboards and reports.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
