package providers

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-bootstrap/framework/config"
	"github.com/km-arc/go-bootstrap/framework/container"
	"github.com/km-arc/go-bootstrap/framework/ioc"
	"github.com/km-arc/go-bootstrap/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration and binds it
// into the container.
//
// Bound abstracts:
//   - "config"            → *config.Config
//   - "configuration"     → alias of "config"
//   - "config.repository" → *config.Repository (env files + YAML in Dir)
//
// Laravel equivalent:
//
//	// Illuminate\Foundation\Bootstrap\LoadConfiguration
//	$app->singleton('config', fn() => new Repository($items));
type ConfigServiceProvider struct {
	container.BaseProvider
	EnvFiles []string
	Dir      string // YAML config directory, skipped when empty or missing
}

func (p *ConfigServiceProvider) Register(app *container.Container) {
	envFiles := p.EnvFiles
	dir := p.Dir

	app.Singleton("config", func(c *container.Container) (any, error) {
		return config.Load(envFiles...), nil
	})
	app.Alias("config", "configuration")

	app.Singleton("config.repository", func(c *container.Container) (any, error) {
		cfg, err := container.Resolve[*config.Config](c, "config")
		if err != nil {
			return nil, err
		}
		repo := config.NewRepository()
		repo.Set("app.name", cfg.App.Name)
		repo.Set("app.env", cfg.App.Env)
		repo.Set("app.debug", cfg.App.Debug)
		repo.Set("app.url", cfg.App.URL)
		repo.Set("app.port", cfg.App.Port)
		repo.Set("database.driver", cfg.DB.Driver)
		repo.Set("database.database", cfg.DB.Database)
		repo.Set("log.level", cfg.Log.Level)

		if existing := existingFiles(envFiles); len(existing) > 0 {
			if err := repo.LoadEnv(existing...); err != nil {
				return nil, err
			}
		}
		if dir != "" {
			if _, err := os.Stat(dir); err == nil {
				if err := repo.LoadDir(dir); err != nil {
					return nil, err
				}
			}
		}
		return repo, nil
	})
}

func existingFiles(files []string) []string {
	var out []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// ── LogServiceProvider ────────────────────────────────────────────────────────

// LogServiceProvider registers the structured logger.
//
// Bound abstracts:
//   - "log" → *zap.Logger (development encoder when APP_DEBUG, JSON otherwise)
//
// The logger is synced when the container is torn down. With
// LOG_RESOLUTIONS set, Boot logs every container resolution.
//
// Laravel equivalent:
//
//	// Illuminate\Log\LogServiceProvider
//	$app->singleton('log', fn($app) => new LogManager($app));
type LogServiceProvider struct {
	container.BaseProvider
	// Logger overrides the configured logger, e.g. zaptest in tests.
	Logger *zap.Logger
}

func (p *LogServiceProvider) Register(app *container.Container) {
	override := p.Logger
	app.Singleton("log", func(c *container.Container) (any, error) {
		if override != nil {
			return override, nil
		}
		cfg, err := container.Resolve[*config.Config](c, "config")
		if err != nil {
			return nil, err
		}
		return NewLogger(cfg)
	}).OnDeactivation(func(v any) error {
		return syncLogger(v.(*zap.Logger))
	})
}

func (p *LogServiceProvider) Boot(app *container.Container) error {
	cfg, err := container.Resolve[*config.Config](app, "config")
	if err != nil {
		return err
	}
	if !cfg.Log.Resolutions {
		return nil
	}
	logger, err := container.Resolve[*zap.Logger](app, "log")
	if err != nil {
		return err
	}
	app.IOC().ApplyMiddleware(ioc.LoggingMiddleware(logger.Named("container")))
	return nil
}

// NewLogger builds a zap logger from the application config.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.App.Debug {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	return logger.With(zap.String("app", cfg.App.Name)), nil
}

// syncLogger flushes l. Syncing a terminal fails with EINVAL or ENOTTY,
// which is not an error worth reporting.
func syncLogger(l *zap.Logger) error {
	err := l.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

// ── DatabaseServiceProvider ───────────────────────────────────────────────────

// DatabaseServiceProvider registers the SQL connection pool. It is
// deferred: nothing is opened until "db" is first resolved.
//
// Bound abstracts:
//   - "db" → *sql.DB (DB_DRIVER, DB_DATABASE; sqlite3 by default)
//
// The pool is closed when the container is torn down.
//
// Laravel equivalent:
//
//	// Illuminate\Database\DatabaseServiceProvider
//	$app->singleton('db', fn($app) => new DatabaseManager($app, $app['db.factory']));
type DatabaseServiceProvider struct {
	container.BaseProvider
}

func (p *DatabaseServiceProvider) IsDeferred() bool   { return true }
func (p *DatabaseServiceProvider) Provides() []string { return []string{"db"} }

func (p *DatabaseServiceProvider) Register(app *container.Container) {
	app.Singleton("db", func(c *container.Container) (any, error) {
		cfg, err := container.Resolve[*config.Config](c, "config")
		if err != nil {
			return nil, err
		}
		db, err := sql.Open(cfg.DB.Driver, cfg.DB.Database)
		if err != nil {
			return nil, fmt.Errorf("db: opening %s: %w", cfg.DB.Driver, err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db: ping %s: %w", cfg.DB.Driver, err)
		}
		return db, nil
	}).OnDeactivation(func(v any) error {
		return v.(*sql.DB).Close()
	})
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router.
//
// Bound abstracts:
//   - "router" → *routing.Router
//
// In debug mode Boot mounts container diagnostics under /_container.
//
// Laravel equivalent:
//
//	// Illuminate\Routing\RoutingServiceProvider
//	$app->singleton('router', fn($app) => new Router($app['events'], $app));
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) {
	app.Singleton("router", func(c *container.Container) (any, error) {
		return routing.New(app), nil
	})
}

func (p *RoutingServiceProvider) Boot(app *container.Container) error {
	cfg, err := container.Resolve[*config.Config](app, "config")
	if err != nil {
		return err
	}
	if !cfg.App.Debug {
		return nil
	}
	router, err := container.Resolve[*routing.Router](app, "router")
	if err != nil {
		return err
	}
	router.Introspect("/_container")
	return nil
}
