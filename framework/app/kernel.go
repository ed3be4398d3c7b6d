package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-bootstrap/framework/config"
	"github.com/km-arc/go-bootstrap/framework/container"
	"github.com/km-arc/go-bootstrap/framework/ioc"
	"github.com/km-arc/go-bootstrap/framework/providers"
	"github.com/km-arc/go-bootstrap/framework/routing"
)

// Application is the top-level application container.
// It embeds the IoC Container and ProviderRegistry so user code can
// call app.Bind(), app.Singleton(), app.Register() directly,
// exactly like $app in Laravel's bootstrap/app.php.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry
}

// Option configures New.
type Option func(*options)

type options struct {
	envFiles  []string
	configDir string
	logger    *zap.Logger
	providers []container.ServiceProvider
}

// WithEnvFiles replaces the default ".env".
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = files }
}

// WithConfigDir loads every YAML file of dir into "config.repository".
func WithConfigDir(dir string) Option {
	return func(o *options) { o.configDir = dir }
}

// WithLogger binds logger as "log" instead of building one from config.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithProviders registers extra providers after the framework ones.
func WithProviders(ps ...container.ServiceProvider) Option {
	return func(o *options) { o.providers = append(o.providers, ps...) }
}

// New creates the application and registers the framework providers (same
// order as Laravel). The root container takes its options from CONTAINER_*
// environment variables.
func New(opts ...Option) (*Application, error) {
	o := options{configDir: "config"}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := config.Load(o.envFiles...)
	iocOpts, err := containerOptions(cfg.Container)
	if err != nil {
		return nil, err
	}
	if o.logger != nil {
		iocOpts = append(iocOpts, ioc.WithLogger(o.logger.Named("ioc")))
	}

	c := container.New(iocOpts...)
	app := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
	}
	c.Instance("app", app)

	core := []container.ServiceProvider{
		&providers.ConfigServiceProvider{EnvFiles: o.envFiles, Dir: o.configDir},
		&providers.LogServiceProvider{Logger: o.logger},
		&providers.DatabaseServiceProvider{},
		&providers.RoutingServiceProvider{},
	}
	for _, p := range append(core, o.providers...) {
		if err := app.Register(p); err != nil {
			return nil, err
		}
	}
	return app, nil
}

func containerOptions(cfg config.ContainerConfig) ([]ioc.Option, error) {
	var opts []ioc.Option
	switch cfg.DefaultScope {
	case "", "transient":
	case "singleton":
		opts = append(opts, ioc.WithDefaultScope(ioc.Singleton))
	case "request":
		opts = append(opts, ioc.WithDefaultScope(ioc.RequestScope))
	default:
		return nil, fmt.Errorf("app: unknown container scope %q", cfg.DefaultScope)
	}
	if cfg.SkipBaseClassChecks {
		opts = append(opts, ioc.WithSkipBaseClassChecks())
	}
	if cfg.AutoBindInjectable {
		opts = append(opts, ioc.WithAutoBindInjectable())
	}
	return opts, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot() error {
	return a.Providers.Boot()
}

// Shutdown tears the container down: every resolved singleton runs its
// deactivation chain (logger sync, database close, ...). Failures are
// joined.
func (a *Application) Shutdown(ctx context.Context) error {
	return a.IOC().UnbindAllAsync(ctx)
}

// Config resolves *config.Config from the container.
func (a *Application) Config() *config.Config {
	return container.MustResolve[*config.Config](a.Container, "config")
}

// Router resolves *routing.Router from the container.
func (a *Application) Router() *routing.Router {
	return container.MustResolve[*routing.Router](a.Container, "router")
}

// Logger resolves the "log" logger.
func (a *Application) Logger() *zap.Logger {
	return container.MustResolve[*zap.Logger](a.Container, "log")
}

// Run boots the application (if needed) and serves HTTP on APP_PORT until
// ctx is cancelled, then shuts the server and the container down.
func (a *Application) Run(ctx context.Context) error {
	if !a.Providers.Booted() {
		if err := a.Boot(); err != nil {
			return err
		}
	}
	cfg := a.Config()
	logger := a.Logger()
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("serving",
		zap.String("addr", "http://localhost"+srv.Addr), zap.String("env", cfg.App.Env))
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	var serveErr error
	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		serveErr = srv.Shutdown(shutdownCtx)
	}
	return errors.Join(serveErr, a.Shutdown(context.WithoutCancel(ctx)))
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config().App.Debug }
func (a *Application) Version() string     { return "0.1.0" }

// ── Context ───────────────────────────────────────────────────────────────────

type appKey struct{}

// WithContext returns a copy of ctx carrying a.
func WithContext(ctx context.Context, a *Application) context.Context {
	return context.WithValue(ctx, appKey{}, a)
}

// FromContext returns the application carried by ctx.
func FromContext(ctx context.Context) (*Application, bool) {
	a, ok := ctx.Value(appKey{}).(*Application)
	return a, ok
}
