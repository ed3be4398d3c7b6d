package container

import (
	"fmt"
	"sync"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider mirrors Laravel's Illuminate\Support\ServiceProvider.
//
// Boot is called after ALL providers have been registered, making it safe
// to resolve other bindings inside Boot.
//
//	// Laravel:
//	// class AppServiceProvider extends ServiceProvider {
//	//     public function register(): void { $this->app->singleton(...); }
//	//     public function boot(): void     { /* use resolved services */ }
//	// }
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) {
//	    app.Singleton("mailer", func(c *container.Container) (any, error) {
//	        repo, err := container.Resolve[*config.Repository](c, "config.repository")
//	        if err != nil {
//	            return nil, err
//	        }
//	        return mail.NewSMTP(repo.GetString("mail.host", "localhost")), nil
//	    })
//	}
type ServiceProvider interface {
	// Register binds services into the container.
	// Do NOT resolve other bindings here; use Boot for that.
	Register(app *Container)

	// Boot is called after all providers are registered.
	Boot(app *Container) error

	// Provides lists the abstracts a deferred provider registers.
	//
	//	// Laravel: public function provides(): array { return [Cache::class]; }
	Provides() []string

	// IsDeferred reports whether the provider is registered lazily, on the
	// first resolution of one of its Provides abstracts.
	//
	//	// Laravel: protected $defer = true;
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op Boot, Provides and
// IsDeferred.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(app *container.Container) { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []string      { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred (lazy) providers.
//
// It mirrors Laravel's Application::registerConfiguredProviders and
// Application::bootProviders.
type ProviderRegistry struct {
	mu         sync.Mutex
	app        *Container
	eager      []ServiceProvider
	deferred   map[string]ServiceProvider // abstract → provider
	loaded     map[ServiceProvider]bool
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		deferred:   make(map[string]ServiceProvider),
		loaded:     make(map[ServiceProvider]bool),
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register method unless it is
// deferred. A provider added after Boot is booted immediately.
//
//	// Laravel: $app->register(new AppServiceProvider($app))
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		for _, abstract := range provider.Provides() {
			r.deferred[abstract] = provider
		}
		r.mu.Unlock()
		r.interceptDeferred(provider)
		return nil
	}

	r.loaded[provider] = true
	r.eager = append(r.eager, provider)
	booted := r.booted
	r.mu.Unlock()

	provider.Register(r.app)
	if booted {
		return r.boot(provider)
	}
	return nil
}

// interceptDeferred binds a placeholder for each deferred abstract. The
// first Make registers the provider for real and resolves again.
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) {
	for _, abstract := range provider.Provides() {
		abs := abstract
		r.app.Bind(abs, func(c *Container) (any, error) {
			if err := r.load(provider); err != nil {
				return nil, err
			}
			// resolving through c keeps a provider that forgot to bind abs
			// from recursing forever
			return c.Make(abs)
		})
	}
}

func (r *ProviderRegistry) load(provider ServiceProvider) error {
	r.mu.Lock()
	if r.loaded[provider] {
		r.mu.Unlock()
		return nil
	}
	r.loaded[provider] = true
	for _, abs := range provider.Provides() {
		delete(r.deferred, abs)
	}
	r.eager = append(r.eager, provider)
	booted := r.booted
	r.mu.Unlock()

	provider.Register(r.app)
	if booted {
		return r.boot(provider)
	}
	return nil
}

// Boot calls Boot on every loaded provider, stopping at the first error.
//
//	// Laravel: $app->boot()
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range providers {
		if err := r.boot(provider); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProviderRegistry) boot(provider ServiceProvider) error {
	if err := provider.Boot(r.app); err != nil {
		return fmt.Errorf("container: booting %T: %w", provider, err)
	}
	return nil
}

// Booted reports whether Boot has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the loaded providers in load order.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}

// Deferred returns the abstracts still waiting on a deferred provider.
func (r *ProviderRegistry) Deferred() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.deferred))
	for abs := range r.deferred {
		out = append(out, abs)
	}
	return out
}
