// Package container provides a Laravel-compatible IoC container and Service
// Provider system on top of the ioc resolution engine.
//
// # Overview
//
// The container keeps Laravel's vocabulary: transient bindings, singletons,
// pre-built instances, aliases, tags, contextual bindings and extension.
// Every registration becomes an ioc binding, so scoping, activation hooks,
// circular-dependency detection and teardown behave exactly as they do in
// package ioc. The underlying engine is reachable through IOC().
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register providers: registry.Register(&MyProvider{})
//  3. Boot: registry.Boot()
//  4. Serve requests
//  5. Tear down: c.IOC().UnbindAllAsync(ctx)
//
// # Bindings
//
//	// Transient: new instance every Make()
//	// Laravel: $app->bind(Foo::class, fn($app) => new Foo)
//	c.Bind("Foo", func(c *container.Container) (any, error) { return &Foo{}, nil })
//
//	// Singleton: created once, reused
//	// Laravel: $app->singleton(Cache::class, fn($app) => new RedisCache)
//	c.Singleton("cache", func(c *container.Container) (any, error) {
//	    repo, err := container.Resolve[*config.Repository](c, "config.repository")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return cache.NewRedis(repo.GetString("cache.host", "localhost")), nil
//	})
//
//	// Pre-built value
//	// Laravel: $app->instance(Config::class, $config)
//	c.Instance("config", myConfig)
//
// The builder returned by Bind, Singleton and Instance refines the binding:
//
//	c.Singleton("db", openDB).OnDeactivation(func(v any) error {
//	    return v.(*sql.DB).Close()
//	})
//
// # Resolving
//
//	// Laravel: $app->make(Cache::class)
//	raw, err := c.Make("cache")
//
//	// Generic, no type assertion required
//	cache, err := container.Resolve[*RedisCache](c, "cache")
//
// # Contextual Binding
//
//	// Laravel: $app->when(PhotoController::class)
//	//              ->needs(Filesystem::class)
//	//              ->give(fn() => new S3Filesystem)
//	c.When("PhotoController").
//	    Needs("Filesystem").
//	    GiveValue(&S3Filesystem{})
//
// The rule applies inside the factory bound as "PhotoController" and to any
// explicit c.Make("Filesystem", container.For("PhotoController")).
//
// # Tags
//
//	// Laravel: $app->tag([CpuReport::class, MemReport::class], 'reports')
//	c.Tag([]string{"CpuReport", "MemReport"}, "reports")
//	reports, err := c.Tagged("reports")
//
// # Extend / Decorate
//
//	// Laravel: $app->extend(Logger::class, fn($logger, $app) => new TimestampLogger($logger))
//	c.Extend("logger", func(instance any, c *container.Container) (any, error) {
//	    return &TimestampLogger{Inner: instance.(*Logger)}, nil
//	})
//
// # Deferred Providers
//
//	type HeavyProvider struct{ container.BaseProvider }
//
//	func (p *HeavyProvider) IsDeferred() bool   { return true }
//	func (p *HeavyProvider) Provides() []string { return []string{"heavy"} }
//	func (p *HeavyProvider) Register(app *container.Container) {
//	    app.Singleton("heavy", func(c *container.Container) (any, error) {
//	        return heavySetup() // only called on first app.Make("heavy")
//	    })
//	}
package container
