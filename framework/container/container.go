package container

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-bootstrap/framework/ioc"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory builds a concrete value. The container it receives resolves on
// behalf of the service being built, so contextual rules for that service
// apply to every Make inside the factory. Resolve dependencies through c,
// not a captured outer container, or self-resolution recurses without end.
type Factory func(c *Container) (any, error)

// Extender decorates a resolved instance.
type Extender func(instance any, c *Container) (any, error)

// ContextualTag is the target tag carrying the consumer of a contextual
// request.
const ContextualTag = "contextual"

// registry is the bookkeeping shared by every view of one container.
type registry struct {
	mu sync.RWMutex

	// all bindings are registered through one module so Flush can drop them
	module *ioc.ContainerModule
	reg    *ioc.ModuleRegistry

	// abstract → id of the binding Bind/Singleton/Instance last registered
	defaults map[string]uint64

	// alias → abstract
	aliases map[string]string

	// tag → []abstract
	tags map[string][]string

	// consumer → abstract → contextual binding id
	contextual map[string]map[string]uint64

	reboundCallbacks map[string][]func(any)
	afterResolving   []func(string, any)
}

func newRegistry() *registry {
	return &registry{
		defaults:         make(map[string]uint64),
		aliases:          make(map[string]string),
		tags:             make(map[string][]string),
		contextual:       make(map[string]map[string]uint64),
		reboundCallbacks: make(map[string][]func(any)),
	}
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the application-facing IoC container. It keeps Laravel's
// vocabulary (bind, singleton, instance, alias, tag, extend, when/needs/give)
// and delegates planning, scoping and lifecycle to an ioc.Container.
type Container struct {
	*registry
	ioc *ioc.Container

	// consumer is the service on whose behalf this view resolves
	consumer string
}

// New creates an empty container. The container binds itself as
// "container".
func New(opts ...ioc.Option) *Container {
	return wrap(ioc.New(opts...))
}

func wrap(inner *ioc.Container) *Container {
	c := &Container{registry: newRegistry(), ioc: inner}
	c.load()
	c.Instance("container", c)
	return c
}

func (c *Container) load() {
	c.module = ioc.NewContainerModule(func(r *ioc.ModuleRegistry) error {
		c.reg = r
		return nil
	})
	_ = c.ioc.Load(c.module)
}

func (c *Container) view(inner *ioc.Container, consumer string) *Container {
	return &Container{registry: c.registry, ioc: inner, consumer: consumer}
}

// IOC returns the underlying resolution engine.
func (c *Container) IOC() *ioc.Container { return c.ioc }

// Child returns a container whose unknown abstracts fall back to c. Aliases,
// tags and contextual rules are copied.
func (c *Container) Child() *Container {
	child := wrap(c.ioc.CreateChild())
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, v := range c.aliases {
		child.aliases[k] = v
	}
	for k, v := range c.tags {
		child.tags[k] = append([]string(nil), v...)
	}
	for consumer, m := range c.contextual {
		child.contextual[consumer] = make(map[string]uint64, len(m))
		for k, v := range m {
			child.contextual[consumer][k] = v
		}
	}
	return child
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient factory. The returned builder can refine the
// binding further (scope, activation hooks).
//
//	// Laravel: $app->bind(UserRepository::class, fn($app) => new SqlUserRepository($app))
//	c.Bind("UserRepository", func(c *container.Container) (any, error) {
//	    db, err := container.Resolve[*sql.DB](c, "db")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &SqlUserRepository{DB: db}, nil
//	})
func (c *Container) Bind(abstract string, factory Factory) *ioc.BindingSyntax {
	key := c.canonical(abstract)
	s, resolved := c.replace(key, func(s *ioc.BindingSyntax) {
		s.ToDynamicValue(c.producer(key, factory)).InTransientScope()
	})
	if resolved {
		c.refresh(key)
	}
	return s
}

// Singleton registers a factory whose result is cached after first
// resolution.
//
//	// Laravel: $app->singleton(Cache::class, fn($app) => new RedisCache($app))
func (c *Container) Singleton(abstract string, factory Factory) *ioc.BindingSyntax {
	key := c.canonical(abstract)
	s, resolved := c.replace(key, func(s *ioc.BindingSyntax) {
		s.ToDynamicValue(c.producer(key, factory)).InSingletonScope()
	})
	if resolved {
		c.refresh(key)
	}
	return s
}

// Instance registers a pre-built value.
//
//	// Laravel: $app->instance(Config::class, $config)
//	c.Instance("config", cfg)
func (c *Container) Instance(abstract string, instance any) *ioc.BindingSyntax {
	key := c.canonical(abstract)
	s, _ := c.replace(key, func(s *ioc.BindingSyntax) {
		s.ToConstantValue(instance)
	})
	c.fireRebound(key, instance)
	return s
}

// BindTagged registers a factory served only to requests naming it.
//
//	c.BindTagged("cache", "redis", newRedisCache)
//	redis, err := c.Make("cache", container.Named("redis"))
func (c *Container) BindTagged(abstract, name string, factory Factory) *ioc.BindingSyntax {
	key := c.canonical(abstract)
	return c.reg.Bind(key).
		ToDynamicValue(c.producer(key, factory)).
		InTransientScope().
		WhenTargetNamed(name)
}

// replace registers a new default binding for key, dropping the previous
// one. It reports whether the previous binding had been resolved.
func (c *Container) replace(key string, commit func(s *ioc.BindingSyntax)) (*ioc.BindingSyntax, bool) {
	resolved := c.Resolved(key)
	c.dropDefault(key)

	s := c.reg.Bind(key).When(c.defaultConstraint(key))
	commit(s)

	c.mu.Lock()
	c.defaults[key] = s.Binding().ID
	c.mu.Unlock()
	return s, resolved
}

func (c *Container) dropDefault(key string) {
	c.mu.Lock()
	id, ok := c.defaults[key]
	delete(c.defaults, key)
	c.mu.Unlock()
	if !ok {
		return
	}
	err := c.ioc.UnbindWhere(key, func(b *ioc.Binding) bool { return b.ID == id })
	if err != nil && !errors.Is(err, ioc.ErrKeyNotFound) {
		c.ioc.Logger().Warn("dropping replaced binding", zap.String("abstract", key), zap.Error(err))
	}
}

func (c *Container) defaultBinding(key string) *ioc.Binding {
	c.mu.RLock()
	id, ok := c.defaults[key]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	bindings, err := c.ioc.Bindings(key)
	if err != nil {
		return nil
	}
	for _, b := range bindings {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// defaultConstraint serves untagged requests whose consumer has no
// contextual rule for key.
func (c *Container) defaultConstraint(key string) ioc.Constraint {
	return func(r *ioc.Request) bool {
		if r.Target.IsNamed() || r.Target.IsTagged() {
			return false
		}
		if p := r.Consumer(); p != nil {
			if consumer, ok := p.ServiceIdentifier.(string); ok && c.hasContextual(consumer, key) {
				return false
			}
		}
		return true
	}
}

func (c *Container) producer(key string, f Factory) ioc.Producer {
	return func(ctx *ioc.Context) (any, error) {
		return f(c.view(ctx.Container, key))
	}
}

// Alias registers an alternative name for an abstract.
//
//	// Laravel: $app->alias(Cache::class, 'cache')
//	c.Alias("cache", "cacheManager")
func (c *Container) Alias(abstract, alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if abstract == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", abstract))
	}
	c.aliases[alias] = c.canonicalLocked(abstract)
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates every resolution of abstract. An instance resolved
// before the call is decorated in place.
//
//	// Laravel: $app->extend(Logger::class, fn($logger, $app) => new TimestampLogger($logger))
func (c *Container) Extend(abstract string, fn Extender) error {
	key := c.canonical(abstract)
	err := c.reg.OnActivation(key, func(ctx *ioc.Context, v any) (any, error) {
		return fn(v, c.view(ctx.Container, key))
	})
	if err != nil {
		return err
	}

	b := c.defaultBinding(key)
	if b == nil {
		return nil
	}
	inst, ok := b.Cached()
	if !ok {
		return nil
	}
	extended, err := fn(inst, c)
	if err != nil {
		return err
	}
	b.ReplaceCached(extended)
	c.fireRebound(key, extended)
	return nil
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates multiple abstracts under a named group.
//
//	// Laravel: $app->tag([CpuReport::class, MemoryReport::class], 'reports')
func (c *Container) Tag(abstracts []string, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[tag] = append(c.tags[tag], abstracts...)
}

// Tagged resolves every abstract registered under tag, in tagging order.
//
//	// Laravel: $app->tagged('reports')
func (c *Container) Tagged(tag string) ([]any, error) {
	c.mu.RLock()
	abstracts := append([]string(nil), c.tags[tag]...)
	c.mu.RUnlock()

	result := make([]any, 0, len(abstracts))
	for _, abs := range abstracts {
		v, err := c.Make(abs)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// MakeOption adjusts a single Make call.
type MakeOption func(*makeOptions)

type makeOptions struct {
	consumer string
	name     string
}

// For resolves on behalf of consumer, applying its contextual rules.
//
//	c.When("PhotoController").Needs("Filesystem").GiveValue(s3)
//	fs, err := c.Make("Filesystem", container.For("PhotoController"))
func For(consumer string) MakeOption {
	return func(o *makeOptions) { o.consumer = consumer }
}

// Named selects a binding registered with BindTagged.
func Named(name string) MakeOption {
	return func(o *makeOptions) { o.name = name }
}

func (c *Container) args(abstract string, opts []MakeOption) (string, ioc.NextArgs) {
	o := makeOptions{consumer: c.consumer}
	for _, opt := range opts {
		opt(&o)
	}
	key := c.canonical(abstract)
	args := ioc.NextArgs{ServiceIdentifier: key}
	switch {
	case o.name != "":
		args.Key, args.Value = ioc.NamedTag, o.name
	case o.consumer != "" && c.hasContextual(o.consumer, key):
		args.Key, args.Value = ContextualTag, o.consumer
	}
	return key, args
}

// Make resolves an abstract.
//
//	// Laravel: $app->make(UserRepository::class)
//	repo, err := c.Make("UserRepository")
func (c *Container) Make(abstract string, opts ...MakeOption) (any, error) {
	key, args := c.args(abstract, opts)
	var (
		v   any
		err error
	)
	if args.Key != "" {
		v, err = c.ioc.GetTagged(key, args.Key, args.Value)
	} else {
		v, err = c.ioc.Get(key)
	}
	if err != nil {
		return nil, fmt.Errorf("container: resolving [%s]: %w", abstract, err)
	}
	c.fireAfterResolving(key, v)
	return v, nil
}

// MakeAsync is Make for graphs containing asynchronous producers.
func (c *Container) MakeAsync(ctx context.Context, abstract string, opts ...MakeOption) (any, error) {
	key, args := c.args(abstract, opts)
	var (
		v   any
		err error
	)
	if args.Key != "" {
		v, err = c.ioc.GetTaggedAsync(ctx, key, args.Key, args.Value)
	} else {
		v, err = c.ioc.GetAsync(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("container: resolving [%s]: %w", abstract, err)
	}
	c.fireAfterResolving(key, v)
	return v, nil
}

// MustMake is Make that panics on failure.
func (c *Container) MustMake(abstract string, opts ...MakeOption) any {
	v, err := c.Make(abstract, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound reports whether an abstract has any binding here or in a parent.
//
//	// Laravel: $app->bound(UserRepository::class)
func (c *Container) Bound(abstract string) bool {
	return c.ioc.IsBound(c.canonical(abstract))
}

// Resolved reports whether the default binding of abstract holds an
// instance.
//
//	// Laravel: $app->resolved(Cache::class)
func (c *Container) Resolved(abstract string) bool {
	b := c.defaultBinding(c.canonical(abstract))
	if b == nil {
		return false
	}
	return b.Kind == ioc.ConstantValue || b.Activated()
}

// Forget removes every binding of abstract, running deactivation hooks of
// a resolved singleton.
//
//	// Laravel: $app->forgetInstance(Cache::class)
func (c *Container) Forget(abstract string) error {
	key := c.canonical(abstract)
	c.mu.Lock()
	delete(c.defaults, key)
	for _, m := range c.contextual {
		delete(m, key)
	}
	c.mu.Unlock()

	if err := c.ioc.Unbind(key); err != nil && !errors.Is(err, ioc.ErrKeyNotFound) {
		return err
	}
	return nil
}

// Flush removes every registration made through this container, tearing
// down resolved singletons. Only "container" is bound afterwards.
func (c *Container) Flush() error {
	if err := c.ioc.Unload(c.module); err != nil {
		return err
	}
	c.mu.Lock()
	fresh := newRegistry()
	c.defaults = fresh.defaults
	c.aliases = fresh.aliases
	c.tags = fresh.tags
	c.contextual = fresh.contextual
	c.reboundCallbacks = fresh.reboundCallbacks
	c.afterResolving = nil
	c.mu.Unlock()
	c.load()
	c.Instance("container", c)
	return nil
}

// Bindings returns the bound abstracts in registration order.
func (c *Container) Bindings() []string {
	ids := c.ioc.ServiceIdentifiers()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := id.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// canonical resolves an alias to its abstract.
func (c *Container) canonical(abstract string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.canonicalLocked(abstract)
}

func (c *Container) canonicalLocked(abstract string) string {
	if target, ok := c.aliases[abstract]; ok {
		return target
	}
	return abstract
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// Rebinding registers a callback fired whenever a resolved abstract is
// bound again or extended.
//
//	// Laravel: $app->rebinding(UserRepository::class, fn($app, $repo) => ...)
func (c *Container) Rebinding(abstract string, cb func(any)) {
	key := c.canonical(abstract)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reboundCallbacks[key] = append(c.reboundCallbacks[key], cb)
}

// AfterResolving registers a callback fired after every successful Make.
//
//	// Laravel: $app->afterResolving(fn($object, $app) => ...)
func (c *Container) AfterResolving(cb func(abstract string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) refresh(key string) {
	v, err := c.Make(key)
	if err != nil {
		c.ioc.Logger().Debug("rebound resolution failed", zap.String("abstract", key), zap.Error(err))
		return
	}
	c.fireRebound(key, v)
}

func (c *Container) fireRebound(key string, instance any) {
	c.mu.RLock()
	cbs := slices.Clone(c.reboundCallbacks[key])
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(instance)
	}
}

func (c *Container) fireAfterResolving(key string, instance any) {
	c.mu.RLock()
	cbs := slices.Clone(c.afterResolving)
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(key, instance)
	}
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Key returns the package-qualified name of T, a stable abstract for
// interface contracts.
//
//	c.Singleton(container.Key[UserRepository](), newRepo)
func Key[T any]() string {
	t := ioc.TypeOf[T]()
	prefix := ""
	for t.Kind() == reflect.Pointer {
		prefix += "*"
		t = t.Elem()
	}
	return prefix + t.PkgPath() + "." + t.Name()
}

// Resolve calls Make and asserts the result to T.
//
//	db, err := container.Resolve[*sql.DB](c, "db")
func Resolve[T any](c *Container, abstract string, opts ...MakeOption) (T, error) {
	var zero T
	instance, err := c.Make(abstract, opts...)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("container: [%s] resolved to %T, not %s", abstract, instance, ioc.TypeOf[T]())
	}
	return typed, nil
}

// MustResolve is Resolve that panics on failure.
func MustResolve[T any](c *Container, abstract string, opts ...MakeOption) T {
	v, err := Resolve[T](c, abstract, opts...)
	if err != nil {
		panic(err)
	}
	return v
}
