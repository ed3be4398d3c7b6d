package ioc

import (
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Option configures a Container.
type Option func(*options)

type options struct {
	defaultScope        Scope
	skipBaseClassChecks bool
	autoBindInjectable  bool
	logger              *zap.Logger
}

// WithDefaultScope sets the scope of bindings that do not pick one.
func WithDefaultScope(s Scope) Option {
	return func(o *options) { o.defaultScope = s }
}

// WithSkipBaseClassChecks disables the base class argument count check.
func WithSkipBaseClassChecks() Option {
	return func(o *options) { o.skipBaseClassChecks = true }
}

// WithAutoBindInjectable binds an unregistered *Class identifier to itself
// the first time it is requested.
func WithAutoBindInjectable() Option {
	return func(o *options) { o.autoBindInjectable = true }
}

// WithLogger sets the logger used for registry and resolution events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

type activation struct {
	moduleID uint64
	handler  ActivationHandler
}

type deactivation struct {
	moduleID uint64
	handler  DeactivationHandler
	async    AsyncDeactivationHandler
}

type snapshot struct {
	bindings      *Lookup[*Binding]
	activations   *Lookup[*activation]
	deactivations *Lookup[*deactivation]
	middleware    []Middleware
}

// state is shared by every view of one container.
type state struct {
	mu            sync.RWMutex
	opts          options
	parent        *Container
	bindings      *Lookup[*Binding]
	activations   *Lookup[*activation]
	deactivations *Lookup[*deactivation]
	middleware    []Middleware
	snapshots     []*snapshot
	logger        *zap.Logger
}

// Container is a service container: a binding registry with a planner and
// resolver on top. The zero value is not usable; call New.
//
// Producers receive a view of the container in Context.Container. A view
// shares all state with the container it came from and additionally
// remembers which producers are running, so that a producer resolving its
// own binding fails with ErrCircularDependencyInFactory.
type Container struct {
	*state
	trail []uint64
}

// New creates an empty root container.
func New(opts ...Option) *Container {
	o := options{defaultScope: Transient, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return newContainer(o, nil)
}

func newContainer(o options, parent *Container) *Container {
	return &Container{state: &state{
		opts:          o,
		parent:        parent,
		bindings:      NewLookup[*Binding](),
		activations:   NewLookup[*activation](),
		deactivations: NewLookup[*deactivation](),
		logger:        o.logger,
	}}
}

// CreateChild returns a container with an empty registry whose lookups fall
// back to c. Options are inherited and may be overridden.
func (c *Container) CreateChild(opts ...Option) *Container {
	o := c.opts
	for _, opt := range opts {
		opt(&o)
	}
	return newContainer(o, &Container{state: c.state})
}

// Parent returns the parent container, or nil for a root container.
func (c *Container) Parent() *Container { return c.parent }

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger { return c.logger }

// ── Registration ────────────────────────────────────────────────────

// Bind registers a new binding for id and returns its builder. The binding
// is unusable until a To* method commits a producer. Bind panics if id is
// nil or not comparable.
//
//	c.Bind("mailer").To(smtpMailer).InSingletonScope()
func (c *Container) Bind(id ServiceIdentifier) *BindingSyntax {
	return c.bind(id, 0)
}

func (c *Container) bind(id ServiceIdentifier, moduleID uint64) *BindingSyntax {
	if err := validIdentifier(id); err != nil {
		panic("ioc: bind: " + err.Error())
	}
	b := newBinding(id, c.opts.defaultScope)
	b.ModuleID = moduleID

	c.mu.Lock()
	_ = c.bindings.Add(id, b)
	c.mu.Unlock()

	c.logger.Debug("binding registered",
		zap.String("service", IdentifierName(id)),
		zap.Uint64("binding", b.ID),
		zap.Uint64("module", moduleID),
	)
	return &BindingSyntax{binding: b}
}

func (c *Container) autoBind(cls *Class) *Binding {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, err := c.bindings.Get(cls); err == nil {
		return existing[0]
	}
	b := newBinding(cls, c.opts.defaultScope)
	b.Kind = Instance
	b.class = cls
	_ = c.bindings.Add(cls, b)
	return b
}

// OnActivation registers a container-level activation handler for id.
func (c *Container) OnActivation(id ServiceIdentifier, h ActivationHandler) error {
	return c.addActivation(id, &activation{handler: h})
}

// OnDeactivation registers a container-level deactivation handler for id.
func (c *Container) OnDeactivation(id ServiceIdentifier, h DeactivationHandler) error {
	return c.addDeactivation(id, &deactivation{handler: h})
}

// OnDeactivationAsync registers an asynchronous deactivation handler for
// id. Bindings of id must then be unbound with the async variants.
func (c *Container) OnDeactivationAsync(id ServiceIdentifier, h AsyncDeactivationHandler) error {
	return c.addDeactivation(id, &deactivation{async: h})
}

func (c *Container) addActivation(id ServiceIdentifier, a *activation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activations.Add(id, a)
}

func (c *Container) addDeactivation(id ServiceIdentifier, d *deactivation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deactivations.Add(id, d)
}

// ── Lookup ──────────────────────────────────────────────────────────

// bindingsFor returns the local bindings of id, else the nearest
// ancestor's.
func (c *Container) bindingsFor(id ServiceIdentifier) []*Binding {
	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		bindings, err := cur.bindings.Get(id)
		cur.mu.RUnlock()
		if err == nil {
			return bindings
		}
	}
	return nil
}

func (c *Container) activationsFor(id ServiceIdentifier) []ActivationHandler {
	c.mu.RLock()
	entries, _ := c.activations.Get(id)
	c.mu.RUnlock()
	out := make([]ActivationHandler, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.handler)
	}
	return out
}

func (c *Container) deactivationsFor(id ServiceIdentifier) []*deactivation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries, _ := c.deactivations.Get(id)
	return entries
}

// owns reports whether b is registered in c itself.
func (c *Container) owns(b *Binding) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bindings, err := c.bindings.Get(b.ServiceIdentifier)
	if err != nil {
		return false
	}
	return slices.ContainsFunc(bindings, func(x *Binding) bool { return x.ID == b.ID })
}

func (c *Container) onTrail(bindingID uint64) bool {
	return slices.Contains(c.trail, bindingID)
}

func (c *Container) withTrail(bindingID uint64) *Container {
	trail := make([]uint64, len(c.trail), len(c.trail)+1)
	copy(trail, c.trail)
	return &Container{state: c.state, trail: append(trail, bindingID)}
}

// IsBound reports whether id has bindings here or in an ancestor.
func (c *Container) IsBound(id ServiceIdentifier) bool {
	if validIdentifier(id) != nil {
		return false
	}
	return len(c.bindingsFor(id)) > 0
}

// IsCurrentBound reports whether id has bindings in c itself.
func (c *Container) IsCurrentBound(id ServiceIdentifier) bool {
	if validIdentifier(id) != nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bindings.HasKey(id)
}

// IsBoundNamed reports whether some binding of id accepts the name.
func (c *Container) IsBoundNamed(id ServiceIdentifier, name string) bool {
	return c.IsBoundTagged(id, NamedTag, name)
}

// IsBoundTagged reports whether some binding of id accepts key=value.
func (c *Container) IsBoundTagged(id ServiceIdentifier, key string, value any) bool {
	if validIdentifier(id) != nil {
		return false
	}
	probe := &Request{
		ServiceIdentifier: id,
		Target:            newTarget(Variable, "", 0, id, []Metadata{{Key: key, Value: value}}),
	}
	for _, b := range c.bindingsFor(id) {
		if b.matches(probe) {
			return true
		}
	}
	return false
}

// Bindings returns the local bindings of id in registration order.
func (c *Container) Bindings(id ServiceIdentifier) ([]*Binding, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bindings.Get(id)
}

// ServiceIdentifiers returns every locally bound identifier in
// registration order.
func (c *Container) ServiceIdentifiers() []ServiceIdentifier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bindings.Keys()
}
