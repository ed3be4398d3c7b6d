package ioc

import (
	"context"
	"sync"
)

// Producer builds a value for DynamicValue, Factory and Provider bindings.
//
// Dependencies must be resolved through ctx.Container. That view remembers
// which producers are running, so a producer that reaches its own binding
// fails with ErrCircularDependencyInFactory. A producer that resolves its
// own binding through a container captured from outside the call gets no
// such check and recurses until the goroutine stack overflows.
type Producer func(ctx *Context) (any, error)

// ActivationHandler runs right after an instance is produced and may
// replace it. Returning a *Future makes the rest of the resolution
// asynchronous.
type ActivationHandler func(ctx *Context, instance any) (any, error)

// DeactivationHandler runs before a singleton instance is discarded.
type DeactivationHandler func(instance any) error

// AsyncDeactivationHandler is a deactivation step that needs to wait.
// Bindings or containers holding one must be unbound with the async
// variants.
type AsyncDeactivationHandler func(ctx context.Context, instance any) error

// Constraint decides whether a binding applies to a request.
type Constraint func(r *Request) bool

// Binding maps a service identifier to a producer and a lifetime.
// Exactly one producer field is populated, matching Kind.
type Binding struct {
	mu sync.Mutex

	ID                uint64
	ServiceIdentifier ServiceIdentifier
	Scope             Scope
	Kind              BindingKind
	Constraint        Constraint
	ModuleID          uint64

	value        any
	class        *Class
	dynamicValue Producer
	factory      Producer
	provider     Producer

	onActivation        ActivationHandler
	onDeactivation      DeactivationHandler
	onDeactivationAsync AsyncDeactivationHandler

	activated bool
	cache     any
}

func newBinding(id ServiceIdentifier, scope Scope) *Binding {
	return &Binding{
		ID:                nextID(),
		ServiceIdentifier: id,
		Scope:             scope,
		Kind:              Invalid,
	}
}

// Clone copies the binding. The cached instance survives only for an
// activated singleton so that restoring a snapshot does not rebuild it.
func (b *Binding) Clone() *Binding {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := &Binding{
		ID:                  b.ID,
		ServiceIdentifier:   b.ServiceIdentifier,
		Scope:               b.Scope,
		Kind:                b.Kind,
		Constraint:          b.Constraint,
		ModuleID:            b.ModuleID,
		value:               b.value,
		class:               b.class,
		dynamicValue:        b.dynamicValue,
		factory:             b.factory,
		provider:            b.provider,
		onActivation:        b.onActivation,
		onDeactivation:      b.onDeactivation,
		onDeactivationAsync: b.onDeactivationAsync,
	}
	if b.Scope == Singleton && b.activated {
		c.activated = true
		c.cache = b.cache
	}
	return c
}

// Activated reports whether a singleton instance is cached.
func (b *Binding) Activated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activated
}

// Cached returns the cached singleton instance, if any.
func (b *Binding) Cached() (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache, b.activated
}

// ReplaceCached swaps the cached singleton instance for v. It reports false
// and leaves the binding alone when nothing is cached.
func (b *Binding) ReplaceCached(v any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.activated {
		return false
	}
	b.cache = v
	return true
}

// Class returns the class of an Instance or Constructor binding.
func (b *Binding) Class() *Class { return b.class }

func (b *Binding) matches(r *Request) bool {
	if b.Constraint == nil {
		return !r.Target.IsNamed() && !r.Target.IsTagged()
	}
	return b.Constraint(r)
}

func (b *Binding) setCache(v any) {
	b.mu.Lock()
	b.activated = true
	b.cache = v
	b.mu.Unlock()
}

// storeOnce caches v unless another resolution got there first, and returns
// whichever value is cached.
func (b *Binding) storeOnce(v any) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.activated {
		return b.cache
	}
	b.activated = true
	b.cache = v
	return v
}

func (b *Binding) resetCache() {
	b.mu.Lock()
	b.activated = false
	b.cache = nil
	b.mu.Unlock()
}

// replaceCache swaps a pending cached future for its settled value, unless
// the binding was reset or re-cached meanwhile.
func (b *Binding) replaceCache(pending *Future, v any) {
	b.mu.Lock()
	if b.activated && b.cache == any(pending) {
		b.cache = v
	}
	b.mu.Unlock()
}

// clearPending drops a rejected pending future so a later call retries.
func (b *Binding) clearPending(pending *Future) {
	b.mu.Lock()
	if b.cache == any(pending) {
		b.activated = false
		b.cache = nil
	}
	b.mu.Unlock()
}

func (b *Binding) resetProducer() {
	b.value = nil
	b.class = nil
	b.dynamicValue = nil
	b.factory = nil
	b.provider = nil
}

func (b *Binding) hasProducer() bool {
	switch b.Kind {
	case ConstantValue, Function:
		return true
	case Instance, Constructor:
		return b.class != nil
	case DynamicValue:
		return b.dynamicValue != nil
	case Factory:
		return b.factory != nil
	case Provider:
		return b.provider != nil
	default:
		return false
	}
}
