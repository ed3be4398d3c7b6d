package ioc

import (
	"context"
	"fmt"
)

// resolveRequest produces the value for one node of the request tree. The
// result is either a plain value or a *Future when anything below it is
// pending.
func (c *Container) resolveRequest(r *Request) (any, error) {
	if r.Target.IsArray() && !r.element {
		out := make([]any, 0, len(r.Children))
		for _, child := range r.Children {
			v, err := c.resolveRequest(child)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		if isPending(out) {
			return Async(func(ctx context.Context) (any, error) {
				return settleAll(ctx, out)
			}), nil
		}
		return out, nil
	}
	if len(r.Bindings) == 0 {
		return nil, nil
	}
	return c.resolveBinding(r, r.Bindings[0])
}

func (c *Container) resolveBinding(r *Request, b *Binding) (any, error) {
	switch b.Scope {
	case Singleton:
		if v, ok := b.Cached(); ok {
			return v, nil
		}
	case RequestScope:
		if v, ok := r.root().scope[b.ID]; ok {
			return v, nil
		}
	}
	v, err := c.produce(r, b)
	if err != nil {
		return nil, wrapResolveError(b, err)
	}
	v, err = c.activate(r, b, v)
	if err != nil {
		return nil, wrapResolveError(b, err)
	}
	return c.cacheResult(r, b, v), nil
}

func (c *Container) cacheResult(r *Request, b *Binding, v any) any {
	switch b.Scope {
	case Singleton:
		f, ok := v.(*Future)
		if !ok {
			return b.storeOnce(v)
		}
		var pending *Future
		pending = Async(func(ctx context.Context) (any, error) {
			v, err := f.Await(ctx)
			if err != nil {
				b.clearPending(pending)
				return nil, err
			}
			b.replaceCache(pending, v)
			return v, nil
		})
		return b.storeOnce(pending)
	case RequestScope:
		scope := r.root().scope
		if existing, ok := scope[b.ID]; ok {
			return existing
		}
		scope[b.ID] = v
	}
	return v
}

func (c *Container) produce(r *Request, b *Binding) (any, error) {
	if !b.hasProducer() {
		return nil, fmt.Errorf("%w: %s is bound as %s without a producer", ErrInvalidBindingType, IdentifierName(b.ServiceIdentifier), b.Kind)
	}
	switch b.Kind {
	case ConstantValue, Function:
		return b.value, nil
	case Constructor:
		return b.class, nil
	case Instance:
		return c.instantiate(r, b)
	case DynamicValue:
		return c.invokeProducer(r, b, b.dynamicValue)
	case Factory:
		return c.invokeProducer(r, b, b.factory)
	case Provider:
		return c.invokeProducer(r, b, b.provider)
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidBindingType, b.Kind)
}

// invokeProducer runs a user producer against a view of the container that
// remembers the binding, so a producer resolving itself fails instead of
// recursing forever.
func (c *Container) invokeProducer(r *Request, b *Binding, fn Producer) (any, error) {
	if c.onTrail(b.ID) {
		return nil, fmt.Errorf("%w: %s for %s", ErrCircularDependencyInFactory, b.Kind, IdentifierName(b.ServiceIdentifier))
	}
	return fn(c.withTrail(b.ID).contextFor(r))
}

func (c *Container) contextFor(r *Request) *Context {
	ctx := *r.Context
	ctx.Container = c
	ctx.CurrentRequest = r
	return &ctx
}

// activate runs the binding hook, then container hooks from this container
// upwards, stopping after the container that owns the binding.
func (c *Container) activate(r *Request, b *Binding, v any) (any, error) {
	var handlers []ActivationHandler
	if b.onActivation != nil {
		handlers = append(handlers, b.onActivation)
	}
	for cur := c; cur != nil; cur = cur.parent {
		handlers = append(handlers, cur.activationsFor(b.ServiceIdentifier)...)
		if cur.owns(b) {
			break
		}
	}
	if len(handlers) == 0 {
		return v, nil
	}
	return runActivations(c.contextFor(r), v, handlers)
}

func runActivations(ctx *Context, v any, handlers []ActivationHandler) (any, error) {
	for i, h := range handlers {
		if f, ok := v.(*Future); ok {
			rest := handlers[i:]
			return f.then(func(_ context.Context, v any, err error) (any, error) {
				if err != nil {
					return nil, err
				}
				return runActivations(ctx, v, rest)
			}), nil
		}
		next, err := h(ctx, v)
		if err != nil {
			return nil, err
		}
		v = next
	}
	return v, nil
}

type propertyValue struct {
	prop  *Property
	value any
}

// instantiate builds an Instance binding: constructor arguments by index,
// then properties, then post-construct.
func (c *Container) instantiate(r *Request, b *Binding) (any, error) {
	cls := b.class
	if b.Scope != Singleton {
		if cls.hasTeardown() {
			return nil, fmt.Errorf("%w: %s declares a pre-destroy hook in %s scope", ErrLifecycleScope, cls.Name, b.Scope)
		}
		if b.onDeactivation != nil || b.onDeactivationAsync != nil {
			return nil, fmt.Errorf("%w: %s has a deactivation hook in %s scope", ErrLifecycleScope, cls.Name, b.Scope)
		}
	}
	if cls.New == nil {
		return nil, fmt.Errorf("%w: %s has no constructor", ErrInvalidClass, cls.Name)
	}

	props := make(map[string]*Property)
	for _, p := range cls.properties() {
		props[p.Name] = p
	}

	args := make([]any, len(cls.Args))
	var values []propertyValue
	pending := false
	for _, child := range r.Children {
		v, err := c.resolveRequest(child)
		if err != nil {
			return nil, err
		}
		pending = pending || isPending(v)
		switch child.Target.Kind {
		case ConstructorArgument:
			args[child.Target.Index] = v
		case ClassProperty:
			values = append(values, propertyValue{prop: props[child.Target.Name], value: v})
		}
	}

	if !pending {
		return construct(cls, args, values)
	}
	return Async(func(ctx context.Context) (any, error) {
		settled, err := settleAll(ctx, args)
		if err != nil {
			return nil, err
		}
		for i := range values {
			if values[i].value, err = settle(ctx, values[i].value); err != nil {
				return nil, err
			}
		}
		return construct(cls, settled, values)
	}), nil
}

func construct(cls *Class, args []any, values []propertyValue) (any, error) {
	inst, err := cls.New(args)
	if err != nil {
		return nil, err
	}
	for _, pv := range values {
		if pv.value == nil && pv.prop.Dep.optional {
			continue
		}
		if err := pv.prop.assign(inst, pv.value); err != nil {
			return nil, err
		}
	}
	if cls.PostConstruct != nil {
		if err := cls.PostConstruct(inst); err != nil {
			return nil, fmt.Errorf("%w in class %s: %w", ErrPostConstruct, cls.Name, err)
		}
	}
	if cls.PostConstructAsync != nil {
		return Async(func(ctx context.Context) (any, error) {
			if err := cls.PostConstructAsync(ctx, inst); err != nil {
				return nil, fmt.Errorf("%w in class %s: %w", ErrPostConstruct, cls.Name, err)
			}
			return inst, nil
		}), nil
	}
	return inst, nil
}
