package ioc

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// NextArgs describes one resolution call as seen by middleware.
type NextArgs struct {
	ServiceIdentifier  ServiceIdentifier
	IsMultiInject      bool
	IsOptional         bool
	AvoidConstraints   bool
	Key                string
	Value              any
	ContextInterceptor func(ctx *Context) *Context
}

// Next plans and resolves a call. Its result may be a *Future.
type Next func(args NextArgs) (any, error)

// Middleware wraps the resolution pipeline. The most recently applied
// middleware runs first.
type Middleware func(next Next) Next

// ApplyMiddleware appends mw to the container's pipeline.
func (c *Container) ApplyMiddleware(mw ...Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, mw...)
}

// run sends args through the middleware chain to the planner and resolver.
func (c *Container) run(args NextArgs) (any, error) {
	c.mu.RLock()
	mws := slices.Clone(c.middleware)
	c.mu.RUnlock()

	next := Next(c.planAndResolve)
	for _, mw := range mws {
		if next = mw(next); next == nil {
			return nil, ErrInvalidMiddlewareReturn
		}
	}

	v, err := next(args)
	if err != nil {
		c.logger.Debug("resolution failed",
			zap.String("service", IdentifierName(args.ServiceIdentifier)),
			zap.Error(err),
		)
		return nil, err
	}
	if v == nil && len(mws) > 0 && !args.IsOptional {
		return nil, fmt.Errorf("%w: nil result for %s", ErrInvalidMiddlewareReturn, IdentifierName(args.ServiceIdentifier))
	}
	return v, nil
}

func (c *Container) planAndResolve(args NextArgs) (any, error) {
	ctx, err := c.plan(args)
	if err != nil {
		return nil, err
	}
	return c.resolveRequest(ctx.Plan.Root)
}

func (c *Container) getSync(args NextArgs) (any, error) {
	v, err := c.run(args)
	if err != nil {
		return nil, err
	}
	if isPending(v) {
		return nil, fmt.Errorf("%w: %s", ErrSyncResolutionOfAsyncDependency, IdentifierName(args.ServiceIdentifier))
	}
	return v, nil
}

func (c *Container) getAsync(ctx context.Context, args NextArgs) (any, error) {
	v, err := c.run(args)
	if err != nil {
		return nil, err
	}
	return settle(ctx, v)
}

func asSlice(v any, err error) ([]any, error) {
	if err != nil {
		return nil, err
	}
	out, _ := v.([]any)
	return out, nil
}

// ── Single value ────────────────────────────────────────────────────

// Get resolves the single binding of id. It fails with
// ErrSyncResolutionOfAsyncDependency if anything in the graph is pending;
// use GetAsync for such graphs.
func (c *Container) Get(id ServiceIdentifier) (any, error) {
	return c.getSync(NextArgs{ServiceIdentifier: id})
}

// GetAsync resolves id, awaiting pending values.
func (c *Container) GetAsync(ctx context.Context, id ServiceIdentifier) (any, error) {
	return c.getAsync(ctx, NextArgs{ServiceIdentifier: id})
}

// GetNamed resolves the binding of id constrained to name.
func (c *Container) GetNamed(id ServiceIdentifier, name string) (any, error) {
	return c.getSync(NextArgs{ServiceIdentifier: id, Key: NamedTag, Value: name})
}

func (c *Container) GetNamedAsync(ctx context.Context, id ServiceIdentifier, name string) (any, error) {
	return c.getAsync(ctx, NextArgs{ServiceIdentifier: id, Key: NamedTag, Value: name})
}

// GetTagged resolves the binding of id constrained to key=value.
func (c *Container) GetTagged(id ServiceIdentifier, key string, value any) (any, error) {
	return c.getSync(NextArgs{ServiceIdentifier: id, Key: key, Value: value})
}

func (c *Container) GetTaggedAsync(ctx context.Context, id ServiceIdentifier, key string, value any) (any, error) {
	return c.getAsync(ctx, NextArgs{ServiceIdentifier: id, Key: key, Value: value})
}

// TryGet is Get returning nil instead of ErrNotRegistered.
func (c *Container) TryGet(id ServiceIdentifier) (any, error) {
	return c.getSync(NextArgs{ServiceIdentifier: id, IsOptional: true})
}

func (c *Container) TryGetNamed(id ServiceIdentifier, name string) (any, error) {
	return c.getSync(NextArgs{ServiceIdentifier: id, IsOptional: true, Key: NamedTag, Value: name})
}

func (c *Container) TryGetTagged(id ServiceIdentifier, key string, value any) (any, error) {
	return c.getSync(NextArgs{ServiceIdentifier: id, IsOptional: true, Key: key, Value: value})
}

// ── All values ──────────────────────────────────────────────────────

// GetAll resolves every binding of id in registration order, ignoring
// binding constraints.
func (c *Container) GetAll(id ServiceIdentifier) ([]any, error) {
	return asSlice(c.getSync(NextArgs{ServiceIdentifier: id, IsMultiInject: true, AvoidConstraints: true}))
}

func (c *Container) GetAllAsync(ctx context.Context, id ServiceIdentifier) ([]any, error) {
	return asSlice(c.getAsync(ctx, NextArgs{ServiceIdentifier: id, IsMultiInject: true, AvoidConstraints: true}))
}

// GetAllNamed resolves every binding of id accepting name.
func (c *Container) GetAllNamed(id ServiceIdentifier, name string) ([]any, error) {
	return asSlice(c.getSync(NextArgs{ServiceIdentifier: id, IsMultiInject: true, Key: NamedTag, Value: name}))
}

func (c *Container) GetAllNamedAsync(ctx context.Context, id ServiceIdentifier, name string) ([]any, error) {
	return asSlice(c.getAsync(ctx, NextArgs{ServiceIdentifier: id, IsMultiInject: true, Key: NamedTag, Value: name}))
}

// GetAllTagged resolves every binding of id accepting key=value.
func (c *Container) GetAllTagged(id ServiceIdentifier, key string, value any) ([]any, error) {
	return asSlice(c.getSync(NextArgs{ServiceIdentifier: id, IsMultiInject: true, Key: key, Value: value}))
}

func (c *Container) GetAllTaggedAsync(ctx context.Context, id ServiceIdentifier, key string, value any) ([]any, error) {
	return asSlice(c.getAsync(ctx, NextArgs{ServiceIdentifier: id, IsMultiInject: true, Key: key, Value: value}))
}

// TryGetAll is GetAll returning an empty slice when nothing is bound.
func (c *Container) TryGetAll(id ServiceIdentifier) ([]any, error) {
	return asSlice(c.getSync(NextArgs{ServiceIdentifier: id, IsMultiInject: true, IsOptional: true, AvoidConstraints: true}))
}

// ── Ad hoc ──────────────────────────────────────────────────────────

// Resolve builds cls with its dependencies injected. An unbound class is
// bound to itself in transient scope for the duration of the call.
func (c *Container) Resolve(cls *Class) (any, error) {
	if c.IsBound(cls) {
		return c.Get(cls)
	}
	b := c.Bind(cls).ToSelf().InTransientScope().Binding()
	v, err := c.Get(cls)
	if uerr := c.UnbindWhere(cls, func(x *Binding) bool { return x.ID == b.ID }); uerr != nil && err == nil {
		return nil, uerr
	}
	return v, err
}

// Plan builds the request tree for id without resolving it.
func (c *Container) Plan(id ServiceIdentifier) (*Plan, error) {
	ctx, err := c.plan(NextArgs{ServiceIdentifier: id})
	if err != nil {
		return nil, err
	}
	return ctx.Plan, nil
}

// ── Generic helpers ─────────────────────────────────────────────────

// Get resolves id and asserts the result to T.
//
//	logger, err := ioc.Get[*zap.Logger](c, "log")
func Get[T any](c *Container, id ServiceIdentifier) (T, error) {
	v, err := c.Get(id)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](id, v)
}

// GetAsync resolves id, awaiting pending values, and asserts the result to T.
func GetAsync[T any](ctx context.Context, c *Container, id ServiceIdentifier) (T, error) {
	v, err := c.GetAsync(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](id, v)
}

// GetAll resolves every binding of id and asserts each value to T.
func GetAll[T any](c *Container, id ServiceIdentifier) ([]T, error) {
	values, err := c.GetAll(id)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(values))
	for _, v := range values {
		t, err := cast[T](id, v)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func cast[T any](id ServiceIdentifier, v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("ioc: %s resolved to %T, not %s", IdentifierName(id), v, TypeOf[T]())
	}
	return t, nil
}
