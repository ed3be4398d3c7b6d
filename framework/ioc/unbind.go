package ioc

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Unbind removes every local binding of id, running the deactivation chain
// of activated singletons first. It fails with ErrKeyNotFound when id has
// no local bindings and with ErrAsyncUnbindRequired when a deactivation
// step is asynchronous.
func (c *Container) Unbind(id ServiceIdentifier) error {
	bindings, err := c.Bindings(id)
	if err != nil {
		return fmt.Errorf("could not unbind %s: %w", IdentifierName(id), err)
	}
	return c.teardown(context.Background(), bindings, false)
}

// UnbindAsync is Unbind with asynchronous deactivation allowed.
func (c *Container) UnbindAsync(ctx context.Context, id ServiceIdentifier) error {
	bindings, err := c.Bindings(id)
	if err != nil {
		return fmt.Errorf("could not unbind %s: %w", IdentifierName(id), err)
	}
	return c.teardown(ctx, bindings, true)
}

// UnbindWhere removes the local bindings of id accepted by pred.
func (c *Container) UnbindWhere(id ServiceIdentifier, pred func(b *Binding) bool) error {
	bindings, err := c.Bindings(id)
	if err != nil {
		return fmt.Errorf("could not unbind %s: %w", IdentifierName(id), err)
	}
	var selected []*Binding
	for _, b := range bindings {
		if pred(b) {
			selected = append(selected, b)
		}
	}
	return c.teardown(context.Background(), selected, false)
}

// UnbindAll removes every local binding.
func (c *Container) UnbindAll() error {
	return c.teardown(context.Background(), c.allBindings(), false)
}

// UnbindAllAsync removes every local binding, awaiting asynchronous
// deactivation. Failures do not stop the sweep and are joined.
func (c *Container) UnbindAllAsync(ctx context.Context) error {
	return c.teardown(ctx, c.allBindings(), true)
}

// Rebind unbinds id, if bound, and starts a new binding.
func (c *Container) Rebind(id ServiceIdentifier) (*BindingSyntax, error) {
	if err := c.Unbind(id); err != nil && !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}
	return c.Bind(id), nil
}

// RebindAsync is Rebind with asynchronous deactivation allowed.
func (c *Container) RebindAsync(ctx context.Context, id ServiceIdentifier) (*BindingSyntax, error) {
	if err := c.UnbindAsync(ctx, id); err != nil && !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}
	return c.Bind(id), nil
}

func (c *Container) allBindings() []*Binding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Binding
	c.bindings.Traverse(func(_ ServiceIdentifier, values []*Binding) {
		out = append(out, values...)
	})
	return out
}

// teardown deactivates then removes bindings. A binding whose
// deactivation fails stays registered.
func (c *Container) teardown(ctx context.Context, bindings []*Binding, async bool) error {
	if !async {
		if err := c.requireSync(bindings); err != nil {
			return err
		}
	}

	var errs []error
	removed := make(map[uint64]bool, len(bindings))
	for _, b := range bindings {
		if err := c.deactivate(ctx, b); err != nil {
			errs = append(errs, err)
			continue
		}
		removed[b.ID] = true
	}

	c.mu.Lock()
	c.bindings.RemoveByCondition(func(b *Binding) bool { return removed[b.ID] })
	c.mu.Unlock()

	for _, b := range bindings {
		if removed[b.ID] {
			c.logger.Debug("binding removed",
				zap.String("service", IdentifierName(b.ServiceIdentifier)),
				zap.Uint64("binding", b.ID),
			)
		}
	}
	return errors.Join(errs...)
}

// requireSync fails when any activated singleton among bindings needs an
// asynchronous deactivation step.
func (c *Container) requireSync(bindings []*Binding) error {
	for _, b := range bindings {
		v, ok := b.Cached()
		if !ok || b.Scope != Singleton {
			continue
		}
		if _, pending := v.(*Future); pending {
			return fmt.Errorf("%w: %s is still resolving", ErrAsyncUnbindRequired, IdentifierName(b.ServiceIdentifier))
		}
		for _, step := range c.deactivationSteps(b) {
			if step.async != nil {
				return fmt.Errorf("%w: %s", ErrAsyncUnbindRequired, IdentifierName(b.ServiceIdentifier))
			}
		}
	}
	return nil
}

// deactivationSteps orders the teardown of b's instance: binding hook,
// ancestor container hooks from the parent upwards, own container hooks,
// then the class pre-destroy hook.
func (c *Container) deactivationSteps(b *Binding) []*deactivation {
	var steps []*deactivation
	if b.onDeactivation != nil || b.onDeactivationAsync != nil {
		steps = append(steps, &deactivation{handler: b.onDeactivation, async: b.onDeactivationAsync})
	}
	for p := c.parent; p != nil; p = p.parent {
		steps = append(steps, p.deactivationsFor(b.ServiceIdentifier)...)
	}
	steps = append(steps, c.deactivationsFor(b.ServiceIdentifier)...)
	if b.Kind == Instance && b.class != nil && b.class.hasTeardown() {
		cls := b.class
		steps = append(steps, &deactivation{handler: cls.PreDestroy, async: cls.PreDestroyAsync})
	}
	return steps
}

func (c *Container) deactivate(ctx context.Context, b *Binding) error {
	v, ok := b.Cached()
	if !ok || b.Scope != Singleton {
		return nil
	}
	if f, pending := v.(*Future); pending {
		var err error
		if v, err = f.Await(ctx); err != nil {
			b.resetCache()
			return nil
		}
	}
	for _, step := range c.deactivationSteps(b) {
		var err error
		if step.async != nil {
			err = step.async(ctx, v)
		} else if step.handler != nil {
			err = step.handler(v)
		}
		if err != nil {
			return fmt.Errorf("deactivating %s: %w", IdentifierName(b.ServiceIdentifier), err)
		}
	}
	b.resetCache()
	return nil
}
