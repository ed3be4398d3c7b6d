package ioc

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ContainerModule groups registrations so they can be loaded and unloaded
// together. Everything registered through the ModuleRegistry is tagged
// with the module id.
type ContainerModule struct {
	ID       uint64
	registry func(r *ModuleRegistry) error
}

// NewContainerModule wraps a registration function in a module.
func NewContainerModule(registry func(r *ModuleRegistry) error) *ContainerModule {
	return &ContainerModule{ID: nextID(), registry: registry}
}

// ModuleRegistry is the registration surface handed to a module.
type ModuleRegistry struct {
	c        *Container
	moduleID uint64
}

func (r *ModuleRegistry) Bind(id ServiceIdentifier) *BindingSyntax {
	return r.c.bind(id, r.moduleID)
}

func (r *ModuleRegistry) Unbind(id ServiceIdentifier) error {
	return r.c.Unbind(id)
}

func (r *ModuleRegistry) Rebind(id ServiceIdentifier) (*BindingSyntax, error) {
	if err := r.c.Unbind(id); err != nil && !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}
	return r.Bind(id), nil
}

func (r *ModuleRegistry) IsBound(id ServiceIdentifier) bool {
	return r.c.IsBound(id)
}

func (r *ModuleRegistry) OnActivation(id ServiceIdentifier, h ActivationHandler) error {
	return r.c.addActivation(id, &activation{moduleID: r.moduleID, handler: h})
}

func (r *ModuleRegistry) OnDeactivation(id ServiceIdentifier, h DeactivationHandler) error {
	return r.c.addDeactivation(id, &deactivation{moduleID: r.moduleID, handler: h})
}

func (r *ModuleRegistry) OnDeactivationAsync(id ServiceIdentifier, h AsyncDeactivationHandler) error {
	return r.c.addDeactivation(id, &deactivation{moduleID: r.moduleID, async: h})
}

// Load runs each module's registrations against c.
func (c *Container) Load(modules ...*ContainerModule) error {
	for _, m := range modules {
		if err := m.registry(&ModuleRegistry{c: c, moduleID: m.ID}); err != nil {
			return fmt.Errorf("loading module %d: %w", m.ID, err)
		}
		c.logger.Debug("module loaded", zap.Uint64("module", m.ID))
	}
	return nil
}

// Unload removes every binding and handler registered by the modules,
// deactivating activated singletons.
func (c *Container) Unload(modules ...*ContainerModule) error {
	return c.unload(context.Background(), false, modules)
}

// UnloadAsync is Unload with asynchronous deactivation allowed.
func (c *Container) UnloadAsync(ctx context.Context, modules ...*ContainerModule) error {
	return c.unload(ctx, true, modules)
}

func (c *Container) unload(ctx context.Context, async bool, modules []*ContainerModule) error {
	for _, m := range modules {
		var owned []*Binding
		for _, b := range c.allBindings() {
			if b.ModuleID == m.ID {
				owned = append(owned, b)
			}
		}
		if err := c.teardown(ctx, owned, async); err != nil {
			return err
		}

		c.mu.Lock()
		c.activations.RemoveByCondition(func(a *activation) bool { return a.moduleID == m.ID })
		c.deactivations.RemoveByCondition(func(d *deactivation) bool { return d.moduleID == m.ID })
		c.mu.Unlock()
		c.logger.Debug("module unloaded", zap.Uint64("module", m.ID))
	}
	return nil
}
