package ioc

import (
	"slices"

	"go.uber.org/zap"
)

// Snapshot pushes a copy of the bindings, activation and deactivation
// handlers and middleware. Activated singletons keep their instance in the
// copy.
func (c *Container) Snapshot() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = append(c.snapshots, &snapshot{
		bindings:      c.bindings.Clone(),
		activations:   c.activations.Clone(),
		deactivations: c.deactivations.Clone(),
		middleware:    slices.Clone(c.middleware),
	})
	c.logger.Debug("snapshot taken", zap.Int("depth", len(c.snapshots)))
}

// Restore pops the most recent snapshot and makes it current.
func (c *Container) Restore() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.snapshots)
	if n == 0 {
		return ErrNoSnapshotAvailable
	}
	s := c.snapshots[n-1]
	c.snapshots = c.snapshots[:n-1]
	c.bindings = s.bindings
	c.activations = s.activations
	c.deactivations = s.deactivations
	c.middleware = s.middleware
	c.logger.Debug("snapshot restored", zap.Int("depth", len(c.snapshots)))
	return nil
}
