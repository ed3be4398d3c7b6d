package container

import (
	"errors"

	"go.uber.org/zap"

	"github.com/km-arc/go-bootstrap/framework/ioc"
)

// ContextualBuilder implements the fluent contextual binding API.
//
//	// Laravel: $app->when(PhotoController::class)->needs(Filesystem::class)->give(...)
//	c.When("PhotoController").Needs("Filesystem").Give(func(c *container.Container) (any, error) {
//	    return filesystem.NewS3(...)
//	})
type ContextualBuilder struct {
	container *Container
	concrete  string
	needs     string
}

// When starts a contextual rule for concrete.
func (c *Container) When(concrete string) *ContextualBuilder {
	return &ContextualBuilder{container: c, concrete: concrete}
}

// Needs specifies which abstract the concrete type depends on.
func (b *ContextualBuilder) Needs(abstract string) *ContextualBuilder {
	b.needs = abstract
	return b
}

// Give provides the factory used when the concrete type resolves the
// abstract. A later Give for the same pair replaces it.
func (b *ContextualBuilder) Give(factory Factory) *ioc.BindingSyntax {
	key := b.container.canonical(b.needs)
	return b.give(key, func(s *ioc.BindingSyntax) {
		s.ToDynamicValue(b.container.producer(key, factory)).InTransientScope()
	})
}

// GiveValue is Give for a pre-built value.
//
//	// Laravel: ->give('/tmp/photos')
//	c.When("PhotoController").Needs("storagePath").GiveValue("/tmp/photos")
func (b *ContextualBuilder) GiveValue(value any) *ioc.BindingSyntax {
	return b.give(b.container.canonical(b.needs), func(s *ioc.BindingSyntax) {
		s.ToConstantValue(value)
	})
}

// GiveService serves the abstract by resolving another one.
//
//	c.When("ReportController").Needs("Filesystem").GiveService("filesystem.local")
func (b *ContextualBuilder) GiveService(abstract string) *ioc.BindingSyntax {
	target := b.container.canonical(abstract)
	return b.give(b.container.canonical(b.needs), func(s *ioc.BindingSyntax) {
		s.ToService(target)
	})
}

func (b *ContextualBuilder) give(key string, commit func(s *ioc.BindingSyntax)) *ioc.BindingSyntax {
	c := b.container
	c.dropContextual(b.concrete, key)

	s := c.reg.Bind(key).When(contextualConstraint(b.concrete))
	commit(s)

	c.mu.Lock()
	if _, ok := c.contextual[b.concrete]; !ok {
		c.contextual[b.concrete] = make(map[string]uint64)
	}
	c.contextual[b.concrete][key] = s.Binding().ID
	c.mu.Unlock()
	return s
}

// hasContextual reports whether consumer has a rule for key that
// resolution can reach. A rule inherited by a child stops applying once the
// child binds key itself, as the parent's bindings are then shadowed.
func (c *Container) hasContextual(consumer, key string) bool {
	c.mu.RLock()
	id, ok := c.contextual[consumer][key]
	c.mu.RUnlock()
	return ok && reachable(c.ioc, key, id)
}

// reachable reports whether binding id belongs to the nearest container
// holding bindings for key.
func reachable(ic *ioc.Container, key string, id uint64) bool {
	for ; ic != nil; ic = ic.Parent() {
		bindings, err := ic.Bindings(key)
		if err != nil {
			continue
		}
		for _, b := range bindings {
			if b.ID == id {
				return true
			}
		}
		return false
	}
	return false
}

func (c *Container) dropContextual(consumer, key string) {
	c.mu.Lock()
	id, ok := c.contextual[consumer][key]
	if ok {
		delete(c.contextual[consumer], key)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	err := c.ioc.UnbindWhere(key, func(b *ioc.Binding) bool { return b.ID == id })
	if err != nil && !errors.Is(err, ioc.ErrKeyNotFound) {
		c.ioc.Logger().Warn("dropping contextual binding",
			zap.String("consumer", consumer), zap.String("abstract", key), zap.Error(err))
	}
}

// contextualConstraint matches requests tagged with consumer by Make, and
// untagged injections whose consumer is bound under the consumer name.
func contextualConstraint(consumer string) ioc.Constraint {
	return func(r *ioc.Request) bool {
		if r.Target.MatchesTag(ContextualTag, consumer) {
			return true
		}
		if r.Target.IsNamed() || r.Target.IsTagged() {
			return false
		}
		p := r.Consumer()
		return p != nil && p.ServiceIdentifier == consumer
	}
}
