package ioc

import (
	"fmt"
)

// BindingSyntax is the fluent builder returned by Bind. Calls mutate the
// underlying binding in place and may be chained in any order; the last
// To* call wins.
type BindingSyntax struct {
	binding *Binding
}

// Binding returns the binding under construction.
func (s *BindingSyntax) Binding() *Binding { return s.binding }

// ── Producers ───────────────────────────────────────────────────────

func (s *BindingSyntax) commit(kind BindingKind) *Binding {
	b := s.binding
	b.resetProducer()
	b.Kind = kind
	return b
}

// To builds instances of cls, injecting its declared dependencies.
func (s *BindingSyntax) To(cls *Class) *BindingSyntax {
	s.commit(Instance).class = cls
	return s
}

// ToSelf binds a *Class identifier to itself. It panics when the
// identifier is not a *Class.
func (s *BindingSyntax) ToSelf() *BindingSyntax {
	cls, ok := s.binding.ServiceIdentifier.(*Class)
	if !ok {
		panic(fmt.Errorf("%w: ToSelf needs a *Class identifier, got %T", ErrInvalidClass, s.binding.ServiceIdentifier))
	}
	return s.To(cls)
}

// ToConstantValue always resolves to v. The binding becomes a singleton.
func (s *BindingSyntax) ToConstantValue(v any) *BindingSyntax {
	b := s.commit(ConstantValue)
	b.value = v
	b.Scope = Singleton
	return s
}

// ToDynamicValue calls fn on every resolution allowed by the scope.
func (s *BindingSyntax) ToDynamicValue(fn Producer) *BindingSyntax {
	s.commit(DynamicValue).dynamicValue = fn
	return s
}

// ToFactory binds the result of fn, typically a constructor closure. The
// binding becomes a singleton.
func (s *BindingSyntax) ToFactory(fn Producer) *BindingSyntax {
	b := s.commit(Factory)
	b.factory = fn
	b.Scope = Singleton
	return s
}

// ToProvider binds the result of fn, typically a closure returning a
// *Future. The binding becomes a singleton.
func (s *BindingSyntax) ToProvider(fn Producer) *BindingSyntax {
	b := s.commit(Provider)
	b.provider = fn
	b.Scope = Singleton
	return s
}

// ToFunction binds fn itself as the value.
func (s *BindingSyntax) ToFunction(fn any) *BindingSyntax {
	b := s.commit(Function)
	b.value = fn
	b.Scope = Singleton
	return s
}

// ToConstructor binds the class descriptor itself, for consumers that
// build instances later.
func (s *BindingSyntax) ToConstructor(cls *Class) *BindingSyntax {
	b := s.commit(Constructor)
	b.class = cls
	b.Scope = Singleton
	return s
}

// ToService forwards resolution to another identifier.
func (s *BindingSyntax) ToService(id ServiceIdentifier) *BindingSyntax {
	return s.ToDynamicValue(func(ctx *Context) (any, error) {
		return ctx.Container.run(NextArgs{ServiceIdentifier: id})
	})
}

// ── Scope ───────────────────────────────────────────────────────────

func (s *BindingSyntax) InSingletonScope() *BindingSyntax {
	s.binding.Scope = Singleton
	return s
}

func (s *BindingSyntax) InTransientScope() *BindingSyntax {
	s.binding.Scope = Transient
	return s
}

func (s *BindingSyntax) InRequestScope() *BindingSyntax {
	s.binding.Scope = RequestScope
	return s
}

// ── Constraints ─────────────────────────────────────────────────────

// When restricts the binding to requests accepted by c.
func (s *BindingSyntax) When(c Constraint) *BindingSyntax {
	s.binding.Constraint = c
	return s
}

func (s *BindingSyntax) WhenTargetNamed(name string) *BindingSyntax {
	return s.When(TargetNamed(name))
}

func (s *BindingSyntax) WhenTargetIsDefault() *BindingSyntax {
	return s.When(TargetIsDefault())
}

func (s *BindingSyntax) WhenTargetTagged(key string, value any) *BindingSyntax {
	return s.When(TargetTagged(key, value))
}

func (s *BindingSyntax) WhenInjectedInto(id ServiceIdentifier) *BindingSyntax {
	return s.When(InjectedInto(id))
}

func (s *BindingSyntax) WhenParentNamed(name string) *BindingSyntax {
	return s.When(ParentNamed(name))
}

func (s *BindingSyntax) WhenParentTagged(key string, value any) *BindingSyntax {
	return s.When(ParentTagged(key, value))
}

func (s *BindingSyntax) WhenAnyAncestorIs(id ServiceIdentifier) *BindingSyntax {
	return s.When(AnyAncestorIs(id))
}

func (s *BindingSyntax) WhenNoAncestorIs(id ServiceIdentifier) *BindingSyntax {
	return s.When(NoAncestorIs(id))
}

func (s *BindingSyntax) WhenAnyAncestorNamed(name string) *BindingSyntax {
	return s.When(AnyAncestorNamed(name))
}

func (s *BindingSyntax) WhenNoAncestorNamed(name string) *BindingSyntax {
	return s.When(NoAncestorNamed(name))
}

func (s *BindingSyntax) WhenAnyAncestorTagged(key string, value any) *BindingSyntax {
	return s.When(AnyAncestorTagged(key, value))
}

func (s *BindingSyntax) WhenNoAncestorTagged(key string, value any) *BindingSyntax {
	return s.When(NoAncestorTagged(key, value))
}

func (s *BindingSyntax) WhenAnyAncestorMatches(c Constraint) *BindingSyntax {
	return s.When(AnyAncestorMatches(c))
}

func (s *BindingSyntax) WhenNoAncestorMatches(c Constraint) *BindingSyntax {
	return s.When(NoAncestorMatches(c))
}

// ── Lifecycle ───────────────────────────────────────────────────────

// OnActivation runs h on every freshly produced value, before container
// level handlers.
func (s *BindingSyntax) OnActivation(h ActivationHandler) *BindingSyntax {
	s.binding.onActivation = h
	return s
}

// OnDeactivation runs h before the cached singleton is discarded.
func (s *BindingSyntax) OnDeactivation(h DeactivationHandler) *BindingSyntax {
	s.binding.onDeactivation = h
	s.binding.onDeactivationAsync = nil
	return s
}

// OnDeactivationAsync is OnDeactivation for handlers that must wait.
func (s *BindingSyntax) OnDeactivationAsync(h AsyncDeactivationHandler) *BindingSyntax {
	s.binding.onDeactivationAsync = h
	s.binding.onDeactivation = nil
	return s
}
