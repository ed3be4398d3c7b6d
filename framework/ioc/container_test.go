package ioc_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-bootstrap/framework/ioc"
)

// ── scopes ────────────────────────────────────────────────────────────────────

func TestContainer_Scopes(t *testing.T) {
	t.Run("singleton returns the same instance", func(t *testing.T) {
		c := ioc.New()
		c.Bind("engine").To(engineClass()).InSingletonScope()

		a, err := c.Get("engine")
		require.NoError(t, err)
		b, err := c.Get("engine")
		require.NoError(t, err)
		assert.Same(t, a, b)
	})

	t.Run("transient returns fresh instances", func(t *testing.T) {
		c := ioc.New()
		calls := 0
		c.Bind("engine").ToDynamicValue(counter(&calls))

		a, err := c.Get("engine")
		require.NoError(t, err)
		b, err := c.Get("engine")
		require.NoError(t, err)
		assert.NotSame(t, a, b)
		assert.Equal(t, 2, calls)
	})

	t.Run("request scope is shared within one resolution", func(t *testing.T) {
		c := ioc.New()
		calls := 0
		c.Bind("engine").ToDynamicValue(counter(&calls)).InRequestScope()
		c.Bind("pair").To(&ioc.Class{
			Name: "Pair",
			Args: []*ioc.Dependency{ioc.Inject("engine"), ioc.Inject("engine")},
			New:  func(args []any) (any, error) { return args, nil },
		})

		v, err := c.Get("pair")
		require.NoError(t, err)
		pair := v.([]any)
		assert.Same(t, pair[0], pair[1])

		w, err := c.Get("pair")
		require.NoError(t, err)
		assert.NotSame(t, pair[0], w.([]any)[0])
		assert.Equal(t, 2, calls)
	})

	t.Run("request scope as the container default", func(t *testing.T) {
		c := ioc.New(ioc.WithDefaultScope(ioc.RequestScope))
		calls := 0
		b := c.Bind("engine").ToDynamicValue(counter(&calls)).Binding()
		assert.Equal(t, ioc.RequestScope, b.Scope)
		assert.Equal(t, "request", b.Scope.String())

		_, err := c.Get("engine")
		require.NoError(t, err)
		_, err = c.Get("engine")
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("default scope option", func(t *testing.T) {
		c := ioc.New(ioc.WithDefaultScope(ioc.Singleton))
		calls := 0
		c.Bind("engine").ToDynamicValue(counter(&calls))

		_, _ = c.Get("engine")
		_, _ = c.Get("engine")
		assert.Equal(t, 1, calls)
	})

	t.Run("constant values are singletons", func(t *testing.T) {
		c := ioc.New()
		b := c.Bind("dsn").ToConstantValue("file:app.db").Binding()
		assert.Equal(t, ioc.Singleton, b.Scope)
		assert.Equal(t, ioc.ConstantValue, b.Kind)
	})
}

// ── injection ─────────────────────────────────────────────────────────────────

func TestContainer_ConstructorAndPropertyInjection(t *testing.T) {
	c := ioc.New()
	c.Bind("engine").To(engineClass()).InSingletonScope()
	c.Bind("car").To(carClass())

	v, err := c.Get("car")
	require.NoError(t, err)
	got := v.(*car)
	require.NotNil(t, got.Engine)
	assert.Equal(t, "factory", got.Radio.station, "absent optional property keeps its default")

	c.Bind("radio").ToConstantValue(&radio{station: "jazz"})
	v, err = c.Get("car")
	require.NoError(t, err)
	assert.Equal(t, "jazz", v.(*car).Radio.station)
}

func TestContainer_MultiInjectionIntoTypedSlice(t *testing.T) {
	c := ioc.New()
	c.Bind("plugin").ToConstantValue("auth")
	c.Bind("plugin").ToConstantValue("cache")
	c.Bind("host").To(ioc.ClassOf("Host", func(plugins []string) []string { return plugins },
		ioc.MultiInject("plugin")))

	v, err := c.Get("host")
	require.NoError(t, err)
	assert.Equal(t, []string{"auth", "cache"}, v)
}

func TestContainer_OptionalArgument(t *testing.T) {
	c := ioc.New()
	c.Bind("car").To(ioc.ClassOf("Car", newCar, ioc.Inject("engine").Optional()))

	v, err := c.Get("car")
	require.NoError(t, err)
	assert.Nil(t, v.(*car).Engine)
}

func TestContainer_UnmanagedArgument(t *testing.T) {
	c := ioc.New()
	c.Bind("car").To(ioc.ClassOf("Car", newCar, ioc.Unmanaged()))

	v, err := c.Get("car")
	require.NoError(t, err)
	assert.Nil(t, v.(*car).Engine)
}

// ── multiple bindings ─────────────────────────────────────────────────────────

func TestContainer_GetAllAndAmbiguity(t *testing.T) {
	c := ioc.New()
	for _, v := range []int{1, 2, 3} {
		c.Bind("n").ToConstantValue(v)
	}

	all, err := c.GetAll("n")
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, all)

	_, err = c.Get("n")
	assert.ErrorIs(t, err, ioc.ErrAmbiguousMatch)

	ints, err := ioc.GetAll[int](c, "n")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ints)
}

func TestContainer_NotRegistered(t *testing.T) {
	c := ioc.New()

	_, err := c.Get("missing")
	assert.ErrorIs(t, err, ioc.ErrNotRegistered)

	v, err := c.TryGet("missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	all, err := c.TryGetAll("missing")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestContainer_NamedAndTagged(t *testing.T) {
	c := ioc.New()
	c.Bind("weapon").ToConstantValue("sword")
	c.Bind("weapon").ToConstantValue("katana").WhenTargetNamed("melee")
	c.Bind("weapon").ToConstantValue("shuriken").WhenTargetTagged("throwable", true)

	tests := []struct {
		name string
		get  func() (any, error)
		want any
	}{
		{"untagged gets the default", func() (any, error) { return c.Get("weapon") }, "sword"},
		{"named", func() (any, error) { return c.GetNamed("weapon", "melee") }, "katana"},
		{"tagged", func() (any, error) { return c.GetTagged("weapon", "throwable", true) }, "shuriken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.get()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := c.GetNamed("weapon", "ranged")
	assert.ErrorIs(t, err, ioc.ErrNotRegistered)

	assert.True(t, c.IsBoundNamed("weapon", "melee"))
	assert.False(t, c.IsBoundNamed("weapon", "ranged"))
	assert.True(t, c.IsBoundTagged("weapon", "throwable", true))

	named, err := c.GetAllNamed("weapon", "melee")
	require.NoError(t, err)
	assert.Equal(t, []any{"katana"}, named)
}

func TestContainer_InjectedIntoConstraint(t *testing.T) {
	c := ioc.New()
	c.Bind("engine").ToConstantValue(&engine{serial: -1}).WhenInjectedInto("racer")
	c.Bind("engine").ToConstantValue(&engine{serial: 1}).WhenNoAncestorIs("racer")
	c.Bind("racer").To(ioc.ClassOf("Racer", newCar, ioc.Inject("engine")))
	c.Bind("car").To(ioc.ClassOf("Car", newCar, ioc.Inject("engine")))

	racer, err := ioc.Get[*car](c, "racer")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), racer.Engine.serial)

	plain, err := ioc.Get[*car](c, "car")
	require.NoError(t, err)
	assert.Equal(t, int64(1), plain.Engine.serial)
}

// ── errors ────────────────────────────────────────────────────────────────────

func TestContainer_CircularDependency(t *testing.T) {
	c := ioc.New()
	c.Bind("A").To(stub("A", ioc.Inject("B")))
	c.Bind("B").To(stub("B", ioc.Inject("A")))

	_, err := c.Get("A")
	require.ErrorIs(t, err, ioc.ErrCircularDependency)
	assert.Contains(t, err.Error(), "A --> B --> A")
}

func TestContainer_CircularDependencyInFactory(t *testing.T) {
	c := ioc.New()
	c.Bind("loop").ToDynamicValue(func(ctx *ioc.Context) (any, error) {
		return ctx.Container.Get("loop")
	})

	_, err := c.Get("loop")
	assert.ErrorIs(t, err, ioc.ErrCircularDependencyInFactory)
}

func TestContainer_ProducerMayResolveOtherServices(t *testing.T) {
	c := ioc.New()
	c.Bind("engine").To(engineClass())
	c.Bind("car").ToDynamicValue(func(ctx *ioc.Context) (any, error) {
		e, err := ioc.Get[*engine](ctx.Container, "engine")
		if err != nil {
			return nil, err
		}
		return newCar(e), nil
	})

	v, err := ioc.Get[*car](c, "car")
	require.NoError(t, err)
	assert.NotNil(t, v.Engine)
}

func TestContainer_BaseClassArguments(t *testing.T) {
	base := stub("Base", ioc.Inject("a"), ioc.Inject("b"), ioc.Unmanaged())
	derived := stub("Derived", ioc.Inject("a"))
	derived.Base = base

	c := ioc.New()
	c.Bind("a").ToConstantValue(1)
	c.Bind("derived").To(derived)

	_, err := c.Get("derived")
	assert.ErrorIs(t, err, ioc.ErrArgumentsLengthMismatch)

	skipping := ioc.New(ioc.WithSkipBaseClassChecks())
	skipping.Bind("a").ToConstantValue(1)
	skipping.Bind("derived").To(derived)
	v, err := skipping.Get("derived")
	require.NoError(t, err)
	assert.Equal(t, "Derived", v)
}

func TestContainer_BaseClassNilArguments(t *testing.T) {
	base := stub("Base", nil, ioc.Inject("x"))
	derived := stub("Derived", nil, nil)
	derived.Base = base

	c := ioc.New()
	c.Bind("d").To(derived)
	v, err := c.Get("d")
	require.NoError(t, err)
	assert.Equal(t, "Derived", v)

	short := stub("Short", nil)
	short.Base = stub("Base", nil, ioc.Inject("x"), ioc.Inject("y"))
	c.Bind("short").To(short)
	_, err = c.Get("short")
	assert.ErrorIs(t, err, ioc.ErrArgumentsLengthMismatch)
}

func TestContainer_InvalidBindingType(t *testing.T) {
	c := ioc.New()
	c.Bind("pending")

	_, err := c.Get("pending")
	assert.ErrorIs(t, err, ioc.ErrInvalidBindingType)
}

func TestContainer_LifecycleScope(t *testing.T) {
	c := ioc.New()
	c.Bind("engine").To(engineClass()).OnDeactivation(func(any) error { return nil })

	_, err := c.Get("engine")
	assert.ErrorIs(t, err, ioc.ErrLifecycleScope)

	cls := engineClass()
	cls.PreDestroy = func(any) error { return nil }
	c.Bind("other").To(cls).InRequestScope()
	_, err = c.Get("other")
	assert.ErrorIs(t, err, ioc.ErrLifecycleScope)
}

func TestContainer_LifecycleScopeOnlyChecksClasses(t *testing.T) {
	c := ioc.New()
	calls := 0
	c.Bind("clock").ToDynamicValue(func(*ioc.Context) (any, error) { return "now", nil }).
		InTransientScope().
		OnDeactivation(func(any) error { calls++; return nil })

	v, err := c.Get("clock")
	require.NoError(t, err)
	assert.Equal(t, "now", v)

	require.NoError(t, c.Unbind("clock"))
	assert.Zero(t, calls, "transient values are never deactivated")
}

func TestContainer_PostConstructError(t *testing.T) {
	cls := engineClass()
	cls.PostConstruct = func(any) error { return errors.New("no fuel") }

	c := ioc.New()
	c.Bind("engine").To(cls)

	_, err := c.Get("engine")
	require.ErrorIs(t, err, ioc.ErrPostConstruct)
	assert.Contains(t, err.Error(), "Engine")
	assert.Contains(t, err.Error(), "no fuel")
}

func TestContainer_ProducerErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	c := ioc.New()
	c.Bind("broken").ToDynamicValue(func(*ioc.Context) (any, error) { return nil, boom })

	_, err := c.Get("broken")
	require.ErrorIs(t, err, boom)
	var re *ioc.ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "broken", re.ServiceIdentifier)
}

func TestContainer_NilIdentifier(t *testing.T) {
	c := ioc.New()
	_, err := c.Get(nil)
	assert.ErrorIs(t, err, ioc.ErrNilServiceIdentifier)
	assert.Panics(t, func() { c.Bind(nil) })
}

// ── activation ────────────────────────────────────────────────────────────────

func TestContainer_ActivationOrder(t *testing.T) {
	parent := ioc.New()
	child := parent.CreateChild()
	var order []string
	record := func(name string) ioc.ActivationHandler {
		return func(_ *ioc.Context, v any) (any, error) {
			order = append(order, name)
			return v, nil
		}
	}

	parent.Bind("svc").ToDynamicValue(func(*ioc.Context) (any, error) { return "v", nil }).
		OnActivation(record("binding"))
	require.NoError(t, parent.OnActivation("svc", record("parent")))
	require.NoError(t, child.OnActivation("svc", record("child")))

	_, err := child.Get("svc")
	require.NoError(t, err)
	assert.Equal(t, []string{"binding", "child", "parent"}, order)

	order = nil
	child.Bind("svc").ToDynamicValue(func(*ioc.Context) (any, error) { return "w", nil })
	_, err = child.Get("svc")
	require.NoError(t, err)
	assert.Equal(t, []string{"child"}, order, "handlers above the owning container do not run")
}

func TestContainer_ActivationReplacesValue(t *testing.T) {
	c := ioc.New()
	c.Bind("greeting").ToDynamicValue(func(*ioc.Context) (any, error) { return "hello", nil }).
		OnActivation(func(_ *ioc.Context, v any) (any, error) { return v.(string) + " world", nil })

	v, err := c.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello world", v)
}

// ── unbind ────────────────────────────────────────────────────────────────────

func TestContainer_UnbindRunsDeactivationOnce(t *testing.T) {
	c := ioc.New()
	calls := 0
	c.Bind("engine").To(engineClass()).InSingletonScope().
		OnDeactivation(func(any) error { calls++; return nil })

	_, err := c.Get("engine")
	require.NoError(t, err)

	require.NoError(t, c.Unbind("engine"))
	assert.Equal(t, 1, calls)
	assert.False(t, c.IsBound("engine"))

	err = c.Unbind("engine")
	assert.ErrorIs(t, err, ioc.ErrKeyNotFound)
	assert.Equal(t, 1, calls)
}

func TestContainer_UnbindSkipsInactiveSingletons(t *testing.T) {
	c := ioc.New()
	calls := 0
	c.Bind("engine").To(engineClass()).InSingletonScope().
		OnDeactivation(func(any) error { calls++; return nil })

	require.NoError(t, c.Unbind("engine"))
	assert.Zero(t, calls)
}

func TestContainer_DeactivationOrder(t *testing.T) {
	parent := ioc.New()
	child := parent.CreateChild()
	var order []string
	record := func(name string) ioc.DeactivationHandler {
		return func(any) error {
			order = append(order, name)
			return nil
		}
	}

	cls := engineClass()
	cls.PreDestroy = record("pre-destroy")
	child.Bind("engine").To(cls).InSingletonScope().OnDeactivation(record("binding"))
	require.NoError(t, parent.OnDeactivation("engine", record("parent")))
	require.NoError(t, child.OnDeactivation("engine", record("child")))

	_, err := child.Get("engine")
	require.NoError(t, err)
	require.NoError(t, child.UnbindAll())
	assert.Equal(t, []string{"binding", "parent", "child", "pre-destroy"}, order)
}

func TestContainer_Rebind(t *testing.T) {
	c := ioc.New()
	c.Bind("dsn").ToConstantValue("a")

	s, err := c.Rebind("dsn")
	require.NoError(t, err)
	s.ToConstantValue("b")

	v, err := c.Get("dsn")
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = c.Rebind("fresh")
	require.NoError(t, err)
}

// ── snapshot / restore ────────────────────────────────────────────────────────

func TestContainer_SnapshotRestore(t *testing.T) {
	c := ioc.New()
	c.Bind("engine").To(engineClass()).InSingletonScope()
	before, err := c.Get("engine")
	require.NoError(t, err)
	original, err := c.Bindings("engine")
	require.NoError(t, err)

	c.Snapshot()
	require.NoError(t, c.Unbind("engine"))
	c.Bind("radio").ToConstantValue(&radio{})
	c.ApplyMiddleware(func(next ioc.Next) ioc.Next { return next })

	require.NoError(t, c.Restore())

	restored, err := c.Bindings("engine")
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, original[0].ID, restored[0].ID)
	assert.False(t, c.IsBound("radio"))

	after, err := c.Get("engine")
	require.NoError(t, err)
	assert.Same(t, before, after)

	assert.ErrorIs(t, c.Restore(), ioc.ErrNoSnapshotAvailable)
}

// ── hierarchy ─────────────────────────────────────────────────────────────────

func TestContainer_ChildShadowsParent(t *testing.T) {
	parent := ioc.New()
	parent.Bind("env").ToConstantValue("production")
	child := parent.CreateChild()

	v, err := child.Get("env")
	require.NoError(t, err)
	assert.Equal(t, "production", v)
	assert.True(t, child.IsBound("env"))
	assert.False(t, child.IsCurrentBound("env"))

	child.Bind("env").ToConstantValue("testing")
	v, err = child.Get("env")
	require.NoError(t, err)
	assert.Equal(t, "testing", v)

	v, err = parent.Get("env")
	require.NoError(t, err)
	assert.Equal(t, "production", v)
	bindings, err := parent.Bindings("env")
	require.NoError(t, err)
	assert.Len(t, bindings, 1)
}

// ── middleware ────────────────────────────────────────────────────────────────

func TestContainer_Middleware(t *testing.T) {
	c := ioc.New()
	c.Bind("word").ToConstantValue("go")
	var seen []string
	c.ApplyMiddleware(
		func(next ioc.Next) ioc.Next {
			return func(args ioc.NextArgs) (any, error) {
				seen = append(seen, "first")
				v, err := next(args)
				return fmt.Sprintf("%v!", v), err
			}
		},
		func(next ioc.Next) ioc.Next {
			return func(args ioc.NextArgs) (any, error) {
				seen = append(seen, "second")
				return next(args)
			}
		},
	)

	v, err := c.Get("word")
	require.NoError(t, err)
	assert.Equal(t, "go!", v)
	assert.Equal(t, []string{"second", "first"}, seen)
}

func TestContainer_MiddlewareMustReturnNext(t *testing.T) {
	c := ioc.New()
	c.Bind("word").ToConstantValue("go")
	c.ApplyMiddleware(func(ioc.Next) ioc.Next { return nil })

	_, err := c.Get("word")
	assert.ErrorIs(t, err, ioc.ErrInvalidMiddlewareReturn)
}

// ── modules ───────────────────────────────────────────────────────────────────

func TestContainer_Modules(t *testing.T) {
	c := ioc.New()
	activated := 0
	deactivated := 0
	m := ioc.NewContainerModule(func(r *ioc.ModuleRegistry) error {
		r.Bind("engine").To(engineClass()).InSingletonScope()
		if err := r.OnActivation("engine", func(_ *ioc.Context, v any) (any, error) {
			activated++
			return v, nil
		}); err != nil {
			return err
		}
		return r.OnDeactivation("engine", func(any) error { deactivated++; return nil })
	})
	c.Bind("radio").ToConstantValue(&radio{})

	require.NoError(t, c.Load(m))
	_, err := c.Get("engine")
	require.NoError(t, err)
	assert.Equal(t, 1, activated)

	require.NoError(t, c.Unload(m))
	assert.Equal(t, 1, deactivated)
	assert.False(t, c.IsBound("engine"))
	assert.True(t, c.IsBound("radio"), "bindings outside the module survive")

	c.Bind("engine").To(engineClass())
	_, err = c.Get("engine")
	require.NoError(t, err)
	assert.Equal(t, 1, activated, "module handlers are gone")
}

func TestContainer_ModuleError(t *testing.T) {
	c := ioc.New()
	boom := errors.New("boom")
	err := c.Load(ioc.NewContainerModule(func(*ioc.ModuleRegistry) error { return boom }))
	assert.ErrorIs(t, err, boom)
}

// ── ad hoc resolution ─────────────────────────────────────────────────────────

func TestContainer_Resolve(t *testing.T) {
	c := ioc.New()
	c.Bind("engine").To(engineClass())
	cls := ioc.ClassOf("Car", newCar, ioc.Inject("engine"))

	v, err := c.Resolve(cls)
	require.NoError(t, err)
	assert.NotNil(t, v.(*car).Engine)
	assert.False(t, c.IsBound(cls))
}

func TestContainer_AutoBindInjectable(t *testing.T) {
	cls := engineClass()

	_, err := ioc.New().Get(cls)
	assert.ErrorIs(t, err, ioc.ErrNotRegistered)

	c := ioc.New(ioc.WithAutoBindInjectable())
	v, err := c.Get(cls)
	require.NoError(t, err)
	assert.IsType(t, &engine{}, v)
	assert.True(t, c.IsCurrentBound(cls))
}

func TestContainer_ToService(t *testing.T) {
	c := ioc.New()
	c.Bind("engine").To(engineClass()).InSingletonScope()
	c.Bind("motor").ToService("engine")

	a, err := c.Get("engine")
	require.NoError(t, err)
	b, err := c.Get("motor")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestContainer_SymbolIdentifiers(t *testing.T) {
	first := ioc.NewSymbol("Logger")
	second := ioc.NewSymbol("Logger")

	c := ioc.New()
	c.Bind(first).ToConstantValue("one")

	assert.True(t, c.IsBound(first))
	assert.False(t, c.IsBound(second))
	assert.Equal(t, "Symbol(Logger)", first.String())
}

func TestContainer_GenericTypeMismatch(t *testing.T) {
	c := ioc.New()
	c.Bind("n").ToConstantValue(1)

	_, err := ioc.Get[string](c, "n")
	assert.Error(t, err)
}
