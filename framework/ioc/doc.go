// Package ioc is the resolution engine behind the framework container: a
// binding registry, a planner that expands a request tree for each call,
// and a scope-aware resolver.
//
// # Bindings
//
// Any comparable value identifies a service. Strings and symbols name
// contracts; a *Class names a concrete type together with the metadata the
// planner needs to build it.
//
//	c := ioc.New()
//	c.Bind("db.dsn").ToConstantValue("file:app.db")
//	c.Bind("clock").ToDynamicValue(func(*ioc.Context) (any, error) { return time.Now(), nil })
//
//	repo := ioc.ClassOf("UserRepo", NewUserRepo, ioc.Inject("db"), ioc.Inject("log").Optional())
//	c.Bind("users").To(repo).InSingletonScope()
//
// # Scopes
//
// Transient builds on every request, Singleton once per binding, and
// Request once per root Get call. ToConstantValue, ToFunction, ToFactory,
// ToProvider and ToConstructor bindings are singletons unless a scope call
// follows.
//
// # Disambiguation
//
// Several bindings may share an identifier. Constraints pick one:
//
//	c.Bind("store").To(diskStore).WhenTargetNamed("disk")
//	c.Bind("store").To(memStore).WhenTargetIsDefault()
//	c.GetNamed("store", "disk")
//
// A binding without a constraint only serves targets that carry neither a
// name nor custom tags. GetAll ignores constraints and returns every
// binding in registration order.
//
// # Asynchrony
//
// A producer or hook returning a *Future makes the rest of the resolution
// pending. Get refuses such graphs with ErrSyncResolutionOfAsyncDependency;
// GetAsync awaits them. Futures run on the goroutine that awaits them.
//
// # Hierarchy
//
// CreateChild returns a container that falls back to its parent for
// identifiers it does not bind itself. Snapshot and Restore save and
// reinstate the registry, handlers and middleware.
package ioc
