package ioc

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRegistered is returned when no binding matches a non-optional
	// target.
	ErrNotRegistered = errors.New("no matching bindings found")

	// ErrAmbiguousMatch is returned when more than one binding matches a
	// target that is not multi-injected.
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrCircularDependency is returned when a service depends on itself
	// through its constructor or property graph. The message includes the
	// full chain rendered as "A --> B --> A".
	ErrCircularDependency = errors.New("circular dependency found")

	// ErrCircularDependencyInFactory is returned when a dynamic value,
	// factory or provider resolves its own binding while it is running.
	ErrCircularDependencyInFactory = errors.New("circular dependency in producer")

	// ErrArgumentsLengthMismatch is returned when a class declares fewer
	// dependencies than the managed dependencies of its base class.
	ErrArgumentsLengthMismatch = errors.New("arguments length mismatch")

	// ErrInvalidBindingType is returned when a binding has no producer
	// matching its kind.
	ErrInvalidBindingType = errors.New("invalid binding type")

	// ErrAsyncUnbindRequired is returned by the synchronous unbind family
	// when a deactivation step is asynchronous.
	ErrAsyncUnbindRequired = errors.New("asynchronous deactivation requires UnbindAsync")

	// ErrNoSnapshotAvailable is returned by Restore on an empty snapshot stack.
	ErrNoSnapshotAvailable = errors.New("no snapshot available to restore")

	// ErrKeyNotFound is returned by lookups for an identifier with no entries.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidMiddlewareReturn is returned when a middleware returns a nil
	// Next.
	ErrInvalidMiddlewareReturn = errors.New("middleware must return a resolution function")

	// ErrSyncResolutionOfAsyncDependency is returned by the synchronous Get
	// family when any value in the resolved graph is still pending.
	ErrSyncResolutionOfAsyncDependency = errors.New("synchronous resolution of an asynchronous dependency")

	// ErrNilServiceIdentifier is returned when nil is used as an identifier.
	ErrNilServiceIdentifier = errors.New("service identifier cannot be nil")

	// ErrInvalidServiceIdentifier is returned for identifiers that cannot be
	// used as map keys.
	ErrInvalidServiceIdentifier = errors.New("invalid service identifier")

	// ErrPostConstruct wraps a failure of a class post-construct hook.
	ErrPostConstruct = errors.New("post construct error")

	// ErrLifecycleScope is returned when a non-singleton binding declares a
	// teardown hook.
	ErrLifecycleScope = errors.New("teardown hooks require singleton scope")

	// ErrInvalidClass is returned for class descriptors that cannot be
	// instantiated.
	ErrInvalidClass = errors.New("invalid class")

	// ErrPropertyInjection is returned when a property value cannot be
	// assigned to the instance.
	ErrPropertyInjection = errors.New("property injection failed")
)

// ResolveError wraps an error returned by a producer or constructor with
// the identifier being resolved.
type ResolveError struct {
	ServiceIdentifier ServiceIdentifier
	Kind              BindingKind
	Err               error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolving %s (%s): %v", IdentifierName(e.ServiceIdentifier), e.Kind, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

func wrapResolveError(b *Binding, err error) error {
	var re *ResolveError
	if errors.As(err, &re) {
		return err
	}
	return &ResolveError{ServiceIdentifier: b.ServiceIdentifier, Kind: b.Kind, Err: err}
}
