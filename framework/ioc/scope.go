package ioc

// Scope controls how many instances a binding produces.
type Scope int

const (
	// Transient builds a new instance for every request.
	Transient Scope = iota

	// Singleton builds one instance per binding and caches it until the
	// binding is unbound.
	Singleton

	// RequestScope shares one instance across a single root resolution: two
	// dependencies on the same binding inside one Get receive the same
	// value, two separate Get calls do not.
	RequestScope
)

// String returns the human-readable name of the scope.
func (s Scope) String() string {
	switch s {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	case RequestScope:
		return "request"
	default:
		return "unknown"
	}
}

// BindingKind records which producer strategy a binding uses.
type BindingKind int

const (
	// Invalid is the kind of a binding no terminal builder call has
	// committed yet.
	Invalid BindingKind = iota
	ConstantValue
	Instance
	DynamicValue
	Factory
	Provider
	Constructor
	Function
)

func (k BindingKind) String() string {
	switch k {
	case Invalid:
		return "invalid"
	case ConstantValue:
		return "constant value"
	case Instance:
		return "instance"
	case DynamicValue:
		return "dynamic value"
	case Factory:
		return "factory"
	case Provider:
		return "provider"
	case Constructor:
		return "constructor"
	case Function:
		return "function"
	default:
		return "unknown"
	}
}
