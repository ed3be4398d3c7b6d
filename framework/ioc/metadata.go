package ioc

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Reserved metadata keys.
const (
	NamedTag       = "named"
	MultiInjectTag = "multi_inject"
	OptionalTag    = "optional"
	UnmanagedTag   = "unmanaged"
	InjectTag      = "inject"
)

var reservedTags = map[string]bool{
	NamedTag:       true,
	MultiInjectTag: true,
	OptionalTag:    true,
	UnmanagedTag:   true,
	InjectTag:      true,
}

// Metadata is a single key/value tag attached to a Target.
type Metadata struct {
	Key   string
	Value any
}

// TargetKind tells where an injection point lives.
type TargetKind int

const (
	Variable TargetKind = iota
	ConstructorArgument
	ClassProperty
)

func (k TargetKind) String() string {
	switch k {
	case Variable:
		return "variable"
	case ConstructorArgument:
		return "constructor argument"
	case ClassProperty:
		return "class property"
	default:
		return "unknown"
	}
}

// Target describes one injection point: the root of a Get call, a
// constructor argument or a class property.
type Target struct {
	ID                uint64
	Kind              TargetKind
	Name              string
	Index             int
	ServiceIdentifier ServiceIdentifier
	Metadata          []Metadata
}

func newTarget(kind TargetKind, name string, index int, id ServiceIdentifier, md []Metadata) *Target {
	return &Target{
		ID:                nextID(),
		Kind:              kind,
		Name:              name,
		Index:             index,
		ServiceIdentifier: id,
		Metadata:          md,
	}
}

func (t *Target) lookup(key string) (any, bool) {
	for _, m := range t.Metadata {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// HasTag reports whether the target carries metadata under key.
func (t *Target) HasTag(key string) bool {
	_, ok := t.lookup(key)
	return ok
}

// MatchesTag reports whether the target carries key with value.
func (t *Target) MatchesTag(key string, value any) bool {
	for _, m := range t.Metadata {
		if m.Key == key && sameValue(m.Value, value) {
			return true
		}
	}
	return false
}

// IsNamed reports whether the target has a name tag.
func (t *Target) IsNamed() bool { return t.HasTag(NamedTag) }

// MatchesNamedTag reports whether the target is named name.
func (t *Target) MatchesNamedTag(name string) bool { return t.MatchesTag(NamedTag, name) }

// IsArray reports whether the target is multi-injected.
func (t *Target) IsArray() bool { return t.MatchesTag(MultiInjectTag, true) }

// IsOptional reports whether the target may resolve to nothing.
func (t *Target) IsOptional() bool { return t.MatchesTag(OptionalTag, true) }

// IsTagged reports whether the target carries custom (non-reserved) tags.
func (t *Target) IsTagged() bool {
	for _, m := range t.Metadata {
		if !reservedTags[m.Key] {
			return true
		}
	}
	return false
}

// CustomTags returns the non-reserved tags of the target.
func (t *Target) CustomTags() []Metadata {
	var out []Metadata
	for _, m := range t.Metadata {
		if !reservedTags[m.Key] {
			out = append(out, m)
		}
	}
	return out
}

func (t *Target) String() string {
	s := IdentifierName(t.ServiceIdentifier)
	for _, m := range t.Metadata {
		if m.Key == MultiInjectTag || m.Key == OptionalTag {
			continue
		}
		s += fmt.Sprintf(" [%s: %v]", m.Key, m.Value)
	}
	return s
}

// Dependency is the metadata of one constructor argument or property:
// the identifier to inject plus its tags.
type Dependency struct {
	id        ServiceIdentifier
	tags      []Metadata
	multi     bool
	optional  bool
	unmanaged bool
}

// Inject declares a dependency on id.
func Inject(id ServiceIdentifier) *Dependency {
	return &Dependency{id: id}
}

// MultiInject declares a dependency on every binding of id, delivered as []any.
func MultiInject(id ServiceIdentifier) *Dependency {
	return &Dependency{id: id, multi: true}
}

// Unmanaged declares a constructor argument the container leaves nil.
func Unmanaged() *Dependency {
	return &Dependency{unmanaged: true}
}

// Named tags the dependency with a name.
func (d *Dependency) Named(name string) *Dependency {
	d.tags = append(d.tags, Metadata{Key: NamedTag, Value: name})
	return d
}

// Tagged adds a custom tag to the dependency.
func (d *Dependency) Tagged(key string, value any) *Dependency {
	d.tags = append(d.tags, Metadata{Key: key, Value: value})
	return d
}

// Optional lets the dependency resolve to nil when nothing is bound.
func (d *Dependency) Optional() *Dependency {
	d.optional = true
	return d
}

// ServiceIdentifier returns the identifier the dependency asks for.
func (d *Dependency) ServiceIdentifier() ServiceIdentifier { return d.id }

// IsUnmanaged reports whether the container skips this dependency.
func (d *Dependency) IsUnmanaged() bool { return d.unmanaged }

func (d *Dependency) metadata() []Metadata {
	md := make([]Metadata, 0, len(d.tags)+3)
	md = append(md, Metadata{Key: InjectTag, Value: d.id})
	if d.multi {
		md = append(md, Metadata{Key: MultiInjectTag, Value: true})
	}
	if d.optional {
		md = append(md, Metadata{Key: OptionalTag, Value: true})
	}
	return append(md, d.tags...)
}

// Property is a dependency injected into an instance after construction.
type Property struct {
	Name string
	Dep  *Dependency

	// Set assigns the value. When nil, the exported struct field Name of
	// the (pointer to) struct instance is set by reflection.
	Set func(instance, value any) error
}

// Prop declares a property dependency.
func Prop(name string, dep *Dependency) *Property {
	return &Property{Name: name, Dep: dep}
}

func (p *Property) assign(instance, value any) error {
	if p.Set != nil {
		return p.Set(instance, value)
	}
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s on %T: instance is not a pointer to struct", ErrPropertyInjection, p.Name, instance)
	}
	field := v.Elem().FieldByName(p.Name)
	if !field.IsValid() || !field.CanSet() {
		return fmt.Errorf("%w: %s on %T: no settable field", ErrPropertyInjection, p.Name, instance)
	}
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	rv, err := convertArg(reflect.ValueOf(value), field.Type())
	if err != nil {
		return fmt.Errorf("%w: %s on %T: %v", ErrPropertyInjection, p.Name, instance, err)
	}
	field.Set(rv)
	return nil
}

// Class describes how to build instances of a registrable type: its
// constructor, the ordered constructor dependencies, property
// dependencies and lifecycle hooks. A *Class is itself a valid
// ServiceIdentifier.
type Class struct {
	Name  string
	New   func(args []any) (any, error)
	Args  []*Dependency
	Props []*Property

	// Base is the class this one extends. Its properties are inherited and
	// its managed argument count is checked against Args.
	Base               *Class
	SkipBaseClassCheck bool

	PostConstruct      func(instance any) error
	PostConstructAsync func(ctx context.Context, instance any) error
	PreDestroy         func(instance any) error
	PreDestroyAsync    func(ctx context.Context, instance any) error
}

func (c *Class) String() string { return c.Name }

// ClassOf builds a Class from a constructor function of the form
// func(deps...) T or func(deps...) (T, error). Each parameter is matched
// positionally with args; unmanaged and absent optional arguments receive
// the zero value of the parameter type.
func ClassOf(name string, constructor any, args ...*Dependency) *Class {
	fn := reflect.ValueOf(constructor)
	cls := &Class{Name: name, Args: args}
	cls.New = func(values []any) (any, error) {
		if fn.Kind() != reflect.Func {
			return nil, fmt.Errorf("%w: %s: constructor must be a function", ErrInvalidClass, name)
		}
		typ := fn.Type()
		if typ.NumIn() != len(values) {
			return nil, fmt.Errorf("%w: %s: constructor takes %d arguments, %d declared", ErrInvalidClass, name, typ.NumIn(), len(values))
		}
		if typ.NumOut() == 0 || typ.NumOut() > 2 {
			return nil, fmt.Errorf("%w: %s: constructor must return (T) or (T, error)", ErrInvalidClass, name)
		}
		in := make([]reflect.Value, len(values))
		for i, v := range values {
			if v == nil {
				in[i] = reflect.Zero(typ.In(i))
				continue
			}
			rv, err := convertArg(reflect.ValueOf(v), typ.In(i))
			if err != nil {
				return nil, fmt.Errorf("%w: %s argument %d: %v", ErrInvalidClass, name, i, err)
			}
			in[i] = rv
		}
		out := fn.Call(in)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
	return cls
}

// convertArg adapts v to typ. Multi-injected values arrive as []any and are
// converted element-wise into typed slices.
func convertArg(v reflect.Value, typ reflect.Type) (reflect.Value, error) {
	if v.Type().AssignableTo(typ) {
		return v, nil
	}
	if typ.Kind() == reflect.Slice {
		if items, ok := v.Interface().([]any); ok {
			out := reflect.MakeSlice(typ, len(items), len(items))
			for i, item := range items {
				if item == nil {
					continue
				}
				ev, err := convertArg(reflect.ValueOf(item), typ.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(ev)
			}
			return out, nil
		}
	}
	if v.Type().ConvertibleTo(typ) && v.Kind() != reflect.Slice {
		return v.Convert(typ), nil
	}
	return reflect.Value{}, errors.New(v.Type().String() + " is not assignable to " + typ.String())
}

// properties returns base class properties first, own properties
// overriding inherited ones with the same name.
func (c *Class) properties() []*Property {
	var chain []*Class
	for k := c; k != nil; k = k.Base {
		chain = append(chain, k)
	}
	index := make(map[string]int)
	var out []*Property
	for i := len(chain) - 1; i >= 0; i-- {
		for _, p := range chain[i].Props {
			if at, ok := index[p.Name]; ok {
				out[at] = p
				continue
			}
			index[p.Name] = len(out)
			out = append(out, p)
		}
	}
	return out
}

// checkBaseArguments compares the class argument count with the managed
// arguments of its nearest ancestor declaring any. Nil slots count as
// unmanaged.
func (c *Class) checkBaseArguments() error {
	if c.SkipBaseClassCheck {
		return nil
	}
	for base := c.Base; base != nil; base = base.Base {
		if len(base.Args) == 0 {
			continue
		}
		managed := 0
		for _, d := range base.Args {
			if d != nil && !d.unmanaged {
				managed++
			}
		}
		if len(c.Args) < managed {
			return fmt.Errorf("%w: the number of constructor arguments in the derived class %s must be >= than the number of constructor arguments of its base class %s (%d < %d)",
				ErrArgumentsLengthMismatch, c.Name, base.Name, len(c.Args), managed)
		}
		return nil
	}
	return nil
}

func (c *Class) hasTeardown() bool {
	return c.PreDestroy != nil || c.PreDestroyAsync != nil
}
