package ioc

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// ServiceIdentifier names a bindable contract. Any comparable value works;
// the container recognises strings, *Symbol, *Class and reflect.Type when
// rendering identifiers in errors.
type ServiceIdentifier = any

// Symbol is a unique token usable as a ServiceIdentifier. Two symbols with
// the same description are still distinct identifiers.
type Symbol struct {
	description string
}

// NewSymbol returns a fresh, unique symbol.
func NewSymbol(description string) *Symbol {
	return &Symbol{description: description}
}

func (s *Symbol) String() string { return "Symbol(" + s.description + ")" }

// TypeOf returns the reflect.Type of T, useful as a stable identifier for
// interfaces:
//
//	c.Bind(ioc.TypeOf[Logger]()).ToConstantValue(logger)
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// IdentifierName renders a service identifier for messages and plan trees.
func IdentifierName(id ServiceIdentifier) string {
	switch v := id.(type) {
	case nil:
		return "<nil>"
	case string:
		return v
	case *Class:
		if v == nil {
			return "<nil class>"
		}
		return v.Name
	case reflect.Type:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func validIdentifier(id ServiceIdentifier) error {
	if id == nil {
		return ErrNilServiceIdentifier
	}
	if !reflect.TypeOf(id).Comparable() {
		return fmt.Errorf("%w: %T is not comparable", ErrInvalidServiceIdentifier, id)
	}
	return nil
}

// sameValue compares two metadata values without panicking on
// non-comparable dynamic types.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

var idCounter atomic.Uint64

// nextID hands out process-wide monotonic ids for bindings, requests,
// targets, contexts and modules.
func nextID() uint64 { return idCounter.Add(1) }
