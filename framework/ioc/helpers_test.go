package ioc_test

import (
	"sync/atomic"

	"github.com/km-arc/go-bootstrap/framework/ioc"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type engine struct{ serial int64 }

type radio struct{ station string }

type car struct {
	Engine *engine
	Radio  *radio
}

var serials atomic.Int64

func newEngine() *engine { return &engine{serial: serials.Add(1)} }

func newCar(e *engine) *car {
	return &car{Engine: e, Radio: &radio{station: "factory"}}
}

func engineClass() *ioc.Class {
	return ioc.ClassOf("Engine", newEngine)
}

func carClass() *ioc.Class {
	cls := ioc.ClassOf("Car", newCar, ioc.Inject("engine"))
	cls.Props = []*ioc.Property{ioc.Prop("Radio", ioc.Inject("radio").Optional())}
	return cls
}

// counter returns a dynamic value producer handing out fresh *engine values.
func counter(calls *int) ioc.Producer {
	return func(*ioc.Context) (any, error) {
		*calls++
		return newEngine(), nil
	}
}

// stub builds a class named name whose constructor ignores its arguments.
func stub(name string, deps ...*ioc.Dependency) *ioc.Class {
	return &ioc.Class{
		Name: name,
		Args: deps,
		New:  func([]any) (any, error) { return name, nil },
	}
}
