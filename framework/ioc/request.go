package ioc

import (
	"fmt"
	"strings"

	"github.com/m1gwings/treedrawer/tree"
)

// Context is handed to producers and activation handlers. Container is
// the container the resolution runs against; resolving through it keeps
// producer recursion detectable.
type Context struct {
	ID             uint64
	Container      *Container
	Plan           *Plan
	CurrentRequest *Request
}

// Plan is the expanded dependency graph of one resolution call.
type Plan struct {
	Context *Context
	Root    *Request
}

// Request is one node of the request tree.
type Request struct {
	ID                uint64
	ServiceIdentifier ServiceIdentifier
	Target            *Target
	Parent            *Request
	Children          []*Request
	Bindings          []*Binding
	Context           *Context

	// element marks the per-binding child of a multi-injected request.
	element bool

	// scope caches Request-scoped values; only the root owns one.
	scope map[uint64]any
}

func newRequest(ctx *Context, parent *Request, target *Target, bindings []*Binding) *Request {
	r := &Request{
		ID:                nextID(),
		ServiceIdentifier: target.ServiceIdentifier,
		Target:            target,
		Parent:            parent,
		Bindings:          bindings,
		Context:           ctx,
	}
	if parent == nil {
		r.scope = make(map[uint64]any)
	} else {
		parent.Children = append(parent.Children, r)
	}
	return r
}

func (r *Request) root() *Request {
	for r.Parent != nil {
		r = r.Parent
	}
	return r
}

// ancestors walks the logical parents of r. The multi-injection node that
// owns an element request is the same injection point and is skipped.
func (r *Request) ancestors(fn func(p *Request) bool) {
	cur := r
	for cur.Parent != nil {
		p := cur.Parent
		if cur.element {
			cur = p
			continue
		}
		if !fn(p) {
			return
		}
		cur = p
	}
}

// Consumer returns the request whose class receives r, or nil at the root.
func (r *Request) Consumer() *Request {
	var consumer *Request
	r.ancestors(func(p *Request) bool {
		consumer = p
		return false
	})
	return consumer
}

// chain renders the identifiers from the root down to r.
func (r *Request) chain() string {
	names := []string{IdentifierName(r.ServiceIdentifier)}
	r.ancestors(func(p *Request) bool {
		names = append(names, IdentifierName(p.ServiceIdentifier))
		return true
	})
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, " --> ")
}

// repeats reports whether r's identifier already appears above it.
func (r *Request) repeats() bool {
	found := false
	r.ancestors(func(p *Request) bool {
		if p.ServiceIdentifier == r.ServiceIdentifier {
			found = true
			return false
		}
		return true
	})
	return found
}

// Tree renders the plan as a drawing of the request tree.
func (p *Plan) Tree() string {
	if p == nil || p.Root == nil {
		return ""
	}
	t := tree.NewTree(tree.NodeString(requestLabel(p.Root)))
	drawChildren(t, p.Root)
	return t.String()
}

func drawChildren(t *tree.Tree, r *Request) {
	for _, child := range r.Children {
		drawChildren(t.AddChild(tree.NodeString(requestLabel(child))), child)
	}
}

func requestLabel(r *Request) string {
	label := r.Target.String()
	switch r.Target.Kind {
	case ConstructorArgument:
		label = fmt.Sprintf("#%d %s", r.Target.Index, label)
	case ClassProperty:
		label = fmt.Sprintf(".%s %s", r.Target.Name, label)
	}
	if r.Target.IsArray() && !r.element {
		return label + " []"
	}
	if len(r.Bindings) == 1 {
		b := r.Bindings[0]
		return fmt.Sprintf("%s (%s, %s)", label, b.Kind, b.Scope)
	}
	return label
}
