package ioc

import (
	"errors"
	"fmt"
	"strings"
)

// maxPlanDepth bounds request tree expansion. Cycles through the same
// binding are caught before this; the guard catches graphs that never
// repeat a binding but still do not terminate.
const maxPlanDepth = 1000

var errPlanDepth = errors.New("maximum plan depth exceeded")

type planner struct {
	c   *Container
	ctx *Context
}

// plan builds the request tree for one resolution call.
func (c *Container) plan(args NextArgs) (*Context, error) {
	ctx := &Context{ID: nextID(), Container: c}
	ctx.Plan = &Plan{Context: ctx}

	var md []Metadata
	if args.IsMultiInject {
		md = append(md, Metadata{Key: MultiInjectTag, Value: true})
	}
	if args.IsOptional {
		md = append(md, Metadata{Key: OptionalTag, Value: true})
	}
	if args.Key != "" {
		md = append(md, Metadata{Key: args.Key, Value: args.Value})
	}
	target := newTarget(Variable, "", 0, args.ServiceIdentifier, md)

	p := &planner{c: c, ctx: ctx}
	root, err := p.expand(nil, target, args.AvoidConstraints, 0)
	ctx.Plan.Root = root
	if err != nil {
		return ctx, err
	}
	if args.ContextInterceptor != nil {
		ctx = args.ContextInterceptor(ctx)
	}
	return ctx, nil
}

func (p *planner) expand(parent *Request, target *Target, avoidConstraints bool, depth int) (*Request, error) {
	if depth > maxPlanDepth {
		return nil, depthError(parent)
	}
	if err := validIdentifier(target.ServiceIdentifier); err != nil {
		return nil, err
	}

	probe := &Request{
		ServiceIdentifier: target.ServiceIdentifier,
		Target:            target,
		Parent:            parent,
		Context:           p.ctx,
	}
	bindings, err := p.activeBindings(probe, avoidConstraints)
	if err != nil {
		return nil, err
	}

	req := newRequest(p.ctx, parent, target, bindings)
	if p.ctx.CurrentRequest == nil {
		p.ctx.CurrentRequest = req
	}

	if target.IsArray() {
		for _, b := range bindings {
			elem := newRequest(p.ctx, req, target, []*Binding{b})
			elem.element = true
			if err := p.expandBinding(elem, b, depth+1); err != nil {
				return req, err
			}
		}
		return req, nil
	}
	if len(bindings) == 1 {
		if err := p.expandBinding(req, bindings[0], depth); err != nil {
			return req, err
		}
	}
	return req, nil
}

// expandBinding attaches the dependency requests of an Instance binding.
func (p *planner) expandBinding(req *Request, b *Binding, depth int) error {
	if b.Kind != Instance || b.class == nil {
		return nil
	}
	if b.Scope == Singleton && b.Activated() {
		return nil
	}
	if req.repeatsBinding(b) {
		return fmt.Errorf("%w: %s", ErrCircularDependency, req.chain())
	}

	cls := b.class
	if !p.c.opts.skipBaseClassChecks {
		if err := cls.checkBaseArguments(); err != nil {
			return err
		}
	}
	for i, dep := range cls.Args {
		if dep == nil || dep.unmanaged {
			continue
		}
		t := newTarget(ConstructorArgument, "", i, dep.id, dep.metadata())
		if _, err := p.expand(req, t, false, depth+1); err != nil {
			return err
		}
	}
	for _, prop := range cls.properties() {
		if prop.Dep == nil || prop.Dep.unmanaged {
			continue
		}
		t := newTarget(ClassProperty, prop.Name, 0, prop.Dep.id, prop.Dep.metadata())
		if _, err := p.expand(req, t, false, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (p *planner) activeBindings(probe *Request, avoidConstraints bool) ([]*Binding, error) {
	target := probe.Target
	id := target.ServiceIdentifier

	all := p.c.bindingsFor(id)
	if len(all) == 0 && p.c.opts.autoBindInjectable {
		if cls, ok := id.(*Class); ok {
			all = []*Binding{p.c.autoBind(cls)}
		}
	}

	matched := all
	if !avoidConstraints {
		matched = make([]*Binding, 0, len(all))
		for _, b := range all {
			if b.matches(probe) {
				matched = append(matched, b)
			}
		}
	}

	switch {
	case len(matched) == 0 && !target.IsOptional():
		return nil, fmt.Errorf("%w for service identifier %s%s", ErrNotRegistered, target, describeBindings(all))
	case len(matched) > 1 && !target.IsArray():
		return nil, fmt.Errorf("%w for service identifier %s%s", ErrAmbiguousMatch, target, describeBindings(matched))
	}
	return matched, nil
}

// repeatsBinding reports whether b is already being expanded above r.
func (r *Request) repeatsBinding(b *Binding) bool {
	found := false
	r.ancestors(func(p *Request) bool {
		if len(p.Bindings) == 1 && p.Bindings[0].ID == b.ID {
			found = true
			return false
		}
		return true
	})
	return found
}

// depthError re-walks the partial tree for a repeated identifier.
func depthError(last *Request) error {
	for r := last; r != nil; r = r.Parent {
		if r.repeats() {
			return fmt.Errorf("%w: %s", ErrCircularDependency, r.chain())
		}
	}
	return errPlanDepth
}

func describeBindings(bindings []*Binding) string {
	if len(bindings) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\nregistered bindings:")
	for _, b := range bindings {
		fmt.Fprintf(&sb, "\n  %s (%s", IdentifierName(b.ServiceIdentifier), b.Kind)
		if b.class != nil {
			fmt.Fprintf(&sb, " %s", b.class.Name)
		}
		sb.WriteString(")")
	}
	return sb.String()
}
