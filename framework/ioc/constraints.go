package ioc

// Constraint constructors used by the When* builder methods. Each receives
// the request being planned; ancestor walks start at the consumer of that
// request.

// TargetNamed matches targets carrying the name tag.
func TargetNamed(name string) Constraint {
	return func(r *Request) bool {
		return r.Target.MatchesNamedTag(name)
	}
}

// TargetTagged matches targets carrying key=value.
func TargetTagged(key string, value any) Constraint {
	return func(r *Request) bool {
		return r.Target.MatchesTag(key, value)
	}
}

// TargetIsDefault matches targets with neither a name nor custom tags.
func TargetIsDefault() Constraint {
	return func(r *Request) bool {
		return !r.Target.IsNamed() && !r.Target.IsTagged()
	}
}

// InjectedInto matches when the consumer of the request is id.
func InjectedInto(id ServiceIdentifier) Constraint {
	return func(r *Request) bool {
		p := r.Consumer()
		return p != nil && p.ServiceIdentifier == id
	}
}

// ParentNamed matches when the consumer was itself requested by name.
func ParentNamed(name string) Constraint {
	return func(r *Request) bool {
		p := r.Consumer()
		return p != nil && p.Target.MatchesNamedTag(name)
	}
}

// ParentTagged matches when the consumer was itself requested with key=value.
func ParentTagged(key string, value any) Constraint {
	return func(r *Request) bool {
		p := r.Consumer()
		return p != nil && p.Target.MatchesTag(key, value)
	}
}

// AnyAncestorMatches matches when c holds for some ancestor request.
func AnyAncestorMatches(c Constraint) Constraint {
	return func(r *Request) bool {
		found := false
		r.ancestors(func(p *Request) bool {
			found = c(p)
			return !found
		})
		return found
	}
}

// NoAncestorMatches matches when c holds for no ancestor request.
func NoAncestorMatches(c Constraint) Constraint {
	matches := AnyAncestorMatches(c)
	return func(r *Request) bool { return !matches(r) }
}

// AnyAncestorIs matches when id appears above the request.
func AnyAncestorIs(id ServiceIdentifier) Constraint {
	return AnyAncestorMatches(func(p *Request) bool { return p.ServiceIdentifier == id })
}

// NoAncestorIs matches when id does not appear above the request.
func NoAncestorIs(id ServiceIdentifier) Constraint {
	return NoAncestorMatches(func(p *Request) bool { return p.ServiceIdentifier == id })
}

// AnyAncestorNamed matches when some ancestor was requested by name.
func AnyAncestorNamed(name string) Constraint {
	return AnyAncestorMatches(func(p *Request) bool { return p.Target.MatchesNamedTag(name) })
}

// NoAncestorNamed matches when no ancestor was requested by name.
func NoAncestorNamed(name string) Constraint {
	return NoAncestorMatches(func(p *Request) bool { return p.Target.MatchesNamedTag(name) })
}

// AnyAncestorTagged matches when some ancestor was requested with key=value.
func AnyAncestorTagged(key string, value any) Constraint {
	return AnyAncestorMatches(func(p *Request) bool { return p.Target.MatchesTag(key, value) })
}

// NoAncestorTagged matches when no ancestor was requested with key=value.
func NoAncestorTagged(key string, value any) Constraint {
	return NoAncestorMatches(func(p *Request) bool { return p.Target.MatchesTag(key, value) })
}
