package ioc

import "fmt"

// Clonable values are deep-copied by Lookup.Clone.
type Clonable[T any] interface {
	Clone() T
}

// Lookup is an ordered multi-map from service identifier to values. Keys
// keep their first-insertion order and values keep their append order.
type Lookup[T any] struct {
	keys    []ServiceIdentifier
	entries map[ServiceIdentifier][]T
}

// NewLookup returns an empty lookup.
func NewLookup[T any]() *Lookup[T] {
	return &Lookup[T]{entries: make(map[ServiceIdentifier][]T)}
}

// Add appends v to the list for id.
func (l *Lookup[T]) Add(id ServiceIdentifier, v T) error {
	if err := validIdentifier(id); err != nil {
		return err
	}
	if _, ok := l.entries[id]; !ok {
		l.keys = append(l.keys, id)
	}
	l.entries[id] = append(l.entries[id], v)
	return nil
}

// Get returns a copy of the list for id.
func (l *Lookup[T]) Get(id ServiceIdentifier) ([]T, error) {
	if err := validIdentifier(id); err != nil {
		return nil, err
	}
	values, ok := l.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, IdentifierName(id))
	}
	out := make([]T, len(values))
	copy(out, values)
	return out, nil
}

// HasKey reports whether id has any entries.
func (l *Lookup[T]) HasKey(id ServiceIdentifier) bool {
	if validIdentifier(id) != nil {
		return false
	}
	_, ok := l.entries[id]
	return ok
}

// Remove deletes the whole list for id.
func (l *Lookup[T]) Remove(id ServiceIdentifier) error {
	if err := validIdentifier(id); err != nil {
		return err
	}
	if _, ok := l.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, IdentifierName(id))
	}
	delete(l.entries, id)
	l.dropKey(id)
	return nil
}

// RemoveByCondition filters every list in place and returns the removed
// values in key order.
func (l *Lookup[T]) RemoveByCondition(pred func(T) bool) []T {
	var removed []T
	for _, id := range append([]ServiceIdentifier(nil), l.keys...) {
		kept := l.entries[id][:0:0]
		for _, v := range l.entries[id] {
			if pred(v) {
				removed = append(removed, v)
				continue
			}
			kept = append(kept, v)
		}
		if len(kept) == 0 {
			delete(l.entries, id)
			l.dropKey(id)
			continue
		}
		l.entries[id] = kept
	}
	return removed
}

// Traverse visits every key with its values in registration order.
func (l *Lookup[T]) Traverse(fn func(id ServiceIdentifier, values []T)) {
	for _, id := range l.keys {
		fn(id, l.entries[id])
	}
}

// Keys returns the identifiers in registration order.
func (l *Lookup[T]) Keys() []ServiceIdentifier {
	return append([]ServiceIdentifier(nil), l.keys...)
}

// Len returns the number of keys.
func (l *Lookup[T]) Len() int { return len(l.keys) }

// Clone deep-copies the lookup, cloning values that implement Clonable.
func (l *Lookup[T]) Clone() *Lookup[T] {
	c := NewLookup[T]()
	for _, id := range l.keys {
		values := l.entries[id]
		copied := make([]T, len(values))
		for i, v := range values {
			if cl, ok := any(v).(Clonable[T]); ok {
				copied[i] = cl.Clone()
				continue
			}
			copied[i] = v
		}
		c.keys = append(c.keys, id)
		c.entries[id] = copied
	}
	return c
}

func (l *Lookup[T]) dropKey(id ServiceIdentifier) {
	for i, k := range l.keys {
		if k == id {
			l.keys = append(l.keys[:i], l.keys[i+1:]...)
			return
		}
	}
}
