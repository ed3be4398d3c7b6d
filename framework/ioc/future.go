package ioc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Future is a pending value. Producers and hooks return a *Future to make
// the rest of a resolution asynchronous; the container never starts
// goroutines on its own. The wrapped function runs once, on the goroutine
// that first awaits the future, and its outcome is memoised.
type Future struct {
	once  sync.Once
	fn    func(ctx context.Context) (any, error)
	value any
	err   error
	done  atomic.Bool
}

// Async wraps fn in a Future.
func Async(fn func(ctx context.Context) (any, error)) *Future {
	return &Future{fn: fn}
}

// Resolved returns a Future already settled with v.
func Resolved(v any) *Future {
	f := &Future{value: v}
	f.once.Do(func() {})
	f.done.Store(true)
	return f
}

// Rejected returns a Future already settled with err.
func Rejected(err error) *Future {
	f := &Future{err: err}
	f.once.Do(func() {})
	f.done.Store(true)
	return f
}

// Await runs the future if needed and returns its outcome. Nested futures
// returned by the wrapped function are awaited as well.
func (f *Future) Await(ctx context.Context) (any, error) {
	f.once.Do(func() {
		defer f.done.Store(true)
		defer func() {
			if r := recover(); r != nil {
				f.value, f.err = nil, fmt.Errorf("ioc: future panicked: %v", r)
			}
		}()
		v, err := f.fn(ctx)
		for err == nil {
			next, ok := v.(*Future)
			if !ok {
				break
			}
			v, err = next.Await(ctx)
		}
		f.value, f.err = v, err
		f.fn = nil
	})
	return f.value, f.err
}

// Settled reports whether the future has finished.
func (f *Future) Settled() bool {
	return f.done.Load()
}

// then returns a future that runs fn with the outcome of f.
func (f *Future) then(fn func(ctx context.Context, v any, err error) (any, error)) *Future {
	return Async(func(ctx context.Context) (any, error) {
		v, err := f.Await(ctx)
		return fn(ctx, v, err)
	})
}

// isPending reports whether v is a future or a slice holding one.
func isPending(v any) bool {
	switch t := v.(type) {
	case *Future:
		return true
	case []any:
		for _, e := range t {
			if _, ok := e.(*Future); ok {
				return true
			}
		}
	}
	return false
}

// settle awaits v when it is pending and returns the plain value.
func settle(ctx context.Context, v any) (any, error) {
	switch t := v.(type) {
	case *Future:
		return t.Await(ctx)
	case []any:
		if !isPending(t) {
			return t, nil
		}
		out := make([]any, len(t))
		for i, e := range t {
			r, err := settle(ctx, e)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return v, nil
}

// settleAll awaits every pending entry of values in order.
func settleAll(ctx context.Context, values []any) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		r, err := settle(ctx, v)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
