// Package memory provides in-memory implementations of the catalog, BOM and
// supplier ports. They record every call and support failure and rate-limit
// injection, which makes them the harness for pipeline tests and the
// backing store for offline runs.
package memory

import (
	"context"
	"sync"
)

// Call is one recorded port invocation.
type Call struct {
	Op     string
	Target string
	Part   string
}

// Fault decides whether a call fails. It receives the operation, the
// target (catalog, BOM or supplier ID) and the part number, and returns
// the error to inject or nil.
type Fault func(op, target, part string) error

// recorder is the shared call log.
type recorder struct {
	mu    sync.Mutex
	calls []Call
	fault Fault
	hook  func(ctx context.Context, c Call)
}

func (r *recorder) record(ctx context.Context, op, target, part string) error {
	c := Call{Op: op, Target: target, Part: part}
	r.mu.Lock()
	r.calls = append(r.calls, c)
	fault, hook := r.fault, r.hook
	r.mu.Unlock()

	if hook != nil {
		hook(ctx, c)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if fault != nil {
		return fault(op, target, part)
	}
	return nil
}

// Calls returns the recorded calls, optionally filtered by operation.
func (r *recorder) Calls(ops ...string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if len(ops) == 0 || contains(ops, c.Op) {
			out = append(out, c)
		}
	}
	return out
}

// SetFault installs a fault injector.
func (r *recorder) SetFault(f Fault) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fault = f
}

// SetHook installs a function run at the start of every call, before the
// call checks its context.
func (r *recorder) SetHook(h func(ctx context.Context, c Call)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hook = h
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FailTimes returns a fault that fails the matching operation on the given
// part n times with err, then succeeds.
func FailTimes(op, part string, n int, err error) Fault {
	var mu sync.Mutex
	remaining := n
	return func(o, _, p string) error {
		if o != op || p != part {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		if remaining <= 0 {
			return nil
		}
		remaining--
		return err
	}
}

// FailAlways returns a fault that always fails the matching operation on
// the given part.
func FailAlways(op, part string, err error) Fault {
	return func(o, _, p string) error {
		if o == op && p == part {
			return err
		}
		return nil
	}
}

// Faults combines faults; the first non-nil error wins.
func Faults(fs ...Fault) Fault {
	return func(op, target, part string) error {
		for _, f := range fs {
			if err := f(op, target, part); err != nil {
				return err
			}
		}
		return nil
	}
}
