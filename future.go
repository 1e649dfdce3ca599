package jwtcache

import (
	"context"
	"sync"
)

// Future is the pending result of VerifyAsync.
//
// A Future resolves exactly once. Abandoning it does not cancel the
// verification; the outcome is still cached.
type Future struct {
	done chan struct{}

	mu        sync.Mutex
	settled   bool
	result    *Result
	err       error
	callbacks []func(*Result, error)
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func resolvedFuture(res *Result, err error) *Future {
	f := newFuture()
	f.resolve(res, err)
	return f
}

func (f *Future) resolve(res *Result, err error) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.settled = true
	f.result = res
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(res, err)
	}
}

// then runs cb once the future settles: immediately on the calling
// goroutine if it already has, otherwise on the resolving goroutine.
func (f *Future) then(cb func(*Result, error)) {
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	res, err := f.result, f.err
	f.mu.Unlock()
	cb(res, err)
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles or ctx is done. A verification
// failure is returned as the error with a nil Result.
func (f *Future) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-f.done:
	default:
		select {
		case <-f.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// settledValue reads a future known to be settled, keeping the result on
// failure.
func (f *Future) settledValue() (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}
