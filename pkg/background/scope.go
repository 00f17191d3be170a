package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrPanic - reported by Go when a scope member panicked.
var ErrPanic = errors.New("background: scope member panicked")

// Scope - abstract concurrency scope
type Scope struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	scope     sync.WaitGroup
	active    atomic.Int64
}

// NewScope - concurrency scope builder.
// The scope context is derived from parent, nil parent means context.Background().
// Returned cancel func cancels the scope context and waits until all members are done.
func NewScope(parent context.Context) (scope *Scope, cancel func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancelFunc := context.WithCancel(parent)
	s := &Scope{
		ctx:       ctx,
		ctxCancel: cancelFunc,
	}
	return s,
		func() {
			s.ctxCancel()
			s.scope.Wait()
		}
}

// Context - return background context
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Add - notifies scope to register processes/workers/layers.
// Based on sync.WaitGroup.
func (s *Scope) Add(delta int) {
	s.active.Add(int64(delta))
	s.scope.Add(delta)
}

// Done - notifies scope when process/worker/layer is done.
// Based on sync.WaitGroup.
func (s *Scope) Done() {
	s.active.Add(-1)
	s.scope.Done()
}

// Active - returns the number of members which are not done yet.
func (s *Scope) Active() int {
	return int(s.active.Load())
}

// Go - runs fn as a new scope member in its own goroutine.
// The returned channel receives exactly one value when fn returns: its error,
// or ErrPanic (wrapped with the recovered value) if fn panicked.
func (s *Scope) Go(fn func(ctx context.Context) error) <-chan error {
	result := make(chan error, 1)
	s.Add(1)
	go func() {
		defer s.Done()
		result <- s.call(fn)
	}()
	return result
}

func (s *Scope) call(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(s.ctx)
}

// Wait - waits for all members, but no longer than timeout.
// Returns false if some members are still active when timeout expired.
func (s *Scope) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.scope.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}
