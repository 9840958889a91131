package present

import (
	"context"
	"sync"
)

// Dependency is anything a frame can wait for.
type Dependency interface {
	// Done is closed once the dependency has completed.
	Done() <-chan struct{}

	// Err is the outcome after Done is closed.
	Err() error
}

// Signal is a one-shot completion event, the host-side counterpart of a
// GPU semaphore.
type Signal struct {
	done chan struct{}
	once sync.Once
	err  error
}

var _ Dependency = (*Signal)(nil)

// NewSignal returns an unsignaled signal.
func NewSignal() *Signal { return &Signal{done: make(chan struct{})} }

// Fire signals s with outcome err. Only the first call has an effect; it
// reports whether this call fired.
func (s *Signal) Fire(err error) bool {
	fired := false
	s.once.Do(func() {
		s.err = err
		close(s.done)
		fired = true
	})
	return fired
}

// Done implements Dependency.
func (s *Signal) Done() <-chan struct{} { return s.done }

// Err implements Dependency. It is nil until s fires.
func (s *Signal) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Fired reports whether s has fired.
func (s *Signal) Fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// await waits for d and returns its outcome, or the context error.
func await(ctx context.Context, d Dependency) error {
	select {
	case <-d.Done():
		return d.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
