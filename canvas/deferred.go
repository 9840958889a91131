package canvas

import (
	"context"
	"errors"
	"sync"

	"github.com/gogpu/vg"
)

// ErrCanceled is the result of a Deferred that was canceled before its
// worker published.
var ErrCanceled = errors.New("canvas: deferred draw canceled")

// Executor runs work items in the background. *parallel.Pool satisfies it.
// Submit reports false when the work was not accepted.
type Executor interface {
	Submit(fn func()) bool
}

// Deferred is the one-shot result of DrawAsync. The first of publish and
// Cancel wins; the other is a no-op.
type Deferred struct {
	once sync.Once
	done chan struct{}

	mu   sync.Mutex
	outs []Output
	err  error
}

func newDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

func (d *Deferred) publish(outs []Output, err error) bool {
	published := false
	d.once.Do(func() {
		d.mu.Lock()
		d.outs, d.err = outs, err
		d.mu.Unlock()
		close(d.done)
		published = true
	})
	return published
}

// Ready reports whether the result is available.
func (d *Deferred) Ready() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the result is available.
func (d *Deferred) Done() <-chan struct{} { return d.done }

// Wait blocks until the result is available or ctx is done.
func (d *Deferred) Wait(ctx context.Context) ([]Output, error) {
	select {
	case <-d.done:
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.outs, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel resolves d with ErrCanceled unless it already has a result. A
// worker that has not started skips the draw.
func (d *Deferred) Cancel() {
	d.publish(nil, ErrCanceled)
}

// DrawAsync runs Draw on exec using a copy of the canvas taken at call
// time. If exec is nil or rejects the work, the draw runs on a new
// goroutine.
//
// data must be an immutable snapshot such as the result of Image.PopData.
func (c *Canvas) DrawAsync(exec Executor, data *vg.ImageData, target vg.Size) *Deferred {
	d := newDeferred()
	worker := c.clone()
	run := func() {
		if d.Ready() {
			return
		}
		outs, err := worker.Draw(data, target)
		if !d.publish(outs, err) {
			vg.Logger().Debug("canvas: deferred result dropped")
		}
	}
	if exec == nil || !exec.Submit(run) {
		go run()
	}
	return d
}
