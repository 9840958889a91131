package mesh

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/vg"
)

// State is the compile state of an attachment.
type State uint8

// Attachment states.
const (
	Idle State = iota
	InProgress
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case InProgress:
		return "InProgress"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Attachment owns the consolidated mesh set of one consumer. At most one
// compile pass runs per attachment; requests arriving meanwhile are merged
// and compiled by a single follow-up pass. The changes of a failed pass are
// kept and go into the next pass, which starts with the next Request or
// Invalidate.
type Attachment struct {
	c          *Compiler
	label      string
	onCompiled func(*MeshSet, error)

	mu         sync.Mutex
	state      State
	pending    pendingRequest
	failed     pendingRequest
	current    *MeshSet
	generation uint64
	idle       chan struct{}
	users      int
	closed     bool
}

// NewAttachment creates an empty attachment. onCompiled, if not nil, is
// called after every pass with the published set or the pass error; calls
// are never concurrent.
func (c *Compiler) NewAttachment(label string, onCompiled func(*MeshSet, error)) *Attachment {
	idle := make(chan struct{})
	close(idle)
	return &Attachment{c: c, label: label, onCompiled: onCompiled, idle: idle}
}

// Label returns the attachment label.
func (a *Attachment) Label() string { return a.label }

// State returns the current compile state.
func (a *Attachment) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Current returns the last published set, or nil.
func (a *Attachment) Current() *MeshSet {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Request schedules r. An idle attachment starts a pass at once; a busy
// one folds r into the follow-up pass.
func (a *Attachment) Request(r Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending.merge(r)
	if a.state == Idle && !a.pending.empty() {
		a.launchLocked()
	}
}

// Wait blocks until the attachment is idle.
func (a *Attachment) Wait(ctx context.Context) error {
	a.mu.Lock()
	idle := a.idle
	a.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// launchLocked starts a pass for the pending request. Changes of a failed
// pass are replayed first so newer requests override them.
func (a *Attachment) launchLocked() {
	a.failed.merge(a.pending.take())
	req := a.failed.take()
	if a.state == Idle {
		a.state = InProgress
		a.idle = make(chan struct{})
	}
	base := a.current.Keys()
	go a.run(req, base)
}

func (a *Attachment) run(req Request, base []Key) {
	set, err := a.c.compile(a.c.ctx, a.label, base, req)

	a.mu.Lock()
	if err == nil {
		if a.closed {
			a.discard(set)
			set, err = nil, ErrClosed
		} else {
			a.generation++
			set.Generation = a.generation
			old := a.current
			a.current = set
			a.discard(old)
			vg.Logger().Debug("mesh: published", "attachment", a.label,
				"generation", set.Generation, "meshes", len(set.Entries))
		}
	} else {
		a.failed.merge(req)
		vg.Logger().Warn("mesh: compile failed, keeping previous set", "attachment", a.label, "err", err)
	}
	a.mu.Unlock()

	if a.onCompiled != nil {
		a.onCompiled(set, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed && !a.pending.empty() {
		a.launchLocked()
		return
	}
	a.state = Idle
	close(a.idle)
}

// discard destroys s and drops its residency references.
func (a *Attachment) discard(s *MeshSet) {
	if s == nil {
		return
	}
	keys := s.Keys()
	s.release()
	a.c.release(keys)
}

// IsLoaded reports whether a set has been published.
func (a *Attachment) IsLoaded() bool { return a.Current() != nil }

// OnEnter registers a user of the attachment.
func (a *Attachment) OnEnter() {
	a.mu.Lock()
	a.users++
	a.mu.Unlock()
}

// OnExit unregisters a user.
func (a *Attachment) OnExit() {
	a.mu.Lock()
	if a.users > 0 {
		a.users--
	}
	a.mu.Unlock()
}

// Users returns the number of registered users.
func (a *Attachment) Users() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.users
}

// Invalidate drops the published set and recompiles its meshes.
func (a *Attachment) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.current == nil {
		return
	}
	old := a.current
	a.current = nil
	a.pending.merge(Request{Add: old.Keys()})
	a.discard(old)
	if a.state == Idle {
		a.launchLocked()
	}
}

// Close destroys the published set. A running pass finishes and its
// result is discarded.
func (a *Attachment) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	a.pending = pendingRequest{}
	a.failed = pendingRequest{}
	a.discard(a.current)
	a.current = nil
}
