// Package resource shares heavy GPU objects between scenes by name.
//
// A Pool maps names to Resources built from a transfer.Descriptor. Scenes
// pin the resources they draw with; unused resources are retired by Sweep
// once their idle timeout has passed. Clearing a resource first asks every
// pinning scene to revoke the image indices it was given, then destroys
// the objects. The Resource stays valid and reloads on the next Load.
package resource

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/transfer"
)

// Pool errors.
var (
	ErrCleared = errors.New("resource: cleared while loading")
	ErrClosed  = errors.New("resource: pool closed")
)

// Request timeouts with a special meaning.
const (
	// DefaultTimeout is the idle timeout of resources loaded without one.
	DefaultTimeout = 30 * time.Second

	// ImmediateTimeout retires a resource at the first sweep after its
	// last user left.
	ImmediateTimeout time.Duration = -1
)

// ImageID is a GPU image index handed to scenes for a loaded image.
// Zero is never used.
type ImageID uint32

// Scene is a consumer of pooled resources.
type Scene interface {
	// RevokeImages drops every reference to ids. It is called before the
	// images are destroyed.
	RevokeImages(ids []ImageID)
}

// Attachment is the capability set shared by objects whose GPU data is
// built asynchronously and used by scenes.
type Attachment interface {
	IsLoaded() bool
	OnEnter()
	OnExit()
	Invalidate()
}

// Config configures a Pool.
type Config struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Pool is a named cache of temporary resources. It is safe for concurrent
// use.
type Pool struct {
	orch *transfer.Orchestrator
	now  func() time.Time

	mu        sync.Mutex
	resources map[string]*Resource
	nextImage ImageID
	freeIDs   []ImageID
	closed    bool
}

// NewPool creates a pool uploading through orch.
func NewPool(orch *transfer.Orchestrator, cfg Config) *Pool {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Pool{orch: orch, now: now, resources: make(map[string]*Resource)}
}

// Request names a resource and describes how to build it.
type Request struct {
	Name       string
	Descriptor transfer.Descriptor

	// Timeout is how long the resource may stay unused before Sweep
	// retires it. Zero means DefaultTimeout; ImmediateTimeout (or any
	// negative value) retires it at the first sweep after its last user
	// left.
	Timeout time.Duration
}

// Load returns the resource named req.Name, creating it and starting its
// upload when needed. onLoaded, if not nil, is called once the resource
// is loaded or its upload failed; for a loaded resource it is called
// before Load returns.
func (p *Pool) Load(ctx context.Context, req Request, onLoaded func(*Resource, error)) *Resource {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		if onLoaded != nil {
			onLoaded(nil, ErrClosed)
		}
		return nil
	}
	r, ok := p.resources[req.Name]
	if !ok {
		r = &Resource{pool: p, name: req.Name}
		p.resources[req.Name] = r
	}
	r.atime = p.now()
	switch r.state {
	case stateLoaded:
		p.mu.Unlock()
		if onLoaded != nil {
			onLoaded(r, nil)
		}
		return r
	case stateLoading:
		if onLoaded != nil {
			r.waiters = append(r.waiters, onLoaded)
		}
		p.mu.Unlock()
		return r
	}

	r.timeout = timeoutOf(req.Timeout)
	r.state = stateLoading
	if onLoaded != nil {
		r.waiters = append(r.waiters, onLoaded)
	}
	epoch := r.epoch
	p.mu.Unlock()

	vg.Logger().Debug("resource: loading", "name", req.Name)
	p.orch.UploadAsync(ctx, req.Descriptor, func(res *transfer.Result, err error) {
		p.finish(r, epoch, res, err)
	})
	return r
}

func timeoutOf(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultTimeout
	case d < 0:
		return 0
	}
	return d
}

func (p *Pool) finish(r *Resource, epoch uint64, res *transfer.Result, err error) {
	p.mu.Lock()
	if r.epoch != epoch || p.closed {
		// Cleared while loading; the waiters have been told.
		p.mu.Unlock()
		res.Destroy()
		return
	}
	waiters := r.waiters
	r.waiters = nil
	if err != nil {
		r.state = stateUnloaded
		vg.Logger().Warn("resource: load failed", "name", r.name, "err", err)
	} else {
		r.state = stateLoaded
		r.res = res
		r.images = p.allocImages(len(res.Images))
		r.atime = p.now()
	}
	p.mu.Unlock()

	if err != nil {
		r = nil
	}
	for _, w := range waiters {
		w(r, err)
	}
}

// allocImages hands out n image ids, reusing freed ones first.
func (p *Pool) allocImages(n int) []ImageID {
	ids := make([]ImageID, n)
	for i := range ids {
		if k := len(p.freeIDs); k > 0 {
			ids[i] = p.freeIDs[k-1]
			p.freeIDs = p.freeIDs[:k-1]
			continue
		}
		p.nextImage++
		ids[i] = p.nextImage
	}
	return ids
}

// Lookup returns the resource named name, or nil.
func (p *Pool) Lookup(name string) *Resource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resources[name]
}

// Len returns the number of resources in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.resources)
}

// Sweep retires every unused resource whose idle timeout has passed at
// now and returns how many were retired.
func (p *Pool) Sweep(now time.Time) int {
	p.mu.Lock()
	var expired []*Resource
	for name, r := range p.resources {
		if r.expired(now) {
			expired = append(expired, r)
			delete(p.resources, name)
		}
	}
	p.mu.Unlock()

	for _, r := range expired {
		r.Clear()
	}
	if len(expired) > 0 {
		vg.Logger().Info("resource: sweep retired resources", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (p *Pool) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Sweep(p.now())
		}
	}
}

// Close clears every resource. Loads after Close fail with ErrClosed.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	all := make([]*Resource, 0, len(p.resources))
	for _, r := range p.resources {
		all = append(all, r)
	}
	clear(p.resources)
	p.mu.Unlock()

	for _, r := range all {
		r.Clear()
	}
}

// release returns ids to the free list.
func (p *Pool) release(ids []ImageID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freeIDs = append(p.freeIDs, ids...)
	slices.SortFunc(p.freeIDs, func(a, b ImageID) int { return cmp.Compare(b, a) })
}
