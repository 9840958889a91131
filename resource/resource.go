package resource

import (
	"slices"
	"time"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/gpucore"
	"github.com/gogpu/vg/transfer"
)

type state uint8

const (
	stateUnloaded state = iota
	stateLoading
	stateLoaded
)

// Resource is a named bundle of GPU objects owned by a Pool. All fields
// are guarded by the pool mutex.
type Resource struct {
	pool *Pool
	name string

	timeout time.Duration

	state   state
	res     *transfer.Result
	images  []ImageID
	atime   time.Time
	users   int
	scenes  []Scene
	waiters []func(*Resource, error)

	// epoch changes on every Clear so a load finishing afterwards is
	// discarded.
	epoch uint64
}

var _ Attachment = (*Resource)(nil)

// Name returns the resource name.
func (r *Resource) Name() string { return r.name }

// IsLoaded reports whether the objects are usable.
func (r *Resource) IsLoaded() bool {
	r.pool.mu.Lock()
	defer r.pool.mu.Unlock()
	return r.state == stateLoaded
}

// Buffers returns the loaded buffers, or nil.
func (r *Resource) Buffers() []gpucore.Buffer {
	r.pool.mu.Lock()
	defer r.pool.mu.Unlock()
	if r.res == nil {
		return nil
	}
	return slices.Clone(r.res.Buffers)
}

// Images returns the loaded images, or nil. Images()[i] has ImageIDs()[i].
func (r *Resource) Images() []gpucore.Image {
	r.pool.mu.Lock()
	defer r.pool.mu.Unlock()
	if r.res == nil {
		return nil
	}
	return slices.Clone(r.res.Images)
}

// ImageIDs returns the ids of the loaded images.
func (r *Resource) ImageIDs() []ImageID {
	r.pool.mu.Lock()
	defer r.pool.mu.Unlock()
	return slices.Clone(r.images)
}

// Users returns the number of users.
func (r *Resource) Users() int {
	r.pool.mu.Lock()
	defer r.pool.mu.Unlock()
	return r.users
}

// Touch marks the resource as used now.
func (r *Resource) Touch() {
	r.pool.mu.Lock()
	r.atime = r.pool.now()
	r.pool.mu.Unlock()
}

// OnEnter registers a user.
func (r *Resource) OnEnter() {
	r.pool.mu.Lock()
	r.users++
	r.atime = r.pool.now()
	r.pool.mu.Unlock()
}

// OnExit unregisters a user. The idle timeout runs from the last exit.
func (r *Resource) OnExit() {
	r.pool.mu.Lock()
	if r.users > 0 {
		r.users--
	}
	r.atime = r.pool.now()
	r.pool.mu.Unlock()
}

// Pin registers s as a user that holds image ids of the resource.
func (r *Resource) Pin(s Scene) {
	r.pool.mu.Lock()
	r.scenes = append(r.scenes, s)
	r.pool.mu.Unlock()
	r.OnEnter()
}

// Unpin reverses Pin.
func (r *Resource) Unpin(s Scene) {
	r.pool.mu.Lock()
	i := slices.Index(r.scenes, s)
	if i < 0 {
		r.pool.mu.Unlock()
		return
	}
	r.scenes = slices.Delete(r.scenes, i, i+1)
	r.pool.mu.Unlock()
	r.OnExit()
}

// Invalidate clears the resource.
func (r *Resource) Invalidate() { r.Clear() }

// Clear tells every pinning scene to revoke the resource's image ids and
// then destroys its objects. A load in flight is abandoned and its
// callbacks receive ErrCleared. The resource reloads on the next Load.
func (r *Resource) Clear() {
	p := r.pool
	p.mu.Lock()
	r.epoch++
	scenes := slices.Clone(r.scenes)
	ids, res, waiters := r.images, r.res, r.waiters
	r.images, r.res, r.waiters = nil, nil, nil
	r.state = stateUnloaded
	p.mu.Unlock()

	if len(ids) > 0 {
		for _, s := range scenes {
			s.RevokeImages(slices.Clone(ids))
		}
	}
	if res != nil {
		res.Destroy()
		p.release(ids)
		vg.Logger().Debug("resource: cleared", "name", r.name, "images", len(ids))
	}
	for _, w := range waiters {
		w(nil, ErrCleared)
	}
}

// expired reports whether Sweep may retire r at now.
func (r *Resource) expired(now time.Time) bool {
	if r.users > 0 || r.state == stateLoading {
		return false
	}
	return r.timeout == 0 || now.After(r.atime.Add(r.timeout))
}
