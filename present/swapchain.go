package present

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/vg"
	"github.com/gogpu/vg/gpucore"
	"github.com/gogpu/vg/transfer"
)

// Frame errors.
var (
	ErrCanceled  = errors.New("present: frame canceled")
	ErrPresented = errors.New("present: frame already presented")
)

// DefaultImages is the image count of a swapchain configured without one.
const DefaultImages = 3

// Presenter hands finished images to the platform.
type Presenter interface {
	Present(img gpucore.Image, serial uint64) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(img gpucore.Image, serial uint64) error

// Present implements Presenter.
func (f PresenterFunc) Present(img gpucore.Image, serial uint64) error { return f(img, serial) }

// Config configures a Swapchain.
type Config struct {
	Info ImageInfo

	// Images is the number of swapchain images. Defaults to DefaultImages.
	Images int

	// Family is the queue family render passes are submitted to.
	Family uint32

	Presenter Presenter
}

// Swapchain owns a ring of images and the submission counter of the
// frames rendered into them.
type Swapchain struct {
	orch   *transfer.Orchestrator
	cfg    Config
	res    *transfer.Result
	images []gpucore.Image

	mu     sync.Mutex
	serial uint64
	last   *Frame
	slots  []*Frame

	presented atomic.Uint64
}

// NewSwapchain allocates the swapchain images through orch.
func NewSwapchain(orch *transfer.Orchestrator, cfg Config) (*Swapchain, error) {
	if cfg.Images <= 0 {
		cfg.Images = DefaultImages
	}
	if cfg.Presenter == nil {
		return nil, errors.New("present: nil presenter")
	}
	if err := cfg.Info.Validate(orch.Device().Limits()); err != nil {
		return nil, err
	}
	desc := transfer.Descriptor{Label: "swapchain", DstFamily: gpucore.FamilyIgnored}
	for i := range cfg.Images {
		desc.Images = append(desc.Images, transfer.ImageSpec{Desc: cfg.Info.Desc(fmt.Sprintf("swapchain_%d", i))})
	}
	res, err := orch.Allocate(desc)
	if err != nil {
		return nil, fmt.Errorf("present: allocate images: %w", err)
	}
	return &Swapchain{
		orch:   orch,
		cfg:    cfg,
		res:    res,
		images: res.Images,
		slots:  make([]*Frame, cfg.Images),
	}, nil
}

// Info returns the image info.
func (s *Swapchain) Info() ImageInfo { return s.cfg.Info }

// Images returns the swapchain images.
func (s *Swapchain) Images() []gpucore.Image { return s.images }

// Presented returns the serial of the last frame that finished, presented
// or not.
func (s *Swapchain) Presented() uint64 { return s.presented.Load() }

// Close destroys the images. Frames still in flight must be finished
// first.
func (s *Swapchain) Close() { s.res.Destroy() }

// Begin starts the next frame. Its image is acquired once the previous
// frame using the same image has finished. The frame will not present
// unless every dependency succeeds.
func (s *Swapchain) Begin(deps ...Dependency) *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serial++
	idx := int((s.serial - 1) % uint64(len(s.images)))
	f := &Frame{
		Serial:   s.serial,
		Image:    s.images[idx],
		Acquired: NewSignal(),
		Rendered: NewSignal(),
		sc:       s,
		deps:     deps,
		prev:     s.last,
		done:     NewSignal(),
	}
	if owner := s.slots[idx]; owner == nil {
		f.Acquired.Fire(nil)
	} else {
		go func() {
			<-owner.Done()
			f.Acquired.Fire(nil)
		}()
	}
	s.slots[idx] = f
	s.last = f
	return f
}

// Frame is one submission to a swapchain.
type Frame struct {
	Serial uint64
	Image  gpucore.Image

	// Acquired fires when Image may be rendered to.
	Acquired *Signal

	// Rendered fires when the render pass finished, with its outcome.
	Rendered *Signal

	sc      *Swapchain
	deps    []Dependency
	prev    *Frame
	claimed atomic.Bool
	done    *Signal
}

var _ Dependency = (*Frame)(nil)

// Done is closed once the frame was presented or dropped.
func (f *Frame) Done() <-chan struct{} { return f.done.Done() }

// Err is nil for a presented frame.
func (f *Frame) Err() error { return f.done.Err() }

// Render waits for the image, records a command buffer on the swapchain
// family with record and submits it. The outcome fires Rendered.
func (f *Frame) Render(ctx context.Context, record func(gpucore.CommandBuffer) error) error {
	err := await(ctx, f.Acquired)
	if err == nil {
		err = transfer.Submit(ctx, f.sc.orch.Device(), f.sc.cfg.Family, record)
	}
	f.Rendered.Fire(err)
	return err
}

// Cancel drops the frame. Frames depending on it are canceled as well.
func (f *Frame) Cancel(cause error) {
	if !f.claimed.CompareAndSwap(false, true) {
		return
	}
	err := ErrCanceled
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrCanceled, cause)
	}
	f.Rendered.Fire(err)
	f.sc.finish(f, err)
}

// Present waits until f may present and hands its image to the
// presenter. Frames present in serial order; a failed frame finishes in
// order without presenting.
func (s *Swapchain) Present(ctx context.Context, f *Frame) error {
	if !f.claimed.CompareAndSwap(false, true) {
		return ErrPresented
	}
	err := f.ready(ctx)
	if err == nil && f.prev != nil {
		// Only the order matters here, not the outcome of prev.
		select {
		case <-f.prev.Done():
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if err == nil {
		err = s.cfg.Presenter.Present(f.Image, f.Serial)
	}
	s.finish(f, err)
	return err
}

// ready waits for the dependencies, the acquire and the render pass.
func (f *Frame) ready(ctx context.Context) error {
	for _, d := range f.deps {
		if err := await(ctx, d); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %w", ErrCanceled, err)
		}
	}
	if err := await(ctx, f.Acquired); err != nil {
		return err
	}
	return await(ctx, f.Rendered)
}

// finish completes f once every earlier frame has finished.
func (s *Swapchain) finish(f *Frame, err error) {
	complete := func() {
		f.prev = nil
		f.done.Fire(err)
		s.presented.Store(f.Serial)
		if err != nil {
			vg.Logger().Warn("present: frame dropped", "serial", f.Serial, "err", err)
		} else {
			vg.Logger().Debug("present: frame presented", "serial", f.Serial, "image", f.Image.Label())
		}
	}
	if f.prev == nil || f.prev.done.Fired() {
		complete()
		return
	}
	go func() {
		<-f.prev.Done()
		complete()
	}()
}
