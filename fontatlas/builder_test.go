package fontatlas

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/vg/backend/host"
	"github.com/gogpu/vg/gpucore"
	"github.com/gogpu/vg/text"
	"github.com/gogpu/vg/transfer"
)

const (
	missingRune = '\uFFFF'
	failingRune = '!'
)

// fakeRenderer draws a deterministic pattern sized by the rune and counts
// renders per rune.
type fakeRenderer struct {
	mu    sync.Mutex
	calls map[rune]int
}

func newFake() *fakeRenderer { return &fakeRenderer{calls: map[rune]int{}} }

func fakeSize(r rune) (int, int) { return int(r%5) + 2, int(r%7) + 3 }

func fakePixel(r rune, i int) byte { return byte(int(r) + i + 1) }

func (f *fakeRenderer) RenderGlyph(r rune) (*text.GlyphImage, error) {
	f.mu.Lock()
	f.calls[r]++
	f.mu.Unlock()
	switch r {
	case missingRune:
		return nil, text.ErrGlyphNotFound
	case failingRune:
		return nil, errors.New("renderer exploded")
	case ' ':
		return &text.GlyphImage{Mask: image.NewAlpha(image.Rectangle{}), Advance: 4}, nil
	}
	w, h := fakeSize(r)
	m := image.NewAlpha(image.Rect(0, 0, w, h))
	for i := range m.Pix {
		m.Pix[i] = fakePixel(r, i)
	}
	return &text.GlyphImage{Mask: m, Bounds: image.Rect(1, -h, 1+w, 0), Advance: float64(w + 1)}, nil
}

func (f *fakeRenderer) count(r rune) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[r]
}

func newBuilder(t *testing.T, hc host.Config, cfg Config) (*Builder, *host.Device) {
	t.Helper()
	dev := host.New(hc)
	orch, err := transfer.New(dev)
	if err != nil {
		t.Fatal(err)
	}
	b := New(orch, cfg)
	t.Cleanup(b.Close)
	return b, dev
}

func persistent(font FontID, s string) []Request {
	return RequestsForString(font, s, true)
}

// region returns the texels of r in the atlas image.
func region(t *testing.T, a *Atlas, r Region) []byte {
	t.Helper()
	img := a.Image.(*host.Image)
	pix := img.Contents()
	out := make([]byte, 0, r.Width*r.Height)
	for y := r.Y; y < r.Y+r.Height; y++ {
		start := y*a.Extent.Width + r.X
		out = append(out, pix[start:start+r.Width]...)
	}
	return out
}

func checkGlyph(t *testing.T, a *Atlas, font FontID, r rune) {
	t.Helper()
	g, ok := a.Glyph(GlyphID(font, r))
	if !ok {
		t.Fatalf("glyph %q missing", r)
	}
	w, h := fakeSize(r)
	if g.Region.Width != uint32(w) || g.Region.Height != uint32(h) {
		t.Fatalf("glyph %q region %v, want %dx%d", r, g.Region, w, h)
	}
	if g.Bearing != image.Pt(1, -h) || g.Advance != float32(w+1) {
		t.Errorf("glyph %q metrics %v %v", r, g.Bearing, g.Advance)
	}
	for i, p := range region(t, a, g.Region) {
		if p != fakePixel(r, i) {
			t.Fatalf("glyph %q texel %d = %d, want %d", r, i, p, fakePixel(r, i))
		}
	}
}

func TestBuildFirstFrame(t *testing.T) {
	fake := newFake()
	b, dev := newBuilder(t, host.DefaultConfig(), Config{Fonts: map[FontID]text.GlyphRenderer{1: fake}})

	a, err := b.Build(context.Background(), persistent(1, "ABC"))
	if err != nil {
		t.Fatal(err)
	}
	if b.Current() != a || a.Generation != 1 {
		t.Fatalf("current = %p gen %d", b.Current(), a.Generation)
	}
	for _, r := range "ABC" {
		checkGlyph(t, a, 1, r)
	}
	if !a.HasUnderline() {
		t.Fatal("underline pixel missing")
	}
	u, _ := a.Glyph(UnderlineID)
	if px := region(t, a, u.Region); len(px) != 1 || px[0] != 0xff {
		t.Errorf("underline texels = %v", px)
	}
	if l := a.Image.(*host.Image).Layout(); l != gpucore.LayoutShaderReadOnly {
		t.Errorf("layout = %s", l)
	}
	if a.Persistent.Len() != 4 || len(a.Persistent.Buffers) != 1 {
		t.Errorf("persistent = %d entries in %d buffers", a.Persistent.Len(), len(a.Persistent.Buffers))
	}
	if len(a.Records()) != 4*4 {
		t.Errorf("records = %d, want 16", len(a.Records()))
	}
	if live := dev.Live(); live.Images != 1 || live.Buffers != 1 {
		t.Errorf("live = %+v, want the atlas image and one persistent buffer", live)
	}
}

func TestAnchors(t *testing.T) {
	b, _ := newBuilder(t, host.DefaultConfig(), Config{Fonts: map[FontID]text.GlyphRenderer{1: newFake()}})
	a, err := b.Build(context.Background(), persistent(1, "Q"))
	if err != nil {
		t.Fatal(err)
	}
	id := GlyphID(1, 'Q')
	g, _ := a.Glyph(id)
	r := g.Region
	x0, y0 := float32(r.X), float32(r.Y)
	x1, y1 := x0+float32(r.Width), y0+float32(r.Height)
	want := map[Corner][2]float32{
		BottomLeft:  {x0, y1},
		TopLeft:     {x0, y0},
		TopRight:    {x1, y0},
		BottomRight: {x1, y1},
	}
	w, h := float32(a.Extent.Width), float32(a.Extent.Height)
	for c, pos := range want {
		rec, ok := a.Anchor(id, c)
		if !ok {
			t.Fatalf("%s missing", c)
		}
		if rec.Key.ID() != id || rec.Key.Corner() != c {
			t.Errorf("%s key = %d", c, rec.Key)
		}
		if rec.Pos != pos {
			t.Errorf("%s pos = %v, want %v", c, rec.Pos, pos)
		}
		if rec.UV != [2]float32{pos[0] / w, pos[1] / h} {
			t.Errorf("%s uv = %v", c, rec.UV)
		}
	}
}

func TestBuildReusesPersistentGlyphs(t *testing.T) {
	fake := newFake()
	b, dev := newBuilder(t, host.DefaultConfig(), Config{Fonts: map[FontID]text.GlyphRenderer{1: fake}})
	ctx := context.Background()

	first, err := b.Build(ctx, persistent(1, "ABC"))
	if err != nil {
		t.Fatal(err)
	}
	firstImage := first.Image.Label()
	dev.ResetLog()

	a, err := b.Build(ctx, persistent(1, "ABD"))
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range "ABCD" {
		if n := fake.count(r); n != 1 {
			t.Errorf("%q rendered %d times, want 1", r, n)
		}
	}
	for _, r := range "ABD" {
		checkGlyph(t, a, 1, r)
	}
	if _, ok := a.Glyph(GlyphID(1, 'C')); ok {
		t.Error("unrequested glyph C in atlas")
	}
	if !a.HasUnderline() {
		t.Error("cached underline missing")
	}

	// One copy from staging, one from the first persistent buffer and one
	// appending D to a new persistent buffer.
	var fromStaging, fromStore, appended int
	for _, e := range dev.Log() {
		switch {
		case e.Kind == host.EventCopyBufferToImage && e.Object == a.Image.Label():
			if e.Bytes == uint64(fakeArea('D')) {
				fromStaging++
			} else {
				fromStore++
			}
		case e.Kind == host.EventCopyBuffer:
			appended++
		case e.Object == firstImage:
			t.Errorf("first atlas used by second build: %v", e)
		}
	}
	if fromStaging != 1 || fromStore != 1 || appended != 1 {
		t.Errorf("copies staging=%d store=%d append=%d, want 1 each", fromStaging, fromStore, appended)
	}
	if len(a.Persistent.Buffers) != 2 || a.Persistent.Len() != 5 {
		t.Errorf("persistent = %d entries in %d buffers", a.Persistent.Len(), len(a.Persistent.Buffers))
	}
	if e, _ := a.Persistent.Lookup(GlyphID(1, 'D')); e.Buffer != 1 {
		t.Errorf("D stored in buffer %d, want 1", e.Buffer)
	}
	if live := dev.Live(); live.Images != 1 {
		t.Errorf("live images = %d, previous atlas not released", live.Images)
	}
}

func fakeArea(r rune) int {
	w, h := fakeSize(r)
	return w * h
}

func TestBuildTransientGlyphs(t *testing.T) {
	fake := newFake()
	b, _ := newBuilder(t, host.DefaultConfig(), Config{Fonts: map[FontID]text.GlyphRenderer{1: fake}})
	for range 3 {
		reqs := append(RequestsForString(1, "x", false), Request{Font: 1, Char: 'y', Persistent: true})
		a, err := b.Build(context.Background(), reqs)
		if err != nil {
			t.Fatal(err)
		}
		checkGlyph(t, a, 1, 'x')
		checkGlyph(t, a, 1, 'y')
		if _, ok := a.Persistent.Lookup(GlyphID(1, 'x')); ok {
			t.Fatal("transient glyph stored")
		}
	}
	if fake.count('x') != 3 || fake.count('y') != 1 {
		t.Errorf("renders x=%d y=%d, want 3 and 1", fake.count('x'), fake.count('y'))
	}
}

func TestBuildSkipsUnavailableGlyphs(t *testing.T) {
	fake := newFake()
	b, _ := newBuilder(t, host.DefaultConfig(), Config{Fonts: map[FontID]text.GlyphRenderer{1: fake}})
	reqs := []Request{
		{Font: 1, Char: 'a', Persistent: true},
		{Font: 1, Char: ' ', Persistent: true},
		{Font: 1, Char: missingRune, Persistent: true},
		{Font: 9, Char: 'a', Persistent: true},
		{Font: 1, Char: 'a'},
	}
	a, err := b.Build(context.Background(), reqs)
	if err != nil {
		t.Fatal(err)
	}
	checkGlyph(t, a, 1, 'a')
	if fake.count('a') != 1 {
		t.Errorf("duplicate request rendered %d times", fake.count('a'))
	}
	if _, ok := a.Glyph(GlyphID(1, missingRune)); ok {
		t.Error("glyph missing from the font was placed")
	}
	if _, ok := a.Glyph(GlyphID(9, 'a')); ok {
		t.Error("glyph of unknown font was placed")
	}
	space, ok := a.Glyph(GlyphID(1, ' '))
	if !ok || !space.Region.Empty() || space.Advance != 4 {
		t.Errorf("space = %+v, %v", space, ok)
	}
	if e, ok := a.Persistent.Lookup(GlyphID(1, ' ')); !ok || e.Buffer != -1 {
		t.Errorf("space entry = %+v, %v", e, ok)
	}

	// The blank glyph is now cached and needs no copy.
	if _, err := b.Build(context.Background(), reqs); err != nil {
		t.Fatal(err)
	}
	if fake.count(' ') != 1 {
		t.Errorf("space rendered %d times", fake.count(' '))
	}
}

func TestBuildOwnershipTransfer(t *testing.T) {
	b, dev := newBuilder(t, host.SplitQueuesConfig(), Config{
		Fonts:          map[FontID]text.GlyphRenderer{1: newFake()},
		ConsumerFamily: 0,
	})
	if b.orch.Family() != 1 {
		t.Fatalf("orchestrator family = %d, want the transfer family", b.orch.Family())
	}
	a, err := b.Build(context.Background(), persistent(1, "hi"))
	if err != nil {
		t.Fatal(err)
	}
	if !a.Image.HasPending() {
		t.Fatal("no pending acquire on the atlas image")
	}
	var released bool
	for _, e := range dev.Log() {
		if e.Kind == host.EventRelease && e.Object == a.Image.Label() {
			released = e.Queue == 1 && e.SrcFamily == 1 && e.DstFamily == 0
		}
	}
	if !released {
		t.Errorf("no release from family 1 to 0 in %v", dev.Log())
	}

	err = transfer.Submit(context.Background(), dev, 0, func(cmd gpucore.CommandBuffer) error {
		return gpucore.RecordAcquires(cmd, gpucore.StageFragmentShader, []gpucore.Image{a.Image}, nil)
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if fam, ok := a.Image.(*host.Image).Owner(); !ok || fam != 0 {
		t.Errorf("owner = %d, %v", fam, ok)
	}
}

func TestBuildFailureKeepsPrevious(t *testing.T) {
	tests := []struct {
		name string
		hook func(host.Op) error
		text string
	}{
		{"render error", nil, "Z" + string(failingRune)},
		{"submit error", host.FailOn(host.OpSubmit, 2, false), "Z"},
		{"image allocation error", host.FailOn(host.OpCreateImage, 2, false), "Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := host.DefaultConfig()
			hc.Fail = tt.hook
			b, dev := newBuilder(t, hc, Config{Fonts: map[FontID]text.GlyphRenderer{1: newFake()}})
			ctx := context.Background()
			prev, err := b.Build(ctx, persistent(1, "AB"))
			if err != nil {
				t.Fatal(err)
			}
			before := dev.Live()

			if _, err := b.Build(ctx, persistent(1, tt.text)); err == nil {
				t.Fatal("build succeeded")
			}
			if b.Current() != prev || b.Persistent() != prev.Persistent {
				t.Error("failed build replaced the published atlas")
			}
			if after := dev.Live(); after != before {
				t.Errorf("live objects %+v, want %+v", after, before)
			}
			checkGlyph(t, prev, 1, 'A')
			if prev.Persistent.Len() != 3 {
				t.Errorf("persistent entries = %d", prev.Persistent.Len())
			}
		})
	}
}

func TestUnderlineIsBestEffort(t *testing.T) {
	// 'A' is 2×5 texels, 12 bytes with the 4-byte offset alignment.
	b, _ := newBuilder(t, host.DefaultConfig(), Config{
		Fonts:        map[FontID]text.GlyphRenderer{1: newFake()},
		StagingLimit: 12,
	})
	a, err := b.Build(context.Background(), persistent(1, "A"))
	if err != nil {
		t.Fatal(err)
	}
	checkGlyph(t, a, 1, 'A')
	if a.HasUnderline() {
		t.Error("underline placed without staging room")
	}

	b.cfg.StagingLimit = 11
	if _, err := b.Build(context.Background(), persistent(1, "AE")); !errors.Is(err, ErrStagingFull) {
		t.Errorf("err = %v, want ErrStagingFull", err)
	}
}

func TestBuildWithFontRenderer(t *testing.T) {
	r, err := text.NewOpenTypeRenderer(goregular.TTF, 18)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := newBuilder(t, host.DefaultConfig(), Config{Fonts: map[FontID]text.GlyphRenderer{7: r}, Workers: 4})
	a, err := b.Build(context.Background(), persistent(7, "Hello, world"))
	if err != nil {
		t.Fatal(err)
	}
	for _, ch := range "Helo,wrd" {
		want, err := r.RenderGlyph(ch)
		if err != nil {
			t.Fatal(err)
		}
		g, ok := a.Glyph(GlyphID(7, ch))
		if !ok {
			t.Fatalf("%q missing", ch)
		}
		if int(g.Region.Width) != want.Width() || int(g.Region.Height) != want.Height() {
			t.Fatalf("%q region %v, want %dx%d", ch, g.Region, want.Width(), want.Height())
		}
		if string(region(t, a, g.Region)) != string(want.Mask.Pix) {
			t.Errorf("%q texels differ from the rendered mask", ch)
		}
	}
}

func TestBuildAsync(t *testing.T) {
	b, _ := newBuilder(t, host.DefaultConfig(), Config{Fonts: map[FontID]text.GlyphRenderer{1: newFake()}})
	done := make(chan error, 1)
	b.BuildAsync(context.Background(), persistent(1, "ok"), func(a *Atlas, err error) {
		if err == nil && a != b.Current() {
			err = errors.New("published atlas differs")
		}
		done <- err
	})
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestClose(t *testing.T) {
	dev := host.New(host.DefaultConfig())
	orch, err := transfer.New(dev)
	if err != nil {
		t.Fatal(err)
	}
	b := New(orch, Config{Fonts: map[FontID]text.GlyphRenderer{1: newFake()}})
	if _, err := b.Build(context.Background(), persistent(1, "abc")); err != nil {
		t.Fatal(err)
	}
	b.Close()
	b.Close()
	if live := dev.Live(); live != (host.Counts{}) {
		t.Errorf("live after Close = %+v", live)
	}
	if _, err := b.Build(context.Background(), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestStagingCursor(t *testing.T) {
	c := &stagingCursor{limit: 64 * 8}
	var mu sync.Mutex
	seen := map[uint64]bool{}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 8 {
				off, ok := c.reserve(8, 8)
				if !ok {
					t.Error("reservation failed")
					return
				}
				mu.Lock()
				if seen[off] || off%8 != 0 {
					t.Errorf("offset %d reused or unaligned", off)
				}
				seen[off] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if _, ok := c.reserve(1, 1); ok {
		t.Error("reservation past the limit succeeded")
	}
}
