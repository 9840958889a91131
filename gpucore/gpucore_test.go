package gpucore

import (
	"testing"
)

type fakeImage struct {
	PendingSlot
	label string
}

func (f *fakeImage) Label() string   { return f.label }
func (f *fakeImage) Destroy()        {}
func (f *fakeImage) Desc() ImageDesc { return ImageDesc{Label: f.label} }

type fakeCmd struct {
	family   uint32
	barriers [][]ImageBarrier
}

func (c *fakeCmd) Family() uint32                                      { return c.family }
func (c *fakeCmd) CopyBuffer(Buffer, Buffer, ...BufferCopy)            {}
func (c *fakeCmd) CopyBufferToImage(Buffer, Image, ...BufferImageCopy) {}
func (c *fakeCmd) End() error                                          { return nil }
func (c *fakeCmd) PipelineBarrier(_, _ Stage, _ []BufferBarrier, images []ImageBarrier) {
	c.barriers = append(c.barriers, images)
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestPendingSlot(t *testing.T) {
	var s PendingSlot
	if s.HasPending() {
		t.Fatal("zero slot has a pending barrier")
	}
	mustPanic(t, "acquire without release", func() { s.AcquirePending() })

	p := PendingBarrier{SrcFamily: 1, DstFamily: 0, OldLayout: LayoutTransferDst, NewLayout: LayoutShaderReadOnly}
	s.SetPending(p)
	mustPanic(t, "double release", func() { s.SetPending(p) })
	if got := s.AcquirePending(); got != p {
		t.Errorf("AcquirePending() = %+v, want %+v", got, p)
	}
	mustPanic(t, "double acquire", func() { s.AcquirePending() })
}

func TestRecordAcquires(t *testing.T) {
	a := &fakeImage{label: "a"}
	b := &fakeImage{label: "b"}
	a.SetPending(PendingBarrier{SrcFamily: 1, DstFamily: 0, OldLayout: LayoutTransferDst, NewLayout: LayoutShaderReadOnly})

	cmd := &fakeCmd{family: 0}
	if err := RecordAcquires(cmd, StageFragmentShader, []Image{a, b}, nil); err != nil {
		t.Fatal(err)
	}
	if len(cmd.barriers) != 1 || len(cmd.barriers[0]) != 1 {
		t.Fatalf("barriers = %v, want one acquire", cmd.barriers)
	}
	got := cmd.barriers[0][0]
	if got.Image != Image(a) || got.SrcFamily != 1 || got.DstFamily != 0 || !got.OwnershipTransfer() {
		t.Errorf("acquire = %+v", got)
	}
	if a.HasPending() {
		t.Error("pending release not consumed")
	}

	a.SetPending(PendingBarrier{SrcFamily: 1, DstFamily: 2})
	if err := RecordAcquires(cmd, StageFragmentShader, []Image{a}, nil); err == nil {
		t.Error("acquire on the wrong family should fail")
	}
}

func TestRecordAcquiresMixedBatchKeepsReleases(t *testing.T) {
	a := &fakeImage{label: "a"}
	b := &fakeImage{label: "b"}
	pa := PendingBarrier{SrcFamily: 1, DstFamily: 0}
	pb := PendingBarrier{SrcFamily: 1, DstFamily: 2}
	a.SetPending(pa)
	b.SetPending(pb)

	cmd := &fakeCmd{family: 0}
	if err := RecordAcquires(cmd, StageFragmentShader, []Image{a, b}, nil); err == nil {
		t.Fatal("batch with a release to another family should fail")
	}
	if len(cmd.barriers) != 0 {
		t.Errorf("barriers recorded for a rejected batch: %v", cmd.barriers)
	}
	if got, ok := a.Pending(); !ok || got != pa {
		t.Errorf("a pending = %+v %v, want %+v", got, ok, pa)
	}
	if got, ok := b.Pending(); !ok || got != pb {
		t.Errorf("b pending = %+v %v, want %+v", got, ok, pb)
	}

	// The valid release is still acquired by its own family.
	if err := RecordAcquires(cmd, StageFragmentShader, []Image{a}, nil); err != nil {
		t.Fatal(err)
	}
	if a.HasPending() || len(cmd.barriers) != 1 {
		t.Errorf("a pending = %v, barriers = %d", a.HasPending(), len(cmd.barriers))
	}
}

func TestFindMemoryType(t *testing.T) {
	types := []MemoryType{
		{Properties: MemoryDeviceLocal},
		{Properties: MemoryHostVisible | MemoryHostCoherent},
		{Properties: MemoryDeviceLocal | MemoryHostVisible},
	}
	tests := []struct {
		bits uint32
		want MemoryProperty
		idx  int
		ok   bool
	}{
		{0b111, MemoryDeviceLocal, 0, true},
		{0b110, MemoryDeviceLocal, 2, true},
		{0b111, MemoryHostVisible, 1, true},
		{0b001, MemoryHostVisible, -1, false},
	}
	for _, tt := range tests {
		idx, ok := FindMemoryType(types, tt.bits, tt.want)
		if idx != tt.idx || ok != tt.ok {
			t.Errorf("FindMemoryType(%b, %v) = %d, %v; want %d, %v", tt.bits, tt.want, idx, ok, tt.idx, tt.ok)
		}
	}
}

func TestFindFamily(t *testing.T) {
	fams := []QueueFamily{
		{Index: 0, Flags: QueueGraphics | QueueCompute | QueueTransfer},
		{Index: 1, Flags: QueueTransfer},
	}
	if f, ok := FindFamily(fams, QueueTransfer, QueueGraphics); !ok || f != 1 {
		t.Errorf("dedicated transfer family = %d, %v; want 1", f, ok)
	}
	if f, ok := FindFamily(fams[:1], QueueTransfer, QueueGraphics); !ok || f != 0 {
		t.Errorf("fallback family = %d, %v; want 0", f, ok)
	}
	if _, ok := FindFamily(fams[1:], QueueGraphics, 0); ok {
		t.Error("no graphics family expected")
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct{ v, a, want uint64 }{
		{0, 256, 0}, {1, 256, 256}, {256, 256, 256}, {257, 256, 512}, {7, 0, 7}, {7, 1, 7}, {10, 3, 12},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.v, tt.a); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.v, tt.a, got, tt.want)
		}
	}
}
