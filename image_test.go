package vg

import (
	"slices"
	"testing"
)

func newTestImage(t *testing.T) *Image {
	t.Helper()
	img := NewImage(100, 50)
	img.AddPath(NewPath().Rect(0, 0, 10, 10), "a", 1, Identity())
	img.AddPath(NewPath().Circle(50, 25, 5), "b", 0, Translate(1, 2))
	return img
}

func TestImageAddRemoveRestores(t *testing.T) {
	img := newTestImage(t)
	before := img.PopData()
	ids, order := img.PathIDs(), img.DrawOrder()

	img.AddPath(NewPath().Rect(5, 5, 1, 1), "c", 0, Identity())
	if img.GetPath("c").Path() == nil {
		t.Fatal("added path not found")
	}
	img.RemovePath("c")

	if !slices.Equal(img.PathIDs(), ids) {
		t.Errorf("PathIDs() = %v, want %v", img.PathIDs(), ids)
	}
	if !slices.Equal(img.DrawOrder(), order) {
		t.Errorf("DrawOrder() changed after add+remove")
	}
	if !img.PopData().Equal(before) {
		t.Error("snapshot after add+remove differs from original")
	}
}

func TestImageAutoIDs(t *testing.T) {
	img := NewImage(10, 10)
	r1 := img.AddPath(NewPath(), "", 0, Identity())
	img.AddPath(NewPath(), "auto-2", 0, Identity())
	r2 := img.AddPath(NewPath(), "", 0, Identity())
	if r1.ID() != "auto-1" {
		t.Errorf("first auto id = %q, want auto-1", r1.ID())
	}
	if r2.ID() != "auto-3" {
		t.Errorf("colliding auto id = %q, want auto-3", r2.ID())
	}
}

func TestImageRemoveDropsAllDrawEntries(t *testing.T) {
	img := newTestImage(t)
	img.SetDrawOrder([]DrawEntry{
		{PathID: "a", Transform: Identity()},
		{PathID: "b", Transform: Identity()},
		{PathID: "a", Transform: Translate(5, 0)},
	})
	img.RemovePath("a")
	for _, e := range img.DrawOrder() {
		if e.PathID == "a" {
			t.Fatal("draw entry for removed path survived")
		}
	}
	img.ResetDrawOrder()
	if got := img.DrawOrder(); len(got) != 1 || got[0].PathID != "b" {
		t.Errorf("ResetDrawOrder() = %v", got)
	}
}

func TestImageSnapshotIsolation(t *testing.T) {
	img := newTestImage(t)
	ref := img.GetPath("a")
	snap := img.PopData()
	frozen := snap.Copy()

	ref.LineTo(99, 99).SetFillColor(Red)
	img.AddPath(NewPath(), "new", 0, Identity())
	img.SetViewBox(Rect{X: 1, Y: 1, Width: 2, Height: 2})

	if !snap.Equal(frozen) {
		t.Fatal("mutation through pre-snapshot ref changed the snapshot")
	}
	if snap.Path("a").Len() != 5 {
		t.Errorf("snapshot path len = %d, want 5", snap.Path("a").Len())
	}
	if got := ref.Path().Len(); got != 6 {
		t.Errorf("live path len = %d, want 6", got)
	}
	if !img.IsDirty() {
		t.Error("image should be dirty after mutation")
	}

	next := img.PopData()
	if next.Generation() <= snap.Generation() {
		t.Errorf("generation did not advance: %d <= %d", next.Generation(), snap.Generation())
	}
	if next.Path("a").Style().FillColor != Red {
		t.Error("new snapshot missing the mutation")
	}
}

func TestImageCopyOnWriteClonesOnce(t *testing.T) {
	img := newTestImage(t)
	ref := img.GetPath("a")
	snap := img.PopData()

	ref.LineTo(1, 1)
	first := ref.Path()
	ref.LineTo(2, 2)
	if ref.Path() != first {
		t.Error("second mutation in the same batch cloned the path again")
	}
	if snap.Path("b") != img.PopData().Path("b") {
		t.Error("untouched path should stay shared between snapshots")
	}
}

func TestImagePopDataCopyRoundTrip(t *testing.T) {
	img := newTestImage(t)
	s := img.PopData()
	if !s.Copy().Equal(s) {
		t.Error("Copy(PopData()) != PopData()")
	}
	if img.PopData() != s {
		t.Error("PopData without mutation should return the cached snapshot")
	}
	if img.IsDirty() {
		t.Error("PopData should clear the dirty flag")
	}
}

func TestPathRefInvalid(t *testing.T) {
	img := newTestImage(t)
	ref := img.GetPath("missing")
	if ref.Valid() {
		t.Fatal("handle to missing path should be invalid")
	}
	img.PopData()
	ref.LineTo(1, 1).SetFillColor(Red)
	if ref.AddSVG("M0 0") {
		t.Error("AddSVG on invalid handle should report false")
	}
	if img.IsDirty() {
		t.Error("no-op mutation marked the image dirty")
	}

	var zero PathRef
	if zero.Valid() || zero.Path() != nil {
		t.Error("zero PathRef should be invalid")
	}
	zero.MoveTo(1, 1)
}

func TestPathRefRemoved(t *testing.T) {
	img := newTestImage(t)
	ref := img.GetPath("b")
	img.RemovePath("b")
	if ref.Valid() {
		t.Error("handle should be invalid after RemovePath")
	}
	ref.LineTo(3, 3)
	if img.GetPath("b").Valid() {
		t.Error("mutation through stale handle resurrected the path")
	}
}

func TestImageClone(t *testing.T) {
	img := newTestImage(t)
	c := img.Clone()
	c.GetPath("a").LineTo(7, 7)
	if img.GetPath("a").Path().Len() != 5 {
		t.Error("Clone shares paths with the original")
	}
	if !slices.Equal(c.PathIDs(), img.PathIDs()) {
		t.Error("Clone lost path ids")
	}
}
