package vg

import (
	"bytes"
	"errors"
	"math"
	"slices"
	"testing"
)

func TestPathBuilderChains(t *testing.T) {
	p := NewPath().
		MoveTo(0, 0).
		LineTo(10, 0).
		QuadTo(15, 5, 10, 10).
		CubicTo(8, 12, 2, 12, 0, 10).
		ArcTo(5, 5, 0, true, false, 0, 0).
		ClosePath().
		SetFillColor(Red).
		SetWinding(EvenOdd)

	wantCmds := []Command{CmdMoveTo, CmdLineTo, CmdQuadTo, CmdCubicTo, CmdArcTo, CmdClosePath}
	if !slices.Equal(p.Commands(), wantCmds) {
		t.Fatalf("Commands() = %v, want %v", p.Commands(), wantCmds)
	}
	if got, want := len(p.Params()), 2+2+4+6+7; got != want {
		t.Errorf("len(Params()) = %d, want %d", got, want)
	}
	if p.Style().FillColor != Red || p.Style().Winding != EvenOdd {
		t.Errorf("style setters not applied: %+v", p.Style())
	}
}

func TestPathCloneIndependent(t *testing.T) {
	p := NewPath().Rect(0, 0, 4, 4)
	c := p.Clone()
	if !p.Equal(c) {
		t.Fatal("clone differs from original")
	}
	c.LineTo(1, 1)
	if p.Len() != 5 {
		t.Errorf("original mutated through clone: len=%d", p.Len())
	}
	if p.Equal(c) {
		t.Error("Equal should report different command streams")
	}
}

func TestPathBounds(t *testing.T) {
	b := NewPath().Rect(-2, 3, 10, 5).Bounds()
	if b != (Rect{X: -2, Y: 3, Width: 10, Height: 5}) {
		t.Errorf("Bounds() = %+v", b)
	}
	if !NewPath().Bounds().Empty() {
		t.Error("empty path should have empty bounds")
	}
}

func TestPathShapes(t *testing.T) {
	tests := []struct {
		name string
		p    *Path
		cmds int
	}{
		{"rect", NewPath().Rect(0, 0, 1, 1), 5},
		{"round rect", NewPath().RoundRect(0, 0, 10, 10, 2, 2), 10},
		{"round rect zero radius", NewPath().RoundRect(0, 0, 10, 10, 0, 0), 5},
		{"circle", NewPath().Circle(0, 0, 1), 4},
		{"polygon", NewPath().Polygon(0, 0, 1, 6), 7},
		{"polygon degenerate", NewPath().Polygon(0, 0, 1, 2), 0},
		{"star", NewPath().Star(0, 0, 2, 1, 5), 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.p.Len() != tt.cmds {
				t.Errorf("Len() = %d, want %d", tt.p.Len(), tt.cmds)
			}
		})
	}
}

func TestPathString(t *testing.T) {
	p := NewPath().MoveTo(0, 0).LineTo(10, 0.5).ArcTo(1, 1, 0, false, true, 2, 2).ClosePath()
	want := "M 0 0 L 10 0.5 A 1 1 0 0 1 2 2 Z"
	if got := p.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	q, ok := ParseSVG(p.String())
	if !ok {
		t.Fatal("String output should parse back")
	}
	if q.Len() != p.Len() {
		t.Errorf("reparsed Len() = %d, want %d", q.Len(), p.Len())
	}
}

func TestPathBinaryRoundTrip(t *testing.T) {
	paths := map[string]*Path{
		"empty":     NewPath(),
		"rect":      NewPath().Rect(0, 0, 10, 5),
		"fractions": NewPath().MoveTo(0.1, 1.0/3).LineTo(math.Pi, -math.E),
		"curves": NewPath().MoveTo(1, 2).QuadTo(3, 4, 5, 6).
			CubicTo(7, 8, 9, 10, 11, 12).ClosePath(),
		"arcs": NewPath().MoveTo(1, 0).
			ArcTo(1, 2, 0.25, true, false, 0, -1).
			ArcTo(1, 1, 0, false, true, -1, 0).
			ArcTo(3, 1, 1.5, true, true, 0, 1),
		"no moveto": NewPath().LineTo(5, 5).LineTo(1e300, -1e-300),
	}
	for name, p := range paths {
		t.Run(name, func(t *testing.T) {
			data, err := p.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary: %v", err)
			}
			q := NewPath()
			if err := q.UnmarshalBinary(data); err != nil {
				t.Fatalf("UnmarshalBinary: %v", err)
			}
			if !p.EqualCommands(q) {
				t.Errorf("round trip mismatch:\n got %v\nwant %v", q, p)
			}

			var buf bytes.Buffer
			if err := p.Encode(&buf); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			r, n, err := DecodePath(buf.Bytes())
			if err != nil || n != buf.Len() || !p.EqualCommands(r) {
				t.Errorf("DecodePath = (%v, %d, %v)", r, n, err)
			}
		})
	}
}

func TestPathBinaryCompactFloats(t *testing.T) {
	data, err := NewPath().MoveTo(1, 2).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	// count, cmd, 2 x (tag + float32)
	if len(data) != 1+1+2*5 {
		t.Errorf("len = %d, want %d", len(data), 12)
	}
	if data[2] != tagFloat32 {
		t.Errorf("exact float should use float32 tag, got %d", data[2])
	}

	data, _ = NewPath().MoveTo(0.1, 0).MarshalBinary()
	if data[2] != tagFloat64 {
		t.Errorf("0.1 should use float64 tag, got %d", data[2])
	}
}

func TestPathBinaryArcOperandOrder(t *testing.T) {
	data, err := NewPath().ArcTo(3, 4, 0.5, true, false, 7, 8).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	pos := 2
	var got []float64
	for range 6 {
		v, n, err := readFloat(data[pos:])
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, v)
		pos += n
	}
	want := []float64{3, 4, 7, 8, 0.5, 2}
	if !slices.Equal(got, want) {
		t.Errorf("arc operands = %v, want %v", got, want)
	}
}

func TestPathBinaryErrors(t *testing.T) {
	good, _ := NewPath().Rect(0, 0, 1, 1).MarshalBinary()
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", good[:len(good)-2]},
		{"trailing", append(append([]byte{}, good...), 0)},
		{"bad command", []byte{1, 9}},
		{"bad tag", []byte{1, 0, 7, 0, 0, 0, 0}},
		{"huge count", []byte{0xff, 0xff, 0xff, 0x7f}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPath().MoveTo(42, 42)
			err := p.UnmarshalBinary(tt.data)
			if !errors.Is(err, ErrInvalidEncoding) {
				t.Errorf("UnmarshalBinary error = %v, want ErrInvalidEncoding", err)
			}
			if p.Len() != 1 {
				t.Error("failed decode modified the path")
			}
		})
	}
}
