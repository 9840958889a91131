package mesh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func vert(x float32) Vertex {
	return Vertex{Pos: [4]float32{x, 0, 0, 1}, Norm: [4]float32{0, 0, 1, 0}, Tex: [2]float32{x / 10, 1}}
}

func testBundle() *Bundle {
	b := &Bundle{
		Objects: []Object{
			{Name: "quad", IndexOffset: 0, IndexCount: 6},
			{Name: "tri", IndexOffset: 6, IndexCount: 3},
		},
		Indices:  []uint32{0, 1, 2, 2, 3, 0, 4, 5, 2},
		UserData: []byte("material=stone"),
	}
	for i := range 6 {
		b.Vertices = append(b.Vertices, vert(float32(i)))
	}
	return b
}

func encode(t *testing.T, b *Bundle, compress bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := b.Encode(&buf, compress); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestBundleRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		want := testBundle()
		got, err := ParseBundle(encode(t, want, compress))
		if err != nil {
			t.Fatalf("compress=%v: %v", compress, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("compress=%v: got %+v, want %+v", compress, got, want)
		}
	}
}

func TestBundleCompression(t *testing.T) {
	b := &Bundle{Objects: []Object{{Name: "strip", IndexCount: 512}}}
	for range 512 {
		b.Vertices = append(b.Vertices, vert(1))
		b.Indices = append(b.Indices, 0)
	}
	raw := encode(t, b, false)
	packed := encode(t, b, true)
	if len(packed) >= len(raw) {
		t.Fatalf("compressed bundle is %d bytes, raw %d", len(packed), len(raw))
	}
	got, err := ParseBundle(packed)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, b) {
		t.Error("compressed bundle decoded differently")
	}
}

func TestLoadBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.xobj")
	if err := os.WriteFile(path, encode(t, testBundle(), true), 0o600); err != nil {
		t.Fatal(err)
	}
	b, err := LoadBundle(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Objects) != 2 || b.Objects[1].Name != "tri" {
		t.Errorf("objects = %+v", b.Objects)
	}
	if _, err := LoadBundle(filepath.Join(t.TempDir(), "missing.xobj")); err == nil {
		t.Error("loading a missing file succeeded")
	}
}

func TestParseBundleErrors(t *testing.T) {
	le := binary.LittleEndian
	valid := func() []byte { return encode(t, testBundle(), false) }
	blockHeader := func(data []byte, i int) []byte { return data[headerSize+i*blockHeaderSize:] }

	tests := []struct {
		name   string
		data   func() []byte
		target error
	}{
		{"short", func() []byte { return []byte("xobj") }, ErrBadMagic},
		{"magic", func() []byte {
			d := valid()
			copy(d, "xobjver2")
			return d
		}, ErrBadMagic},
		{"no blocks", func() []byte {
			d := make([]byte, headerSize)
			copy(d, Magic)
			le.PutUint64(d[12:], headerSize)
			return d
		}, ErrNoBlocks},
		{"truncated", func() []byte {
			d := valid()
			return d[:len(d)-1]
		}, ErrBlockExtent},
		{"block past end", func() []byte {
			d := valid()
			le.PutUint64(blockHeader(d, 0)[16:], 1<<20)
			return d
		}, ErrBlockExtent},
		{"missing index block", func() []byte {
			d := valid()
			blockHeader(d, 3)[0] = 9
			return d
		}, ErrMissingBlock},
		{"duplicate block", func() []byte {
			d := valid()
			blockHeader(d, 4)[0] = byte(BlockObject)
			return d
		}, ErrCorrupt},
		{"vertex size", func() []byte {
			d := valid()
			le.PutUint16(blockHeader(d, 2)[2:], 32)
			return d
		}, ErrCorrupt},
		{"index out of range", func() []byte {
			b := testBundle()
			b.Indices[4] = 99
			return encode(t, b, false)
		}, ErrCorrupt},
		{"object range", func() []byte {
			b := testBundle()
			b.Objects[1].IndexCount = 4
			return encode(t, b, false)
		}, ErrCorrupt},
		{"bad lz4", func() []byte {
			b := &Bundle{Objects: []Object{{Name: "strip", IndexCount: 512}}}
			for range 512 {
				b.Vertices = append(b.Vertices, vert(1))
				b.Indices = append(b.Indices, 0)
			}
			d := encode(t, b, true)
			h := blockHeader(d, 2)
			if h[1]&blockCompressed == 0 {
				t.Fatal("vertex block not compressed")
			}
			body := d[le.Uint64(h[8:]):]
			body[0] = 0xff
			le.PutUint32(h[4:], 513)
			return d
		}, ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBundle(tt.data())
			if !errors.Is(err, tt.target) {
				t.Errorf("err = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestParseBundleSkipsUnknownBlocks(t *testing.T) {
	d := encode(t, testBundle(), false)
	// The user data block becomes an unknown type.
	d[headerSize+4*blockHeaderSize] = 0x40
	b, err := ParseBundle(d)
	if err != nil {
		t.Fatal(err)
	}
	if b.UserData != nil {
		t.Errorf("user data = %q, want none", b.UserData)
	}
}

func TestBundleMesh(t *testing.T) {
	b := testBundle()
	src, ok := b.Mesh("tri")
	if !ok {
		t.Fatal("tri not found")
	}
	wantVerts := []Vertex{vert(4), vert(5), vert(2)}
	if !reflect.DeepEqual(src.Vertices, wantVerts) {
		t.Errorf("vertices = %v, want %v", src.Vertices, wantVerts)
	}
	if want := []uint32{0, 1, 2}; !reflect.DeepEqual(src.Indices, want) {
		t.Errorf("indices = %v, want %v", src.Indices, want)
	}

	quad, _ := b.Mesh("quad")
	if len(quad.Vertices) != 4 || !reflect.DeepEqual(quad.Indices, []uint32{0, 1, 2, 2, 3, 0}) {
		t.Errorf("quad = %+v", quad)
	}
	if _, ok := b.Mesh("cube"); ok {
		t.Error("found a mesh that is not in the bundle")
	}
}
