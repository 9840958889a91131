package mesh

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pierrec/lz4/v4"
	"honnef.co/go/safeish"

	"github.com/gogpu/vg"
)

// Bundle errors.
var (
	ErrBadMagic     = errors.New("mesh: bad bundle magic")
	ErrNoBlocks     = errors.New("mesh: bundle has no blocks")
	ErrBlockExtent  = errors.New("mesh: block extends past the end of the bundle")
	ErrMissingBlock = errors.New("mesh: mandatory block missing")
	ErrCorrupt      = errors.New("mesh: corrupt bundle")
)

// Magic starts every bundle file.
const Magic = "xobjver1"

const (
	headerSize      = 20
	blockHeaderSize = 24
	objectSize      = 16
	indexSize       = 4
)

// BlockType identifies the contents of a bundle block.
type BlockType uint8

// Block types.
const (
	BlockObject BlockType = iota
	BlockString
	BlockVertex
	BlockIndex
	BlockUserData
)

func (t BlockType) String() string {
	switch t {
	case BlockObject:
		return "Object"
	case BlockString:
		return "String"
	case BlockVertex:
		return "Vertex"
	case BlockIndex:
		return "Index"
	case BlockUserData:
		return "UserData"
	}
	return fmt.Sprintf("BlockType(%d)", uint8(t))
}

// blockCompressed marks an LZ4 block body.
const blockCompressed = 1 << 0

// Object is a named index range of a bundle.
type Object struct {
	Name        string
	IndexOffset uint32
	IndexCount  uint32
}

// Bundle is a decoded OBJ bundle. Indices of every object address the
// shared vertex array.
type Bundle struct {
	Objects  []Object
	Vertices []Vertex
	Indices  []uint32
	UserData []byte
}

// LoadBundle reads and parses the bundle file at path.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: %w", err)
	}
	b, err := ParseBundle(data)
	if err != nil {
		vg.Logger().Warn("mesh: bundle rejected", "path", path, "err", err)
		return nil, err
	}
	return b, nil
}

type blockHeader struct {
	typ       BlockType
	flags     uint8
	eltSize   uint16
	eltCount  uint32
	offset    uint64
	size      uint64
	unpacked  []byte
	populated bool
}

// ParseBundle decodes a bundle held in memory. Vertex and index blocks are
// copied without byte swapping, so the host must be little-endian.
func ParseBundle(data []byte) (*Bundle, error) {
	le := binary.LittleEndian
	if len(data) < headerSize || string(data[:8]) != Magic {
		return nil, ErrBadMagic
	}
	n := int(le.Uint16(data[8:]))
	if n == 0 {
		return nil, ErrNoBlocks
	}
	fileSize := le.Uint64(data[12:])
	if fileSize > uint64(len(data)) {
		return nil, fmt.Errorf("%w: header claims %d bytes, have %d", ErrBlockExtent, fileSize, len(data))
	}
	if uint64(headerSize+n*blockHeaderSize) > fileSize {
		return nil, fmt.Errorf("%w: %d block headers", ErrBlockExtent, n)
	}

	var blocks [BlockUserData + 1]blockHeader
	for i := range n {
		h := data[headerSize+i*blockHeaderSize:]
		bh := blockHeader{
			typ:      BlockType(h[0]),
			flags:    h[1],
			eltSize:  le.Uint16(h[2:]),
			eltCount: le.Uint32(h[4:]),
			offset:   le.Uint64(h[8:]),
			size:     le.Uint64(h[16:]),
		}
		if bh.offset > fileSize || bh.size > fileSize-bh.offset {
			return nil, fmt.Errorf("%w: %s block at %d+%d, file %d", ErrBlockExtent, bh.typ, bh.offset, bh.size, fileSize)
		}
		if bh.typ > BlockUserData {
			vg.Logger().Debug("mesh: skipping unknown block", "type", bh.typ)
			continue
		}
		if blocks[bh.typ].populated {
			return nil, fmt.Errorf("%w: duplicate %s block", ErrCorrupt, bh.typ)
		}
		body, err := unpack(bh, data[bh.offset:bh.offset+bh.size])
		if err != nil {
			return nil, err
		}
		bh.unpacked, bh.populated = body, true
		blocks[bh.typ] = bh
	}

	for _, t := range []BlockType{BlockObject, BlockVertex, BlockIndex} {
		if !blocks[t].populated {
			return nil, fmt.Errorf("%w: %s", ErrMissingBlock, t)
		}
	}
	for t, want := range map[BlockType]uint16{BlockObject: objectSize, BlockVertex: VertexSize, BlockIndex: indexSize} {
		if got := blocks[t].eltSize; got != want {
			return nil, fmt.Errorf("%w: %s elements are %d bytes, want %d", ErrCorrupt, t, got, want)
		}
	}

	b := &Bundle{
		Vertices: make([]Vertex, blocks[BlockVertex].eltCount),
		Indices:  make([]uint32, blocks[BlockIndex].eltCount),
		UserData: blocks[BlockUserData].unpacked,
	}
	copy(safeish.SliceCast[[]byte](b.Vertices), blocks[BlockVertex].unpacked)
	copy(safeish.SliceCast[[]byte](b.Indices), blocks[BlockIndex].unpacked)
	for i, ix := range b.Indices {
		if int(ix) >= len(b.Vertices) {
			return nil, fmt.Errorf("%w: index %d refers to vertex %d of %d", ErrCorrupt, i, ix, len(b.Vertices))
		}
	}

	strs := blocks[BlockString].unpacked
	objs := blocks[BlockObject].unpacked
	b.Objects = make([]Object, blocks[BlockObject].eltCount)
	for i := range b.Objects {
		o := objs[i*objectSize:]
		idxOff, idxCount := le.Uint32(o), le.Uint32(o[4:])
		nameOff, nameSize := le.Uint32(o[8:]), le.Uint32(o[12:])
		if uint64(idxOff)+uint64(idxCount) > uint64(len(b.Indices)) {
			return nil, fmt.Errorf("%w: object %d indices %d+%d of %d", ErrCorrupt, i, idxOff, idxCount, len(b.Indices))
		}
		if uint64(nameOff)+uint64(nameSize) > uint64(len(strs)) {
			return nil, fmt.Errorf("%w: object %d name %d+%d of %d", ErrCorrupt, i, nameOff, nameSize, len(strs))
		}
		b.Objects[i] = Object{
			Name:        string(strs[nameOff : nameOff+nameSize]),
			IndexOffset: idxOff,
			IndexCount:  idxCount,
		}
	}
	return b, nil
}

// unpack returns the eltCount×eltSize bytes of a block body.
func unpack(h blockHeader, body []byte) ([]byte, error) {
	want := uint64(h.eltSize) * uint64(h.eltCount)
	if h.flags&blockCompressed == 0 {
		if uint64(len(body)) != want {
			return nil, fmt.Errorf("%w: %s block holds %d bytes, want %d", ErrCorrupt, h.typ, len(body), want)
		}
		return body, nil
	}
	if want > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %s block of %d bytes", ErrCorrupt, h.typ, want)
	}
	out := make([]byte, want)
	k, err := lz4.UncompressBlock(body, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s block: %w", ErrCorrupt, h.typ, err)
	}
	if uint64(k) != want {
		return nil, fmt.Errorf("%w: %s block inflated to %d bytes, want %d", ErrCorrupt, h.typ, k, want)
	}
	return out, nil
}

// Mesh returns the object named key as a self-contained source: its
// indices are rebased onto a compacted copy of the vertices they use.
// It implements Library.
func (b *Bundle) Mesh(key Key) (Source, bool) {
	for _, o := range b.Objects {
		if o.Name != string(key) {
			continue
		}
		src := Source{Key: key, Indices: make([]uint32, o.IndexCount)}
		remap := make(map[uint32]uint32)
		for i, ix := range b.Indices[o.IndexOffset : o.IndexOffset+o.IndexCount] {
			n, ok := remap[ix]
			if !ok {
				n = uint32(len(src.Vertices))
				remap[ix] = n
				src.Vertices = append(src.Vertices, b.Vertices[ix])
			}
			src.Indices[i] = n
		}
		return src, true
	}
	return Source{}, false
}

// Encode writes b in bundle format. With compress set, blocks that shrink
// under LZ4 are stored compressed.
func (b *Bundle) Encode(w io.Writer, compress bool) error {
	le := binary.LittleEndian
	var strs bytes.Buffer
	objs := make([]byte, len(b.Objects)*objectSize)
	for i, o := range b.Objects {
		e := objs[i*objectSize:]
		le.PutUint32(e, o.IndexOffset)
		le.PutUint32(e[4:], o.IndexCount)
		le.PutUint32(e[8:], uint32(strs.Len()))
		le.PutUint32(e[12:], uint32(len(o.Name)))
		strs.WriteString(o.Name)
	}

	type block struct {
		typ     BlockType
		eltSize uint16
		count   int
		body    []byte
	}
	blocks := []block{
		{BlockObject, objectSize, len(b.Objects), objs},
		{BlockString, 1, strs.Len(), strs.Bytes()},
		{BlockVertex, VertexSize, len(b.Vertices), safeish.SliceCast[[]byte](b.Vertices)},
		{BlockIndex, indexSize, len(b.Indices), safeish.SliceCast[[]byte](b.Indices)},
	}
	if len(b.UserData) > 0 {
		blocks = append(blocks, block{BlockUserData, 1, len(b.UserData), b.UserData})
	}

	headers := make([]byte, headerSize+len(blocks)*blockHeaderSize)
	copy(headers, Magic)
	le.PutUint16(headers[8:], uint16(len(blocks)))

	var bodies bytes.Buffer
	var c lz4.Compressor
	offset := uint64(len(headers))
	for i, bl := range blocks {
		body, flags := bl.body, uint8(0)
		if compress && len(body) > 0 {
			packed := make([]byte, lz4.CompressBlockBound(len(body)))
			n, err := c.CompressBlock(body, packed)
			if err != nil {
				return fmt.Errorf("mesh: compress %s block: %w", bl.typ, err)
			}
			if n > 0 && n < len(body) {
				body, flags = packed[:n], blockCompressed
			}
		}
		h := headers[headerSize+i*blockHeaderSize:]
		h[0], h[1] = byte(bl.typ), flags
		le.PutUint16(h[2:], bl.eltSize)
		le.PutUint32(h[4:], uint32(bl.count))
		le.PutUint64(h[8:], offset+uint64(bodies.Len()))
		le.PutUint64(h[16:], uint64(len(body)))
		bodies.Write(body)
	}
	le.PutUint64(headers[12:], uint64(len(headers)+bodies.Len()))

	if _, err := w.Write(headers); err != nil {
		return fmt.Errorf("mesh: write bundle: %w", err)
	}
	if _, err := w.Write(bodies.Bytes()); err != nil {
		return fmt.Errorf("mesh: write bundle: %w", err)
	}
	return nil
}
