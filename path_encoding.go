package vg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrInvalidEncoding is returned when binary path data is truncated or
// contains an unknown command or float tag.
var ErrInvalidEncoding = errors.New("vg: invalid path encoding")

// Float tags of the binary operand encoding.
const (
	tagFloat32 byte = 0
	tagFloat64 byte = 1
)

// maxDecodedCommands bounds the command count read from untrusted data.
const maxDecodedCommands = 1 << 24

// AppendBinary appends the binary command stream of p to b:
//
//	count:uvarint, (command:uvarint, operands...) * count
//
// Every operand is a tag byte followed by a little-endian float32 (tag 0)
// when the value survives a float32 round trip, or a float64 (tag 1)
// otherwise. ArcTo operands are written as rx, ry, x, y, rotation,
// flags where flags = largeArc<<1 | sweep. The style block is not encoded.
func (p *Path) AppendBinary(b []byte) ([]byte, error) {
	b = binary.AppendUvarint(b, uint64(len(p.commands)))
	off := 0
	for _, c := range p.commands {
		n := c.NumParams()
		if off+n > len(p.params) {
			return nil, fmt.Errorf("%w: command %d has %d of %d operands", ErrInvalidEncoding, c, len(p.params)-off, n)
		}
		a := p.params[off : off+n]
		off += n

		b = binary.AppendUvarint(b, uint64(c))
		if c == CmdArcTo {
			flags := float64(int(a[3])<<1 | int(a[4]))
			for _, v := range [6]float64{a[0], a[1], a[5], a[6], a[2], flags} {
				b = appendFloat(b, v)
			}
			continue
		}
		for _, v := range a {
			b = appendFloat(b, v)
		}
	}
	return b, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Path) MarshalBinary() ([]byte, error) {
	return p.AppendBinary(make([]byte, 0, 1+len(p.commands)+len(p.params)*5))
}

// Encode writes the binary command stream to w.
func (p *Path) Encode(w io.Writer) error {
	data, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. It replaces the
// command stream and keeps the current style. On error p is left unchanged.
func (p *Path) UnmarshalBinary(data []byte) error {
	q, n, err := decodeCommands(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrInvalidEncoding, len(data)-n)
	}
	p.commands, p.params = q.commands, q.params
	return nil
}

// DecodePath decodes one path from the front of data and returns it with
// the number of bytes consumed. The path gets the default style.
func DecodePath(data []byte) (*Path, int, error) {
	return decodeCommands(data)
}

func decodeCommands(data []byte) (*Path, int, error) {
	count, pos := binary.Uvarint(data)
	if pos <= 0 {
		return nil, 0, fmt.Errorf("%w: bad command count", ErrInvalidEncoding)
	}
	if count > maxDecodedCommands || count > uint64(len(data)) {
		return nil, 0, fmt.Errorf("%w: command count %d too large", ErrInvalidEncoding, count)
	}

	p := NewPath()
	p.commands = make([]Command, 0, count)
	var ops [6]float64
	for range count {
		code, n := binary.Uvarint(data[pos:])
		if n <= 0 {
			return nil, 0, fmt.Errorf("%w: truncated command at offset %d", ErrInvalidEncoding, pos)
		}
		pos += n
		if code > uint64(CmdClosePath) {
			return nil, 0, fmt.Errorf("%w: unknown command %d at offset %d", ErrInvalidEncoding, code, pos-n)
		}
		c := Command(code)
		nops := c.NumParams()
		if c == CmdArcTo {
			nops = 6
		}
		for i := range nops {
			v, n, err := readFloat(data[pos:])
			if err != nil {
				return nil, 0, fmt.Errorf("offset %d: %w", pos, err)
			}
			ops[i] = v
			pos += n
		}
		if c == CmdArcTo {
			flags := int(ops[5])
			p.ArcTo(ops[0], ops[1], ops[4], flags&2 != 0, flags&1 != 0, ops[2], ops[3])
			continue
		}
		p.push(c, ops[:nops]...)
	}
	return p, pos, nil
}

func appendFloat(b []byte, v float64) []byte {
	if f := float32(v); float64(f) == v || math.IsNaN(v) {
		b = append(b, tagFloat32)
		return binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	b = append(b, tagFloat64)
	return binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
}

func readFloat(b []byte) (float64, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("%w: missing float tag", ErrInvalidEncoding)
	}
	switch b[0] {
	case tagFloat32:
		if len(b) < 5 {
			return 0, 0, fmt.Errorf("%w: truncated float32", ErrInvalidEncoding)
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[1:]))), 5, nil
	case tagFloat64:
		if len(b) < 9 {
			return 0, 0, fmt.Errorf("%w: truncated float64", ErrInvalidEncoding)
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b[1:])), 9, nil
	default:
		return 0, 0, fmt.Errorf("%w: unknown float tag %d", ErrInvalidEncoding, b[0])
	}
}
