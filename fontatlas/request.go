package fontatlas

import (
	"fmt"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FontID identifies a font at one size. The caller assigns ids and maps
// them to renderers in Config.Fonts.
type FontID uint32

// ObjectID identifies a glyph: the font id above the 21 bits of the rune.
type ObjectID uint64

const runeBits = 21

// UnderlineID is the id of the 1×1 white pixel used to draw underlines
// and other solid quads.
const UnderlineID ObjectID = 1<<62 - 1

// GlyphID returns the object id of char in font.
func GlyphID(font FontID, char rune) ObjectID {
	return ObjectID(font)<<runeBits | ObjectID(char)&(1<<runeBits-1)
}

// Font returns the font part of the id.
func (id ObjectID) Font() FontID { return FontID(id >> runeBits) }

// Char returns the rune part of the id.
func (id ObjectID) Char() rune { return rune(id & (1<<runeBits - 1)) }

func (id ObjectID) String() string {
	if id == UnderlineID {
		return "underline"
	}
	return fmt.Sprintf("%d:%q", id.Font(), id.Char())
}

// Request asks for one glyph in the next atlas. Persistent glyphs are kept
// in device memory across builds.
type Request struct {
	Font       FontID
	Char       rune
	Persistent bool
}

// ID returns the glyph's object id.
func (r Request) ID() ObjectID { return GlyphID(r.Font, r.Char) }

// RequestsForString returns one request per distinct rune of s after NFC
// normalization, in order of first appearance. Control characters are
// skipped.
func RequestsForString(font FontID, s string, persistent bool) []Request {
	s = norm.NFC.String(s)
	seen := make(map[rune]struct{}, len(s))
	var reqs []Request
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		reqs = append(reqs, Request{Font: font, Char: r, Persistent: persistent})
	}
	return reqs
}
