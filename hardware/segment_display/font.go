package segment_display

import "unicode"

// Segment bits, standard a..g labelling plus decimal point.
const (
	SegA byte = 1 << iota
	SegB
	SegC
	SegD
	SegE
	SegF
	SegG
	SegDP
)

// Approximations for letters that 7 segments can't show properly are intentional.
var font = map[rune]byte{
	' ':  0x00,
	'-':  0x40,
	'_':  0x08,
	'=':  0x48,
	'\'': 0x02,
	'"':  0x22,
	'*':  0x63, // degree
	'°':  0x63,
	'%':  0x63,
	'[':  0x39,
	']':  0x0f,
	'?':  0x53,
	'0':  0x3f,
	'1':  0x06,
	'2':  0x5b,
	'3':  0x4f,
	'4':  0x66,
	'5':  0x6d,
	'6':  0x7d,
	'7':  0x07,
	'8':  0x7f,
	'9':  0x6f,
	'A':  0x77,
	'b':  0x7c,
	'C':  0x39,
	'c':  0x58,
	'd':  0x5e,
	'E':  0x79,
	'F':  0x71,
	'G':  0x3d,
	'H':  0x76,
	'h':  0x74,
	'I':  0x30,
	'i':  0x10,
	'J':  0x1e,
	'K':  0x75,
	'L':  0x38,
	'M':  0x37,
	'n':  0x54,
	'O':  0x3f,
	'o':  0x5c,
	'P':  0x73,
	'q':  0x67,
	'r':  0x50,
	'S':  0x6d,
	't':  0x78,
	'U':  0x3e,
	'u':  0x1c,
	'V':  0x3e,
	'W':  0x2a,
	'X':  0x76,
	'y':  0x6e,
	'Z':  0x5b,
}

// Glyph is one display cell.
type Glyph struct {
	R    rune
	Mask byte
}

var blank = Glyph{R: ' '}

// Mask returns segments for r, trying other letter case when exact rune is missing.
// Unknown runes render blank.
func Mask(r rune) byte {
	if m, ok := font[r]; ok {
		return m
	}
	if m, ok := font[unicode.ToUpper(r)]; ok {
		return m
	}
	if m, ok := font[unicode.ToLower(r)]; ok {
		return m
	}
	return 0
}

// Encode converts text to cells. Dot lights decimal point of the previous cell
// and takes no cell of its own, unless it follows another dot or starts the text.
func Encode(text string) []Glyph {
	gs := make([]Glyph, 0, len(text))
	for _, r := range text {
		if r == '.' {
			if n := len(gs); n > 0 && gs[n-1].Mask&SegDP == 0 {
				gs[n-1].Mask |= SegDP
				continue
			}
			gs = append(gs, Glyph{R: r, Mask: SegDP})
			continue
		}
		gs = append(gs, Glyph{R: r, Mask: Mask(r)})
	}
	return gs
}

func glyphString(gs []Glyph) string {
	rs := make([]rune, 0, len(gs)*2)
	for _, g := range gs {
		if g.R == '.' {
			rs = append(rs, '.')
			continue
		}
		rs = append(rs, g.R)
		if g.Mask&SegDP != 0 {
			rs = append(rs, '.')
		}
	}
	return string(rs)
}
