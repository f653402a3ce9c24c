package barcode

import (
	"strings"

	"github.com/MeKo-Tech/barscan/internal/detector"
	"golang.org/x/text/width"
)

// Digits is the length of an EAN-13 value.
const Digits = 13

// Code is a decoded, checksum-valid EAN-13 value. Code[0] is the digit
// implied by the left-half parity pattern.
type Code [Digits]uint8

// String returns the 13 digits as text.
func (c Code) String() string {
	var b strings.Builder
	b.Grow(Digits)
	for _, d := range c {
		b.WriteByte('0' + d)
	}
	return b.String()
}

// IsUPCA reports whether the code is a UPC-A value carried as EAN-13.
func (c Code) IsUPCA() bool {
	return c[0] == 0
}

// UPCA returns the 12-digit UPC-A form, or "" when the code is not UPC-A.
func (c Code) UPCA() string {
	if !c.IsUPCA() {
		return ""
	}
	return c.String()[1:]
}

// ParseCode parses a 13-digit EAN-13 or 12-digit UPC-A value. Full-width
// digits are folded and spaces or hyphens between digit groups are ignored.
// It does not validate the checksum.
func ParseCode(s string) (Code, bool) {
	s = width.Narrow.String(s)
	s = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
	if len(s) == Digits-1 {
		s = "0" + s
	}

	var c Code
	if len(s) != Digits {
		return c, false
	}
	for i := range Digits {
		if s[i] < '0' || s[i] > '9' {
			return Code{}, false
		}
		c[i] = s[i] - '0'
	}
	return c, true
}

// widthEntry is one digit encoding, refined by the last two module widths.
type widthEntry struct {
	w2, w3 uint8
	digit  uint8
	odd    bool // L (and R) set; false is the G set
}

// widthTable is keyed by the first two module widths of a digit group.
var widthTable = map[[2]uint8][]widthEntry{
	{1, 1}: {{1, 4, 6, true}, {2, 3, 0, false}, {3, 2, 4, true}, {4, 1, 3, false}},
	{1, 2}: {{1, 3, 8, true}, {2, 2, 1, false}, {3, 1, 5, true}},
	{1, 3}: {{1, 2, 7, true}, {2, 1, 5, false}},
	{1, 4}: {{1, 1, 3, true}},
	{2, 1}: {{1, 3, 9, false}, {2, 2, 2, true}, {3, 1, 7, false}},
	{2, 2}: {{1, 2, 2, false}, {2, 1, 1, true}},
	{2, 3}: {{1, 1, 4, false}},
	{3, 1}: {{1, 2, 9, true}, {2, 1, 8, false}},
	{3, 2}: {{1, 1, 0, true}},
	{4, 1}: {{1, 1, 6, false}},
}

// LookupDigit maps a group of four module widths to its digit and parity.
func LookupDigit(g [4]uint8) (digit uint8, odd bool, ok bool) {
	for _, e := range widthTable[[2]uint8{g[0], g[1]}] {
		if e.w2 == g[2] && e.w3 == g[3] {
			return e.digit, e.odd, true
		}
	}
	return 0, false, false
}

// parityDead marks a parity prefix that cannot lead to a first digit.
const parityDead = -1

// parityTree decides the implied first digit from the parity of left-half
// digits 2 to 6. Step i is keyed by the i+1 parity letters read so far
// (L odd, G even); a prefix absent from its step continues to the next step.
var parityTree = [5]map[string]int{
	{},
	{"LL": 0},
	{"LGL": 1, "GLL": 4},
	{"LGGL": 2, "GLGL": 7, "GGLL": 5, "GGGG": parityDead},
	{
		"LGGGL": 3, "LGGGG": parityDead,
		"GLGGL": 8, "GLGGG": parityDead,
		"GGLGL": 9, "GGLGG": parityDead,
		"GGGLL": 6, "GGGLG": parityDead,
	},
}

// FirstDigit infers the leading EAN-13 digit from the parity of left-half
// digits 2 to 6.
func FirstDigit(odd [5]bool) (uint8, bool) {
	prefix := make([]byte, 0, len(odd))
	for step, o := range odd {
		letter := byte('G')
		if o {
			letter = 'L'
		}
		prefix = append(prefix, letter)
		if d, found := parityTree[step][string(prefix)]; found {
			if d == parityDead {
				return 0, false
			}
			return uint8(d), true
		}
	}
	return 0, false
}

// CheckDigit computes the EAN-13 check digit over the first 12 digits.
func CheckDigit(d [12]uint8) uint8 {
	sum := 0
	for i, v := range d {
		if i%2 == 1 {
			sum += 3 * int(v)
		} else {
			sum += int(v)
		}
	}
	return uint8((10 - sum%10) % 10)
}

// Valid reports whether the last digit of c is its check digit.
func (c Code) Valid() bool {
	return CheckDigit([12]uint8(c[:12])) == c[12]
}

// Translate turns a full record into a checksum-valid code.
func Translate(rec detector.Record) (Code, bool) {
	var c Code
	if rec.Meta.Completeness != detector.Full {
		return c, false
	}

	var parity [detector.GroupsPerHalf]bool
	for i, g := range rec.Left {
		d, odd, ok := LookupDigit(g)
		if !ok {
			return Code{}, false
		}
		c[1+i] = d
		parity[i] = odd
	}

	for i, g := range rec.Right {
		d, odd, ok := LookupDigit(g)
		if !ok || !odd {
			return Code{}, false
		}
		c[1+detector.GroupsPerHalf+i] = d
	}

	first, ok := FirstDigit([5]bool(parity[1:]))
	if !ok {
		return Code{}, false
	}
	c[0] = first

	if !c.Valid() {
		return Code{}, false
	}
	return c, true
}
