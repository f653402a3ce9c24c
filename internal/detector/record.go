package detector

// Completeness is the decode state of a record.
type Completeness uint8

const (
	None Completeness = iota
	Partial
	Full
)

func (c Completeness) String() string {
	switch c {
	case Partial:
		return "partial"
	case Full:
		return "full"
	default:
		return "none"
	}
}

// GroupsPerHalf is the number of digit groups on each side of the middle guard.
const GroupsPerHalf = 6

// Groups holds the module widths of one barcode half.
type Groups [GroupsPerHalf][4]uint8

// Filled returns the number of leading groups holding a valid 7-module digit.
func (g Groups) Filled() int {
	for i, grp := range g {
		sum := 0
		for _, w := range grp {
			if w == 0 {
				return i
			}
			sum += int(w)
		}
		if sum != ModulesPerDigit {
			return i
		}
	}
	return GroupsPerHalf
}

// Empty reports whether no slot holds a width.
func (g Groups) Empty() bool {
	return g == Groups{}
}

// Meta is the positional metadata of a record.
type Meta struct {
	Y            int          // Row of the (first) detection
	Orientation  int          // Degrees; placeholder carried to output
	Left         int          // Left pixel-x bound
	Right        int          // Right pixel-x bound
	Completeness Completeness // none, partial or full
	Rows         []int        // Rows that contributed to the record
}

// Width returns the pixel width covered by the record.
func (m Meta) Width() int {
	return m.Right - m.Left
}

// Record is a barcode detection passed between locator, stitcher and
// translator.
type Record struct {
	Meta  Meta
	Left  Groups
	Right Groups
}

// Half identifies which half a partial record holds.
type Half uint8

const (
	NoHalf Half = iota
	LeftHalf
	RightHalf
)

// Half reports the populated half of a partial record.
func (r Record) Half() Half {
	switch {
	case r.Meta.Completeness != Partial:
		return NoHalf
	case !r.Left.Empty():
		return LeftHalf
	case !r.Right.Empty():
		return RightHalf
	default:
		return NoHalf
	}
}

// Valid reports whether the record satisfies its completeness invariant.
func (r Record) Valid() bool {
	switch r.Meta.Completeness {
	case Full:
		return r.Left.Filled() == GroupsPerHalf && r.Right.Filled() == GroupsPerHalf
	case Partial:
		l, rt := r.Left.Filled() == GroupsPerHalf, r.Right.Filled() == GroupsPerHalf
		return (l && r.Right.Empty()) || (rt && r.Left.Empty())
	default:
		return false
	}
}

// SameDigits reports whether both records carry identical digit groups.
func (r Record) SameDigits(o Record) bool {
	return r.Left == o.Left && r.Right == o.Right
}

// junction returns the x position of the middle guard start for a partial.
func (r Record) junction() int {
	if r.Half() == RightHalf {
		return r.Meta.Left
	}
	return r.Meta.Right
}
