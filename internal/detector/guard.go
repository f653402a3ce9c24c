package detector

import "slices"

const (
	// MinCrossings is the shortest crossing sequence that reaches guard search.
	MinCrossings = 32

	// Offsets in diffs, relative to the start guard.
	leftDigitsOffset  = 3
	middleOffset      = 27
	rightDigitsOffset = 32
	endOffset         = 56
	fullSpan          = 59

	// Offsets in diffs, relative to the middle guard of a right half.
	halfDigitsOffset = 5
	halfEndOffset    = 29
	halfSpan         = 32

	startGuardUnits  = 3
	middleGuardUnits = 5
	diffsPerHalf     = GroupsPerHalf * 4

	slackRatio  = 0.12
	slackBase   = 2
	followSlack = 2
)

// tolerance is an inclusive diff range derived from a reference bar width.
type tolerance struct {
	lo, hi int
}

func newTolerance(ref int) tolerance {
	slack := int(slackRatio*float64(ref)) + slackBase
	return tolerance{lo: max(slack+1, ref) - slack, hi: ref + slack}
}

func (t tolerance) widen(n int) tolerance {
	return tolerance{lo: max(1, t.lo-n), hi: t.hi + n}
}

func (t tolerance) match(d int) bool {
	return d >= t.lo && d <= t.hi
}

func (t tolerance) matchAll(diffs []int) bool {
	for _, d := range diffs {
		if !t.match(d) {
			return false
		}
	}
	return true
}

// rowLocator searches one row's crossings for guard patterns.
type rowLocator struct {
	profile RowProfile
	seq     CrossingSequence
	diffs   []int
}

// LocateRow scans one row for EAN-13 guard patterns and decodes the digit
// groups they frame. It returns at most one full record, possibly preceded by
// partial records for halves whose other side was not found on this row.
func LocateRow(p RowProfile, seq CrossingSequence) []Record {
	if seq.Len() < MinCrossings {
		return nil
	}

	l := rowLocator{profile: p, seq: seq, diffs: seq.Diffs()}
	n := len(l.diffs)

	var records []Record
	for f := 0; f+halfSpan <= n; {
		tol := newTolerance(l.diffs[f])

		if l.startGuard(f, tol) && tol.matchAll(l.diffs[f+middleOffset:f+middleOffset+middleGuardUnits]) {
			if f+fullSpan <= n && tol.matchAll(l.diffs[f+endOffset:f+fullSpan]) {
				if rec, ok := l.full(f); ok {
					records = append(records, rec)
					return mergeAdjacent(records)
				}
				f++
				continue
			}
			if rec, ok := l.leftHalf(f); ok {
				records = append(records, rec)
				f += middleOffset
				continue
			}
		}

		if tol.matchAll(l.diffs[f:f+middleGuardUnits]) &&
			tol.matchAll(l.diffs[f+halfEndOffset:f+halfSpan]) {
			if rec, ok := l.rightHalf(f); ok {
				records = append(records, rec)
				f += halfEndOffset
				continue
			}
		}
		f++
	}

	return mergeAdjacent(records)
}

func (l *rowLocator) startGuard(f int, tol tolerance) bool {
	return tol.widen(followSlack).match(l.diffs[f+1]) && tol.match(l.diffs[f+2])
}

func (l *rowLocator) unitAt(f, units int) float64 {
	pos := l.seq.Positions
	return findUnitLen(l.profile.Values, pos[f], pos[f+units], units, l.seq.SegmentLevel(f) == Light)
}

func (l *rowLocator) full(f int) (Record, bool) {
	unit := l.unitAt(f, startGuardUnits)
	left, ok := l.section(f+leftDigitsOffset, unit)
	if !ok {
		return Record{}, false
	}
	right, ok := l.section(f+rightDigitsOffset, unit)
	if !ok {
		return Record{}, false
	}
	return l.record(f, f+fullSpan, Full, left, right), true
}

func (l *rowLocator) leftHalf(f int) (Record, bool) {
	left, ok := l.section(f+leftDigitsOffset, l.unitAt(f, startGuardUnits))
	if !ok {
		return Record{}, false
	}
	return l.record(f, f+middleOffset, Partial, left, Groups{}), true
}

func (l *rowLocator) rightHalf(m int) (Record, bool) {
	right, ok := l.section(m+halfDigitsOffset, l.unitAt(m, middleGuardUnits))
	if !ok {
		return Record{}, false
	}
	return l.record(m, m+halfSpan, Partial, Groups{}, right), true
}

func (l *rowLocator) record(from, to int, c Completeness, left, right Groups) Record {
	return Record{
		Meta: Meta{
			Y:            l.profile.Y,
			Orientation:  l.profile.Orientation,
			Left:         l.seq.Positions[from],
			Right:        l.seq.Positions[to],
			Completeness: c,
			Rows:         []int{l.profile.Y},
		},
		Left:  left,
		Right: right,
	}
}

// section decodes the six digit groups starting at diff index r.
func (l *rowLocator) section(r int, unit float64) (Groups, bool) {
	var g Groups
	pos := l.seq.Positions
	for i := range GroupsPerHalf {
		at := r + 4*i
		s, e := pos[at], pos[at+4]
		widths := [4]int(l.diffs[at : at+4])
		avg := l.profile.SliceAvg[l.profile.SliceAt(s)]
		digit, ok := DecodeDigit(widths, unit, l.profile.Values[s:e], avg)
		if !ok {
			return Groups{}, false
		}
		g[i] = digit
	}
	return g, true
}

// mergeAdjacent joins a left partial with the right partial that starts where
// it ends.
func mergeAdjacent(records []Record) []Record {
	if len(records) < 2 {
		return records
	}
	out := make([]Record, 0, len(records))
	for i := 0; i < len(records); i++ {
		cur := records[i]
		if i+1 < len(records) {
			next := records[i+1]
			if cur.Half() == LeftHalf && next.Half() == RightHalf && cur.Meta.Right == next.Meta.Left {
				cur.Right = next.Right
				cur.Meta.Right = next.Meta.Right
				cur.Meta.Completeness = Full
				i++
			}
		}
		out = append(out, cur)
	}
	return out
}

// findUnitLen estimates one module's pixel length from a guard spanning units
// modules over row[start:end]. Edge pixels that are only partly covered by a
// bar are measured against the neighbouring pixels and subtracted from the
// span.
func findUnitLen(row []uint8, start, end, units int, leadingLight bool) float64 {
	nums := row[start:end]
	n := len(nums)
	if n == 0 || units <= 0 {
		return 0
	}

	lo, hi := slices.Min(nums), slices.Max(nums)
	diff := float64(hi) - float64(lo)
	if diff == 0 {
		return float64(n) / float64(units)
	}

	// ref is the extreme the guard's outer bars sit at.
	ref, sign := float64(lo), 1.0
	if leadingLight {
		ref, sign = float64(hi), -1.0
	}
	bleed := func(v uint8) float64 {
		return sign * (float64(v) - ref) / diff
	}
	// level is a neighbour's position within the span contrast, 0 at lo.
	level := func(v uint8) float64 {
		return (float64(v) - float64(lo)) / diff
	}

	head, tail := bleed(nums[0]), bleed(nums[n-1])
	before := start > 0 && bleed(row[start-1]) > 0
	if before && n > 6 {
		head -= bleed(row[start-1])
	} else {
		head /= 2.2
		tail /= 2.2
		if start > 0 && clean(level(row[start-1]), leadingLight) {
			head = 0
		}
		if end < len(row) && clean(level(row[end]), leadingLight) {
			tail = 0
		}
	}

	return (float64(n) - head - tail) / float64(units)
}

// clean reports whether a neighbour pixel is already at the opposite extreme
// of the guard's outer bars.
func clean(level float64, leadingLight bool) bool {
	if leadingLight {
		return level < 0.06
	}
	return level > 0.94
}
