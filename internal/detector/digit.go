package detector

const (
	// ModulesPerDigit is the total module width of one EAN-13 digit.
	ModulesPerDigit = 7
	// MaxBarModules is the widest bar allowed inside a digit.
	MaxBarModules = 4

	edgeSaturation = 0.05
	edgePenalty    = 0.1
	withdrawFrac   = 0.2
)

// barEstimate is one bar's module estimate within a digit group.
type barEstimate struct {
	index int
	frac  float64
	vals  []uint8
}

// DecodeDigit converts the pixel widths of one 4-bar digit group into module
// widths. vals holds the intensities under the four bars, left to right, and
// avg is the local slice average. The second return is false when the group
// cannot be a 7-module digit.
func DecodeDigit(widths [4]int, unit float64, vals []uint8, avg uint8) ([4]uint8, bool) {
	var divs [4]uint8
	if unit <= 0 {
		return divs, false
	}

	total := 0
	sum := 0
	for _, n := range widths {
		if n <= 0 {
			return divs, false
		}
		sum += n
	}
	if len(vals) < sum {
		return divs, false
	}

	ests := make([]barEstimate, 0, len(widths))
	off := 0
	for i, n := range widths {
		cur := vals[off : off+n]
		off += n

		parts := float64(n) / unit
		if parts < 1 {
			parts = 1
		} else if n > 4 {
			head, tail := checkBarEdge(cur, avg)
			if head < edgeSaturation {
				parts -= edgePenalty
			}
			if tail < edgeSaturation {
				parts -= edgePenalty
			}
		}

		whole := int(parts)
		if whole > MaxBarModules {
			return [4]uint8{}, false
		}
		divs[i] = uint8(whole)
		total += whole
		ests = insertEstimate(ests, barEstimate{index: i, frac: parts - float64(whole), vals: cur})
	}

	for k := 0; total < ModulesPerDigit; k = (k + 1) % len(ests) {
		divs[ests[k].index]++
		total++
	}

	if total == ModulesPerDigit+1 {
		last := ests[len(ests)-1]
		if divs[last.index] > 1 && last.frac < withdrawFrac {
			divs[last.index]--
			total--
		}
	}

	if total != ModulesPerDigit {
		return [4]uint8{}, false
	}
	for _, d := range divs {
		if d == 0 {
			return [4]uint8{}, false
		}
	}
	return divs, true
}

// insertEstimate inserts e into ests, which is ordered by descending
// fraction. Equal fractions are ordered by compareBarByColor when the pixel
// widths match, otherwise the longer bar goes first.
func insertEstimate(ests []barEstimate, e barEstimate) []barEstimate {
	at := len(ests)
	for at > 0 && precedes(e, ests[at-1]) {
		at--
	}
	ests = append(ests, barEstimate{})
	copy(ests[at+1:], ests[at:])
	ests[at] = e
	return ests
}

func precedes(a, b barEstimate) bool {
	if a.frac != b.frac {
		return a.frac > b.frac
	}
	if len(a.vals) == len(b.vals) {
		return compareBarByColor(a.vals, b.vals) > 0
	}
	return len(a.vals) > len(b.vals)
}

// checkBarEdge returns how far the first and last pixel of a bar sit from the
// local average, relative to the bar's extreme.
func checkBarEdge(vals []uint8, avg uint8) (float64, float64) {
	px, last := float64(vals[0]), float64(vals[len(vals)-1])
	a := float64(avg)

	if vals[0] < avg {
		lo := vals[0]
		for _, v := range vals {
			lo = min(lo, v)
		}
		base := a - float64(lo)
		return (a - px) / base, (a - last) / base
	}

	hi := vals[0]
	for _, v := range vals {
		hi = max(hi, v)
	}
	base := float64(hi) - a
	if base == 0 {
		// the bar never rises above the average; only a tail below it counts
		// as a weak edge
		tail := 1.0
		if last < a {
			tail = -1
		}
		return 1, tail
	}
	return (px - a) / base, (last - a) / base
}

// compareBarByColor compares two equally long bars by how far their summed
// intensity sits from the midpoint of their joint extremes. The sign follows
// the brighter bar and the result is antisymmetric.
func compareBarByColor(v1, v2 []uint8) int {
	lo, hi := uint8(255), uint8(0)
	s1, s2 := 0, 0
	for i := range v1 {
		a, b := v1[i], v2[i]
		if b > a {
			hi = max(hi, b)
			lo = min(lo, a)
		} else {
			hi = max(hi, a)
			lo = min(lo, b)
		}
		s1 += int(a)
		s2 += int(b)
	}

	d := (s1 + s2) - len(v1)*(int(hi)+int(lo))
	if s2 > s1 {
		return -d
	}
	return d
}
