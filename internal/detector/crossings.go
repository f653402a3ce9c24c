package detector

const (
	// FlatnessThreshold is the minimum local (max-min) span a slice window
	// needs before it is thresholded.
	FlatnessThreshold = 16
	// DebounceSamples is the run length an excursion must exceed to be
	// committed, either past the band as a crossing on large images or inside
	// it as a weak bar.
	DebounceSamples = 3
	// minBandHalfWidth is the lower bound of the band half-width.
	minBandHalfWidth = 3
	// bandHalfWidthRatio scales the local span into the band half-width.
	bandHalfWidthRatio = 0.04
)

// Level is the side of the threshold band a run of pixels is on.
type Level uint8

const (
	Dark Level = iota
	Light
)

func (l Level) String() string {
	if l == Light {
		return "light"
	}
	return "dark"
}

// Band is a locally adaptive threshold band.
type Band struct {
	Low    uint8
	Center uint8
	High   uint8
}

// NewBand derives a band from a local average and local extremes.
func NewBand(avg, lo, hi uint8) Band {
	center := (int(avg) + (int(lo)+int(hi))/2) / 2
	half := max(minBandHalfWidth, int(bandHalfWidthRatio*float64(int(hi)-int(lo))))
	return Band{
		Low:    clampU8(center - half),
		Center: uint8(center),
		High:   clampU8(center + half),
	}
}

// Classify reports which side of the band center v lies on.
func (b Band) Classify(v uint8) Level {
	if v >= b.Center {
		return Light
	}
	return Dark
}

// CrossingSequence is the ordered list of band transitions along one row.
type CrossingSequence struct {
	StartsLight bool
	Positions   []int
}

// Len returns the number of crossings.
func (c CrossingSequence) Len() int {
	return len(c.Positions)
}

// SegmentLevel returns the level of the run between crossing k and k+1.
func (c CrossingSequence) SegmentLevel(k int) Level {
	if c.StartsLight == (k%2 == 0) {
		return Dark
	}
	return Light
}

// Diffs returns the distances between consecutive crossings.
func (c CrossingSequence) Diffs() []int {
	if len(c.Positions) < 2 {
		return nil
	}
	diffs := make([]int, len(c.Positions)-1)
	for i := range diffs {
		diffs[i] = c.Positions[i+1] - c.Positions[i]
	}
	return diffs
}

// bandState is the per-pixel threshold state. Pending is the length of the
// in-band run since the last saturated pixel, Armed records a saturated pixel
// of the current level since the last crossing, and Excursion counts the
// samples past the band not yet committed as a crossing.
type bandState struct {
	Level     Level
	Pending   int
	Armed     bool
	Excursion int
}

// emission holds up to two crossings produced by a single step.
type emission struct {
	n   int
	pos [2]int
}

func (e *emission) push(p int) {
	e.pos[e.n] = p
	e.n++
}

// step advances the state machine by one pixel.
//
// On large images a crossing is committed only once the excursion past the
// band exceeds DebounceSamples; shorter excursions fold back into the current
// run. The committed crossing is placed at the start of the excursion, shifted
// back by half the preceding in-band run. Smaller images commit on the first
// pixel past the band.
func (st bandState) step(v uint8, b Band, pos int, large bool) (bandState, emission) {
	var e emission

	crossed, inBand := false, false
	switch st.Level {
	case Light:
		crossed = v < b.Low
		inBand = !crossed && v <= b.High
	case Dark:
		crossed = v > b.High
		inBand = !crossed && v >= b.Low
	}

	switch {
	case crossed && large:
		st.Excursion++
		if st.Excursion <= DebounceSamples {
			return st, e
		}
		e.push(pos - st.Excursion + 1 - st.Pending/2)
		return bandState{Level: st.Level ^ 1, Armed: true}, e
	case crossed:
		e.push(pos)
		return bandState{Level: st.Level ^ 1}, e
	}

	st.Excursion = 0
	switch {
	case inBand:
		st.Pending++
		return st, e
	default:
		if st.Armed && st.Pending > DebounceSamples {
			e.push(pos - st.Pending)
			e.push(pos)
		}
		return bandState{Level: st.Level, Armed: true}, e
	}
}

// bandFor returns the band for slice window i and the window index actually
// used. Windows whose span is below FlatnessThreshold are skipped.
func (p RowProfile) bandFor(i int) (Band, int) {
	n := p.Slices()
	for i < n-1 {
		lo := min(p.SliceMin[i], p.SliceMin[i+1])
		hi := max(p.SliceMax[i], p.SliceMax[i+1])
		if int(hi)-int(lo) >= FlatnessThreshold {
			break
		}
		i++
	}
	i = min(i, n-1)

	lo, hi := p.SliceMin[i], p.SliceMax[i]
	if i+1 < n {
		lo = min(lo, p.SliceMin[i+1])
		hi = max(hi, p.SliceMax[i+1])
	}

	var sum, count int
	for k := i; k <= min(i+2, n-1); k++ {
		c := p.sliceCount(k)
		sum += int(p.SliceAvg[k]) * c
		count += c
	}

	return NewBand(uint8(sum/count), lo, hi), i
}

// FindCrossings converts a row profile into its crossing sequence.
func FindCrossings(p RowProfile) CrossingSequence {
	w := p.Width()
	if w == 0 || p.SliceWidth <= 0 {
		return CrossingSequence{}
	}

	s := p.SliceWidth
	large := s > BaseSliceWidth

	pos, window := 0, -1
	band := NewBand(p.SliceAvg[0], p.SliceMin[0], p.SliceMax[0])
	if int(p.SliceMax[0])-int(p.SliceMin[0]) < FlatnessThreshold && p.Slices() > 1 {
		band, window = p.bandFor(0)
		pos = s/2 + window*s
		if pos >= w {
			return CrossingSequence{}
		}
	}
	next := s/2 + (window+1)*s

	st := bandState{Level: band.Classify(p.Values[pos])}
	seq := CrossingSequence{StartsLight: st.Level == Light}
	last := -1

	for pos < w {
		if pos == next {
			b, k := p.bandFor(window + 1)
			band = b
			if k > window+1 {
				st.Pending, st.Excursion = 0, 0
				window = k
				jump := s/2 + k*s
				next = jump + s
				if jump > pos {
					pos = jump
					continue
				}
			} else {
				window = k
				next += s
			}
		}

		var e emission
		st, e = st.step(p.Values[pos], band, pos, large)
		for i := range e.n {
			if e.pos[i] > last {
				seq.Positions = append(seq.Positions, e.pos[i])
				last = e.pos[i]
			}
		}
		pos++
	}

	return seq
}

func clampU8(v int) uint8 {
	return uint8(min(255, max(0, v)))
}
