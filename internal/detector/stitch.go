package detector

import "log/slog"

// Stitcher reconciles per-row detections in scan order. It owns the backlog
// of pending partial records and the list of emitted full records for one
// pass over one image.
type Stitcher struct {
	pending []Record
	results []Record
	merged  int
	dropped int
}

// NewStitcher creates an empty stitcher.
func NewStitcher() *Stitcher {
	return &Stitcher{}
}

// Add feeds one row detection into the stitcher.
func (s *Stitcher) Add(rec Record) {
	switch rec.Meta.Completeness {
	case Full:
		s.emit(rec)
	case Partial:
		s.addPartial(rec)
	}
}

// Results returns the emitted full records in scan order.
func (s *Stitcher) Results() []Record {
	return s.results
}

// Pending returns the current backlog of partial records.
func (s *Stitcher) Pending() []Record {
	return s.pending
}

func (s *Stitcher) emit(rec Record) {
	if n := len(s.results); n > 0 && s.results[n-1].SameDigits(rec) {
		last := &s.results[n-1]
		last.Meta.Rows = append(last.Meta.Rows, rec.Meta.Rows...)
		s.dropped++
		return
	}
	s.results = append(s.results, rec)
}

func (s *Stitcher) addPartial(rec Record) {
	if n := len(s.results); n > 0 && redetected(s.results[n-1], rec) {
		last := &s.results[n-1]
		last.Meta.Rows = append(last.Meta.Rows, rec.Meta.Rows...)
		s.dropped++
		return
	}

	n := len(s.pending)
	if n == 0 {
		s.pending = append(s.pending, rec)
		return
	}

	ref := s.pending[n-1]
	if !compatible(ref, rec) {
		slog.Debug("Clearing partial backlog",
			"pending", n, "row", rec.Meta.Y, "displacement", displacement(ref, rec))
		s.pending = append(s.pending[:0], rec)
		return
	}

	if ref.Half() != rec.Half() {
		merged := combine(ref, rec)

		// earlier rows that read the same half join the merged record
		var rows []int
		keep := s.pending[:0]
		for _, p := range s.pending[:n-1] {
			if p.SameDigits(ref) && compatible(ref, p) {
				rows = append(rows, p.Meta.Rows...)
				merged.Meta.Y = min(merged.Meta.Y, p.Meta.Y)
				continue
			}
			keep = append(keep, p)
		}
		merged.Meta.Rows = append(rows, merged.Meta.Rows...)
		s.pending = keep

		s.merged++
		s.emit(merged)
		return
	}

	s.pending = append(s.pending, rec)
}

// displacement returns the horizontal offset of cand from ref. Complementary
// halves are compared at the middle guard they share.
func displacement(ref, cand Record) int {
	if ref.Half() != cand.Half() {
		return abs(cand.junction() - ref.junction())
	}
	return abs(cand.Meta.Left - ref.Meta.Left)
}

// compatible reports whether cand lies within half of ref's width of ref.
func compatible(ref, cand Record) bool {
	return displacement(ref, cand) <= ref.Meta.Width()/2
}

// redetected reports whether a partial repeats one half of a full record.
func redetected(full, part Record) bool {
	tol := full.Meta.Width() / 2
	switch part.Half() {
	case LeftHalf:
		return part.Left == full.Left && abs(part.Meta.Left-full.Meta.Left) <= tol
	case RightHalf:
		return part.Right == full.Right && abs(part.Meta.Right-full.Meta.Right) <= tol
	}
	return false
}

// combine joins two complementary partial records into a full one.
func combine(a, b Record) Record {
	left, right := a, b
	if a.Half() == RightHalf {
		left, right = b, a
	}

	rows := make([]int, 0, len(a.Meta.Rows)+len(b.Meta.Rows))
	rows = append(rows, a.Meta.Rows...)
	rows = append(rows, b.Meta.Rows...)

	return Record{
		Meta: Meta{
			Y:            min(a.Meta.Y, b.Meta.Y),
			Orientation:  a.Meta.Orientation,
			Left:         min(left.Meta.Left, right.Meta.Left),
			Right:        max(left.Meta.Right, right.Meta.Right),
			Completeness: Full,
			Rows:         rows,
		},
		Left:  left.Left,
		Right: right.Right,
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Merged returns the number of full records built from two partials.
func (s *Stitcher) Merged() int {
	return s.merged
}

// Dropped returns the number of detections suppressed as re-detections.
func (s *Stitcher) Dropped() int {
	return s.dropped
}
