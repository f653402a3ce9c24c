// Package detector implements the row-scanning EAN-13 locator: row profiles,
// adaptive threshold crossings, guard pattern search, digit width decoding and
// cross-row stitching of partial detections.
package detector

// PixelSource returns one 8-bit intensity for a pixel of a single channel.
// Implementations must be deterministic and side-effect free for a fixed image.
type PixelSource interface {
	PixelValue(x, y, channel, width int) uint8
}

// BaseSliceWidth is the minimum slice width used for local statistics.
const BaseSliceWidth = 30

// RowProfile is one sampled horizontal scan line with coarse slice statistics.
type RowProfile struct {
	Values      []uint8 // Per-pixel intensities, len == image width
	Avg         uint8   // Row-global average
	Min         uint8   // Row-global minimum
	Max         uint8   // Row-global maximum
	SliceWidth  int     // Pixels per slice (last slice may be shorter)
	SliceMin    []uint8 // Per-slice minimum
	SliceAvg    []uint8 // Per-slice average
	SliceMax    []uint8 // Per-slice maximum
	Y           int     // Row coordinate
	Orientation int     // Degrees; carried to output only
}

// SliceWidthFor returns the slice width for an image of the given size.
func SliceWidthFor(width, height int) int {
	return max(BaseSliceWidth, max(width, height)/BaseSliceWidth)
}

// BuildRowProfile samples row y of src into a RowProfile.
func BuildRowProfile(src PixelSource, y, width, height, channel int) RowProfile {
	return buildRowProfile(src, y, width, height, channel, nil)
}

// buildRowProfile samples into values when it holds at least width bytes.
func buildRowProfile(src PixelSource, y, width, height, channel int, values []uint8) RowProfile {
	sw := SliceWidthFor(width, height)
	p := RowProfile{
		SliceWidth: sw,
		Y:          y,
	}
	if width <= 0 {
		return p
	}

	slices := (width + sw - 1) / sw
	if len(values) >= width {
		p.Values = values[:width]
	} else {
		p.Values = make([]uint8, width)
	}
	p.SliceMin = make([]uint8, slices)
	p.SliceAvg = make([]uint8, slices)
	p.SliceMax = make([]uint8, slices)

	var total uint64
	p.Min, p.Max = 255, 0
	for s := range slices {
		start := s * sw
		end := min(start+sw, width)
		lo, hi := uint8(255), uint8(0)
		var sum uint64
		for x := start; x < end; x++ {
			v := src.PixelValue(x, y, channel, width)
			p.Values[x] = v
			lo = min(lo, v)
			hi = max(hi, v)
			sum += uint64(v)
		}
		p.SliceMin[s] = lo
		p.SliceMax[s] = hi
		p.SliceAvg[s] = uint8(sum / uint64(end-start))
		p.Min = min(p.Min, lo)
		p.Max = max(p.Max, hi)
		total += sum
	}
	p.Avg = uint8(total / uint64(width))

	return p
}

// Width returns the number of pixels in the profile.
func (p RowProfile) Width() int {
	return len(p.Values)
}

// Slices returns the number of slices in the profile.
func (p RowProfile) Slices() int {
	return len(p.SliceAvg)
}

// sliceCount returns the number of pixels covered by slice i.
func (p RowProfile) sliceCount(i int) int {
	start := i * p.SliceWidth
	return min(start+p.SliceWidth, len(p.Values)) - start
}

// SliceAt returns the index of the slice containing pixel x.
func (p RowProfile) SliceAt(x int) int {
	if p.SliceWidth <= 0 {
		return 0
	}
	return min(x/p.SliceWidth, max(0, p.Slices()-1))
}
