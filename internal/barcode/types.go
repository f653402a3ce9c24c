package barcode

import (
	"context"
	"errors"
	"image"
	"strings"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatEAN13
	FormatUPCA
)

// String returns the short lowercase name of the format.
func (f Format) String() string {
	switch f {
	case FormatEAN13:
		return "ean13"
	case FormatUPCA:
		return "upca"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format name such as "ean13" or "upc-a".
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ean13", "ean-13":
		return FormatEAN13, true
	case "upca", "upc-a":
		return FormatUPCA, true
	default:
		return FormatUnknown, false
	}
}

// ErrNoBarcode is returned by callers that require at least one result.
var ErrNoBarcode = errors.New("barcode: no barcode found")

// Options controls backend decoding behavior.
type Options struct {
	// Formats constrains the set of symbologies to report. Empty means all.
	Formats []Format

	// Channel selects the intensity plane: 0-3 for R, G, B, A or -1 for
	// luminance.
	Channel int

	// TryRotations rescans the image rotated by 90, 180 and 270 degrees when
	// the upright pass finds nothing.
	TryRotations bool

	// Multi keeps scanning the remaining rotations after a hit.
	Multi bool

	// ROI optionally restricts decoding to a sub-rectangle of the image.
	// If zero-sized or out of bounds, backends should ignore it.
	ROI image.Rectangle

	// RowStride overrides the row sampling stride (0 = derived from height).
	RowStride int

	// Workers is the number of row workers (0 = runtime.NumCPU()).
	Workers int
}

// Point is an integer point in image coordinates.
type Point struct {
	X int
	Y int
}

// Result represents a decoded barcode.
type Result struct {
	Type       Format
	Value      string          // 13-digit EAN-13 value, or 12 digits for UPC-A
	Code       Code            // Decoded digits
	Points     []Point         // Corners of the scanned span in image coordinates
	BBox       image.Rectangle // Bounding box in image coordinates
	Rows       []int           // Scan rows (in the rotated frame) that saw the code
	Rotation   float64         // Degrees (counter-clockwise) the image was rotated for the hit
	Confidence float64         // Share of sampled rows inside the box that decoded it; -1 if unknown
}

// Backend is a pluggable barcode decoder implementation.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}

// NewBackend returns the default backend implementation.
func NewBackend() (Backend, error) { return newDefaultBackend() }
