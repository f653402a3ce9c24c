package pipeline

import (
	"image"

	"github.com/MeKo-Tech/barscan/internal/barcode"
)

// Box is an axis-aligned pixel rectangle.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Rect converts the box to an image rectangle.
func (b Box) Rect() image.Rectangle { return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H) }

func boxFromRect(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// BarcodeResult is a decoded symbol in original image coordinates.
type BarcodeResult struct {
	Type       string          `json:"type"`
	Value      string          `json:"value"`
	UPCA       string          `json:"upca,omitempty"`
	Confidence float64         `json:"confidence"`
	Rotation   float64         `json:"rotation"`
	Box        Box             `json:"box"`
	Points     []barcode.Point `json:"points"`
	Rows       int             `json:"rows"`
}

// ImageResult holds the barcodes found in one image.
type ImageResult struct {
	Path       string          `json:"path,omitempty"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Barcodes   []BarcodeResult `json:"barcodes"`
	Processing ProcessingInfo  `json:"processing"`
}

// ProcessingInfo contains timing for a single image.
type ProcessingInfo struct {
	ScanTimeMs  int64 `json:"scan_time_ms"`
	TotalTimeMs int64 `json:"total_time_ms"`
}

// Values returns the decoded values in result order.
func (r *ImageResult) Values() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.Barcodes))
	for i, b := range r.Barcodes {
		out[i] = b.Value
	}
	return out
}

func toBarcodeResult(r barcode.Result) BarcodeResult {
	out := BarcodeResult{
		Type:       r.Type.String(),
		Value:      r.Value,
		Confidence: r.Confidence,
		Rotation:   r.Rotation,
		Box:        boxFromRect(r.BBox),
		Points:     r.Points,
		Rows:       len(r.Rows),
	}
	if r.Type == barcode.FormatEAN13 && r.Code.IsUPCA() {
		out.UPCA = r.Code.UPCA()
	}
	return out
}
