package pdf

// Box is an integer pixel rectangle within an extracted image.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// PageBox is a rectangle in PDF points with a bottom-left origin.
type PageBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Barcode is a decoded symbol found in an extracted image.
type Barcode struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Rotation   float64 `json:"rotation"`
	Box        Box     `json:"box"`
	PageBox    PageBox `json:"page_box"`
	// TextMatch is set when the page text layer repeats the value.
	TextMatch bool `json:"text_match,omitempty"`
}

// ImageResult represents scan results for a single image extracted from a PDF page.
type ImageResult struct {
	ImageIndex   int       `json:"image_index"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Barcodes     []Barcode `json:"barcodes"`
	Upscaled     bool      `json:"upscaled,omitempty"`
	DecodeTimeMs int64     `json:"decode_time_ms"`
}

// PageResult represents scan results for a single PDF page.
type PageResult struct {
	PageNumber int           `json:"page_number"`
	Width      float64       `json:"width"`
	Height     float64       `json:"height"`
	Images     []ImageResult `json:"images"`
}

// DocumentResult represents complete scan results for a PDF document.
type DocumentResult struct {
	Filename   string         `json:"filename"`
	TotalPages int            `json:"total_pages"`
	Encrypted  bool           `json:"encrypted,omitempty"`
	Pages      []PageResult   `json:"pages"`
	Processing ProcessingInfo `json:"processing"`
}

// ProcessingInfo contains timing and performance information.
type ProcessingInfo struct {
	ExtractionTimeMs int64 `json:"extraction_time_ms"`
	DecodeTimeMs     int64 `json:"decode_time_ms"`
	TotalTimeMs      int64 `json:"total_time_ms"`
}

// Barcodes returns every decoded symbol in page order.
func (d *DocumentResult) Barcodes() []Barcode {
	var out []Barcode
	for _, p := range d.Pages {
		for _, img := range p.Images {
			out = append(out, img.Barcodes...)
		}
	}
	return out
}
