package pdf

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/dslipak/pdf"
)

// US Letter, used when a page carries no readable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// PageGeometry is the size of a page in PDF points together with the
// EAN/UPC-like digit runs found in its text layer.
type PageGeometry struct {
	Number int
	Width  float64
	Height float64
	Codes  []string
}

// HasCode reports whether value appears in the page text.
func (g PageGeometry) HasCode(value string) bool {
	want, ok := barcode.ParseCode(value)
	if !ok {
		return false
	}
	for _, c := range g.Codes {
		if got, ok := barcode.ParseCode(c); ok && got == want {
			return true
		}
	}
	return false
}

var digitRun = regexp.MustCompile(`\d[\d -]{10,16}\d`)

// ReadGeometry reads the page sizes and text digit runs for the requested
// pages. An empty list selects every page. It also returns the page count.
func ReadGeometry(filename string, pages []int) (map[int]PageGeometry, int, error) {
	r, err := pdf.Open(filename)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open PDF %q: %w", filename, err)
	}

	total := r.NumPage()
	if len(pages) == 0 {
		for i := 1; i <= total; i++ {
			pages = append(pages, i)
		}
	}

	out := make(map[int]PageGeometry, len(pages))
	for _, n := range pages {
		if n < 1 || n > total {
			continue
		}
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		w, h := mediaBox(page.V)
		out[n] = PageGeometry{Number: n, Width: w, Height: h, Codes: pageCodes(page)}
	}
	return out, total, nil
}

// mediaBox resolves the page MediaBox, following the inherited Parent chain.
func mediaBox(v pdf.Value) (float64, float64) {
	for depth := 0; !v.IsNull() && depth < 32; depth++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageWidth, defaultPageHeight
}

func pageCodes(page pdf.Page) (codes []string) {
	defer func() {
		// malformed content streams panic inside the text decoder
		if recover() != nil {
			codes = nil
		}
	}()

	text, err := page.GetPlainText(make(map[string]*pdf.Font))
	if err != nil {
		return nil
	}
	for _, m := range digitRun.FindAllString(text, -1) {
		if _, ok := barcode.ParseCode(m); ok && !slices.Contains(codes, m) {
			codes = append(codes, m)
		}
	}
	return codes
}
