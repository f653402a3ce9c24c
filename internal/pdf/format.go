package pdf

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ToText renders a document result grouped by page, one line per barcode.
func ToText(result *DocumentResult) string {
	var out strings.Builder

	fmt.Fprintf(&out, "File: %s\n", result.Filename)
	fmt.Fprintf(&out, "Total Pages: %d\n", result.TotalPages)
	fmt.Fprintf(&out, "Processing Time: %dms\n\n", result.Processing.TotalTimeMs)

	for _, page := range result.Pages {
		fmt.Fprintf(&out, "Page %d (%.0fx%.0f pt):\n", page.PageNumber, page.Width, page.Height)
		for _, img := range page.Images {
			fmt.Fprintf(&out, "  Image %d (%dx%d): %d barcode(s)\n",
				img.ImageIndex, img.Width, img.Height, len(img.Barcodes))
			for i, bc := range img.Barcodes {
				fmt.Fprintf(&out, "    #%d %s %s box=(%d,%d %dx%d) conf=%.2f\n",
					i+1, bc.Type, bc.Value, bc.Box.X, bc.Box.Y, bc.Box.W, bc.Box.H, bc.Confidence)
			}
		}
		out.WriteString("\n")
	}
	return out.String()
}

var csvHeader = []string{
	"file", "page", "image", "type", "value", "x", "y", "w", "h",
	"page_x", "page_y", "page_w", "page_h", "confidence", "text_match",
}

// ToCSV renders one row per barcode across all documents.
func ToCSV(results []*DocumentResult) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	for _, doc := range results {
		if doc == nil {
			continue
		}
		for _, page := range doc.Pages {
			for _, img := range page.Images {
				for _, bc := range img.Barcodes {
					row := []string{
						doc.Filename, strconv.Itoa(page.PageNumber), strconv.Itoa(img.ImageIndex),
						bc.Type, bc.Value,
						strconv.Itoa(bc.Box.X), strconv.Itoa(bc.Box.Y), strconv.Itoa(bc.Box.W), strconv.Itoa(bc.Box.H),
						ff(bc.PageBox.X), ff(bc.PageBox.Y), ff(bc.PageBox.W), ff(bc.PageBox.H),
						strconv.FormatFloat(bc.Confidence, 'f', 3, 64),
						strconv.FormatBool(bc.TextMatch),
					}
					if err := w.Write(row); err != nil {
						return "", err
					}
				}
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Format renders documents as "json", "csv" or "text".
func Format(results []*DocumentResult, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		if results == nil {
			results = []*DocumentResult{}
		}
		b, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	case "csv":
		return ToCSV(results)
	case "", "text":
		var sb strings.Builder
		for _, r := range results {
			if r != nil {
				sb.WriteString(ToText(r))
			}
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}
