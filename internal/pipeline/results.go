package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ToJSONImage converts a single image result to indented JSON.
func ToJSONImage(res *ImageResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONImages converts multiple image results to an indented JSON array.
func ToJSONImages(results []*ImageResult) (string, error) {
	if results == nil {
		results = []*ImageResult{}
	}
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainTextImage renders one line per barcode: value, type and box.
func ToPlainTextImage(res *ImageResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var sb strings.Builder
	prefix := ""
	if res.Path != "" {
		prefix = res.Path + ": "
	}
	if len(res.Barcodes) == 0 {
		sb.WriteString(prefix + "no barcode found\n")
		return sb.String(), nil
	}
	for _, b := range res.Barcodes {
		fmt.Fprintf(&sb, "%s%s %s (%d,%d %dx%d) rot=%g conf=%.2f\n",
			prefix, b.Value, b.Type, b.Box.X, b.Box.Y, b.Box.W, b.Box.H, b.Rotation, b.Confidence)
	}
	return sb.String(), nil
}

// ToPlainTextImages concatenates the text form of several results.
func ToPlainTextImages(results []*ImageResult) (string, error) {
	var sb strings.Builder
	for _, r := range results {
		if r == nil {
			continue
		}
		s, err := ToPlainTextImage(r)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

var csvHeader = []string{"path", "type", "value", "upca", "x", "y", "w", "h", "rotation", "confidence"}

// ToCSVImages renders one CSV row per barcode with a header line.
func ToCSVImages(results []*ImageResult) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, b := range r.Barcodes {
			row := []string{
				r.Path, b.Type, b.Value, b.UPCA,
				strconv.Itoa(b.Box.X), strconv.Itoa(b.Box.Y), strconv.Itoa(b.Box.W), strconv.Itoa(b.Box.H),
				strconv.FormatFloat(b.Rotation, 'f', -1, 64),
				strconv.FormatFloat(b.Confidence, 'f', 3, 64),
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ToCSVImage renders a single result as CSV.
func ToCSVImage(res *ImageResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	return ToCSVImages([]*ImageResult{res})
}

// Format renders results in the named output format: "json", "csv" or "text".
func Format(results []*ImageResult, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		return ToJSONImages(results)
	case "csv":
		return ToCSVImages(results)
	case "", "text":
		return ToPlainTextImages(results)
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// SortBarcodesTopLeft orders barcodes by their box, top to bottom then left to right.
func SortBarcodesTopLeft(res *ImageResult) {
	if res == nil {
		return
	}
	sort.SliceStable(res.Barcodes, func(i, j int) bool {
		a, b := res.Barcodes[i].Box, res.Barcodes[j].Box
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}

// ValidateImageResult checks that every barcode lies inside the image and has
// a confidence within [0, 1] or the unknown marker -1.
func ValidateImageResult(res *ImageResult) error {
	if res == nil {
		return errors.New("nil result")
	}
	for i, b := range res.Barcodes {
		if b.Box.W <= 0 || b.Box.H <= 0 {
			return fmt.Errorf("barcode %d: empty box", i)
		}
		if b.Box.X < 0 || b.Box.Y < 0 || b.Box.X+b.Box.W > res.Width || b.Box.Y+b.Box.H > res.Height {
			return fmt.Errorf("barcode %d: box %+v outside %dx%d image", i, b.Box, res.Width, res.Height)
		}
		if (b.Confidence < 0 && b.Confidence != -1) || b.Confidence > 1 {
			return fmt.Errorf("barcode %d: confidence %.3f out of range", i, b.Confidence)
		}
		if b.Value == "" {
			return fmt.Errorf("barcode %d: empty value", i)
		}
	}
	return nil
}
