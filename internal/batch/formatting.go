package batch

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

type jsonImage struct {
	File   string                `json:"file"`
	Result *pipeline.ImageResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

type jsonBatch struct {
	Images []jsonImage `json:"images"`
}

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(results []*pipeline.ImageResult, imagePaths []string, errs map[string]error,
	format string,
) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		return formatJSON(results, imagePaths, errs)
	case "csv":
		return pipeline.ToCSVImages(results)
	case "", "text":
		return formatText(results, imagePaths, errs)
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatJSON(results []*pipeline.ImageResult, imagePaths []string, errs map[string]error) (string, error) {
	out := jsonBatch{Images: make([]jsonImage, 0, len(imagePaths))}
	for i, path := range imagePaths {
		img := jsonImage{File: path}
		if i < len(results) {
			img.Result = results[i]
		}
		if err := errs[path]; err != nil {
			img.Error = err.Error()
		}
		out.Images = append(out.Images, img)
	}
	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

// formatText writes one "# path" section per file.
func formatText(results []*pipeline.ImageResult, imagePaths []string, errs map[string]error) (string, error) {
	var output strings.Builder
	for i, path := range imagePaths {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", path)
		if err := errs[path]; err != nil {
			fmt.Fprintf(&output, "error: %v\n", err)
			continue
		}
		if i >= len(results) || results[i] == nil {
			continue
		}
		// drop the path prefix already printed in the header
		res := *results[i]
		res.Path = ""
		res.Barcodes = slices.Clone(res.Barcodes)
		pipeline.SortBarcodesTopLeft(&res)
		text, err := pipeline.ToPlainTextImage(&res)
		if err != nil {
			return "", err
		}
		output.WriteString(text)
	}
	return output.String(), nil
}
