package cmd

import (
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/spf13/cobra"
)

const (
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
	outputFormatText = "text"
)

// addScanFlags registers the decoder flags shared by image, batch, pdf and serve.
func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().Int("channel", -1, "intensity channel: -1 luminance, 0-3 for R, G, B, A")
	cmd.Flags().Int("row-workers", 0, "goroutines scanning rows of one image (0 = NumCPU)")
	cmd.Flags().Int("row-stride", 0, "scan every n-th row (0 = every row)")
	cmd.Flags().Bool("try-rotations", true, "retry at 90, 180 and 270 degrees when nothing is found")
	cmd.Flags().Bool("multi", false, "report every barcode instead of the strongest one")
	cmd.Flags().StringSlice("formats", nil, "accepted formats: ean13, upca (default both)")
	cmd.Flags().String("roi", "", "region of interest as x,y,w,h in pixels")
	cmd.Flags().Bool("strict", false, "fail when an input contains no barcode")
}

// addOutputFlags registers result format and destination flags.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json, csv)")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
}

// addOverlayFlags registers overlay image flags.
func addOverlayFlags(cmd *cobra.Command) {
	cmd.Flags().String("overlay-dir", "", "directory to write overlay images with drawn boxes")
	cmd.Flags().String("overlay-box-color", "#FF0000", "overlay box color (hex)")
}

// overlayColor parses s, falling back to the default box color.
func overlayColor(s string) color.Color {
	if c, err := pipeline.ParseColor(s); err == nil {
		return c
	}
	return pipeline.DefaultBoxColor
}

// writeOutput writes out to file when set, otherwise to w.
func writeOutput(w io.Writer, out, file string) error {
	if file == "" {
		_, err := io.WriteString(w, out)
		return err
	}
	if err := os.WriteFile(file, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, err := fmt.Fprintf(w, "Results written to %s\n", file)
	return err
}
