package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/spf13/cobra"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf [flags] <file>...",
	Short: "Scan images embedded in PDF files",
	Long: `Extract the images from PDF pages and scan them for barcodes.

Encrypted documents are opened with --password or --owner-password.
Page ranges use the form "1-3,5".

Examples:
  barscan pdf catalog.pdf
  barscan pdf catalog.pdf --pages 2-4 --format json
  barscan pdf locked.pdf --password secret`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPDF,
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	addScanFlags(pdfCmd)
	addOutputFlags(pdfCmd)

	pdfCmd.Flags().String("pages", "", "page range to scan, e.g. 1-3,5 (default: all)")
	pdfCmd.Flags().Int("target-dpi", 0, "upscale embedded images to this resolution before scanning")
	pdfCmd.Flags().String("password", "", "user password for encrypted PDFs")
	pdfCmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
}

func runPDF(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	pl, err := pipeline.NewBuilder().WithConfig(cfg.ToPipelineConfig()).Build()
	if err != nil {
		return fmt.Errorf("failed to build scan pipeline: %w", err)
	}

	ctx := commandContext(cmd)
	creds := cfg.PDFCredentials()
	results := make([]*pdf.DocumentResult, 0, len(args))
	var misses []string

	for _, file := range args {
		if !strings.EqualFold(filepath.Ext(file), ".pdf") {
			return fmt.Errorf("not a PDF file: %s", file)
		}
		doc, err := pl.ProcessPDFWithCredentials(ctx, file, cfg.PDF.Pages, creds)
		switch {
		case errors.Is(err, barcode.ErrNoBarcode):
			misses = append(misses, file)
		case pdf.IsPasswordError(err):
			return fmt.Errorf("%s: %w (use --password or --owner-password)", file, err)
		case err != nil:
			return fmt.Errorf("failed to scan %s: %w", file, err)
		}
		slog.Debug("Scanned PDF", "file", file, "pages", doc.TotalPages, "barcodes", len(doc.Barcodes()))
		results = append(results, doc)
	}

	out, err := pdf.Format(results, cfg.Output.Format)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), out, cfg.Output.File); err != nil {
		return err
	}

	if len(misses) > 0 {
		return fmt.Errorf("%w in %d of %d PDF(s): %v", barcode.ErrNoBarcode, len(misses), len(args), misses)
	}
	return nil
}
