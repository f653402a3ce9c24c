package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/utils"
	"github.com/spf13/cobra"
)

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image [flags] <file>...",
	Short: "Scan image files for barcodes",
	Long: `Scan one or more image files for EAN-13 and UPC-A barcodes.

Supported formats: PNG, JPEG, GIF, BMP, TIFF, WebP.

Examples:
  barscan image product.jpg
  barscan image shelf.png --multi --format json
  barscan image label.png --roi 0,100,640,200 --channel 1
  barscan image *.png --overlay-dir out/ --strict`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImage,
}

func init() {
	rootCmd.AddCommand(imageCmd)
	addScanFlags(imageCmd)
	addOutputFlags(imageCmd)
	addOverlayFlags(imageCmd)
}

func runImage(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	pl, err := pipeline.NewBuilder().WithConfig(cfg.ToPipelineConfig()).Build()
	if err != nil {
		return fmt.Errorf("failed to build scan pipeline: %w", err)
	}

	ctx := commandContext(cmd)
	boxColor := overlayColor(cfg.Output.OverlayBoxColor)
	results := make([]*pipeline.ImageResult, 0, len(args))
	var misses []string

	for _, path := range args {
		if !utils.IsSupportedImage(path) {
			return fmt.Errorf("unsupported image format: %s", path)
		}
		img, _, err := utils.LoadImage(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}

		res, err := pl.ProcessImageContext(ctx, img)
		if errors.Is(err, barcode.ErrNoBarcode) {
			misses = append(misses, path)
		} else if err != nil {
			return fmt.Errorf("failed to scan %s: %w", path, err)
		}
		if res == nil {
			res = &pipeline.ImageResult{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
		}
		res.Path = path
		pipeline.SortBarcodesTopLeft(res)
		slog.Debug("Scanned image", "file", path, "barcodes", len(res.Barcodes))

		if cfg.Output.OverlayDir != "" && len(res.Barcodes) > 0 {
			out, err := pipeline.SaveOverlay(cfg.Output.OverlayDir, img, res, boxColor)
			if err != nil {
				slog.Warn("Failed to write overlay", "file", path, "error", err)
			} else {
				slog.Debug("Wrote overlay", "file", out)
			}
		}
		results = append(results, res)
	}

	out, err := pipeline.Format(results, cfg.Output.Format)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), out, cfg.Output.File); err != nil {
		return err
	}

	if len(misses) > 0 {
		return fmt.Errorf("%w in %d of %d image(s): %v", barcode.ErrNoBarcode, len(misses), len(args), misses)
	}
	return nil
}
