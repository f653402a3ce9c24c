package cmd

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/barscan/internal/batch"
	"github.com/spf13/cobra"
)

// batchCmd represents the batch command.
var batchCmd = &cobra.Command{
	Use:   "batch [flags] <file|dir>...",
	Short: "Scan many images in parallel",
	Long: `Scan files and directories of images for barcodes using a worker pool.

Directories are expanded to the supported images they contain. Include and
exclude patterns are glob patterns matched against file names.

Examples:
  barscan batch photos/
  barscan batch photos/ --recursive --include "*.jpg" --format csv -o out.csv
  barscan batch a.png b.png --workers 8 --progress --stats`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addScanFlags(batchCmd)
	addOutputFlags(batchCmd)
	addOverlayFlags(batchCmd)

	batchCmd.Flags().IntP("workers", "w", 4, "number of files scanned concurrently")
	batchCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().Bool("continue-on-error", false, "keep going when a file fails to scan")
	batchCmd.Flags().StringSlice("include", nil, "glob patterns of files to include")
	batchCmd.Flags().StringSlice("exclude", nil, "glob patterns of files to exclude")
	batchCmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress progress and summary output")
	batchCmd.Flags().Bool("stats", false, "print throughput statistics")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	showProgress, _ := cmd.Flags().GetBool("progress")
	quiet, _ := cmd.Flags().GetBool("quiet")
	showStats, _ := cmd.Flags().GetBool("stats")

	bc := batch.DefaultConfig()
	bc.Pipeline = cfg.ToPipelineConfig()
	bc.Format = cfg.Output.Format
	bc.OutputFile = cfg.Output.File
	bc.OverlayDir = cfg.Output.OverlayDir
	bc.OverlayColor = overlayColor(cfg.Output.OverlayBoxColor)
	bc.Workers = cfg.Batch.Workers
	bc.ContinueOnError = cfg.Batch.ContinueOnError
	bc.Recursive = cfg.Batch.Recursive
	bc.IncludePatterns = cfg.Batch.Include
	bc.ExcludePatterns = cfg.Batch.Exclude
	bc.ShowProgress = showProgress
	bc.Quiet = quiet
	bc.ShowStats = showStats
	bc.ProgressWriter = cmd.ErrOrStderr()

	res, err := batch.ProcessBatch(commandContext(cmd), args, bc)
	if err != nil {
		if errors.Is(err, batch.ErrNoImages) {
			return fmt.Errorf("%w in %v", err, args)
		}
		return err
	}

	if err := res.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, quiet); err != nil {
		return err
	}
	if showStats {
		res.PrintStats(cmd.ErrOrStderr(), quiet)
	}
	return nil
}
