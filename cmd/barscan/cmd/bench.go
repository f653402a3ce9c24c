package cmd

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/barscan/internal/common"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/utils"
	"github.com/spf13/cobra"
)

// benchCmd represents the bench command.
var benchCmd = &cobra.Command{
	Use:   "bench [flags] <file>...",
	Short: "Measure scan time and allocations per image",
	Long: `Scan each image repeatedly and report timing and memory figures.

Decoder flags apply, so the effect of --row-workers, --row-stride or
--channel can be compared directly.

Examples:
  barscan bench shelf.png
  barscan bench shelf.png --iterations 50 --row-workers 1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	addScanFlags(benchCmd)
	benchCmd.Flags().IntP("iterations", "n", 10, "scans per image")
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	iterations, _ := cmd.Flags().GetInt("iterations")
	if iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", iterations)
	}

	pcfg := cfg.ToPipelineConfig()
	pcfg.Strict = false
	pl, err := pipeline.NewBuilder().WithConfig(pcfg).Build()
	if err != nil {
		return fmt.Errorf("failed to build scan pipeline: %w", err)
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	total := common.NewNamedTimer("bench")
	var failed error

	for _, path := range args {
		img, _, err := utils.LoadImage(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		res := common.Measure(path, iterations, func() (int, error) {
			r, err := pl.ProcessImageContext(ctx, img)
			if err != nil {
				return 0, err
			}
			return len(r.Barcodes), nil
		})
		_, _ = fmt.Fprintln(out, res.String())
		if res.Error != nil {
			failed = errors.Join(failed, res.Error)
		}
	}

	total.Stop()
	_, _ = fmt.Fprintln(out, total.String())
	_, _ = fmt.Fprintln(out, common.GetMemoryStats().String())
	return failed
}
