package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/barscan/internal/testutil"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir  = flag.String("out", "", "output directory (default: testdata/barcodes under the project root)")
		verbose = flag.Bool("v", false, "Verbose output")
		help    = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Generate synthetic barcode fixtures for barscan testing.\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  %s                  # Write fixtures into testdata/barcodes\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "  %s -out /tmp/codes  # Write fixtures elsewhere\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	dir := *outDir
	if dir == "" {
		root, err := testutil.GetProjectRoot()
		if err != nil {
			slog.Error("Failed to find project root", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(root, "testdata", "barcodes")
	}

	slog.Info("Generating barcode fixtures", "dir", dir)
	manifest, err := testutil.WriteFixtures(dir, testutil.StandardFixtures())
	if err != nil {
		slog.Error("Failed to generate fixtures", "error", err)
		os.Exit(1)
	}

	if *verbose {
		for _, f := range manifest.Fixtures {
			slog.Info("Fixture written", "name", f.Name, "file", f.InputFile, "expected", f.Expected)
		}
	}
	slog.Info("Test data generation completed", "fixtures", len(manifest.Fixtures))
}
