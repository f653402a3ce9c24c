// Package batch scans many image files in one run.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

// ErrNoImages is returned when discovery finds nothing to scan.
var ErrNoImages = errors.New("no image files found")

// ProcessBatch discovers the images named by imagePaths and scans them in
// parallel.
func ProcessBatch(ctx context.Context, imagePaths []string, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}
	files, err := discoverImageFiles(imagePaths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	pl, err := buildPipeline(config)
	if err != nil {
		return nil, fmt.Errorf("failed to build scan pipeline: %w", err)
	}

	var fileErrs []FileError
	par := pl.Config().Parallel
	if par.MaxWorkers <= 0 {
		par.MaxWorkers = runtime.NumCPU()
	}
	par.ProgressCallback = progressCallback(config)
	par.ErrorHandler = func(i int, err error) {
		fileErrs = append(fileErrs, FileError{Path: files[i], Err: err})
	}

	slog.Debug("Batch scan starting", "files", len(files), "workers", par.MaxWorkers)
	start := time.Now()
	results, err := pl.ProcessFilesParallel(ctx, files, par)
	duration := time.Since(start)

	if err != nil && (!config.ContinueOnError || ctx.Err() != nil) {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}
	for _, fe := range fileErrs {
		slog.Warn("Skipping file", "file", fe.Path, "error", fe.Err)
	}

	if config.OverlayDir != "" {
		saveOverlays(results, config)
	}

	return &Result{
		Results:     results,
		ImagePaths:  files,
		Errors:      fileErrs,
		Duration:    duration,
		WorkerCount: par.MaxWorkers,
	}, nil
}

func progressCallback(config *Config) pipeline.ProgressCallback {
	if !config.ShowProgress || config.Quiet {
		return nil
	}
	w := config.ProgressWriter
	if w == nil {
		w = os.Stderr
	}
	return pipeline.NewConsoleProgressCallback(w, "Scanning: ").WithUpdateInterval(config.ProgressInterval)
}

// buildPipeline applies the batch worker count on top of the scan config.
func buildPipeline(config *Config) (*pipeline.Pipeline, error) {
	return pipeline.NewBuilder().
		WithConfig(config.Pipeline).
		WithParallelWorkers(config.Workers).
		Build()
}
