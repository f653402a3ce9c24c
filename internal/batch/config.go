package batch

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Pipeline configures the scanner used for every file.
	Pipeline pipeline.Config

	// Output settings
	Format       string
	OutputFile   string
	OverlayDir   string
	OverlayColor color.Color

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
	ProgressWriter   io.Writer
}

// DefaultConfig returns a batch config scanning with the default pipeline.
func DefaultConfig() *Config {
	return &Config{
		Pipeline:         pipeline.DefaultConfig(),
		Format:           "text",
		OverlayColor:     pipeline.DefaultBoxColor,
		Workers:          4,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// FileError records a file that could not be scanned.
type FileError struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (e FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e FileError) Unwrap() error { return e.Err }

// Result holds the result of batch processing. Results is index-aligned with
// ImagePaths; failed files have a nil entry and a matching FileError.
type Result struct {
	Results     []*pipeline.ImageResult
	ImagePaths  []string
	Errors      []FileError
	Duration    time.Duration
	WorkerCount int
}

// Stats summarizes the run.
func (r *Result) Stats() pipeline.ParallelStats {
	return pipeline.CalculateParallelStats(r.Results, r.Duration, r.WorkerCount)
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Results, r.ImagePaths, r.errorsByPath(), format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile == "" {
		_, err = io.WriteString(w, output)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !quiet {
		_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
	}
	return nil
}

// PrintStats prints processing statistics to w.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", stats.TotalImages)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", stats.ProcessedImages)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.FailedImages)
	_, _ = fmt.Fprintf(w, "  Barcodes found: %d\n", stats.BarcodesFound)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", stats.AveragePerImage.Round(time.Microsecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", stats.ThroughputPerSec)
}

func (r *Result) errorsByPath() map[string]error {
	if len(r.Errors) == 0 {
		return nil
	}
	m := make(map[string]error, len(r.Errors))
	for _, fe := range r.Errors {
		m[fe.Path] = fe.Err
	}
	return m
}
