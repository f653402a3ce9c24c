package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"
)

// ParallelConfig holds configuration for parallel processing.
type ParallelConfig struct {
	MaxWorkers       int                        // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback           // Optional progress reporting
	ErrorHandler     func(index int, err error) // Optional per-item error handler
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// scanJob is one unit of work for the pool.
type scanJob struct {
	index int
	run   func(context.Context) (*ImageResult, error)
}

type scanOutcome struct {
	index  int
	result *ImageResult
	err    error
}

// ProcessImagesParallel scans images in parallel using a worker pool.
// Results are returned in input order.
func (p *Pipeline) ProcessImagesParallel(images []image.Image, config ParallelConfig) ([]*ImageResult, error) {
	return p.ProcessImagesParallelContext(context.Background(), images, config)
}

// ProcessImagesParallelContext scans images in parallel with context cancellation support.
func (p *Pipeline) ProcessImagesParallelContext(ctx context.Context, images []image.Image,
	config ParallelConfig,
) ([]*ImageResult, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	if err := p.ready(); err != nil {
		return nil, err
	}
	jobs := make([]scanJob, len(images))
	for i, img := range images {
		jobs[i] = scanJob{index: i, run: func(ctx context.Context) (*ImageResult, error) {
			return p.ProcessImageContext(ctx, img)
		}}
	}
	return p.runPool(ctx, jobs, config, func(i int) string { return fmt.Sprintf("image %d", i) })
}

// ProcessFilesParallel loads and scans image files in parallel.
// Results are returned in input order; failed entries are nil.
func (p *Pipeline) ProcessFilesParallel(ctx context.Context, paths []string, config ParallelConfig) ([]*ImageResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files provided")
	}
	if err := p.ready(); err != nil {
		return nil, err
	}
	jobs := make([]scanJob, len(paths))
	for i, path := range paths {
		jobs[i] = scanJob{index: i, run: func(ctx context.Context) (*ImageResult, error) {
			return p.ProcessFileContext(ctx, path)
		}}
	}
	return p.runPool(ctx, jobs, config, func(i int) string { return paths[i] })
}

func (p *Pipeline) runPool(ctx context.Context, jobs []scanJob, config ParallelConfig,
	label func(int) string,
) ([]*ImageResult, error) {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	config.MaxWorkers = min(config.MaxWorkers, len(jobs))

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(jobs))
		defer config.ProgressCallback.OnComplete()
	}

	queue := make(chan scanJob, len(jobs))
	outcomes := make(chan scanOutcome, len(jobs))

	var wg sync.WaitGroup
	for range config.MaxWorkers {
		wg.Add(1)
		go worker(ctx, queue, outcomes, &wg)
	}

	go func() {
		defer close(queue)
		for _, j := range jobs {
			select {
			case queue <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	ordered := make([]*ImageResult, len(jobs))
	errs := make([]error, len(jobs))
	processed := 0
	for o := range outcomes {
		ordered[o.index] = o.result
		errs[o.index] = o.err
		processed++
		if config.ProgressCallback != nil {
			if o.err != nil {
				config.ProgressCallback.OnError(processed, o.err)
			}
			config.ProgressCallback.OnProgress(processed, len(jobs))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstError error
	for i, err := range errs {
		if err == nil {
			continue
		}
		ordered[i] = nil
		if firstError == nil {
			firstError = fmt.Errorf("%s: %w", label(i), err)
		}
		if config.ErrorHandler != nil {
			config.ErrorHandler(i, err)
		}
	}
	return ordered, firstError
}

// worker processes jobs from the queue.
func worker(ctx context.Context, queue <-chan scanJob, outcomes chan<- scanOutcome, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-queue:
			if !ok {
				return
			}
			res, err := job.run(ctx)
			select {
			case outcomes <- scanOutcome{index: job.index, result: res, err: err}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// ParallelStats holds statistics about parallel processing performance.
type ParallelStats struct {
	TotalImages      int           `json:"total_images"`
	ProcessedImages  int           `json:"processed_images"`
	FailedImages     int           `json:"failed_images"`
	BarcodesFound    int           `json:"barcodes_found"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateParallelStats calculates performance statistics for parallel processing.
// A nil entry in results counts as a failed image.
func CalculateParallelStats(results []*ImageResult, duration time.Duration, workerCount int) ParallelStats {
	stats := ParallelStats{
		TotalImages:   len(results),
		WorkerCount:   workerCount,
		TotalDuration: duration,
	}
	for _, r := range results {
		if r == nil {
			stats.FailedImages++
			continue
		}
		stats.ProcessedImages++
		stats.BarcodesFound += len(r.Barcodes)
	}
	if stats.ProcessedImages > 0 && duration > 0 {
		stats.AveragePerImage = duration / time.Duration(stats.ProcessedImages)
		stats.ThroughputPerSec = float64(stats.ProcessedImages) / duration.Seconds()
	}
	return stats
}
