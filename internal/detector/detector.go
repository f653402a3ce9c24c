package detector

import (
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/barscan/internal/mempool"
)

// Config controls a scan pass over one image.
type Config struct {
	Channel     int // Channel index passed to the pixel source
	RowStride   int // Rows between samples (0 = derived from image height)
	Workers     int // Row workers (0 = runtime.NumCPU())
	Orientation int // Degrees; copied into every record
}

// DefaultConfig returns the default scan configuration.
func DefaultConfig() Config {
	return Config{
		Channel:   0,
		RowStride: 0,
		Workers:   runtime.NumCPU(),
	}
}

// Report is the outcome of one scan pass.
type Report struct {
	Records    []Record      // Full records in row-scan order
	Rows       int           // Rows sampled
	Stride     int           // Row stride used
	Partials   int           // Partial detections seen
	Merged     int           // Full records stitched from two partials
	Duplicates int           // Re-detections suppressed
	Pending    int           // Partials left unmatched at the end of the pass
	Duration   time.Duration // Wall time of the pass
}

// RowStride returns the sampling stride for an image of the given height.
func RowStride(height int) int {
	if height < 2 {
		return 1
	}
	return max(1, int(6*math.Log10(float64(height))))
}

// rowJob is one sampled row.
type rowJob struct {
	index int
	y     int
}

// rowResult holds the detections of one sampled row.
type rowResult struct {
	index   int
	records []Record
}

// Scan runs the row scanner over an image of the given size. Rows are
// located independently on a worker pool and then stitched sequentially in
// row order, so the result does not depend on the worker count.
func Scan(src PixelSource, width, height int, cfg Config) Report {
	start := time.Now()

	stride := cfg.RowStride
	if stride <= 0 {
		stride = RowStride(height)
	}
	if width <= 0 || height <= 0 {
		return Report{Stride: stride, Duration: time.Since(start)}
	}

	rows := (height + stride - 1) / stride
	perRow := locateRows(src, width, height, stride, rows, cfg)

	st := NewStitcher()
	partials := 0
	for _, recs := range perRow {
		for _, rec := range recs {
			if rec.Meta.Completeness == Partial {
				partials++
			}
			st.Add(rec)
		}
	}

	report := Report{
		Records:    st.Results(),
		Rows:       rows,
		Stride:     stride,
		Partials:   partials,
		Merged:     st.Merged(),
		Duplicates: st.Dropped(),
		Pending:    len(st.Pending()),
		Duration:   time.Since(start),
	}

	slog.Debug("Row scan complete",
		"width", width,
		"height", height,
		"channel", cfg.Channel,
		"rows", report.Rows,
		"stride", report.Stride,
		"records", len(report.Records),
		"partials", report.Partials,
		"merged", report.Merged,
		"duplicates", report.Duplicates,
		"duration_ms", report.Duration.Milliseconds())

	return report
}

// ScanRow runs profile building, crossing detection and guard search on a
// single row.
func ScanRow(src PixelSource, y, width, height int, cfg Config) []Record {
	buf := mempool.GetUint8(width)
	defer mempool.PutUint8(buf)

	p := buildRowProfile(src, y, width, height, cfg.Channel, buf)
	p.Orientation = cfg.Orientation
	return LocateRow(p, FindCrossings(p))
}

// locateRows scans rows on a worker pool and returns detections indexed by
// row order.
func locateRows(src PixelSource, width, height, stride, rows int, cfg Config) [][]Record {
	perRow := make([][]Record, rows)

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, rows)

	if workers <= 1 {
		for i := range rows {
			perRow[i] = ScanRow(src, i*stride, width, height, cfg)
		}
		return perRow
	}

	jobs := make(chan rowJob, rows)
	results := make(chan rowResult, rows)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- rowResult{index: job.index, records: ScanRow(src, job.y, width, height, cfg)}
			}
		}()
	}

	for i := range rows {
		jobs <- rowJob{index: i, y: i * stride}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		perRow[res.index] = res.records
	}
	return perRow
}
