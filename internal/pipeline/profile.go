package pipeline

import (
	"sync/atomic"
)

// Profiler aggregates scan counters across runs.
type Profiler struct {
	ScanTimeNs      atomic.Int64
	ImagesProcessed atomic.Int64
	BarcodesFound   atomic.Int64
	EmptyImages     atomic.Int64
}

// Record adds one scanned image.
func (p *Profiler) Record(scanNs int64, barcodes int) {
	if p == nil {
		return
	}
	p.ScanTimeNs.Add(scanNs)
	p.ImagesProcessed.Add(1)
	p.BarcodesFound.Add(int64(barcodes))
	if barcodes == 0 {
		p.EmptyImages.Add(1)
	}
}

// Snapshot returns cumulative metrics in milliseconds for readability.
func (p *Profiler) Snapshot() map[string]any {
	imgs := p.ImagesProcessed.Load()
	scan := p.ScanTimeNs.Load()
	out := map[string]any{
		"images":        imgs,
		"barcodes":      p.BarcodesFound.Load(),
		"empty_images":  p.EmptyImages.Load(),
		"scan_ms_total": scan / 1_000_000,
	}
	if imgs > 0 {
		out["scan_ms_per_image"] = float64(scan) / 1_000_000.0 / float64(imgs)
	}
	return out
}

// Stats returns the pipeline's cumulative scan counters.
func (p *Pipeline) Stats() map[string]any { return p.Profiler.Snapshot() }
