package pdf

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/disintegration/imaging"
)

// ProcessorConfig contains configuration for PDF barcode scanning.
type ProcessorConfig struct {
	// Options are passed to the barcode backend for every extracted image.
	Options barcode.Options
	// Credentials for encrypted documents.
	Credentials *PasswordCredentials
	// TargetDPI triggers an upscaled second pass for images rendered below it
	// (0 disables).
	TargetDPI int
	// MaxUpscaleDim caps the longer side of an upscaled image.
	MaxUpscaleDim int
	// MaxWorkers bounds concurrent pages (0 = runtime.NumCPU()).
	MaxWorkers int
}

// DefaultProcessorConfig returns the default processor configuration.
func DefaultProcessorConfig() *ProcessorConfig {
	return &ProcessorConfig{
		Options:       barcode.Options{TryRotations: true, Multi: true, Channel: -1},
		TargetDPI:     150,
		MaxUpscaleDim: 3000,
	}
}

// Processor scans the images embedded in PDF documents for barcodes.
type Processor struct {
	backend   barcode.Backend
	config    *ProcessorConfig
	passwords *PasswordHandler
}

// NewProcessor creates a PDF processor around a barcode backend.
func NewProcessor(be barcode.Backend, config *ProcessorConfig) *Processor {
	if config == nil {
		config = DefaultProcessorConfig()
	}
	return &Processor{
		backend:   be,
		config:    config,
		passwords: NewPasswordHandler(config.Credentials),
	}
}

// ProcessFile scans the selected pages of a PDF file.
func (p *Processor) ProcessFile(ctx context.Context, filename string, pageRange string) (*DocumentResult, error) {
	return p.ProcessFileWithCredentials(ctx, filename, pageRange, nil)
}

// ProcessFileWithCredentials scans a PDF file, decrypting it with creds (or
// the configured credentials) when it is password protected.
func (p *Processor) ProcessFileWithCredentials(ctx context.Context, filename, pageRange string,
	creds *PasswordCredentials,
) (*DocumentResult, error) {
	start := time.Now()

	working, err := p.passwords.DecryptPDF(filename, creds)
	if err != nil {
		return nil, err
	}
	encrypted := working != filename
	if encrypted {
		defer func() { _ = p.passwords.CleanupTempFile(working) }()
	}

	pages, err := parsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	extractStart := time.Now()
	pageImages, err := ExtractImages(working, pageRange)
	if err != nil {
		return nil, err
	}
	extractTime := time.Since(extractStart)

	geometry, total, err := ReadGeometry(working, pages)
	if err != nil {
		slog.Warn("Page geometry unavailable, page boxes use default size", "file", filename, "error", err)
		geometry = map[int]PageGeometry{}
	}

	results, decodeTime, err := p.processPages(ctx, pageImages, geometry)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		total = len(results)
	}

	return &DocumentResult{
		Filename:   filename,
		TotalPages: total,
		Encrypted:  encrypted,
		Pages:      results,
		Processing: ProcessingInfo{
			ExtractionTimeMs: extractTime.Milliseconds(),
			DecodeTimeMs:     decodeTime.Milliseconds(),
			TotalTimeMs:      time.Since(start).Milliseconds(),
		},
	}, nil
}

// ProcessFiles scans several PDF files in order.
func (p *Processor) ProcessFiles(ctx context.Context, filenames []string, pageRange string) ([]*DocumentResult, error) {
	out := make([]*DocumentResult, 0, len(filenames))
	for _, f := range filenames {
		res, err := p.ProcessFile(ctx, f, pageRange)
		if err != nil {
			return nil, fmt.Errorf("failed to process %s: %w", f, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// processPages decodes pages on a bounded worker pool and returns them in
// page order.
func (p *Processor) processPages(ctx context.Context, pageImages map[int][]image.Image,
	geometry map[int]PageGeometry,
) ([]PageResult, time.Duration, error) {
	pageList := make([]int, 0, len(pageImages))
	for n := range pageImages {
		pageList = append(pageList, n)
	}
	slices.Sort(pageList)

	type out struct {
		page int
		res  PageResult
		dur  time.Duration
		err  error
	}

	workers := p.config.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = max(1, min(workers, len(pageList)))

	jobs := make(chan int, len(pageList))
	results := make(chan out, len(pageList))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				pr, dur, err := p.processPage(ctx, n, pageImages[n], geometry[n])
				results <- out{page: n, res: pr, dur: dur, err: err}
			}
		}()
	}
	for _, n := range pageList {
		jobs <- n
	}
	close(jobs)
	go func() { wg.Wait(); close(results) }()

	m := make(map[int]PageResult, len(pageList))
	var total time.Duration
	var firstErr error
	for r := range results {
		if r.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to process page %d: %w", r.page, r.err)
		}
		m[r.page] = r.res
		total += r.dur
	}
	if firstErr != nil {
		return nil, 0, firstErr
	}

	pages := make([]PageResult, 0, len(pageList))
	for _, n := range pageList {
		pages = append(pages, m[n])
	}
	return pages, total, nil
}

func (p *Processor) processPage(ctx context.Context, pageNum int, images []image.Image,
	geom PageGeometry,
) (PageResult, time.Duration, error) {
	if geom.Width == 0 || geom.Height == 0 {
		geom.Width, geom.Height = defaultPageWidth, defaultPageHeight
	}
	page := PageResult{PageNumber: pageNum, Width: geom.Width, Height: geom.Height}

	var total time.Duration
	for i, img := range images {
		start := time.Now()
		barcodes, upscaled, err := p.decodeImage(ctx, img, geom)
		if err != nil {
			return PageResult{}, 0, err
		}
		dur := time.Since(start)
		total += dur

		b := img.Bounds()
		page.Images = append(page.Images, ImageResult{
			ImageIndex:   i,
			Width:        b.Dx(),
			Height:       b.Dy(),
			Barcodes:     barcodes,
			Upscaled:     upscaled,
			DecodeTimeMs: dur.Milliseconds(),
		})
	}
	return page, total, nil
}

// decodeImage scans img at native size and, when that finds nothing and the
// image resolution is below the target DPI, once more upscaled.
func (p *Processor) decodeImage(ctx context.Context, img image.Image, geom PageGeometry) ([]Barcode, bool, error) {
	rs, err := p.backend.Decode(ctx, img, p.config.Options)
	if err != nil {
		return nil, false, err
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if len(rs) > 0 {
		return mapBarcodes(rs, 1, w, h, geom), false, nil
	}

	scale := p.upscaleFactor(w, h, geom)
	if scale <= 1 {
		return nil, false, nil
	}
	nw, nh := int(math.Round(float64(w)*scale)), int(math.Round(float64(h)*scale))
	up := imaging.Resize(img, nw, nh, imaging.Lanczos)
	rs, err = p.backend.Decode(ctx, up, p.config.Options)
	if err != nil {
		return nil, false, err
	}
	return mapBarcodes(rs, scale, w, h, geom), len(rs) > 0, nil
}

// upscaleFactor returns the factor that brings the image to the target DPI
// for its page, capped by MaxUpscaleDim.
func (p *Processor) upscaleFactor(w, h int, geom PageGeometry) float64 {
	if p.config.TargetDPI <= 0 || w == 0 || h == 0 {
		return 1
	}
	dpi := (float64(w)/(geom.Width/72) + float64(h)/(geom.Height/72)) / 2
	if dpi <= 0 || dpi >= float64(p.config.TargetDPI) {
		return 1
	}
	scale := float64(p.config.TargetDPI) / dpi
	if limit := p.config.MaxUpscaleDim; limit > 0 {
		scale = min(scale, float64(limit)/float64(max(w, h)))
	}
	return scale
}

// mapBarcodes converts backend results found on an image scaled by scale to
// boxes in original image pixels and page points (bottom-left origin).
func mapBarcodes(rs []barcode.Result, scale float64, imgW, imgH int, geom PageGeometry) []Barcode {
	out := make([]Barcode, 0, len(rs))
	for _, r := range rs {
		box := Box{
			X: int(math.Floor(float64(r.BBox.Min.X) / scale)),
			Y: int(math.Floor(float64(r.BBox.Min.Y) / scale)),
			W: int(math.Ceil(float64(r.BBox.Dx()) / scale)),
			H: int(math.Ceil(float64(r.BBox.Dy()) / scale)),
		}
		b := Barcode{
			Type:       r.Type.String(),
			Value:      r.Value,
			Confidence: r.Confidence,
			Rotation:   r.Rotation,
			Box:        box,
			TextMatch:  geom.HasCode(r.Value),
		}
		if imgW > 0 && imgH > 0 && geom.Width > 0 && geom.Height > 0 {
			sx := geom.Width / float64(imgW)
			sy := geom.Height / float64(imgH)
			b.PageBox = PageBox{
				X: float64(box.X) * sx,
				Y: geom.Height - float64(box.Y+box.H)*sy,
				W: float64(box.W) * sx,
				H: float64(box.H) * sy,
			}
		}
		out = append(out, b)
	}
	return out
}
