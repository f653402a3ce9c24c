package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// ProcessImage scans a single image.
func (p *Pipeline) ProcessImage(img image.Image) (*ImageResult, error) {
	return p.ProcessImageContext(context.Background(), img)
}

// ProcessImageContext scans a single image with cancellation support.
func (p *Pipeline) ProcessImageContext(ctx context.Context, img image.Image) (*ImageResult, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	if err := utils.ValidateImageConstraints(img, p.cfg.Constraints); err != nil {
		return nil, err
	}

	start := time.Now()
	rs, err := p.backend.Decode(ctx, img, p.cfg.Scan)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	scanTime := time.Since(start)
	p.Profiler.Record(scanTime.Nanoseconds(), len(rs))

	b := img.Bounds()
	res := &ImageResult{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Barcodes: make([]BarcodeResult, 0, len(rs)),
	}
	for _, r := range rs {
		res.Barcodes = append(res.Barcodes, toBarcodeResult(r))
	}
	res.Processing = ProcessingInfo{
		ScanTimeMs:  scanTime.Milliseconds(),
		TotalTimeMs: time.Since(start).Milliseconds(),
	}

	slog.Debug("Scanned image", "width", res.Width, "height", res.Height,
		"barcodes", len(res.Barcodes), "scan_ms", res.Processing.ScanTimeMs)

	if p.cfg.Strict && len(res.Barcodes) == 0 {
		return res, barcode.ErrNoBarcode
	}
	return res, nil
}

// ProcessFile loads an image file and scans it.
func (p *Pipeline) ProcessFile(path string) (*ImageResult, error) {
	return p.ProcessFileContext(context.Background(), path)
}

// ProcessFileContext loads an image file and scans it with cancellation support.
func (p *Pipeline) ProcessFileContext(ctx context.Context, path string) (*ImageResult, error) {
	start := time.Now()
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, err
	}
	res, err := p.ProcessImageContext(ctx, img)
	if res != nil {
		res.Path = path
		res.Processing.TotalTimeMs = time.Since(start).Milliseconds()
	}
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// ProcessImages scans images sequentially.
func (p *Pipeline) ProcessImages(images []image.Image) ([]*ImageResult, error) {
	return p.ProcessImagesContext(context.Background(), images)
}

// ProcessImagesContext scans images sequentially, stopping at the first error.
func (p *Pipeline) ProcessImagesContext(ctx context.Context, images []image.Image) ([]*ImageResult, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	out := make([]*ImageResult, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.ProcessImageContext(ctx, img)
		if err != nil {
			return out, fmt.Errorf("image %d: %w", i, err)
		}
		out[i] = res
	}
	return out, nil
}

// ProcessPDF scans the images embedded in the selected pages of a PDF.
func (p *Pipeline) ProcessPDF(filename, pageRange string) (*pdf.DocumentResult, error) {
	return p.ProcessPDFContext(context.Background(), filename, pageRange)
}

// ProcessPDFContext scans a PDF with cancellation support.
func (p *Pipeline) ProcessPDFContext(ctx context.Context, filename, pageRange string) (*pdf.DocumentResult, error) {
	return p.ProcessPDFWithCredentials(ctx, filename, pageRange, nil)
}

// ProcessPDFWithCredentials scans a PDF, decrypting it with creds when set.
func (p *Pipeline) ProcessPDFWithCredentials(ctx context.Context, filename, pageRange string,
	creds *pdf.PasswordCredentials,
) (*pdf.DocumentResult, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	doc, err := p.pdf.ProcessFileWithCredentials(ctx, filename, pageRange, creds)
	if err != nil {
		return nil, err
	}
	found := doc.Barcodes()
	if p.cfg.Strict && len(found) == 0 {
		return doc, barcode.ErrNoBarcode
	}
	return doc, nil
}
