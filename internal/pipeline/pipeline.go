package pipeline

import (
	"errors"
	"fmt"
	"image"
	"runtime"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// Config holds configuration for the scan pipeline.
type Config struct {
	// Scan is passed to the barcode backend for every image.
	Scan barcode.Options

	// Strict turns an image without barcodes into barcode.ErrNoBarcode.
	Strict bool

	// Constraints bound the accepted image size.
	Constraints utils.ImageConstraints

	// PDF controls page image extraction and upscaling.
	PDF pdf.ProcessorConfig

	// Parallel processing configuration for multi-image calls.
	Parallel ParallelConfig
}

// DefaultConfig returns a default pipeline config.
func DefaultConfig() Config {
	return Config{
		Scan: barcode.Options{
			Channel:      utils.LuminanceChannel,
			TryRotations: true,
		},
		Constraints: utils.DefaultImageConstraints(),
		PDF:         *pdf.DefaultProcessorConfig(),
		Parallel:    DefaultParallelConfig(),
	}
}

// Validate checks the configuration for impossible values.
func (c Config) Validate() error {
	if c.Scan.Channel < utils.LuminanceChannel || c.Scan.Channel > 3 {
		return fmt.Errorf("channel must be between %d and 3, got %d", utils.LuminanceChannel, c.Scan.Channel)
	}
	if c.Scan.RowStride < 0 {
		return fmt.Errorf("row stride must be >= 0, got %d", c.Scan.RowStride)
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("row workers must be >= 0, got %d", c.Scan.Workers)
	}
	if c.Parallel.MaxWorkers < 0 {
		return fmt.Errorf("parallel workers must be >= 0, got %d", c.Parallel.MaxWorkers)
	}
	if c.PDF.TargetDPI < 0 {
		return fmt.Errorf("pdf target dpi must be >= 0, got %d", c.PDF.TargetDPI)
	}
	return nil
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg     Config
	backend barcode.Backend
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithBackend overrides the barcode backend.
func (b *Builder) WithBackend(be barcode.Backend) *Builder {
	b.backend = be
	return b
}

// WithChannel selects the intensity plane (0-3 or utils.LuminanceChannel).
func (b *Builder) WithChannel(channel int) *Builder {
	b.cfg.Scan.Channel = channel
	return b
}

// WithRowWorkers sets the number of row workers per image.
func (b *Builder) WithRowWorkers(n int) *Builder {
	if n >= 0 {
		b.cfg.Scan.Workers = n
	}
	return b
}

// WithRowStride overrides the derived row stride.
func (b *Builder) WithRowStride(stride int) *Builder {
	if stride >= 0 {
		b.cfg.Scan.RowStride = stride
	}
	return b
}

// WithRotations toggles the rotated retry scans.
func (b *Builder) WithRotations(enabled bool) *Builder {
	b.cfg.Scan.TryRotations = enabled
	return b
}

// WithMulti keeps scanning the remaining rotations after a hit.
func (b *Builder) WithMulti(enabled bool) *Builder {
	b.cfg.Scan.Multi = enabled
	return b
}

// WithFormats restricts the reported symbologies.
func (b *Builder) WithFormats(formats ...barcode.Format) *Builder {
	b.cfg.Scan.Formats = formats
	return b
}

// WithROI restricts scanning to a region of each image.
func (b *Builder) WithROI(roi image.Rectangle) *Builder {
	b.cfg.Scan.ROI = roi
	return b
}

// WithStrict makes images without barcodes an error.
func (b *Builder) WithStrict(strict bool) *Builder {
	b.cfg.Strict = strict
	return b
}

// WithParallelWorkers sets the number of images processed concurrently.
func (b *Builder) WithParallelWorkers(n int) *Builder {
	if n >= 0 {
		b.cfg.Parallel.MaxWorkers = n
	}
	return b
}

// WithProgressCallback reports progress of multi-image calls.
func (b *Builder) WithProgressCallback(cb ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = cb
	return b
}

// WithPDFTargetDPI sets the resolution below which PDF images get an upscaled pass.
func (b *Builder) WithPDFTargetDPI(dpi int) *Builder {
	b.cfg.PDF.TargetDPI = dpi
	return b
}

// WithPDFCredentials sets the default passwords for encrypted PDFs.
func (b *Builder) WithPDFCredentials(userPassword, ownerPassword string) *Builder {
	if userPassword == "" && ownerPassword == "" {
		b.cfg.PDF.Credentials = nil
		return b
	}
	b.cfg.PDF.Credentials = &pdf.PasswordCredentials{UserPassword: userPassword, OwnerPassword: ownerPassword}
	return b
}

// Config returns a copy of the current builder config.
func (b *Builder) Config() Config { return b.cfg }

// Pipeline wraps a barcode backend with file handling and result mapping.
type Pipeline struct {
	cfg      Config
	backend  barcode.Backend
	pdf      *pdf.Processor
	Profiler *Profiler
}

// Build validates the configuration and constructs the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	be := b.backend
	if be == nil {
		var err error
		be, err = barcode.NewBackend()
		if err != nil {
			return nil, fmt.Errorf("create barcode backend: %w", err)
		}
	}

	pdfCfg := b.cfg.PDF
	pdfCfg.Options = b.cfg.Scan
	if pdfCfg.MaxWorkers == 0 {
		pdfCfg.MaxWorkers = b.cfg.Parallel.MaxWorkers
	}

	return &Pipeline{
		cfg:      b.cfg,
		backend:  be,
		pdf:      pdf.NewProcessor(be, &pdfCfg),
		Profiler: &Profiler{},
	}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Info returns a summary of the pipeline settings for logging and health output.
func (p *Pipeline) Info() map[string]any {
	formats := make([]string, 0, len(p.cfg.Scan.Formats))
	for _, f := range p.cfg.Scan.Formats {
		formats = append(formats, f.String())
	}
	workers := p.cfg.Parallel.MaxWorkers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return map[string]any{
		"channel":       p.cfg.Scan.Channel,
		"row_stride":    p.cfg.Scan.RowStride,
		"row_workers":   p.cfg.Scan.Workers,
		"try_rotations": p.cfg.Scan.TryRotations,
		"multi":         p.cfg.Scan.Multi,
		"formats":       formats,
		"strict":        p.cfg.Strict,
		"workers":       workers,
	}
}

func (p *Pipeline) ready() error {
	if p == nil || p.backend == nil {
		return errors.New("pipeline not initialized")
	}
	return nil
}
