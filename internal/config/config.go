package config

import (
	"fmt"
	"image"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json", "csv"}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	pdfDefaults := pdf.DefaultProcessorConfig()
	return Config{
		LogLevel: "info",
		Scan: ScanConfig{
			Channel:      utils.LuminanceChannel,
			TryRotations: true,
		},
		Output: OutputConfig{
			Format:          "text",
			OverlayBoxColor: "#FF0000",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			OverlayEnabled:  true,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 10000,
				MaxDataPerDayMB:   1024,
			},
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		PDF: PDFConfig{
			TargetDPI:     pdfDefaults.TargetDPI,
			MaxUpscaleDim: pdfDefaults.MaxUpscaleDim,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if c.Output.OverlayBoxColor != "" {
		if _, err := pipeline.ParseColor(c.Output.OverlayBoxColor); err != nil {
			return fmt.Errorf("invalid overlay box color: %w", err)
		}
	}

	if c.Scan.Channel < utils.LuminanceChannel || c.Scan.Channel > 3 {
		return fmt.Errorf("invalid scan channel: %d (must be -1 for luminance or 0-3)", c.Scan.Channel)
	}
	if c.Scan.RowWorkers < 0 {
		return fmt.Errorf("invalid row workers: %d (must not be negative)", c.Scan.RowWorkers)
	}
	if c.Scan.RowStride < 0 {
		return fmt.Errorf("invalid row stride: %d (must not be negative)", c.Scan.RowStride)
	}
	if _, err := c.ParseFormats(); err != nil {
		return err
	}
	if _, err := ParseROI(c.Scan.ROI); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return fmt.Errorf("invalid rate limit: %+v (values must not be negative)", rl)
	}

	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	if c.PDF.TargetDPI < 0 || c.PDF.MaxUpscaleDim < 0 || c.PDF.Workers < 0 {
		return fmt.Errorf("invalid pdf settings: %+v (values must not be negative)", c.PDF)
	}
	return nil
}

// SlogLevel maps the configured log level to slog, with Verbose forcing debug.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormats converts the configured format names.
func (c *Config) ParseFormats() ([]barcode.Format, error) {
	var out []barcode.Format
	for _, name := range c.Scan.Formats {
		if strings.TrimSpace(name) == "" {
			continue
		}
		f, ok := barcode.ParseFormat(name)
		if !ok {
			return nil, fmt.Errorf("invalid barcode format: %s (must be ean13 or upca)", name)
		}
		out = append(out, f)
	}
	return out, nil
}

// ParseROI parses "x,y,w,h" into a rectangle. An empty string yields the
// zero rectangle.
func ParseROI(s string) (image.Rectangle, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return image.Rectangle{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("invalid roi %q (want x,y,w,h)", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("invalid roi %q: %w", s, err)
		}
		v[i] = n
	}
	if v[0] < 0 || v[1] < 0 || v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("invalid roi %q (offsets must not be negative, sizes must be positive)", s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

// ScanOptions converts the scan section to backend options. Call Validate first.
func (c *Config) ScanOptions() barcode.Options {
	formats, _ := c.ParseFormats()
	roi, _ := ParseROI(c.Scan.ROI)
	return barcode.Options{
		Formats:      formats,
		Channel:      c.Scan.Channel,
		TryRotations: c.Scan.TryRotations,
		Multi:        c.Scan.Multi,
		ROI:          roi,
		RowStride:    c.Scan.RowStride,
		Workers:      c.Scan.RowWorkers,
	}
}

// ToPipelineConfig converts the config to the pipeline configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Scan = c.ScanOptions()
	cfg.Strict = c.Scan.Strict
	cfg.Parallel.MaxWorkers = c.Batch.Workers
	cfg.PDF = pdf.ProcessorConfig{
		Options:       cfg.Scan,
		Credentials:   c.PDFCredentials(),
		TargetDPI:     c.PDF.TargetDPI,
		MaxUpscaleDim: c.PDF.MaxUpscaleDim,
		MaxWorkers:    c.PDF.Workers,
	}
	return cfg
}

// PDFCredentials returns the configured PDF passwords, or nil when none are set.
func (c *Config) PDFCredentials() *pdf.PasswordCredentials {
	creds := &pdf.PasswordCredentials{UserPassword: c.PDF.UserPassword, OwnerPassword: c.PDF.OwnerPassword}
	if creds.Empty() {
		return nil
	}
	return creds
}
