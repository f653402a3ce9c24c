// Package server exposes the barcode scanner over HTTP and WebSocket.
package server

import (
	"context"
	"image"
	"net/http"
	"time"

	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// scanner is the part of a pipeline the handlers need.
type scanner interface {
	ProcessImageContext(ctx context.Context, img image.Image) (*pipeline.ImageResult, error)
	ProcessPDFWithCredentials(ctx context.Context, filename, pageRange string,
		creds *pdf.PasswordCredentials) (*pdf.DocumentResult, error)
	Info() map[string]any
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	scanner         scanner
	baseConfig      pipeline.Config
	build           func(pipeline.Config) (scanner, error)
	corsOrigin      string
	maxUploadMB     int64
	timeout         time.Duration
	overlayEnabled  bool
	overlayBoxColor string
	rateLimiter     *RateLimiter
	started         time.Time
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int64
	TimeoutSec      int
	PipelineConfig  pipeline.Config
	OverlayEnabled  bool
	OverlayBoxColor string
	RateLimit       RateLimitConfig
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Time     string            `json:"time"`
	UptimeMs int64             `json:"uptime_ms"`
	Memory   pipeline.MemStats `json:"memory"`
}

// InfoResponse is returned by GET /info.
type InfoResponse struct {
	Scanner map[string]any `json:"scanner"`
	Stats   map[string]any `json:"stats,omitempty"`
}

// ScanResponse wraps a single image result.
type ScanResponse struct {
	Success bool                  `json:"success"`
	Result  *pipeline.ImageResult `json:"result,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// PDFScanResponse wraps a PDF document result.
type PDFScanResponse struct {
	Success bool                `json:"success"`
	Result  *pdf.DocumentResult `json:"result,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// NewServer builds the scan pipeline and the server around it.
func NewServer(config Config) (*Server, error) {
	pl, err := buildScanner(config.PipelineConfig)
	if err != nil {
		return nil, err
	}

	s := &Server{
		scanner:         pl,
		baseConfig:      config.PipelineConfig,
		build:           buildScanner,
		corsOrigin:      config.CORSOrigin,
		maxUploadMB:     config.MaxUploadMB,
		timeout:         time.Duration(config.TimeoutSec) * time.Second,
		overlayEnabled:  config.OverlayEnabled,
		overlayBoxColor: config.OverlayBoxColor,
		started:         time.Now(),
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiterFromConfig(config.RateLimit)
	}
	return s, nil
}

func buildScanner(cfg pipeline.Config) (scanner, error) {
	pl, err := pipeline.NewBuilder().WithConfig(cfg).Build()
	if err != nil {
		return nil, err
	}
	return pl, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/info", s.corsMiddleware(s.infoHandler))
	mux.HandleFunc("/scan/image", s.corsMiddleware(s.rateLimitMiddleware(s.scanImageHandler)))
	mux.HandleFunc("/scan/pdf", s.corsMiddleware(s.rateLimitMiddleware(s.scanPDFHandler)))
	mux.HandleFunc("/scan/batch", s.corsMiddleware(s.rateLimitMiddleware(s.scanBatchHandler)))
	mux.HandleFunc("/ws/scan", s.rateLimitMiddleware(s.scanWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return loggingMiddleware(mux)
}

func (s *Server) maxUploadBytes() int64 { return s.maxUploadMB * 1024 * 1024 }

// requestContext bounds a scan by the configured request timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

// PruneRateLimits drops rate limit state for clients idle longer than maxIdle.
func (s *Server) PruneRateLimits(maxIdle time.Duration) int {
	if s.rateLimiter == nil {
		return 0
	}
	return s.rateLimiter.Prune(maxIdle)
}
