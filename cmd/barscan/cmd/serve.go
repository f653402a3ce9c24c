package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/server"
	"github.com/spf13/cobra"
)

const rateLimitPruneInterval = 10 * time.Minute

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP barcode scanning server",
	Long: `Start an HTTP server exposing the scanner over REST and WebSocket.

Endpoints:
  POST /scan/image - Scan an uploaded image
  POST /scan/pdf   - Scan an uploaded PDF
  POST /scan/batch - Scan several base64 images and PDFs
  GET  /ws/scan    - WebSocket scanning
  GET  /health     - Health check
  GET  /info       - Scanner configuration and statistics
  GET  /metrics    - Prometheus metrics

Examples:
  barscan serve
  barscan serve --host 0.0.0.0 --port 3000
  barscan serve --rate-limit --overlay-enabled`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addScanFlags(serveCmd)

	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-mb", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Bool("overlay-enabled", false, "allow overlay image responses")
	serveCmd.Flags().String("overlay-box-color", "#FF0000", "overlay box color (hex)")
	serveCmd.Flags().Bool("rate-limit", false, "enable per-client rate limiting")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()
	sc := serverConfig(cfg)

	srv, err := server.NewServer(sc)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	timeout := time.Duration(sc.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port)),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if sc.RateLimit.Enabled {
		go pruneRateLimits(ctx, srv)
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting barcode server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	grace := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	slog.Info("Starting graceful shutdown", "timeout", grace)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("Graceful shutdown completed")
	return nil
}

// serverConfig maps the resolved configuration onto the server.
func serverConfig(cfg *config.Config) server.Config {
	rl := cfg.Server.RateLimit
	return server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		CORSOrigin:      cfg.Server.CORSOrigin,
		MaxUploadMB:     int64(cfg.Server.MaxUploadMB),
		TimeoutSec:      cfg.Server.TimeoutSec,
		PipelineConfig:  cfg.ToPipelineConfig(),
		OverlayEnabled:  cfg.Server.OverlayEnabled,
		OverlayBoxColor: cfg.Output.OverlayBoxColor,
		RateLimit: server.RateLimitConfig{
			Enabled:           rl.Enabled,
			RequestsPerMinute: rl.RequestsPerMinute,
			RequestsPerHour:   rl.RequestsPerHour,
			MaxRequestsPerDay: rl.MaxRequestsPerDay,
			MaxDataPerDay:     int64(rl.MaxDataPerDayMB) * 1024 * 1024,
		},
	}
}

// pruneRateLimits drops idle clients from the limiter until ctx ends.
func pruneRateLimits(ctx context.Context, srv *server.Server) {
	ticker := time.NewTicker(rateLimitPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := srv.PruneRateLimits(24 * time.Hour); n > 0 {
				slog.Debug("Pruned idle rate limit clients", "count", n)
			}
		}
	}
}
