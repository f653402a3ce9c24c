package batch

import (
	"log/slog"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// saveOverlays reloads every scanned image and writes its overlay into
// config.OverlayDir. Failures are logged and do not fail the batch.
func saveOverlays(results []*pipeline.ImageResult, config *Config) {
	for _, res := range results {
		if res == nil || res.Path == "" {
			continue
		}
		img, _, err := utils.LoadImage(res.Path)
		if err != nil {
			slog.Warn("Overlay skipped", "file", res.Path, "error", err)
			continue
		}
		out, err := pipeline.SaveOverlay(config.OverlayDir, img, res, config.OverlayColor)
		if err != nil {
			slog.Warn("Overlay failed", "file", res.Path, "error", err)
			continue
		}
		slog.Debug("Overlay written", "file", out)
	}
}
