package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// RequestConfig holds per-request scan overrides. Nil fields keep the
// server's configured value.
type RequestConfig struct {
	Formats      []barcode.Format
	Channel      *int
	Multi        *bool
	TryRotations *bool
	ROI          image.Rectangle
}

func (rc *RequestConfig) empty() bool {
	return rc == nil || (len(rc.Formats) == 0 && rc.Channel == nil && rc.Multi == nil &&
		rc.TryRotations == nil && rc.ROI.Empty())
}

// parseRequestConfig reads overrides from a lookup such as r.FormValue.
func parseRequestConfig(get func(string) string) (*RequestConfig, error) {
	rc := &RequestConfig{}
	if v := get("formats"); v != "" {
		for _, name := range strings.Split(v, ",") {
			f, ok := barcode.ParseFormat(name)
			if !ok {
				return nil, fmt.Errorf("invalid barcode format: %s", name)
			}
			rc.Formats = append(rc.Formats, f)
		}
	}
	if v := get("channel"); v != "" {
		ch, err := strconv.Atoi(v)
		if err != nil || ch < utils.LuminanceChannel || ch > 3 {
			return nil, fmt.Errorf("invalid channel: %s", v)
		}
		rc.Channel = &ch
	}
	for key, dst := range map[string]**bool{"multi": &rc.Multi, "rotations": &rc.TryRotations} {
		v := get(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %s", key, v)
		}
		*dst = &b
	}
	roi, err := config.ParseROI(get("roi"))
	if err != nil {
		return nil, err
	}
	rc.ROI = roi
	return rc, nil
}

// scannerForRequest returns the shared scanner, or a new one when the request
// overrides scan settings.
func (s *Server) scannerForRequest(rc *RequestConfig) (scanner, error) {
	if rc.empty() {
		if s.scanner == nil {
			return nil, errors.New("scan pipeline not initialized")
		}
		return s.scanner, nil
	}
	cfg := s.baseConfig
	if len(rc.Formats) > 0 {
		cfg.Scan.Formats = rc.Formats
	}
	if rc.Channel != nil {
		cfg.Scan.Channel = *rc.Channel
	}
	if rc.Multi != nil {
		cfg.Scan.Multi = *rc.Multi
	}
	if rc.TryRotations != nil {
		cfg.Scan.TryRotations = *rc.TryRotations
	}
	if !rc.ROI.Empty() {
		cfg.Scan.ROI = rc.ROI
	}
	build := s.build
	if build == nil {
		build = buildScanner
	}
	return build(cfg)
}

// scanImageHandler processes image scan requests.
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, reqConfig, err := s.parseImageRequest(w, r)
	if err != nil {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		return // error already written
	}

	sc, err := s.scannerForRequest(reqConfig)
	if err != nil {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Failed to create pipeline: %v", err), http.StatusInternalServerError)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	res, err := sc.ProcessImageContext(ctx, img)
	duration := time.Since(start)
	if err == nil && res == nil {
		err = errors.New("empty scan result")
	}
	if err != nil && (res == nil || !errors.Is(err, barcode.ErrNoBarcode)) {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Scan failed: %v", err), scanErrorStatus(err))
		return
	}

	scanRequestsTotal.WithLabelValues("image", "success").Inc()
	scanDuration.WithLabelValues("image").Observe(duration.Seconds())
	barcodesFound.WithLabelValues("image").Observe(float64(len(res.Barcodes)))

	if err != nil {
		// strict scanning: an empty image is a miss, not a server failure
		writeJSON(w, http.StatusNotFound, ScanResponse{Success: false, Result: res, Error: err.Error()})
		return
	}
	s.writeImageResponse(w, r, img, res)
}

func scanErrorStatus(err error) int {
	var ipe *utils.ImageProcessingError
	switch {
	case errors.As(err, &ipe):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) parseImageRequest(w http.ResponseWriter, r *http.Request) (image.Image, *RequestConfig, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())

	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		s.handleFormParseError(w, err)
		return nil, nil, err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return nil, nil, err
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadBytes() {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return nil, nil, errors.New("file too large")
	}
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return nil, nil, err
	}

	img, _, err := utils.DecodeImageBytes(data)
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return nil, nil, err
	}

	reqConfig, err := parseRequestConfig(r.FormValue)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return nil, nil, err
	}
	return img, reqConfig, nil
}

func (s *Server) writeImageResponse(w http.ResponseWriter, r *http.Request, img image.Image,
	res *pipeline.ImageResult,
) {
	switch requestFormat(r) {
	case formatCSV:
		s.writeFormatted(w, "text/csv", pipeline.ToCSVImage, res)
	case formatText:
		s.writeFormatted(w, "text/plain; charset=utf-8", pipeline.ToPlainTextImage, res)
	case formatOverlay:
		s.handleOverlayOutput(w, r, img, res)
	default:
		writeJSON(w, http.StatusOK, ScanResponse{Success: true, Result: res})
	}
}

func (s *Server) writeFormatted(w http.ResponseWriter, contentType string,
	format func(*pipeline.ImageResult) (string, error), res *pipeline.ImageResult,
) {
	out, err := format(res)
	if err != nil {
		http.Error(w, fmt.Sprintf("formatting failed: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = io.WriteString(w, out)
}

// handleOverlayOutput renders the result boxes over the upload as a PNG.
func (s *Server) handleOverlayOutput(w http.ResponseWriter, r *http.Request, img image.Image,
	res *pipeline.ImageResult,
) {
	if !s.overlayEnabled {
		http.Error(w, "overlay output disabled", http.StatusForbidden)
		return
	}

	boxCol := pipeline.DefaultBoxColor
	for _, candidate := range []string{r.FormValue("box"), s.overlayBoxColor} {
		if c, err := pipeline.ParseColor(candidate); err == nil {
			boxCol = c
			break
		}
	}

	w.Header().Set("Content-Type", "image/png")
	_ = png.Encode(w, pipeline.RenderOverlay(img, res, boxCol))
}
