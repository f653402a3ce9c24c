package server

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/stretchr/testify/require"
)

// mockScanner returns canned results and records the last call.
type mockScanner struct {
	imageResult *pipeline.ImageResult
	imageErr    error
	pdfResult   *pdf.DocumentResult
	pdfErr      error

	mu        sync.Mutex
	lastPages string
	lastCreds *pdf.PasswordCredentials
	lastPDF   []byte
	images    int
}

func (m *mockScanner) ProcessImageContext(_ context.Context, img image.Image) (*pipeline.ImageResult, error) {
	m.mu.Lock()
	m.images++
	m.mu.Unlock()
	if m.imageResult == nil {
		return nil, m.imageErr
	}
	res := *m.imageResult
	res.Width, res.Height = img.Bounds().Dx(), img.Bounds().Dy()
	return &res, m.imageErr
}

func (m *mockScanner) ProcessPDFWithCredentials(_ context.Context, filename, pageRange string,
	creds *pdf.PasswordCredentials,
) (*pdf.DocumentResult, error) {
	data, _ := os.ReadFile(filename) //nolint:gosec // temp file written by the handler
	m.mu.Lock()
	m.lastPages, m.lastCreds, m.lastPDF = pageRange, creds, data
	m.mu.Unlock()
	if m.pdfResult == nil {
		return nil, m.pdfErr
	}
	res := *m.pdfResult
	return &res, m.pdfErr
}

func (m *mockScanner) Info() map[string]any { return map[string]any{"channel": -1} }

func (m *mockScanner) Stats() map[string]any { return map[string]any{"images": m.images} }

func sampleImageResult() *pipeline.ImageResult {
	return &pipeline.ImageResult{
		Barcodes: []pipeline.BarcodeResult{{
			Type:       "ean13",
			Value:      "4006381333931",
			Confidence: 1,
			Box:        pipeline.Box{X: 33, Y: 12, W: 285, H: 109},
			Rows:       10,
		}},
	}
}

func sampleDocument() *pdf.DocumentResult {
	return &pdf.DocumentResult{
		Filename:   "upload.pdf",
		TotalPages: 1,
		Pages: []pdf.PageResult{{
			PageNumber: 1, Width: 595, Height: 842,
			Images: []pdf.ImageResult{{
				ImageIndex: 0, Width: 351, Height: 140,
				Barcodes: []pdf.Barcode{{Type: "ean13", Value: "4006381333931", Confidence: 1,
					Box: pdf.Box{X: 33, Y: 12, W: 285, H: 109}}},
			}},
		}},
		Processing: pdf.ProcessingInfo{TotalTimeMs: 4},
	}
}

func newTestServer(sc scanner) *Server {
	return &Server{
		scanner:        sc,
		baseConfig:     pipeline.DefaultConfig(),
		build:          func(pipeline.Config) (scanner, error) { return sc, nil },
		corsOrigin:     "*",
		maxUploadMB:    1,
		timeout:        5 * time.Second,
		overlayEnabled: true,
		started:        time.Now(),
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartRequest builds a POST with one file part and extra fields.
func multipartRequest(t *testing.T, target, field, filename string, data []byte,
	fields map[string]string,
) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
