package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/testutil"
	"github.com/MeKo-Tech/barscan/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_HealthHandler(t *testing.T) {
	server := newTestServer(&mockScanner{})

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{"GET request success", http.MethodGet, http.StatusOK},
		{"POST request not allowed", http.MethodPost, http.StatusMethodNotAllowed},
		{"PUT request not allowed", http.MethodPut, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			w := httptest.NewRecorder()

			server.healthHandler(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var response HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "healthy", response.Status)
			assert.Equal(t, version.Version, response.Version)
			assert.NotEmpty(t, response.Time)
			assert.Positive(t, response.Memory.Goroutines)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestServer_InfoHandler(t *testing.T) {
	server := newTestServer(&mockScanner{})

	w := httptest.NewRecorder()
	server.infoHandler(w, httptest.NewRequest(http.MethodGet, "/info", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp InfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, -1, resp.Scanner["channel"], 0)
	assert.Contains(t, resp.Stats, "images")

	w = httptest.NewRecorder()
	(&Server{}).infoHandler(w, httptest.NewRequest(http.MethodGet, "/info", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequestFormat(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"/scan/image", ""},
		{"/scan/image?format=CSV", "csv"},
		{"/scan/image?format=text", "text"},
		{"/scan/image?overlay=1", "overlay"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.url, nil)
		assert.Equal(t, tt.want, requestFormat(req), tt.url)
	}
}

func TestNewServer_RealPipeline(t *testing.T) {
	srv, err := NewServer(Config{PipelineConfig: pipeline.DefaultConfig(), TimeoutSec: 10})
	require.NoError(t, err)
	assert.Equal(t, "*", srv.corsOrigin)
	assert.EqualValues(t, 50, srv.maxUploadMB)
	assert.Nil(t, srv.rateLimiter)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	img := testutil.BarcodeImage(t, "400638133393")
	req := multipartRequest(t, ts.URL+"/scan/image", "image", "code.png", encodePNG(t, img), nil)
	req.RequestURI = ""
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ScanResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Success)
	require.Len(t, body.Result.Barcodes, 1)
	assert.Equal(t, "4006381333931", body.Result.Barcodes[0].Value)
	assert.Equal(t, pipeline.Box{X: 33, Y: 12, W: 285, H: 109}, body.Result.Barcodes[0].Box)

	metrics, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = metrics.Body.Close() }()
	data, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "barscan_scan_requests_total"))
}

func TestNewServer_InvalidPipeline(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.Scan.Channel = 9
	_, err := NewServer(Config{PipelineConfig: cfg})
	require.Error(t, err)
}

func TestNewServer_RateLimitEnabled(t *testing.T) {
	srv, err := NewServer(Config{
		PipelineConfig: pipeline.DefaultConfig(),
		RateLimit:      RateLimitConfig{Enabled: true, RequestsPerMinute: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, srv.rateLimiter)
	assert.Equal(t, 0, srv.PruneRateLimits(0))
}
