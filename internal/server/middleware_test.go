package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	_, _ = w.Write([]byte("ok"))
}

func TestCORSMiddleware(t *testing.T) {
	server := newTestServer(&mockScanner{})
	server.corsOrigin = "https://shop.example"
	handler := server.corsMiddleware(okHandler)

	t.Run("preflight", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodOptions, "/scan/image", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Equal(t, "ok", w.Body.String())
		assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestLoggingMiddleware(t *testing.T) {
	handler := loggingMiddleware(http.HandlerFunc(okHandler))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusCreated)
	n, err := rw.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.Equal(t, 5, rw.bytes)
	assert.Equal(t, http.StatusCreated, rw.statusCode)

	_, _, err = rw.Hijack()
	assert.Error(t, err)
}

func TestRateLimitMiddleware(t *testing.T) {
	server := newTestServer(&mockScanner{})
	server.rateLimiter = NewRateLimiter(2, 0, 0, 0)
	handler := server.rateLimitMiddleware(okHandler)

	request := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/scan/image", nil)
		req.Header.Set("X-Forwarded-For", ip)
		w := httptest.NewRecorder()
		handler(w, req)
		return w
	}

	assert.Equal(t, http.StatusTeapot, request("10.0.0.1").Code)
	assert.Equal(t, http.StatusTeapot, request("10.0.0.1").Code)

	w := request("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "minute", w.Header().Get("X-RateLimit-Type"))
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body["error"])

	assert.Equal(t, http.StatusTeapot, request("10.0.0.2").Code)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	server := newTestServer(&mockScanner{})
	handler := server.rateLimitMiddleware(okHandler)
	for range 5 {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodPost, "/scan/image", nil))
		assert.Equal(t, http.StatusTeapot, w.Code)
	}
}

func TestHandleRateLimitError(t *testing.T) {
	server := newTestServer(&mockScanner{})

	t.Run("quota", func(t *testing.T) {
		w := httptest.NewRecorder()
		resets := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
		server.handleRateLimitError(w, &QuotaExceededError{Type: "data", Limit: 100, Used: 90, Resets: resets})

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "data", w.Header().Get("X-Quota-Type"))
		assert.Equal(t, "100", w.Header().Get("X-Quota-Limit"))
		assert.Equal(t, "90", w.Header().Get("X-Quota-Used"))
		assert.Equal(t, resets.Format(http.TimeFormat), w.Header().Get("X-Quota-Resets"))
		assert.Contains(t, w.Body.String(), "quota_exceeded")
	})

	t.Run("other", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.handleRateLimitError(w, errors.New("store offline"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "internal_error")
	})
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "5.6.7.8:1234", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 9.9.9.9 "}, "5.6.7.8:1234", "9.9.9.9"},
		{"remote addr", nil, "5.6.7.8:1234", "5.6.7.8"},
		{"remote addr without port", nil, "5.6.7.8", "5.6.7.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
