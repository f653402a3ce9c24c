package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/barscan/internal/pipeline"
	"github.com/MeKo-Tech/barscan/internal/version"
)

const (
	formatJSON    = "json"
	formatText    = "text"
	formatCSV     = "csv"
	formatOverlay = "overlay"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Memory:  pipeline.GetMemStats(),
	}
	if !s.started.IsZero() {
		response.UptimeMs = time.Since(s.started).Milliseconds()
	}
	writeJSON(w, http.StatusOK, response)
}

// statsProvider is implemented by scanners that keep counters.
type statsProvider interface {
	Stats() map[string]any
}

// infoHandler reports the scanner settings and cumulative counters.
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.scanner == nil {
		s.writeErrorResponse(w, "scan pipeline not initialized", http.StatusServiceUnavailable)
		return
	}
	resp := InfoResponse{Scanner: s.scanner.Info()}
	if sp, ok := s.scanner.(statsProvider); ok {
		resp.Stats = sp.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

// requestFormat reads the output format from the form or the query string.
func requestFormat(r *http.Request) string {
	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}
	if r.FormValue("overlay") == "1" {
		return formatOverlay
	}
	return strings.ToLower(format)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ScanResponse{Success: false, Error: message})
}
