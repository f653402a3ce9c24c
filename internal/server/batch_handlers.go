package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

const maxBatchItems = 10

// BatchScanRequest is the JSON body of POST /scan/batch. Item data is base64
// encoded.
type BatchScanRequest struct {
	Images  []BatchImageRequest `json:"images,omitempty"`
	PDFs    []BatchPDFRequest   `json:"pdfs,omitempty"`
	Options map[string]string   `json:"options,omitempty"`
}

// BatchImageRequest represents a single image in a batch request.
type BatchImageRequest struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// BatchPDFRequest represents a single PDF in a batch request.
type BatchPDFRequest struct {
	Name     string `json:"name"`
	Data     []byte `json:"data"`
	Pages    string `json:"pages,omitempty"`
	Password string `json:"password,omitempty"`
}

// BatchScanResponse is the response for batch scanning.
type BatchScanResponse struct {
	Success bool                   `json:"success"`
	Results []BatchScanResult      `json:"results,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Summary BatchProcessingSummary `json:"summary"`
}

// BatchScanResult is the outcome for one item.
type BatchScanResult struct {
	Type     string  `json:"type"` // "image" or "pdf"
	Name     string  `json:"name"`
	Success  bool    `json:"success"`
	Barcodes int     `json:"barcodes"`
	Result   any     `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
	Duration float64 `json:"duration_seconds"`
}

// BatchProcessingSummary provides summary statistics for batch processing.
type BatchProcessingSummary struct {
	TotalItems    int     `json:"total_items"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	BarcodesFound int     `json:"barcodes_found"`
	TotalDuration float64 `json:"total_duration_seconds"`
	AvgItemTime   float64 `json:"avg_item_time_seconds"`
}

// scanBatchHandler scans several uploaded images and PDFs in one request.
func (s *Server) scanBatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	var req BatchScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Failed to parse JSON request: %v", err), http.StatusBadRequest)
		return
	}

	total := len(req.Images) + len(req.PDFs)
	if total == 0 {
		s.writeErrorResponse(w, "No images or PDFs provided in batch request", http.StatusBadRequest)
		return
	}
	if total > maxBatchItems {
		s.writeErrorResponse(w, fmt.Sprintf("Batch size too large (maximum %d items)", maxBatchItems),
			http.StatusBadRequest)
		return
	}

	rc, err := parseRequestConfig(func(key string) string { return req.Options[key] })
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	sc, err := s.scannerForRequest(rc)
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Failed to create pipeline: %v", err), http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	results, summary := s.processBatchRequest(ctx, sc, req)
	elapsed := time.Since(start)

	summary.TotalDuration = elapsed.Seconds()
	summary.AvgItemTime = summary.TotalDuration / float64(summary.TotalItems)

	scanRequestsTotal.WithLabelValues("batch", "success").Inc()
	scanDuration.WithLabelValues("batch").Observe(elapsed.Seconds())
	barcodesFound.WithLabelValues("batch").Observe(float64(summary.BarcodesFound))

	writeJSON(w, http.StatusOK, BatchScanResponse{
		Success: summary.Failed == 0,
		Results: results,
		Summary: summary,
	})
}

func (s *Server) processBatchRequest(ctx context.Context, sc scanner,
	req BatchScanRequest,
) ([]BatchScanResult, BatchProcessingSummary) {
	results := make([]BatchScanResult, 0, len(req.Images)+len(req.PDFs))
	summary := BatchProcessingSummary{TotalItems: len(req.Images) + len(req.PDFs)}

	record := func(res BatchScanResult) {
		results = append(results, res)
		if res.Success {
			summary.Successful++
			summary.BarcodesFound += res.Barcodes
		} else {
			summary.Failed++
		}
	}
	for _, item := range req.Images {
		record(processBatchImage(ctx, sc, item))
	}
	for _, item := range req.PDFs {
		record(processBatchPDF(ctx, sc, item))
	}
	return results, summary
}

func processBatchImage(ctx context.Context, sc scanner, item BatchImageRequest) BatchScanResult {
	result := BatchScanResult{Type: "image", Name: item.Name}
	if len(item.Data) == 0 {
		result.Error = "No image data provided"
		return result
	}
	img, _, err := utils.DecodeImageBytes(item.Data)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to decode image: %v", err)
		return result
	}

	start := time.Now()
	res, err := sc.ProcessImageContext(ctx, img)
	result.Duration = time.Since(start).Seconds()
	if err != nil && (res == nil || !errors.Is(err, barcode.ErrNoBarcode)) {
		result.Error = fmt.Sprintf("Scan failed: %v", err)
		return result
	}
	res.Path = item.Name
	result.Success = true
	result.Barcodes = len(res.Barcodes)
	result.Result = res
	return result
}

func processBatchPDF(ctx context.Context, sc scanner, item BatchPDFRequest) BatchScanResult {
	result := BatchScanResult{Type: "pdf", Name: item.Name}
	if len(item.Data) == 0 {
		result.Error = "No PDF data provided"
		return result
	}
	path, err := writeTempPDF(bytes.NewReader(item.Data))
	if err != nil {
		result.Error = fmt.Sprintf("Failed to store PDF data: %v", err)
		return result
	}
	defer func() { _ = os.Remove(path) }()

	var creds *pdf.PasswordCredentials
	if item.Password != "" {
		creds = &pdf.PasswordCredentials{UserPassword: item.Password}
	}

	start := time.Now()
	res, err := sc.ProcessPDFWithCredentials(ctx, path, item.Pages, creds)
	result.Duration = time.Since(start).Seconds()
	if err != nil && (res == nil || !errors.Is(err, barcode.ErrNoBarcode)) {
		result.Error = fmt.Sprintf("PDF scan failed: %v", err)
		return result
	}
	res.Filename = item.Name
	result.Success = true
	result.Barcodes = len(res.Barcodes())
	result.Result = res
	return result
}
