package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/pdf"
)

// pdfRequest is a parsed PDF upload stored in a temporary file.
type pdfRequest struct {
	path      string
	pageRange string
	creds     *pdf.PasswordCredentials
	config    *RequestConfig
}

// scanPDFHandler processes PDF scan requests.
func (s *Server) scanPDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := s.parsePDFRequest(w, r)
	if err != nil {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		return // error already written
	}
	defer func() { _ = os.Remove(req.path) }()

	sc, err := s.scannerForRequest(req.config)
	if err != nil {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Failed to create pipeline: %v", err), http.StatusInternalServerError)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	res, err := sc.ProcessPDFWithCredentials(ctx, req.path, req.pageRange, req.creds)
	duration := time.Since(start)
	if err != nil && (res == nil || !errors.Is(err, barcode.ErrNoBarcode)) {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		status := http.StatusInternalServerError
		if pdf.IsPasswordError(err) {
			status = http.StatusUnauthorized
		}
		s.writeErrorResponse(w, fmt.Sprintf("PDF scan failed: %v", err), status)
		return
	}

	scanRequestsTotal.WithLabelValues("pdf", "success").Inc()
	scanDuration.WithLabelValues("pdf").Observe(duration.Seconds())
	barcodesFound.WithLabelValues("pdf").Observe(float64(len(res.Barcodes())))

	if err != nil {
		writeJSON(w, http.StatusNotFound, PDFScanResponse{Success: false, Result: res, Error: err.Error()})
		return
	}
	if requestFormat(r) == formatText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, pdf.ToText(res))
		return
	}
	writeJSON(w, http.StatusOK, PDFScanResponse{Success: true, Result: res})
}

func (s *Server) parsePDFRequest(w http.ResponseWriter, r *http.Request) (*pdfRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())

	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		s.handleFormParseError(w, err)
		return nil, err
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		s.writeErrorResponse(w, "No PDF file provided", http.StatusBadRequest)
		return nil, err
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadBytes() {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return nil, errors.New("file too large")
	}
	uploadSizeBytes.Observe(float64(header.Size))

	path, err := writeTempPDF(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to store PDF data", http.StatusInternalServerError)
		return nil, err
	}

	reqConfig, err := parseRequestConfig(r.FormValue)
	if err != nil {
		_ = os.Remove(path)
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return nil, err
	}

	req := &pdfRequest{path: path, pageRange: r.FormValue("pages"), config: reqConfig}
	if user, owner := r.FormValue("password"), r.FormValue("owner_password"); user != "" || owner != "" {
		req.creds = &pdf.PasswordCredentials{UserPassword: user, OwnerPassword: owner}
	}
	return req, nil
}

// writeTempPDF copies an upload into a temporary file for the PDF reader.
func writeTempPDF(src io.Reader) (string, error) {
	f, err := os.CreateTemp("", "barscan_upload_*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (s *Server) handleFormParseError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}
	s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
}
