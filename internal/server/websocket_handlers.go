package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/MeKo-Tech/barscan/internal/barcode"
	"github.com/MeKo-Tech/barscan/internal/pdf"
	"github.com/MeKo-Tech/barscan/internal/utils"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebSocketScanRequest is one scan job sent by a client. Image and PDF data
// travel base64 encoded in JSON.
type WebSocketScanRequest struct {
	Type      string            `json:"type"` // "image" or "pdf"
	Image     []byte            `json:"image,omitempty"`
	PDF       []byte            `json:"pdf,omitempty"`
	Pages     string            `json:"pages,omitempty"`
	Password  string            `json:"password,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
}

// WebSocketScanResponse reports progress and results for a request.
type WebSocketScanResponse struct {
	Type      string  `json:"type"`
	Status    string  `json:"status"` // "processing", "completed", "error"
	Progress  float64 `json:"progress,omitempty"`
	Result    any     `json:"result,omitempty"`
	Error     string  `json:"error,omitempty"`
	ErrorType string  `json:"error_type,omitempty"`
	RequestID string  `json:"request_id,omitempty"`
}

// WebSocketConnWriter is the write side of a WebSocket connection.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// lockedWriter serializes writes from the reader loop and the pinger.
type lockedWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (l *lockedWriter) WriteMessage(messageType int, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return l.conn.WriteMessage(messageType, data)
}

func (l *lockedWriter) ping() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// scanWebSocketHandler upgrades the connection and serves scan requests until
// the client disconnects.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(s.maxUploadBytes() * 2)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	out := &lockedWriter{conn: conn}
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := out.ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket closed", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, out, data)
		}
	}
}

// handleWebSocketMessage decodes and runs one scan request.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketScanRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if req.RequestID == "" {
		req.RequestID = strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	switch req.Type {
	case "image":
		s.processWebSocketImage(ctx, conn, req)
	case "pdf":
		s.processWebSocketPDF(ctx, conn, req)
	default:
		s.sendWebSocketError(conn, req.RequestID, "invalid_request", "Unsupported request type: "+req.Type)
	}
}

func (s *Server) webSocketScanner(req WebSocketScanRequest) (scanner, error) {
	rc, err := parseRequestConfig(func(key string) string { return req.Options[key] })
	if err != nil {
		return nil, err
	}
	return s.scannerForRequest(rc)
}

func (s *Server) processWebSocketImage(ctx context.Context, conn WebSocketConnWriter, req WebSocketScanRequest) {
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, req.RequestID, "invalid_request", "No image data provided")
		return
	}
	img, _, err := utils.DecodeImageBytes(req.Image)
	if err != nil {
		s.sendWebSocketError(conn, req.RequestID, "invalid_request", fmt.Sprintf("Failed to decode image: %v", err))
		return
	}
	sc, err := s.webSocketScanner(req)
	if err != nil {
		s.sendWebSocketError(conn, req.RequestID, "invalid_request", err.Error())
		return
	}

	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type: "scan_response", Status: "processing", Progress: 0.1, RequestID: req.RequestID,
	})

	start := time.Now()
	res, err := sc.ProcessImageContext(ctx, img)
	if err != nil && (res == nil || !errors.Is(err, barcode.ErrNoBarcode)) {
		scanRequestsTotal.WithLabelValues("websocket_image", "error").Inc()
		s.sendWebSocketError(conn, req.RequestID, "processing_error", fmt.Sprintf("Scan failed: %v", err))
		return
	}
	scanRequestsTotal.WithLabelValues("websocket_image", "success").Inc()
	scanDuration.WithLabelValues("websocket_image").Observe(time.Since(start).Seconds())
	barcodesFound.WithLabelValues("websocket_image").Observe(float64(len(res.Barcodes)))

	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type: "scan_response", Status: "completed", Progress: 1, Result: res, RequestID: req.RequestID,
	})
}

func (s *Server) processWebSocketPDF(ctx context.Context, conn WebSocketConnWriter, req WebSocketScanRequest) {
	if len(req.PDF) == 0 {
		s.sendWebSocketError(conn, req.RequestID, "invalid_request", "No PDF data provided")
		return
	}
	sc, err := s.webSocketScanner(req)
	if err != nil {
		s.sendWebSocketError(conn, req.RequestID, "invalid_request", err.Error())
		return
	}
	path, err := writeTempPDF(bytes.NewReader(req.PDF))
	if err != nil {
		s.sendWebSocketError(conn, req.RequestID, "processing_error", fmt.Sprintf("Failed to store PDF: %v", err))
		return
	}
	defer func() { _ = os.Remove(path) }()

	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type: "scan_response", Status: "processing", Progress: 0.1, RequestID: req.RequestID,
	})

	var creds *pdf.PasswordCredentials
	if req.Password != "" {
		creds = &pdf.PasswordCredentials{UserPassword: req.Password}
	}

	start := time.Now()
	res, err := sc.ProcessPDFWithCredentials(ctx, path, req.Pages, creds)
	if err != nil && (res == nil || !errors.Is(err, barcode.ErrNoBarcode)) {
		scanRequestsTotal.WithLabelValues("websocket_pdf", "error").Inc()
		s.sendWebSocketError(conn, req.RequestID, "processing_error", fmt.Sprintf("PDF scan failed: %v", err))
		return
	}
	scanRequestsTotal.WithLabelValues("websocket_pdf", "success").Inc()
	scanDuration.WithLabelValues("websocket_pdf").Observe(time.Since(start).Seconds())
	barcodesFound.WithLabelValues("websocket_pdf").Observe(float64(len(res.Barcodes())))

	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type: "scan_response", Status: "completed", Progress: 1, Result: res, RequestID: req.RequestID,
	})
}

func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketScanResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketScanResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
