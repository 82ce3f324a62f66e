package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/silkgen/internal/export"
	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/MeKo-Tech/silkgen/internal/utils"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsMaxProgress  = 100 * time.Millisecond
)

// Message types sent to WebSocket clients.
const (
	wsTypeProgress  = "progress"
	wsTypeCompleted = "completed"
	wsTypeError     = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketRequest is a conversion request. Image holds the encoded file,
// base64 in JSON.
type WebSocketRequest struct {
	Image    []byte           `json:"image"`
	Filename string           `json:"filename,omitempty"`
	Options  FootprintOptions `json:"options"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketResponse is one message of a conversion exchange.
type WebSocketResponse struct {
	Type      string           `json:"type"`
	RequestID string           `json:"request_id,omitempty"`
	Progress  float64          `json:"progress,omitempty"`
	Current   int              `json:"current,omitempty"`
	Total     int              `json:"total,omitempty"`
	Result    *WebSocketResult `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	ErrorType string           `json:"error_type,omitempty"`
}

// WebSocketResult carries the encoded footprint.
type WebSocketResult struct {
	Name    string         `json:"name"`
	Format  export.Format  `json:"format"`
	Content string         `json:"content"`
	Stats   pipeline.Stats `json:"stats"`
}

// footprintWebSocketHandler handles WebSocket connections for streamed conversions.
func (s *Server) footprintWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection serves requests until the client goes away.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024 * 2)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage converts one request and streams its progress.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("failed to parse request: %v", err))
		return
	}

	requestID := uuid.NewString()
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "no image data provided")
		return
	}

	img, meta, err := utils.DecodeImageBytes(req.Image, s.constraints.Check)
	if err != nil {
		code := "invalid_request"
		if errors.Is(err, utils.ErrImageTooLarge) {
			code = "image_too_large"
		}
		s.sendWebSocketError(conn, requestID, code, fmt.Sprintf("failed to decode image: %v", err))
		return
	}
	slog.Debug("Decoded WebSocket image", "request_id", requestID, "format", meta.Format, "width", meta.Width, "height", meta.Height)
	cfg, format, err := s.resolve(req.Options)
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_request", err.Error())
		return
	}

	s.sendWebSocketResponse(conn, WebSocketResponse{Type: wsTypeProgress, RequestID: requestID})

	progress := pipeline.NewThrottledProgressCallback(&wsProgress{
		conn:      conn,
		server:    s,
		requestID: requestID,
	}, wsMaxProgress)

	res, err := s.convert(ctx, "websocket", img, cfg, progress)
	if err != nil {
		s.sendWebSocketError(conn, requestID, "processing_error", err.Error())
		return
	}

	name := footprintName(req.Options.Name, req.Filename)
	var content strings.Builder
	if err := export.Write(&content, format, name, res, cfg, idSource(name, req.Options.RandomIDs)); err != nil {
		s.sendWebSocketError(conn, requestID, "processing_error", err.Error())
		return
	}

	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      wsTypeCompleted,
		RequestID: requestID,
		Progress:  1.0,
		Result: &WebSocketResult{
			Name:    name,
			Format:  format,
			Content: content.String(),
			Stats:   res.Stats,
		},
	})
}

// wsProgress forwards row progress of a conversion to the client.
type wsProgress struct {
	pipeline.NoOpProgressCallback
	mu        sync.Mutex
	conn      WebSocketConnWriter
	server    *Server
	requestID string
}

func (p *wsProgress) OnProgress(current, total int) {
	if total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.server.sendWebSocketResponse(p.conn, WebSocketResponse{
		Type:      wsTypeProgress,
		RequestID: p.requestID,
		Progress:  float64(current) / float64(total),
		Current:   current,
		Total:     total,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketResponse) {
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

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketResponse{
		Type:      wsTypeError,
		RequestID: requestID,
		Error:     message,
		ErrorType: errorType,
	})
}
