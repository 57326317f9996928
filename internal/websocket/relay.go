package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fluently-backend/internal/gateway"
	"fluently-backend/internal/models"
	"fluently-backend/internal/prompts"
	"fluently-backend/internal/transport"
)

const (
	FrameDelta = "delta"
	FrameDone  = "done"
	FrameError = "error"
)

type completionStreamer interface {
	StreamCompletion(ctx context.Context, mode string, messages []models.ChatMessage) (*http.Response, error)
}

type usageRecorder interface {
	Record(ctx context.Context, usage models.ChatUsage)
}

// Relay serves the chat proxy over WebSocket. Each inbound text frame is a
// {messages, mode} request answered with delta frames and a final done or
// error frame. Requests on one connection are handled one at a time.
type Relay struct {
	mu          sync.Mutex
	connections map[uuid.UUID]*websocket.Conn
	gateway     completionStreamer
	recorder    usageRecorder
	upgrader    websocket.Upgrader
}

// NewRelay builds a relay. Browser handshakes must come from allowedOrigin
// unless it is "*"; clients that send no Origin header are accepted.
func NewRelay(gw completionStreamer, recorder usageRecorder, allowedOrigin string) *Relay {
	return &Relay{
		connections: make(map[uuid.UUID]*websocket.Conn),
		gateway:     gw,
		recorder:    recorder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
	}
}

func originChecker(allowedOrigin string) func(r *http.Request) bool {
	allowed := strings.TrimRight(allowedOrigin, "/")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowed == "*" || origin == "" {
			return true
		}
		return strings.EqualFold(strings.TrimRight(origin, "/"), allowed)
	}
}

func (h *Relay) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	id := h.registerConnection(conn)
	defer h.unregisterConnection(id, conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req models.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			frame := models.RelayFrame{Type: FrameError, Status: http.StatusBadRequest, Error: "invalid request frame"}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
			continue
		}

		if err := h.serve(ctx, conn, req); err != nil {
			log.Printf("WebSocket relay: connection %s: %v", id, err)
			return
		}
	}
}

// serve answers one request. The returned error is a connection write
// failure; upstream failures are reported to the client as error frames.
func (h *Relay) serve(parent context.Context, conn *websocket.Conn, req models.ChatRequest) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	start := time.Now()
	status := http.StatusOK
	defer func() {
		if h.recorder == nil {
			return
		}
		h.recorder.Record(context.WithoutCancel(ctx), models.ChatUsage{
			ID:           uuid.New(),
			Mode:         prompts.Normalize(req.Mode),
			MessageCount: len(req.Messages),
			Status:       status,
			DurationMs:   time.Since(start).Milliseconds(),
			CreatedAt:    start.UTC(),
		})
	}()

	resp, err := h.gateway.StreamCompletion(ctx, req.Mode, req.Messages)
	if err != nil {
		var message string
		status, message = gateway.ClientError(err)
		log.Printf("WebSocket relay: gateway error: %v", err)
		return conn.WriteJSON(models.RelayFrame{Type: FrameError, Status: status, Error: message})
	}
	defer resp.Body.Close()

	var writeErr error
	err = transport.ReadDeltas(resp.Body, func(delta string) {
		if writeErr != nil {
			return
		}
		if writeErr = conn.WriteJSON(models.RelayFrame{Type: FrameDelta, Content: delta}); writeErr != nil {
			cancel()
		}
	})
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		status = http.StatusBadGateway
		return conn.WriteJSON(models.RelayFrame{Type: FrameError, Status: status, Error: err.Error()})
	}
	return conn.WriteJSON(models.RelayFrame{Type: FrameDone})
}

func (h *Relay) registerConnection(conn *websocket.Conn) uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New()
	h.connections[id] = conn
	log.Printf("WebSocket connected: %s (total: %d)", id, len(h.connections))
	return id
}

func (h *Relay) unregisterConnection(id uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()
	delete(h.connections, id)
	log.Printf("WebSocket disconnected: %s", id)
}

// ActiveConnections reports the number of open relay connections.
func (h *Relay) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}

// Close sends a going-away frame to every open connection and closes it.
// http.Server.Shutdown does not track hijacked connections.
func (h *Relay) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for id, conn := range h.connections {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		conn.Close()
		delete(h.connections, id)
	}
}
