package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"fluently-backend/internal/gateway"
	"fluently-backend/internal/models"
	"fluently-backend/internal/prompts"
)

// completionStreamer starts a streaming completion upstream.
type completionStreamer interface {
	StreamCompletion(ctx context.Context, mode string, messages []models.ChatMessage) (*http.Response, error)
}

// UsageRecorder receives one record per proxied request.
type UsageRecorder interface {
	Record(ctx context.Context, usage models.ChatUsage)
}

// NopRecorder drops usage records.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, models.ChatUsage) {}

type ChatHandler struct {
	gateway  completionStreamer
	recorder UsageRecorder
}

func NewChatHandler(gw completionStreamer, recorder UsageRecorder) *ChatHandler {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &ChatHandler{gateway: gw, recorder: recorder}
}

// Stream forwards {messages, mode} to the AI gateway and pipes the event
// stream back unchanged.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("chat error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp(fmt.Sprintf("invalid request body: %v", err), r))
		return
	}

	mode := prompts.Normalize(req.Mode)
	status := http.StatusOK
	defer func() {
		h.recorder.Record(context.WithoutCancel(r.Context()), models.ChatUsage{
			ID:           uuid.New(),
			Mode:         mode,
			MessageCount: len(req.Messages),
			Status:       status,
			DurationMs:   time.Since(start).Milliseconds(),
			CreatedAt:    start.UTC(),
		})
	}()

	resp, err := h.gateway.StreamCompletion(r.Context(), req.Mode, req.Messages)
	if err != nil {
		var se *gateway.StatusError
		if errors.As(err, &se) {
			if se.StatusCode != http.StatusTooManyRequests && se.StatusCode != http.StatusPaymentRequired {
				log.Printf("AI gateway error: %d %s", se.StatusCode, se.Body)
			}
		} else {
			log.Printf("chat error: %v", err)
		}
		var message string
		status, message = gateway.ClientError(err)
		writeJSON(w, status, errorResp(message, r))
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if err := pipe(w, resp.Body); err != nil && r.Context().Err() == nil {
		status = http.StatusBadGateway
		log.Printf("chat stream interrupted: %v", err)
	}
}

// pipe copies src to w, flushing after every read so chunks reach the client
// as soon as the gateway emits them.
func pipe(w http.ResponseWriter, src io.Reader) error {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
