package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatUsage is one proxied chat request. Message content is never stored.
type ChatUsage struct {
	ID           uuid.UUID `json:"id"`
	Mode         string    `json:"mode"`
	MessageCount int       `json:"message_count"`
	Status       int       `json:"status"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// ModeUsage aggregates usage rows for one mode.
type ModeUsage struct {
	Mode     string `json:"mode"`
	Requests int    `json:"requests"`
	Failures int    `json:"failures"`
}

// RelayFrame is one server-to-client WebSocket frame.
type RelayFrame struct {
	Type    string `json:"type"` // "delta", "done" or "error"
	Content string `json:"content,omitempty"`
	Status  int    `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}
