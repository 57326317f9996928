package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"fluently-backend/internal/models"
)

const defaultErrorMessage = "Failed to start stream"

// Request is one streaming chat call.
type Request struct {
	Messages []models.ChatMessage
	Mode     string
	// OnDelta receives each fragment of assistant text.
	OnDelta func(string)
	// OnDone is called once after the last delta of a successful stream.
	OnDone func()
}

// Error is a failed chat call as reported to the learner.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string { return e.Message }

// Client talks to the chat proxy endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

// NewClient builds a transport for the proxy at url. apiKey, when set, is
// sent both as a bearer token and as the apikey header expected by hosted
// function gateways.
func NewClient(url, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient, url: url, apiKey: apiKey}
}

// StreamChat issues one streaming request and blocks until the stream ends.
// There is no retry; a dropped connection is returned as a single error and
// OnDone is not called.
func (c *Client) StreamChat(ctx context.Context, req Request) error {
	body, err := json.Marshal(models.ChatRequest{Messages: req.Messages, Mode: req.Mode})
	if err != nil {
		return fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to reach chat service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if err := ReadDeltas(resp.Body, req.OnDelta); err != nil {
		return err
	}

	if req.OnDone != nil {
		req.OnDone()
	}
	return nil
}

func errorMessage(body io.Reader) string {
	var payload models.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(body, 64*1024)).Decode(&payload); err != nil || payload.Error == "" {
		return defaultErrorMessage
	}
	return payload.Error
}
