package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"fluently-backend/internal/models"
	"fluently-backend/internal/prompts"
)

const (
	RateLimitMessage    = "Rate limit exceeded. Please try again in a moment."
	UsageLimitMessage   = "Usage limit reached. Please add credits."
	ServiceErrorMessage = "AI service error"
)

// maxErrorBodySize caps how much of a failed upstream response is read for logging.
const maxErrorBodySize int64 = 64 * 1024

var ErrMissingAPIKey = errors.New("LOVABLE_API_KEY is not configured")

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("AI gateway error: status %d: %s", e.StatusCode, e.Body)
}

type completionRequest struct {
	Model    string               `json:"model"`
	Messages []models.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
}

// Client forwards chat message lists to an OpenAI-compatible
// chat-completions endpoint with streaming enabled.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
	model      string
}

// NewClient builds a gateway client. A nil httpClient uses a client with no
// timeout, since streamed completions can run for a long time.
func NewClient(url, apiKey, model string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient: httpClient,
		url:        url,
		apiKey:     apiKey,
		model:      model,
	}
}

// BuildMessages prepends the mode's system prompt to messages.
func BuildMessages(mode string, messages []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(messages)+1)
	out = append(out, models.ChatMessage{Role: models.RoleSystem, Content: prompts.SystemPrompt(mode)})
	return append(out, messages...)
}

// StreamCompletion starts a streaming completion. On success the caller owns
// the response body and must close it. Non-2xx responses are drained, closed
// and returned as *StatusError.
func (c *Client) StreamCompletion(ctx context.Context, mode string, messages []models.ChatMessage) (*http.Response, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(completionRequest{
		Model:    c.model,
		Messages: BuildMessages(mode, messages),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach AI gateway: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	return resp, nil
}

// ClientError maps a StreamCompletion error to the status code and message
// handed back to the browser. Upstream 429 and 402 keep their status; every
// other upstream status becomes a generic 500, and local failures surface
// their own message.
func ClientError(err error) (int, string) {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests, RateLimitMessage
		case http.StatusPaymentRequired:
			return http.StatusPaymentRequired, UsageLimitMessage
		default:
			return http.StatusInternalServerError, ServiceErrorMessage
		}
	}
	return http.StatusInternalServerError, err.Error()
}
