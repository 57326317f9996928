package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"fluently-backend/internal/models"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS("*")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if called {
		t.Error("preflight should not reach the handler")
	}
	if rr.Body.Len() != 0 {
		t.Errorf("Expected empty body, got %q", rr.Body.String())
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected origin *, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "apikey") || !strings.Contains(got, "x-client-info") {
		t.Errorf("unexpected allow headers %q", got)
	}
}

func TestCORS_PassesThroughWithHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	CORS("https://fluently.app")(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected handler status, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://fluently.app" {
		t.Errorf("unexpected origin %q", got)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rr.Header().Get("X-Request-ID") != seen {
		t.Errorf("Expected generated id echoed, got %q / %q", seen, rr.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "abc-123" || rr.Header().Get("X-Request-ID") != "abc-123" {
		t.Errorf("Expected client id kept, got %q", seen)
	}
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ctx := context.Background()
	for i, expected := range []bool{true, true, false} {
		if got, _ := rl.Allow(ctx, "1.2.3.4"); got != expected {
			t.Errorf("call %d: expected %v, got %v", i, expected, got)
		}
	}
	if got, _ := rl.Allow(ctx, "5.6.7.8"); !got {
		t.Error("other clients should not share a window")
	}

	now = now.Add(2 * time.Minute)
	if got, _ := rl.Allow(ctx, "1.2.3.4"); !got {
		t.Error("Expected a fresh window after it elapsed")
	}
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	rl := NewRedisRateLimiter(client, 2, time.Hour)
	ctx := context.Background()
	for i, expected := range []bool{true, true, false} {
		got, err := rl.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if got != expected {
			t.Errorf("call %d: expected %v, got %v", i, expected, got)
		}
	}
	if got, _ := rl.Allow(ctx, "5.6.7.8"); !got {
		t.Error("other clients should not share a window")
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()
	h := RateLimit(rl)(okHandler)

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)
		return rr
	}

	if rr := req(); rr.Code != http.StatusNoContent {
		t.Fatalf("Expected first request through, got %d", rr.Code)
	}

	rr := req()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rr.Code)
	}
	var body models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if !strings.Contains(body.Error, "Rate limit") {
		t.Errorf("Expected rate limit message, got %q", body.Error)
	}
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	rr := httptest.NewRecorder()
	RateLimit(failingLimiter{})(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected request through on limiter error, got %d", rr.Code)
	}
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.9:4000"
	if got := clientKey(r); got != "192.168.1.9" {
		t.Errorf("Expected host only, got %q", got)
	}
	r.RemoteAddr = "203.0.113.7"
	if got := clientKey(r); got != "203.0.113.7" {
		t.Errorf("Expected bare address, got %q", got)
	}
}
