package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLandingHandler(t *testing.T) {
	h, err := NewLandingHandler("https://app.fluently.dev/")
	if err != nil {
		t.Fatalf("Failed to render landing page: %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Expected HTML, got %q", ct)
	}

	body := rr.Body.String()
	for _, want := range []string{
		`href="https://app.fluently.dev/lesson"`,
		`href="https://app.fluently.dev/dashboard"`,
		"Start Free Lesson",
		"Ready to become fluent?",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
	if n := strings.Count(body, `class="feature"`); n != len(Features) {
		t.Errorf("Expected %d feature cards, got %d", len(Features), n)
	}
	for _, f := range Features {
		if !strings.Contains(body, f.Title) {
			t.Errorf("Missing feature %q", f.Title)
		}
	}
}

func TestLandingHandler_Head(t *testing.T) {
	h, err := NewLandingHandler("http://localhost:5173")
	if err != nil {
		t.Fatalf("Failed to render landing page: %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodHead, "/", nil))
	if rr.Code != http.StatusOK || rr.Body.Len() != 0 {
		t.Errorf("Expected empty 200, got %d with %d bytes", rr.Code, rr.Body.Len())
	}
}
