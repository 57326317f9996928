package web

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"
	"strings"
)

//go:embed templates/landing.html
var templateFS embed.FS

var landingTmpl = template.Must(template.ParseFS(templateFS, "templates/landing.html"))

type Feature struct {
	Title string
	Desc  string
}

var Features = []Feature{
	{Title: "AI-Powered Tutor", Desc: "Conversational AI that adapts to your level and learning style"},
	{Title: "Speech Recognition", Desc: "Practice speaking with real-time voice analysis and feedback"},
	{Title: "Smart Analytics", Desc: "Track your progress with detailed performance insights"},
	{Title: "Adaptive Learning", Desc: "Personalized lessons that evolve with your skills"},
	{Title: "Instant Feedback", Desc: "Get corrections and explanations in real-time"},
	{Title: "Gamification", Desc: "Earn XP, maintain streaks, and unlock achievements"},
}

type landingData struct {
	Brand        string
	LessonURL    string
	DashboardURL string
	Features     []Feature
}

// LandingHandler serves the static marketing page. Its call-to-action links
// point at the front-end app.
type LandingHandler struct {
	page []byte
}

func NewLandingHandler(frontendURL string) (*LandingHandler, error) {
	base := strings.TrimRight(frontendURL, "/")

	var buf bytes.Buffer
	err := landingTmpl.Execute(&buf, landingData{
		Brand:        "Fluently",
		LessonURL:    base + "/lesson",
		DashboardURL: base + "/dashboard",
		Features:     Features,
	})
	if err != nil {
		return nil, err
	}
	return &LandingHandler{page: buf.Bytes()}, nil
}

func (h *LandingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(h.page); err != nil {
		log.Printf("landing page write failed: %v", err)
	}
}
