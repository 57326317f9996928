package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"fluently-backend/internal/handlers"
	"fluently-backend/internal/middleware"
	"fluently-backend/internal/web"
	"fluently-backend/internal/websocket"
)

// New wires the HTTP surface. transcribeHandler and usageHandler may be nil,
// in which case their routes are not mounted.
func New(
	chatHandler *handlers.ChatHandler,
	transcribeHandler *handlers.TranscribeHandler,
	usageHandler *handlers.UsageHandler,
	landingHandler *web.LandingHandler,
	relay *websocket.Relay,
	chatLimiter middleware.Limiter,
	allowedOrigin string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(allowedOrigin))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Landing page
	r.Method(http.MethodGet, "/", landingHandler)
	r.Method(http.MethodHead, "/", landingHandler)

	// Hosted-function path kept for existing front-end builds
	r.With(middleware.RateLimit(chatLimiter)).Post("/functions/v1/ai-tour", chatHandler.Stream)

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Chat Routes ────
		r.Route("/chat", func(r chi.Router) {
			r.Use(middleware.RateLimit(chatLimiter))
			r.Post("/", chatHandler.Stream)
			r.Get("/ws", relay.HandleWebSocket)
		})

		// ──── Speech Routes ────
		if transcribeHandler != nil {
			r.Post("/speech/transcribe", transcribeHandler.Transcribe)
		}

		// ──── Stats Routes ────
		if usageHandler != nil {
			r.Get("/stats/usage", usageHandler.Stats)
		}
	})

	return r
}
