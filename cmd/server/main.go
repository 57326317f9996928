package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"fluently-backend/internal/config"
	"fluently-backend/internal/database"
	"fluently-backend/internal/gateway"
	"fluently-backend/internal/handlers"
	"fluently-backend/internal/middleware"
	"fluently-backend/internal/repository"
	"fluently-backend/internal/router"
	"fluently-backend/internal/services"
	"fluently-backend/internal/web"
	"fluently-backend/internal/websocket"
	"fluently-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Fluently Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")
	if cfg.GatewayAPIKey == "" {
		log.Println("⚠ LOVABLE_API_KEY is not set; chat requests will fail with 500")
	}

	// ──── Step 2: Initialize PostgreSQL Connection Pool (optional) ────
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()
		log.Println("✓ PostgreSQL connected")

		if err := database.RunMigrations(pool, database.Migrations); err != nil {
			log.Fatalf("✗ Database migration failed: %v", err)
		}
		log.Println("✓ Database migrations applied")
	}

	// ──── Step 3: Initialize Redis Client (optional) ────
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		var err error
		redisClient, err = database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClient.Close()
		log.Println("✓ Redis connected")
	}

	// ──── Step 4: Usage Logging ────
	var recorder handlers.UsageRecorder = handlers.NopRecorder{}
	var usagePool *worker.Pool
	if cfg.UsageLoggingEnabled() {
		usagePool = worker.NewPool(redisClient, repository.NewUsageRepo(pool), cfg.UsageWorkers)
		usagePool.Start()
		recorder = worker.NewQueue(redisClient)
		log.Printf("✓ Usage worker pool started (%d goroutines)", cfg.UsageWorkers)
	} else {
		log.Println("• Usage logging disabled (needs DATABASE_URL and REDIS_URL)")
	}

	// ──── Step 5: Rate Limiter ────
	window := time.Minute
	var chatLimiter middleware.Limiter
	if redisClient != nil {
		chatLimiter = middleware.NewRedisRateLimiter(redisClient, cfg.ChatRateLimitPerMin, window)
		log.Printf("✓ Chat rate limit: %d req/min per IP (redis)", cfg.ChatRateLimitPerMin)
	} else {
		memLimiter := middleware.NewRateLimiter(cfg.ChatRateLimitPerMin, window)
		defer memLimiter.Close()
		chatLimiter = memLimiter
		log.Printf("✓ Chat rate limit: %d req/min per IP (in-memory)", cfg.ChatRateLimitPerMin)
	}

	// ──── Step 6: Initialize Gemini Transcription (optional) ────
	var transcribeHandler *handlers.TranscribeHandler
	if cfg.GeminiAPIKey != "" {
		transcription, err := services.NewTranscriptionService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
		if err != nil {
			log.Fatalf("✗ Gemini client initialization failed: %v", err)
		}
		defer transcription.Close()
		transcribeHandler = handlers.NewTranscribeHandler(transcription)
		log.Println("✓ Gemini transcription initialized")
	}

	// ──── Initialize Handlers ────
	gw := gateway.NewClient(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.GatewayModel, nil)
	chatHandler := handlers.NewChatHandler(gw, recorder)

	var usageHandler *handlers.UsageHandler
	if pool != nil {
		usageHandler = handlers.NewUsageHandler(repository.NewUsageRepo(pool))
	}

	landingHandler, err := web.NewLandingHandler(cfg.FrontendURL)
	if err != nil {
		log.Fatalf("✗ Landing page render failed: %v", err)
	}

	// ──── Step 7: Start WebSocket Relay ────
	relay := websocket.NewRelay(gw, recorder, cfg.AllowedOrigin)
	log.Println("✓ WebSocket relay started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		chatHandler,
		transcribeHandler,
		usageHandler,
		landingHandler,
		relay,
		chatLimiter,
		cfg.AllowedOrigin,
	)

	// WriteTimeout stays 0: chat responses stream for as long as the model talks.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		relay.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)

		if usagePool != nil {
			usagePool.Stop()
		}
	}()

	log.Printf("✓ Fluently Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1/chat", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/chat/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-shutdownDone
	log.Println("✓ Shutdown complete")
}
