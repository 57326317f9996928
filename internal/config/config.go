package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// CORS origin answered on the chat endpoints
	AllowedOrigin string

	// AI gateway (OpenAI-compatible chat completions)
	GatewayURL    string
	GatewayModel  string
	GatewayAPIKey string

	// Optional stores; usage logging is enabled only when both are set
	DatabaseURL string
	RedisURL    string

	// Gemini transcription; disabled when the key is empty
	GeminiAPIKey         string
	GeminiConcurrentReqs int

	ChatRateLimitPerMin int
	UsageWorkers        int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		AllowedOrigin:        getEnvOrDefault("ALLOWED_ORIGIN", "*"),
		GatewayURL:           getEnvOrDefault("AI_GATEWAY_URL", "https://ai.gateway.lovable.dev/v1/chat/completions"),
		GatewayModel:         getEnvOrDefault("AI_GATEWAY_MODEL", "google/gemini-3-flash-preview"),
		GatewayAPIKey:        os.Getenv("LOVABLE_API_KEY"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		ChatRateLimitPerMin:  getEnvAsIntOrDefault("CHAT_RATE_LIMIT_PER_MINUTE", 20),
		UsageWorkers:         getEnvAsIntOrDefault("USAGE_WORKERS", 2),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// UsageLoggingEnabled reports whether both stores needed by the usage
// pipeline are configured.
func (c *Config) UsageLoggingEnabled() bool {
	return c.DatabaseURL != "" && c.RedisURL != ""
}

// TutorConfig holds what the terminal tutor needs to reach a proxy.
type TutorConfig struct {
	ChatURL string
	APIKey  string
	Mode    string
}

func LoadTutor() *TutorConfig {
	godotenv.Load()

	return &TutorConfig{
		ChatURL: getEnvOrDefault("FLUENTLY_CHAT_URL", "http://localhost:8080/api/v1/chat"),
		APIKey:  os.Getenv("FLUENTLY_API_KEY"),
		Mode:    getEnvOrDefault("FLUENTLY_MODE", "tutor"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
