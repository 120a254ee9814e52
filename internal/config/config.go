package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Auth
	AuthJWTSecret string
	AuthIssuer    string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Credits
	InitialCredits        int
	DailyCredits          int
	CreditRefreshInterval time.Duration

	// Limits
	MaxQuestionsPerRequest int
	MaxAudioBytes          int64
	AIRequestsPerMinute    int
	TempDir                string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                   getEnvOrDefault("PORT", "8080"),
		Env:                    getEnvOrDefault("ENV", "development"),
		LogLevel:               getEnvOrDefault("LOG_LEVEL", "info"),
		DatabaseURL:            mustGetEnv("DATABASE_URL"),
		RedisURL:               mustGetEnv("REDIS_URL"),
		AuthJWTSecret:          mustGetEnv("AUTH_JWT_SECRET"),
		AuthIssuer:             getEnvOrDefault("AUTH_ISSUER", ""),
		GeminiAPIKey:           mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:            getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs:   getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		InitialCredits:         getEnvAsIntOrDefault("INITIAL_CREDITS", 50),
		DailyCredits:           getEnvAsIntOrDefault("DAILY_CREDITS", 20),
		CreditRefreshInterval:  getEnvAsDurationOrDefault("CREDIT_REFRESH_INTERVAL", 24*time.Hour),
		MaxQuestionsPerRequest: getEnvAsIntOrDefault("MAX_QUESTIONS_PER_REQUEST", 10),
		MaxAudioBytes:          int64(getEnvAsIntOrDefault("MAX_AUDIO_BYTES", 25<<20)),
		AIRequestsPerMinute:    getEnvAsIntOrDefault("AI_REQUESTS_PER_MINUTE", 20),
		TempDir:                getEnvOrDefault("TEMP_DIR", os.TempDir()),
		FrontendURL:            getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	return cfg
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
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

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
