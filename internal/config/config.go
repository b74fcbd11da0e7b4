package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port          int
	LogLevel      string
	PublicBaseURL string // used to build profile redirects (/p/{id})
	CORSOrigins   []string

	// Persistence
	StoreBackend string // supabase | postgres
	DatabaseURL  string // postgres backend only

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Dashboard auth (Supabase JWT secret)
	JWTSecret string

	// HTTP client
	HTTPTimeout time.Duration

	// Webhook fan-out
	WebhookTimeout time.Duration
	ReplayWindow   time.Duration

	// Generative text (OpenAI-compatible chat completions)
	GeneratorURL     string
	GeneratorAPIKey  string
	GeneratorModel   string
	GeneratorTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Background event recorder
	EventQueueSize int
	EventWorkers   int

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:          getEnvInt("PORT", 8080),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		CORSOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		StoreBackend: getEnv("STORE_BACKEND", BackendSupabase),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		WebhookTimeout: getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		ReplayWindow:   getEnvDuration("REPLAY_WINDOW", 60*time.Second),

		GeneratorURL:     getEnv("GENERATOR_URL", "https://ai.gateway.lovable.dev/v1"),
		GeneratorAPIKey:  getEnv("GENERATOR_API_KEY", ""),
		GeneratorModel:   getEnv("GENERATOR_MODEL", "google/gemini-2.5-flash"),
		GeneratorTimeout: getEnvDuration("GENERATOR_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 16),

		CacheTTL: getEnvDuration("CACHE_TTL", 30*time.Second),

		EventQueueSize: getEnvInt("EVENT_QUEUE_SIZE", 1024),
		EventWorkers:   getEnvInt("EVENT_WORKERS", 4),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
