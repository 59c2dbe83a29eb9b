package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider and backend names accepted in configuration.
const (
	AIProviderMock      = "mock"
	AIProviderAnthropic = "anthropic"
	AIProviderGemini    = "gemini"

	GeocoderNominatim = "nominatim"
	GeocoderNone      = "none"

	PersistenceMemory   = "memory"
	PersistencePostgres = "postgres"
	PersistenceRedis    = "redis"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// AI Provider Configuration
	AIProvider       string // "mock", "anthropic" or "gemini"
	AnthropicAPIKey  string
	AnthropicModel   string
	GeminiAPIKey     string
	GeminiModel      string
	AIRequestTimeout time.Duration

	// Geocoding
	GeocoderProvider       string // "nominatim" or "none"
	GeocoderBaseURL        string
	GeocoderUserAgent      string
	GeocoderTimeout        time.Duration
	FacilitySearchRadiusKm float64

	// Storage Configuration
	StorageProvider string // "local" or "r2"

	// Local Storage (development)
	LocalStoragePath string
	LocalStorageURL  string

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// Photo normalization
	PhotoMaxBytes     int64
	PhotoMaxDimension int

	// Record persistence
	Persistence   string // "memory", "postgres" or "redis"
	DatabaseUrl   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration
	SessionIdle   time.Duration // In-memory eviction after inactivity

	// Per-IP limit on AI-backed endpoints
	RateLimitAIRequests int
	RateLimitAIWindow   time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		AIProvider:       getEnv("AI_PROVIDER", AIProviderMock),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		AIRequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 60*time.Second),

		GeocoderProvider:       getEnv("GEOCODER_PROVIDER", GeocoderNominatim),
		GeocoderBaseURL:        getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent:      getEnv("GEOCODER_USER_AGENT", "AidNexus/1.0"),
		GeocoderTimeout:        getEnvDuration("GEOCODER_TIMEOUT", 5*time.Second),
		FacilitySearchRadiusKm: getEnvFloat("FACILITY_SEARCH_RADIUS_KM", 10),

		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		PhotoMaxBytes:     int64(getEnvInt("PHOTO_MAX_BYTES", 10<<20)),
		PhotoMaxDimension: getEnvInt("PHOTO_MAX_DIMENSION", 2048),

		Persistence:   getEnv("PERSISTENCE", PersistenceMemory),
		DatabaseUrl:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SessionTTL:    getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		SessionIdle:   getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),

		RateLimitAIRequests: getEnvInt("RATE_LIMIT_AI_REQUESTS", 20),
		RateLimitAIWindow:   getEnvDuration("RATE_LIMIT_AI_WINDOW", time.Minute),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (cfg *Config) Validate() error {
	switch cfg.StorageProvider {
	case "r2":
		if cfg.R2AccountID == "" {
			return fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2AccessKeyID == "" {
			return fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2SecretAccessKey == "" {
			return fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2BucketName == "" {
			return fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	case "local":
	default:
		return fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", cfg.StorageProvider)
	}

	switch cfg.AIProvider {
	case AIProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is 'anthropic'")
		}
	case AIProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is 'gemini'")
		}
	case AIProviderMock:
	default:
		return fmt.Errorf("AI_PROVIDER must be 'mock', 'anthropic' or 'gemini', got: %s", cfg.AIProvider)
	}

	switch cfg.GeocoderProvider {
	case GeocoderNominatim:
		if cfg.GeocoderUserAgent == "" {
			return fmt.Errorf("GEOCODER_USER_AGENT is required when GEOCODER_PROVIDER is 'nominatim'")
		}
	case GeocoderNone:
	default:
		return fmt.Errorf("GEOCODER_PROVIDER must be either 'nominatim' or 'none', got: %s", cfg.GeocoderProvider)
	}

	switch cfg.Persistence {
	case PersistencePostgres:
		if cfg.DatabaseUrl == "" {
			return fmt.Errorf("DATABASE_URL is required when PERSISTENCE is 'postgres'")
		}
	case PersistenceRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when PERSISTENCE is 'redis'")
		}
	case PersistenceMemory:
	default:
		return fmt.Errorf("PERSISTENCE must be 'memory', 'postgres' or 'redis', got: %s", cfg.Persistence)
	}

	if cfg.PhotoMaxDimension <= 0 {
		return fmt.Errorf("PHOTO_MAX_DIMENSION must be positive, got: %d", cfg.PhotoMaxDimension)
	}
	if cfg.FacilitySearchRadiusKm <= 0 {
		return fmt.Errorf("FACILITY_SEARCH_RADIUS_KM must be positive, got: %g", cfg.FacilitySearchRadiusKm)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
