package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/DukeRupert/aidnexus/internal"
	"github.com/DukeRupert/aidnexus/internal/ai"
	"github.com/DukeRupert/aidnexus/internal/ai/anthropic"
	"github.com/DukeRupert/aidnexus/internal/ai/gemini"
	"github.com/DukeRupert/aidnexus/internal/ai/mock"
	"github.com/DukeRupert/aidnexus/internal/geo"
	"github.com/DukeRupert/aidnexus/internal/handler"
	"github.com/DukeRupert/aidnexus/internal/metrics"
	"github.com/DukeRupert/aidnexus/internal/middleware"
	"github.com/DukeRupert/aidnexus/internal/repository"
	"github.com/DukeRupert/aidnexus/internal/service"
	"github.com/DukeRupert/aidnexus/internal/session"
	"github.com/DukeRupert/aidnexus/internal/storage"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// ==========================================================================
	// AI provider and geocoder
	// ==========================================================================

	provider, closeProvider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("ai provider initialization failed: %w", err)
	}
	defer closeProvider()
	logger.Info("AI provider ready", "provider", provider.Name())

	var geocoder geo.Geocoder
	if cfg.GeocoderProvider == internal.GeocoderNominatim {
		geocoder = geo.NewNominatim(geo.Config{
			BaseURL:   cfg.GeocoderBaseURL,
			UserAgent: cfg.GeocoderUserAgent,
			Timeout:   cfg.GeocoderTimeout,
		}, logger)
	}

	// ==========================================================================
	// Photo storage
	// ==========================================================================

	var store storage.Storage
	var localFiles http.Handler
	switch cfg.StorageProvider {
	case "r2":
		store, err = storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	default:
		var local *storage.LocalStorage
		local, err = storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
		if local != nil {
			store = local
			localFiles = http.StripPrefix("/files/", http.FileServer(http.Dir(local.BasePath())))
		}
	}
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// ==========================================================================
	// Record persistence
	// ==========================================================================

	checks := map[string]handler.Pinger{}
	var persister repository.Persister
	switch cfg.Persistence {
	case internal.PersistencePostgres:
		db, err := sql.Open("pgx", cfg.DatabaseUrl)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		if err := internal.RunMigrations(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Database ready")

		persister = repository.NewPostgres(db)
		checks["postgres"] = handler.PingFunc(db.PingContext)

	case internal.PersistenceRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		logger.Info("Redis ready", "addr", cfg.RedisAddr)

		persister = repository.NewRedis(client, cfg.SessionTTL)
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})

	default:
		persister = repository.NewMemory()
	}

	registry := session.NewRegistry(persister, cfg.SessionIdle, logger)
	if cfg.SessionIdle > 0 {
		go registry.Run(ctx, cfg.SessionIdle/2)
	}

	// ==========================================================================
	// Services, middleware and handlers
	// ==========================================================================

	photoService := service.NewPhotoService(store, service.NewImagingProcessor(), service.PhotoConfig{
		MaxBytes:     cfg.PhotoMaxBytes,
		MaxDimension: cfg.PhotoMaxDimension,
		URLExpiry:    time.Hour,
	}, logger)
	recordService := service.NewRecordService(registry, persister, photoService, logger)
	assistantService := service.NewAssistantService(provider, geocoder, logger)

	isSecure := cfg.Env != "development"

	aiLimiter := middleware.NewRateLimiter(cfg.RateLimitAIRequests, cfg.RateLimitAIWindow)
	go aiLimiter.Run(ctx)
	aiLimit := middleware.NewRateLimitMiddleware(aiLimiter, "ai", logger)

	assistantHandler := handler.NewAssistantHandler(assistantService, recordService, cfg.PhotoMaxBytes, logger)
	assistantHandler.DefaultRadiusKm = cfg.FacilitySearchRadiusKm
	recordHandler := handler.NewRecordHandler(recordService, cfg.PhotoMaxBytes, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	mux.Handle("GET /health", handler.NewHealthHandler(provider.Name(), checks, logger))
	mux.Handle("GET /metrics", middleware.NewBasicAuthMiddleware("metrics", cfg.MetricsUsername, cfg.MetricsPassword).Handler(promhttp.Handler()))
	if cfg.MetricsUsername == "" && cfg.MetricsPassword == "" {
		logger.Warn("Metrics endpoint is unprotected")
	}

	if localFiles != nil {
		mux.Handle("GET /files/", localFiles)
	}

	assistantHandler.RegisterRoutes(mux, aiLimit.Limit)
	recordHandler.RegisterRoutes(mux)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	global := middleware.Stack(
		middleware.NewSecurityHeadersMiddleware(isSecure).Handler,
		metrics.Middleware,
		middleware.NewSessionMiddleware(logger, isSecure).Handler,
		middleware.NewRequestLoggingMiddleware(logger).Handler,
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           global(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newProvider builds the configured model backend. The returned func
// releases any client it holds.
func newProvider(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (ai.Provider, func(), error) {
	pc := ai.DefaultProviderConfig()
	pc.RequestTimeout = cfg.AIRequestTimeout

	switch cfg.AIProvider {
	case internal.AIProviderAnthropic:
		p, err := anthropic.New(anthropic.Config{
			APIKey:         cfg.AnthropicAPIKey,
			Model:          cfg.AnthropicModel,
			ProviderConfig: pc,
		}, logger)
		return p, func() {}, err

	case internal.AIProviderGemini:
		p, err := gemini.New(ctx, gemini.Config{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			ProviderConfig: pc,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {
			if err := p.Close(); err != nil {
				logger.Warn("gemini client close failed", "error", err)
			}
		}, nil

	default:
		return mock.New(logger), func() {}, nil
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
