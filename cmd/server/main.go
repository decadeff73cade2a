package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"github.com/viaurbana/frota/internal/catalog"
	"github.com/viaurbana/frota/internal/config"
	"github.com/viaurbana/frota/internal/fleet"
	"github.com/viaurbana/frota/internal/logging"
	"github.com/viaurbana/frota/internal/media"
	"github.com/viaurbana/frota/internal/report"
	"github.com/viaurbana/frota/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"preferred_sheet", cfg.Upload.PreferredSheet,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	// Object store for checklist photos
	photos, err := media.NewPhotoStore(ctx, media.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		slog.Error("failed to connect to object store", "error", err)
		os.Exit(1)
	}

	// Optional AI report generator
	var aiClient *genai.Client
	if cfg.AI.APIKey != "" {
		aiClient, err = genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.AI.APIKey})
		if err != nil {
			slog.Error("failed to create AI client", "error", err)
			os.Exit(1)
		}
		slog.Info("report generation enabled", "model", cfg.AI.Model)
	} else {
		slog.Info("GEMINI_API_KEY not set, report endpoints disabled")
	}
	generator := report.NewGenerator(aiClient, cfg.AI.Model)

	// Wire up the domain services
	catalogStore := catalog.NewStore(pool)
	catalogService := catalog.NewService(catalogStore)
	fleetStore := fleet.NewStore(pool)
	fleetService := fleet.NewService(fleetStore, catalogStore)

	rateLimit, uploadLimit := 0, 0
	if cfg.Rate.Enabled {
		rateLimit = cfg.Rate.RequestsPerMinute
		uploadLimit = cfg.Rate.UploadLimit
	}
	server := web.NewServer(catalogService, catalogStore, fleetService, photos, generator, web.Options{
		MaxUploadSize:   cfg.Upload.MaxFileSize,
		PreferredSheet:  cfg.Upload.PreferredSheet,
		PresignExpiry:   cfg.Storage.PresignExpiry,
		RequestTimeout:  cfg.Server.RequestTimeout,
		RateLimit:       rateLimit,
		UploadRateLimit: uploadLimit,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
