package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"game-portal/internal/adminclient"
	"game-portal/internal/auth"
	"game-portal/internal/common/logging"
	"game-portal/internal/config"
	"game-portal/internal/crypto"
	"game-portal/internal/directory"
	"game-portal/internal/handlers"
	"game-portal/internal/middleware"
	"game-portal/internal/ratelimit"
	"game-portal/internal/redis"
	"game-portal/internal/server"
	"game-portal/internal/status"
	"game-portal/internal/storage"
	"game-portal/internal/storage/postgres"
	"game-portal/internal/storage/sqlite"
	"game-portal/internal/timing"
)

func main() {
	logging.InitGlobalLogger()
	logger := logging.GetGlobalLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", err)
		os.Exit(1)
	}

	store, err := openStorage(cfg)
	if err != nil {
		logger.Error("Failed to open storage", err)
		os.Exit(1)
	}
	defer store.Close()

	dir, err := directory.NewHTTPDirectory(cfg.DirectoryURL, cfg.DirectoryAPIKey, logger)
	if err != nil {
		logger.Error("Failed to configure user directory", err)
		os.Exit(1)
	}

	sessions, err := auth.New(cfg.JWTSecret, cfg.SessionTTL, store, logger)
	if err != nil {
		logger.Error("Failed to configure sessions", err)
		os.Exit(1)
	}

	// The admin panel is optional. Without a service key the portal serves
	// content and sessions but account operations answer with a
	// configuration error.
	var panel handlers.AdminPanel
	var checker *status.Checker
	if cfg.AdminPanelURL != "" {
		client, err := adminclient.New(adminclient.Config{
			BaseURL:    cfg.AdminPanelURL,
			ServiceKey: []byte(cfg.AdminServiceKey),
		}, logger)
		if err != nil {
			logger.Error("Failed to configure admin panel client", err)
			os.Exit(1)
		}
		panel = client
		checker = status.NewChecker(client, cfg.StatusCacheTTL, logger)
	} else {
		logger.Warn("Admin panel not configured, account operations disabled")
	}

	var encryptor *crypto.SettingsEncryptor
	if cfg.SettingsKey != "" {
		encryptor, err = crypto.NewSettingsEncryptor(cfg.SettingsKey)
		if err != nil {
			logger.Error("Failed to configure settings encryption", err)
			os.Exit(1)
		}
	}

	gate := timing.NewGate(cfg.GateDelay)
	h := handlers.New(store, sessions, dir, panel, checker, gate, encryptor, logger)

	router := mux.NewRouter()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogging(logger))
	router.Use(middleware.SecurityHeaders)

	// Redis is optional; without it the portal runs unthrottled
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(&redis.Config{
			Address:  cfg.RedisURL,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			logger.Error("Failed to connect to Redis", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		limiter := ratelimit.NewLimiter(redisClient, &ratelimit.Config{
			DefaultLimit:  cfg.RateLimit,
			DefaultWindow: cfg.RateLimitWindow,
			Enabled:       cfg.RateLimitEnabled,
		})
		router.Use(limiter.Middleware(cfg.RateLimit, cfg.RateLimitWindow))
	}

	h.Routes(router)

	jobs := startJobs(cfg, store, checker, logger)
	defer jobs.Stop()

	srv := server.New(server.Config{
		Port:    cfg.Port,
		TLSCert: cfg.TLSCert,
		TLSKey:  cfg.TLSKey,
	}, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("Server failed", err)
		os.Exit(1)
	case sig := <-stop:
		logger.Info("Shutting down", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown did not complete cleanly", err)
	}
	logging.MustSync()
}

func openStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.DatabaseType == "postgres" {
		return postgres.NewAdapter(&cfg.Postgres)
	}
	return sqlite.NewAdapter(cfg.DatabasePath)
}

// startJobs runs the background maintenance schedule: status refresh keeps
// the cache warm, grant cleanup drops expired download grants.
func startJobs(cfg *config.Config, store storage.Storage, checker *status.Checker, logger logging.Logger) *cron.Cron {
	jobs := cron.New()

	if checker != nil {
		interval := "@every " + cfg.StatusRefresh.String()
		jobs.AddFunc(interval, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			checker.Refresh(ctx)
		})
	}

	jobs.AddFunc("@hourly", func() {
		n, err := store.DeleteExpiredGrants(time.Now().Add(-cfg.GrantCleanupAge))
		if err != nil {
			logger.Error("Grant cleanup failed", err)
			return
		}
		if n > 0 {
			logger.Info("Expired download grants removed", logging.Int64("count", n))
		}
	})

	jobs.Start()
	return jobs
}
