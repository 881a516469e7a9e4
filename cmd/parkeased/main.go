package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"parkease-backend/config"
	"parkease-backend/internal/api"
	"parkease-backend/internal/auth"
	"parkease-backend/internal/booking"
	"parkease-backend/internal/db"
	"parkease-backend/internal/jobs"
	"parkease-backend/internal/notification"
	"parkease-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "parkease ", log.LstdFlags)

	// .env is optional; it only feeds the overrides below.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	if dsn := os.Getenv("PARKEASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if secret := os.Getenv("PARKEASE_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	logger.Printf("configuration loaded from %s", configPath)

	if cfg.Auth.JWTSecret == "" {
		logger.Fatalf("auth.jwt_secret must be configured")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	ledger := store.NewAvailabilityLedger(gormDB)
	slots := store.NewSlotStore(gormDB, ledger)

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
	pool.Start(ctx)

	allocator := booking.NewAllocator(gormDB, slots)
	lifecycle := booking.NewLifecycle(gormDB, slots, pool)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	var runner *cron.Cron
	if cfg.Sweep.Enabled {
		runner = cron.New()
		sweeper := jobs.NewSweeper(gormDB, slots, pool)
		if _, err := sweeper.Schedule(runner, cfg.Sweep.Schedule); err != nil {
			logger.Fatalf("failed to schedule no-show sweep: %v", err)
		}
		runner.Start()
		logger.Printf("no-show sweep scheduled (%s)", cfg.Sweep.Schedule)
	}

	handler := api.NewHandler(gormDB, slots, ledger, allocator, lifecycle, tokens, &webpushOptions, cfg.Auth.AdminCode)
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:        time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	if runner != nil {
		runner.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
