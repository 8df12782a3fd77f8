package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"volterra/admin-service/internal/auth"
	"volterra/admin-service/internal/config"
	"volterra/admin-service/internal/httpapi"
	"volterra/admin-service/internal/logging"
	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"
	"volterra/admin-service/internal/store/memory"
	"volterra/admin-service/internal/store/postgres"
	"volterra/admin-service/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dev: cfg.LogDev})
	defer func() { _ = logger.Sync() }()

	shutdownTelemetry := telemetry.Setup("admin-service", logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	if err := seedAdmin(context.Background(), st, cfg); err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}

	if cfg.SessionHashKey == "" {
		logger.Warn("SESSION_HASH_KEY not set; session cookies will not survive a restart")
	}
	resolver, err := auth.NewResolver(st, auth.ResolverOptions{
		CookieName: cfg.SessionCookieName,
		TTL:        cfg.SessionTTL,
		HashKey:    []byte(cfg.SessionHashKey),
		BlockKey:   []byte(cfg.SessionBlockKey),
		Secure:     cfg.SessionCookieSecure,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("session resolver", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := httpapi.NewHandler(st, resolver, httpapi.Options{
		Logger:   logger,
		Registry: registry,
		RateLimit: &httpapi.RateLimitConfig{
			IPPerMinute:   cfg.RateLimitPerMinute,
			IPBurst:       cfg.RateLimitBurst,
			UserPerMinute: cfg.UserRateLimitPerMinute,
			UserBurst:     cfg.UserRateLimitBurst,
		},
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(handler.Routes(), "admin-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("admin-service listening", zap.String("addr", server.Addr), zap.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func openStore(cfg config.Config, logger *zap.Logger) (store.Store, func(), error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("using in-memory store; data is lost on exit")
		return memory.NewStore(memory.Options{}), func() {}, nil
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DB_DSN is required for the postgres store")
	}
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	return postgres.NewStore(pool), pool.Close, nil
}

// seedAdmin upserts the bootstrap administrator named by SEED_ADMIN_EMAIL.
func seedAdmin(ctx context.Context, st store.Users, cfg config.Config) error {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return nil
	}
	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	user := models.User{Name: "Administrator", Email: cfg.SeedAdminEmail, Role: models.RoleAdmin, PasswordHash: hash}
	if existing, ok, err := st.GetUserByEmail(ctx, cfg.SeedAdminEmail); err != nil {
		return err
	} else if ok {
		user.Name = existing.Name
		user.Image = existing.Image
	}
	_, err = st.UpsertUser(ctx, user)
	return err
}
