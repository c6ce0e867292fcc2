package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/salon-appointment-bot/internal/api"
	"github.com/hackgods/salon-appointment-bot/internal/auth"
	"github.com/hackgods/salon-appointment-bot/internal/booking"
	"github.com/hackgods/salon-appointment-bot/internal/config"
	"github.com/hackgods/salon-appointment-bot/internal/db"
	"github.com/hackgods/salon-appointment-bot/internal/logging"
	"github.com/hackgods/salon-appointment-bot/internal/observability/metrics"
	redisclient "github.com/hackgods/salon-appointment-bot/internal/redis"
	"github.com/hackgods/salon-appointment-bot/internal/telegram"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	logger := logging.New("api-server", cfg.Env, cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}
	if err := cfg.ValidateAPI(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("storage", cfg.StorageDriver).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewBookingMetrics(reg)

	var (
		repo   booking.Repository
		locker redisclient.Locker
		checks []api.HealthCheck
	)

	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
		cancelPg()
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection error")
		}
		defer pgPool.Close()
		logger.Info().Msg("connected to Postgres")

		rdb := connectRedis(rootCtx, cfg, logger)
		defer closeRedis(rdb, logger)

		repo = booking.NewPgRepository(pgPool)
		locker = redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
		checks = []api.HealthCheck{api.PostgresCheck(pgPool), api.RedisCheck(rdb)}

	case config.StorageMemory:
		logger.Warn().Msg("using in-memory storage, appointments are lost on restart")
		repo = booking.NewMemoryRepository(booking.DefaultCatalogue)
		locker = redisclient.NewLocalSlotLocker()
	}

	svc := booking.NewService(repo, locker, booking.Options{
		Hours:      booking.Hours{Open: cfg.Salon.OpenHour, Close: cfg.Salon.CloseHour},
		WindowDays: cfg.Salon.WindowDays,
		Location:   cfg.Salon.Location,
		Logger:     logger.With().Str("component", "booking").Logger(),
		Metrics:    m,
	})

	invoices := telegram.NewInvoiceClient(telegram.InvoiceOptions{
		APIURL:        cfg.TelegramAPIURL,
		BotToken:      cfg.BotToken,
		ProviderToken: cfg.ProviderToken,
		Currency:      cfg.InvoiceCurrency,
		Title:         cfg.InvoiceTitle,
		PhotoURL:      cfg.InvoicePhotoURL,
		Timeout:       cfg.BackendTimeout,
	})

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		Invoices: invoices,
		WebApp:   auth.NewWebAppAuthenticator(cfg.BotToken),
		Tokens:   auth.NewTokenGuard(cfg.BotToken),
		Metrics:  m,
		Gatherer: reg,
		Checks:   checks,
		Logger:   logger,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
}

func connectRedis(ctx context.Context, cfg config.Config, logger zerolog.Logger) *redis.Client {
	rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
	return rdb
}

func closeRedis(rdb *redis.Client, logger zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		logger.Error().Err(err).Msg("error closing redis")
	}
}
