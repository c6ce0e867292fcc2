package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/salon-appointment-bot/internal/api"
	"github.com/hackgods/salon-appointment-bot/internal/backendclient"
	"github.com/hackgods/salon-appointment-bot/internal/booking"
	"github.com/hackgods/salon-appointment-bot/internal/bot"
	"github.com/hackgods/salon-appointment-bot/internal/config"
	"github.com/hackgods/salon-appointment-bot/internal/logging"
	"github.com/hackgods/salon-appointment-bot/internal/observability/metrics"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	logger := logging.New("bot", cfg.Env, cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}
	if err := cfg.ValidateBot(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewBookingMetrics(reg)

	tg, err := bot.NewTelegramClient(cfg.BotToken, cfg.TelegramAPIURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram connection error")
	}
	logger.Info().Str("username", tg.Self.UserName).Msg("bot authorized")

	b, err := bot.New(bot.Deps{
		Telegram: tg,
		Ledger:   backendclient.New(cfg.BackendURL, cfg.BotToken, cfg.BackendTimeout),
		Settings: bot.Settings{
			WebAppURL:   cfg.WebAppURL,
			Hours:       booking.Hours{Open: cfg.Salon.OpenHour, Close: cfg.Salon.CloseHour},
			Address:     cfg.Salon.Address,
			Latitude:    cfg.Salon.Latitude,
			Longitude:   cfg.Salon.Longitude,
			Phone:       cfg.Salon.Phone,
			ContactName: cfg.Salon.ContactName,
			StickerID:   cfg.Salon.StickerID,
		},
		Metrics:       m,
		Logger:        logger,
		MaxConcurrent: cfg.MaxConcurrentUpdates,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("bot init error")
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	health := api.NewHealthHandler(nil, cfg.Env, version)
	r.Get("/health/live", health.Liveness)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ops := &http.Server{
		Addr:              ":" + cfg.BotHTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", ops.Addr).Msg("ops listener started")
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("ops listener error")
		}
	}()

	logger.Info().
		Str("backend_url", cfg.BackendURL).
		Int("max_concurrent_updates", cfg.MaxConcurrentUpdates).
		Msg("polling for updates")
	if err := b.Run(rootCtx); err != nil {
		logger.Error().Err(err).Msg("bot stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops listener shutdown error")
	}
	logger.Info().Msg("bot stopped")
}
