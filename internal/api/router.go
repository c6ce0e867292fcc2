package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/salon-appointment-bot/internal/auth"
	"github.com/hackgods/salon-appointment-bot/internal/booking"
	"github.com/hackgods/salon-appointment-bot/internal/observability/metrics"
	"github.com/hackgods/salon-appointment-bot/internal/telegram"
)

// BookingService is the part of the booking ledger the handlers use.
type BookingService interface {
	ListServices(ctx context.Context) ([]booking.SalonService, error)
	FreeDates(ctx context.Context) ([]booking.DaySlots, error)
	IsSlotFree(ctx context.Context, slot booking.Slot) (bool, error)
	CreateAppointment(ctx context.Context, n booking.NewAppointment) (*booking.Appointment, error)
	ActiveAppointments(ctx context.Context, userID int64) ([]booking.ActiveAppointment, error)
}

type InvoiceLinker interface {
	CreateInvoiceLink(ctx context.Context, in telegram.InvoiceRequest) (*telegram.Response, error)
}

type RouterConfig struct {
	Service  BookingService
	Invoices InvoiceLinker
	WebApp   *auth.WebAppAuthenticator
	Tokens   *auth.TokenGuard
	Metrics  *metrics.BookingMetrics
	Gatherer prometheus.Gatherer
	Checks   []HealthCheck
	Logger   zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(cfg.Checks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	h := &handlers{
		svc:      cfg.Service,
		invoices: cfg.Invoices,
		webApp:   cfg.WebApp,
		tokens:   cfg.Tokens,
		metrics:  cfg.Metrics,
	}

	// The order page calls the backend under /bot, the bot calls it at the root.
	bookingRoutes := func(r chi.Router) {
		r.Get("/make_order", h.makeOrder)
		r.Get("/services", h.listServices)
		r.Get("/get_free_appointment_dates", h.freeDates)
		r.Get("/get_active_appointments", h.activeAppointments)
		r.Get("/create_invoice_link", h.createInvoiceLink)
		r.Get("/make_appointment", h.makeAppointment)
	}
	r.Group(bookingRoutes)
	r.Route("/bot", bookingRoutes)

	return r
}
