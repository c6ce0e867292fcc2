package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the booking ledger, the HTTP trust
// boundaries and the bot update loop. A nil *BookingMetrics is a no-op.
type BookingMetrics struct {
	appointmentsCreated prometheus.Counter
	bookingConflicts    prometheus.Counter
	authRejections      *prometheus.CounterVec
	invoiceLinks        *prometheus.CounterVec
	botUpdates          *prometheus.CounterVec
	botUpdateLatency    *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		appointmentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "appointments_created_total",
			Help:      "Appointments committed to the ledger",
		}),
		bookingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "conflicts_total",
			Help:      "Bookings rejected because the slot was already taken or being booked",
		}),
		authRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "http",
			Name:      "auth_rejections_total",
			Help:      "Requests rejected at a trust boundary",
		}, []string{"boundary"}),
		invoiceLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "payments",
			Name:      "invoice_links_total",
			Help:      "createInvoiceLink proxy calls by outcome",
		}, []string{"status"}),
		botUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "bot",
			Name:      "updates_total",
			Help:      "Telegram updates handled by kind and outcome",
		}, []string{"kind", "outcome"}),
		botUpdateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "bot",
			Name:      "update_latency_seconds",
			Help:      "Time spent handling one Telegram update",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.appointmentsCreated,
		m.bookingConflicts,
		m.authRejections,
		m.invoiceLinks,
		m.botUpdates,
		m.botUpdateLatency,
	)
	return m
}

func (m *BookingMetrics) ObserveCreated() {
	if m == nil {
		return
	}
	m.appointmentsCreated.Inc()
}

func (m *BookingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.bookingConflicts.Inc()
}

// ObserveAuthRejection counts a rejected request; boundary is "bot_token" or "webapp_hmac".
func (m *BookingMetrics) ObserveAuthRejection(boundary string) {
	if m == nil {
		return
	}
	m.authRejections.WithLabelValues(boundary).Inc()
}

func (m *BookingMetrics) ObserveInvoiceLink(status string) {
	if m == nil {
		return
	}
	m.invoiceLinks.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveUpdate(kind, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.botUpdates.WithLabelValues(kind, outcome).Inc()
	m.botUpdateLatency.WithLabelValues(kind).Observe(seconds)
}
