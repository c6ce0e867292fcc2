package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/hackgods/salon-appointment-bot/internal/auth"
	"github.com/hackgods/salon-appointment-bot/internal/booking"
	"github.com/hackgods/salon-appointment-bot/internal/observability/metrics"
	"github.com/hackgods/salon-appointment-bot/internal/telegram"
)

const (
	boundaryBotToken   = "bot_token"
	boundaryWebAppHMAC = "webapp_hmac"
)

type handlers struct {
	svc      BookingService
	invoices InvoiceLinker
	webApp   *auth.WebAppAuthenticator
	tokens   *auth.TokenGuard
	metrics  *metrics.BookingMetrics
}

func (h *handlers) listServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.svc.ListServices(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ServicesResponse{Services: services})
}

func (h *handlers) freeDates(w http.ResponseWriter, r *http.Request) {
	days, err := h.svc.FreeDates(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	resp := FreeDatesResponse{FreeDates: make(map[string][]string, len(days))}
	for _, day := range days {
		hours := make([]string, len(day.Hours))
		for i, hour := range day.Hours {
			hours[i] = booking.FormatHour(hour)
		}
		resp.FreeDates[booking.FormatDate(day.Date)] = hours
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) activeAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !h.allowBot(q.Get("bot_token")) {
		writeError(w, http.StatusForbidden, "forbidden", "")
		return
	}

	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a positive integer")
		return
	}

	active, err := h.svc.ActiveAppointments(r.Context(), userID)
	if err != nil {
		internalError(w, r, err)
		return
	}

	resp := ActiveAppointmentsResponse{ActiveAppointments: make([]ActiveAppointmentResponse, 0, len(active))}
	for _, a := range active {
		resp.ActiveAppointments = append(resp.ActiveAppointments, ActiveAppointmentResponse{
			ServicesTitles: a.ServiceTitles,
			Date:           booking.FormatDate(a.Date),
			Time:           booking.FormatHour(a.Hour),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) makeAppointment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !h.allowBot(q.Get("bot_token")) {
		writeError(w, http.StatusForbidden, "forbidden", "")
		return
	}

	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be an integer")
		return
	}
	serviceIDs, err := booking.ParseServiceIDs(q.Get("services_ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_services_ids", err.Error())
		return
	}
	date, err := booking.ParseDate(q.Get("date_iso"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return
	}
	hour, err := booking.ParseHour(q.Get("time_iso"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
		return
	}

	_, err = h.svc.CreateAppointment(r.Context(), booking.NewAppointment{
		UserID:     userID,
		ServiceIDs: serviceIDs,
		Date:       date,
		Hour:       hour,
	})
	if err != nil {
		handleCreateError(w, r, err)
		return
	}

	writeText(w, http.StatusOK, "OK")
}

func (h *handlers) createInvoiceLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	dataCheckString, ok := auth.NormalizeDataCheckString(q.Get("dataCheckString"))
	if !ok || !h.webApp.Verify(dataCheckString, q.Get("initDataHash")) {
		h.metrics.ObserveAuthRejection(boundaryWebAppHMAC)
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	description, payload, prices := q.Get("description"), q.Get("payload"), q.Get("prices")
	if description == "" || payload == "" || prices == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "description, payload and prices are required")
		return
	}

	intent, err := booking.ParseInvoicePayload(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", err.Error())
		return
	}
	if signedUser, ok := auth.UserID(dataCheckString); ok && signedUser != intent.UserID {
		h.metrics.ObserveAuthRejection(boundaryWebAppHMAC)
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	free, err := h.svc.IsSlotFree(r.Context(), booking.Slot{Date: intent.Date, Hour: intent.Hour})
	if err != nil {
		internalError(w, r, err)
		return
	}
	if !free {
		h.metrics.ObserveInvoiceLink("slot_taken")
		writeError(w, http.StatusConflict, "slot_already_booked", booking.ErrSlotTaken.Error())
		return
	}

	// The payload is re-encoded so the bot always receives the canonical form.
	resp, err := h.invoices.CreateInvoiceLink(r.Context(), telegram.InvoiceRequest{
		Description: description,
		Payload:     intent.String(),
		Prices:      prices,
	})
	if err != nil {
		h.metrics.ObserveInvoiceLink("error")
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("createInvoiceLink failed")
		writeError(w, http.StatusBadGateway, "telegram_unavailable", "")
		return
	}
	h.metrics.ObserveInvoiceLink(strconv.Itoa(resp.StatusCode))

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func (h *handlers) allowBot(token string) bool {
	if h.tokens.Allow(token) {
		return true
	}
	h.metrics.ObserveAuthRejection(boundaryBotToken)
	return false
}

func handleCreateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidAppointment):
		writeError(w, http.StatusBadRequest, "invalid_appointment", err.Error())
	case errors.Is(err, booking.ErrServiceNotFound):
		writeError(w, http.StatusBadRequest, "service_not_found", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		internalError(w, r, err)
	}
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal_error", "")
}
