package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/salon-appointment-bot/internal/auth"
	"github.com/hackgods/salon-appointment-bot/internal/booking"
	"github.com/hackgods/salon-appointment-bot/internal/observability/metrics"
	redisclient "github.com/hackgods/salon-appointment-bot/internal/redis"
	"github.com/hackgods/salon-appointment-bot/internal/telegram"
)

const testBotToken = "123456:test-token"

type fakeInvoices struct {
	calls []telegram.InvoiceRequest
	resp  *telegram.Response
	err   error
}

func (f *fakeInvoices) CreateInvoiceLink(ctx context.Context, in telegram.InvoiceRequest) (*telegram.Response, error) {
	f.calls = append(f.calls, in)
	return f.resp, f.err
}

type testEnv struct {
	server   *httptest.Server
	repo     *booking.MemoryRepository
	invoices *fakeInvoices
	webApp   *auth.WebAppAuthenticator
}

// Fixed clock: 2024-06-01 09:00 UTC.
var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	reg := prometheus.NewRegistry()
	m := metrics.NewBookingMetrics(reg)
	repo := booking.NewMemoryRepository([]booking.SalonService{
		{ID: 1, Title: "Haircut", Price: 30},
		{ID: 2, Title: "Manicure", Price: 25},
	})
	svc := booking.NewService(repo, redisclient.NewRedisSlotLocker(client, time.Second), booking.Options{
		Now:     func() time.Time { return testNow },
		Logger:  zerolog.Nop(),
		Metrics: m,
	})

	invoices := &fakeInvoices{resp: &telegram.Response{
		StatusCode:  http.StatusOK,
		ContentType: "application/json",
		Body:        []byte(`{"ok":true,"result":"https://t.me/$abc"}`),
	}}
	webApp := auth.NewWebAppAuthenticator(testBotToken)

	router := NewRouter(RouterConfig{
		Service:  svc,
		Invoices: invoices,
		WebApp:   webApp,
		Tokens:   auth.NewTokenGuard(testBotToken),
		Metrics:  m,
		Gatherer: reg,
		Checks:   []HealthCheck{RedisCheck(client)},
		Logger:   zerolog.Nop(),
		Env:      "test",
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, repo: repo, invoices: invoices, webApp: webApp}
}

func (e *testEnv) get(t *testing.T, path string, q url.Values) *http.Response {
	t.Helper()
	u := e.server.URL + path
	if q != nil {
		u += "?" + q.Encode()
	}
	resp, err := http.Get(u)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func appointmentQuery(token, user, services, date, hour string) url.Values {
	return url.Values{
		"bot_token":    {token},
		"user_id":      {user},
		"services_ids": {services},
		"date_iso":     {date},
		"time_iso":     {hour},
	}
}

func TestMakeAppointment(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/make_appointment", appointmentQuery(testBotToken, "42", "[1,2]", "2024-06-01", "14:00:00"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stored := env.repo.Appointments()
	require.Len(t, stored, 1)
	assert.Equal(t, []int64{1, 2}, stored[0].ServiceIDs)
	assert.Equal(t, 14, stored[0].Hour)

	resp = env.get(t, "/bot/make_appointment", appointmentQuery(testBotToken, "43", "2", "2024-06-01", "14:00"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Len(t, env.repo.Appointments(), 1)
}

func TestMakeAppointmentRejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		q    url.Values
		want int
	}{
		{"wrong token", appointmentQuery("nope", "42", "1", "2024-06-02", "12:00:00"), http.StatusForbidden},
		{"missing token", appointmentQuery("", "42", "1", "2024-06-02", "12:00:00"), http.StatusForbidden},
		{"bad user", appointmentQuery(testBotToken, "x", "1", "2024-06-02", "12:00:00"), http.StatusBadRequest},
		{"bad services", appointmentQuery(testBotToken, "42", "", "2024-06-02", "12:00:00"), http.StatusBadRequest},
		{"bad date", appointmentQuery(testBotToken, "42", "1", "06/02/2024", "12:00:00"), http.StatusBadRequest},
		{"half hour", appointmentQuery(testBotToken, "42", "1", "2024-06-02", "12:30:00"), http.StatusBadRequest},
		{"closed hour", appointmentQuery(testBotToken, "42", "1", "2024-06-02", "21:00:00"), http.StatusBadRequest},
		{"unknown service", appointmentQuery(testBotToken, "42", "9", "2024-06-02", "12:00:00"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.get(t, "/make_appointment", tt.q)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
	assert.Empty(t, env.repo.Appointments())
}

func TestFreeDates(t *testing.T) {
	env := newTestEnv(t)
	resp := env.get(t, "/make_appointment", appointmentQuery(testBotToken, "42", "1", "2024-06-01", "10:00:00"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = env.get(t, "/make_appointment", appointmentQuery(testBotToken, "42", "1", "2024-06-01", "11:00:00"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/bot/get_free_appointment_dates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[FreeDatesResponse](t, resp)

	assert.Len(t, body.FreeDates, 7)
	today := body.FreeDates["2024-06-01"]
	require.NotEmpty(t, today)
	assert.Equal(t, "12:00:00", today[0])
	assert.Equal(t, "20:00:00", today[len(today)-1])
	assert.Len(t, body.FreeDates["2024-06-07"], 10)
}

func TestActiveAppointments(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/get_active_appointments", url.Values{"bot_token": {"bad"}, "user_id": {"42"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.get(t, "/get_active_appointments", url.Values{"bot_token": {testBotToken}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.get(t, "/get_active_appointments", url.Values{"bot_token": {testBotToken}, "user_id": {"42"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := decode[ActiveAppointmentsResponse](t, resp)
	assert.NotNil(t, empty.ActiveAppointments)
	assert.Empty(t, empty.ActiveAppointments)

	resp = env.get(t, "/make_appointment", appointmentQuery(testBotToken, "42", "1,2", "2024-06-03", "15:00:00"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/get_active_appointments", url.Values{"bot_token": {testBotToken}, "user_id": {"42"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[ActiveAppointmentsResponse](t, resp)
	require.Len(t, body.ActiveAppointments, 1)
	assert.Equal(t, ActiveAppointmentResponse{
		ServicesTitles: []string{"Haircut", "Manicure"},
		Date:           "2024-06-03",
		Time:           "15:00:00",
	}, body.ActiveAppointments[0])

	resp = env.get(t, "/metrics", nil)
	assert.Contains(t, readAll(t, resp), `salon_http_auth_rejections_total{boundary="bot_token"} 1`)
}

func (e *testEnv) invoiceQuery(dataCheckString, payload string) url.Values {
	raw := url.PathEscape(dataCheckString)
	return url.Values{
		"initDataHash":    {e.webApp.Sign(dataCheckString)},
		"dataCheckString": {raw},
		"description":     {"Beauty salon services"},
		"payload":         {payload},
		"prices":          {`[{"label":"Haircut","amount":3000}]`},
	}
}

const signedUser42 = `auth_date=1717232400` + "\n" + `user={"id":42,"first_name":"Ann"}`

func TestCreateInvoiceLinkRelaysTelegram(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/bot/create_invoice_link", env.invoiceQuery(signedUser42, "42 7 [1] 2024-06-02 14:00"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "https://t.me/$abc", body["result"])

	require.Len(t, env.invoices.calls, 1)
	assert.Equal(t, "42 7 1 2024-06-02 14:00:00", env.invoices.calls[0].Payload)
	assert.Equal(t, `[{"label":"Haircut","amount":3000}]`, env.invoices.calls[0].Prices)
}

func TestCreateInvoiceLinkRelaysTelegramErrors(t *testing.T) {
	env := newTestEnv(t)
	env.invoices.resp = &telegram.Response{StatusCode: http.StatusBadRequest, Body: []byte(`{"ok":false}`)}

	resp := env.get(t, "/create_invoice_link", env.invoiceQuery(signedUser42, "42 7 1 2024-06-02 14:00:00"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.invoices.err = errors.New("dial tcp: timeout")
	resp = env.get(t, "/create_invoice_link", env.invoiceQuery(signedUser42, "42 7 1 2024-06-02 14:00:00"))
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestCreateInvoiceLinkRejections(t *testing.T) {
	env := newTestEnv(t)
	resp := env.get(t, "/make_appointment", appointmentQuery(testBotToken, "7", "2", "2024-06-02", "16:00:00"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tampered := env.invoiceQuery(signedUser42, "42 7 1 2024-06-02 14:00:00")
	tampered.Set("dataCheckString", url.PathEscape(`auth_date=1717232400`+"\n"+`user={"id":43}`))

	missing := env.invoiceQuery(signedUser42, "42 7 1 2024-06-02 14:00:00")
	missing.Del("prices")

	tests := []struct {
		name string
		q    url.Values
		want int
	}{
		{"tampered check string", tampered, http.StatusUnauthorized},
		{"no signature", url.Values{"dataCheckString": {"a=b"}}, http.StatusUnauthorized},
		{"user mismatch", env.invoiceQuery(signedUser42, "43 7 1 2024-06-02 14:00:00"), http.StatusUnauthorized},
		{"missing prices", missing, http.StatusBadRequest},
		{"malformed payload", env.invoiceQuery(signedUser42, "42 7 1 tomorrow 14:00:00"), http.StatusBadRequest},
		{"slot taken", env.invoiceQuery(signedUser42, "42 7 1 2024-06-02 16:00:00"), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.get(t, "/create_invoice_link", tt.q)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
	assert.Empty(t, env.invoices.calls)
}

func TestMakeOrderPage(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/bot/make_order", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.get(t, "/bot/make_order", url.Values{"init_message_id": {"77"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	page := readAll(t, resp)
	assert.Contains(t, page, "Haircut")
	assert.Regexp(t, `const initMessageId = \s*77\s*;`, page)
}

func TestServicesAndOps(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/services", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Services []booking.SalonService `json:"services"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Services, 2)

	resp = env.get(t, "/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = env.get(t, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.get(t, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readAll(t, resp), "salon_booking_conflicts_total")
}
