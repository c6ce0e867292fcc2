// Package backendclient is the bot's HTTP client for the booking backend.
package backendclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hackgods/salon-appointment-bot/internal/booking"
)

var ErrForbidden = errors.New("backend rejected bot token")

// FreeDatesResponse is the body of /get_free_appointment_dates.
type FreeDatesResponse struct {
	FreeDates map[string][]string `json:"free_dates"`
}

// ActiveAppointmentDTO is one entry of /get_active_appointments.
type ActiveAppointmentDTO struct {
	ServicesTitles []string `json:"services_titles"`
	Date           string   `json:"date"`
	Time           string   `json:"time"`
}

type ActiveAppointmentsResponse struct {
	ActiveAppointments []ActiveAppointmentDTO `json:"active_appointments"`
}

type Client struct {
	baseURL  string
	botToken string
	client   *http.Client
}

func New(baseURL, botToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		botToken: botToken,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) FreeDates(ctx context.Context) ([]booking.DaySlots, error) {
	var resp FreeDatesResponse
	if err := c.getJSON(ctx, "/get_free_appointment_dates", nil, &resp); err != nil {
		return nil, err
	}

	days := make([]booking.DaySlots, 0, len(resp.FreeDates))
	for rawDate, rawHours := range resp.FreeDates {
		date, err := booking.ParseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("free dates: %w", err)
		}
		hours := make([]int, 0, len(rawHours))
		for _, raw := range rawHours {
			hour, err := booking.ParseHour(raw)
			if err != nil {
				return nil, fmt.Errorf("free dates: %w", err)
			}
			hours = append(hours, hour)
		}
		sort.Ints(hours)
		if len(hours) > 0 {
			days = append(days, booking.DaySlots{Date: date, Hours: hours})
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

func (c *Client) ActiveAppointments(ctx context.Context, userID int64) ([]booking.ActiveAppointment, error) {
	q := url.Values{}
	q.Set("bot_token", c.botToken)
	q.Set("user_id", strconv.FormatInt(userID, 10))

	var resp ActiveAppointmentsResponse
	if err := c.getJSON(ctx, "/get_active_appointments", q, &resp); err != nil {
		return nil, err
	}

	active := make([]booking.ActiveAppointment, 0, len(resp.ActiveAppointments))
	for _, dto := range resp.ActiveAppointments {
		date, err := booking.ParseDate(dto.Date)
		if err != nil {
			return nil, fmt.Errorf("active appointments: %w", err)
		}
		hour, err := booking.ParseHour(dto.Time)
		if err != nil {
			return nil, fmt.Errorf("active appointments: %w", err)
		}
		active = append(active, booking.ActiveAppointment{
			Date:          date,
			Hour:          hour,
			ServiceTitles: dto.ServicesTitles,
		})
	}
	return active, nil
}

// CreateAppointment asks the backend to record a booking. The backend only
// answers OK, so the returned appointment echoes the request.
func (c *Client) CreateAppointment(ctx context.Context, n booking.NewAppointment) (*booking.Appointment, error) {
	q := url.Values{}
	q.Set("bot_token", c.botToken)
	q.Set("user_id", strconv.FormatInt(n.UserID, 10))
	q.Set("services_ids", booking.FormatServiceIDs(n.ServiceIDs))
	q.Set("date_iso", booking.FormatDate(n.Date))
	q.Set("time_iso", booking.FormatHour(n.Hour))

	resp, err := c.do(ctx, "/make_appointment", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, err
	}

	return &booking.Appointment{
		UserID:     n.UserID,
		ServiceIDs: n.ServiceIDs,
		Date:       booking.DateOf(n.Date),
		Hour:       n.Hour,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	resp, err := c.do(ctx, path, q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", path, err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return booking.ErrSlotTaken
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s", booking.ErrInvalidAppointment, strings.TrimSpace(string(body)))
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("backend error: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
