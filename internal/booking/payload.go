package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrMalformedPayload = errors.New("malformed invoice payload")

// InvoicePayload is the booking intent round-tripped through the payment
// provider. Its wire form is
//
//	<user_id> <init_message_id> <services_ids> <date_iso> <time_iso>
//
// with services_ids comma-joined so it never contains a space.
type InvoicePayload struct {
	UserID        int64
	InitMessageID int
	ServiceIDs    []int64
	Date          time.Time
	Hour          int
}

func (p InvoicePayload) String() string {
	return strings.Join([]string{
		strconv.FormatInt(p.UserID, 10),
		strconv.Itoa(p.InitMessageID),
		FormatServiceIDs(p.ServiceIDs),
		FormatDate(p.Date),
		FormatHour(p.Hour),
	}, " ")
}

// Appointment converts the payload into the ledger's create request.
func (p InvoicePayload) Appointment() NewAppointment {
	return NewAppointment{
		UserID:     p.UserID,
		ServiceIDs: p.ServiceIDs,
		Date:       p.Date,
		Hour:       p.Hour,
	}
}

func ParseInvoicePayload(s string) (InvoicePayload, error) {
	fields := strings.Fields(s)
	if len(fields) != 5 {
		return InvoicePayload{}, fmt.Errorf("%w: want 5 fields, got %d", ErrMalformedPayload, len(fields))
	}

	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || userID <= 0 {
		return InvoicePayload{}, fmt.Errorf("%w: user id %q", ErrMalformedPayload, fields[0])
	}
	initMessageID, err := strconv.Atoi(fields[1])
	if err != nil || initMessageID < 0 {
		return InvoicePayload{}, fmt.Errorf("%w: message id %q", ErrMalformedPayload, fields[1])
	}
	serviceIDs, err := ParseServiceIDs(fields[2])
	if err != nil {
		return InvoicePayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	date, err := ParseDate(fields[3])
	if err != nil {
		return InvoicePayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	hour, err := ParseHour(fields[4])
	if err != nil {
		return InvoicePayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return InvoicePayload{
		UserID:        userID,
		InitMessageID: initMessageID,
		ServiceIDs:    serviceIDs,
		Date:          date,
		Hour:          hour,
	}, nil
}

func FormatServiceIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// ParseServiceIDs reads "1,2" as well as the JSON array form "[1,2]" the
// order page produces.
func ParseServiceIDs(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if s == "" {
		return nil, errors.New("no service ids")
	}

	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid service id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
