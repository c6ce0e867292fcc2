package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoicePayloadRoundTrip(t *testing.T) {
	p := InvoicePayload{
		UserID:        42,
		InitMessageID: 7,
		ServiceIDs:    []int64{1, 2},
		Date:          time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Hour:          14,
	}

	assert.Equal(t, "42 7 1,2 2024-06-01 14:00:00", p.String())

	parsed, err := ParseInvoicePayload(p.String())
	require.NoError(t, err)
	assert.Equal(t, p, parsed)
}

func TestParseInvoicePayloadAcceptsWebAppForm(t *testing.T) {
	parsed, err := ParseInvoicePayload("42 7 [1,2,5] 2024-06-01 14:00")
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 5}, parsed.ServiceIDs)
	assert.Equal(t, 14, parsed.Hour)

	n := parsed.Appointment()
	assert.Equal(t, int64(42), n.UserID)
	assert.Equal(t, parsed.Date, n.Date)
}

func TestParseInvoicePayloadRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"too few fields":   "42 7 1,2 2024-06-01",
		"too many fields":  "42 7 1 2 2024-06-01 14:00:00",
		"bad user":         "abc 7 1,2 2024-06-01 14:00:00",
		"zero user":        "0 7 1,2 2024-06-01 14:00:00",
		"bad message":      "42 x 1,2 2024-06-01 14:00:00",
		"empty services":   "42 7 [] 2024-06-01 14:00:00",
		"negative service": "42 7 1,-2 2024-06-01 14:00:00",
		"bad date":         "42 7 1,2 2024-13-01 14:00:00",
		"half hour":        "42 7 1,2 2024-06-01 14:30:00",
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseInvoicePayload(raw)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestParseServiceIDs(t *testing.T) {
	ids, err := ParseServiceIDs("[3]")
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids)

	ids, err = ParseServiceIDs("4,5")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, ids)
	assert.Equal(t, "4,5", FormatServiceIDs(ids))

	_, err = ParseServiceIDs("")
	assert.Error(t, err)
}
