package booking

import (
	"time"
)

// SalonService is an entry of the service catalogue. Prices are whole
// currency units.
type SalonService struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Price int    `json:"price"`
}

// Appointment is a committed booking of one slot. Date is the calendar day at
// UTC midnight, Hour the slot start hour.
type Appointment struct {
	ID         int64
	UserID     int64
	ServiceIDs []int64
	Date       time.Time
	Hour       int
	CreatedAt  time.Time
}

// Slot returns the key the appointment occupies.
func (a Appointment) Slot() Slot {
	return Slot{Date: a.Date, Hour: a.Hour}
}

// NewAppointment is the booking intent recorded after payment.
type NewAppointment struct {
	UserID     int64
	ServiceIDs []int64
	Date       time.Time
	Hour       int
}

func (n NewAppointment) Slot() Slot {
	return Slot{Date: n.Date, Hour: n.Hour}
}

// ActiveAppointment is an upcoming appointment with service titles resolved.
type ActiveAppointment struct {
	Date          time.Time
	Hour          int
	ServiceTitles []string
}

// DaySlots lists the free hours of one date.
type DaySlots struct {
	Date  time.Time
	Hours []int
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *int64
	Payload       []byte
	CreatedAt     time.Time
}
