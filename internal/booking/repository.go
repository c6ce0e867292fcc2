package booking

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSlotTaken is returned when the (date, hour) pair already holds an appointment.
	ErrSlotTaken = errors.New("slot already booked")
	// ErrServiceNotFound marks a service id with no catalogue entry.
	ErrServiceNotFound = errors.New("service not found")
)

// Repository contains all storage interactions needed by the service.
type Repository interface {
	ListServices(ctx context.Context) ([]SalonService, error)

	// Booked slots with from <= date <= to.
	BookedSlots(ctx context.Context, from, to time.Time) ([]Slot, error)

	// CreateAppointment must fail with ErrSlotTaken when the slot is occupied,
	// atomically with the insert.
	CreateAppointment(ctx context.Context, n NewAppointment) (*Appointment, error)

	// Appointments of userID with date >= from, ordered by date then hour.
	ListActiveByUser(ctx context.Context, userID int64, from time.Time) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
