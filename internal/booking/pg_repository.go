package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/salon-appointment-bot/internal/db"
)

// slotConstraint is the unique constraint on (appointment_date, appointment_time).
const slotConstraint = "appointments_slot_key"

// Querier is the subset of *pgxpool.Pool the repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool Querier
}

func NewPgRepository(pool Querier) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.ServiceIDs,
		&a.Date,
		&a.Hour,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Date = DateOf(a.Date)
	return &a, nil
}

// Interface methods

func (r *PgRepository) ListServices(ctx context.Context) ([]SalonService, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, price
		FROM services
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SalonService
	for rows.Next() {
		var s SalonService
		if err := rows.Scan(&s.ID, &s.Title, &s.Price); err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) BookedSlots(ctx context.Context, from, to time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT appointment_date, EXTRACT(HOUR FROM appointment_time)::int
		FROM appointments
		WHERE appointment_date BETWEEN $1 AND $2
		ORDER BY appointment_date, appointment_time
	`, DateOf(from), DateOf(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.Date, &s.Hour); err != nil {
			return nil, err
		}
		s.Date = DateOf(s.Date)
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// CreateAppointment inserts the row and lets the unique constraint decide
// between concurrent writers.
func (r *PgRepository) CreateAppointment(ctx context.Context, n NewAppointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (user_id, services_ids, appointment_date, appointment_time, created_at)
		VALUES ($1, $2, $3, make_time($4, 0, 0), now())
		RETURNING id, user_id, services_ids, appointment_date, EXTRACT(HOUR FROM appointment_time)::int, created_at
	`, n.UserID, n.ServiceIDs, DateOf(n.Date), n.Hour)

	appt, err := scanAppointment(row)
	if err != nil {
		if db.IsUniqueViolation(err, slotConstraint) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) ListActiveByUser(ctx context.Context, userID int64, from time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, services_ids, appointment_date, EXTRACT(HOUR FROM appointment_time)::int, created_at
		FROM appointments
		WHERE user_id = $1
		  AND appointment_date >= $2
		ORDER BY appointment_date, appointment_time
	`, userID, DateOf(from))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
