package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/salon-appointment-bot/internal/observability/metrics"
	redisclient "github.com/hackgods/salon-appointment-bot/internal/redis"
)

const (
	EventAppointmentCreated  = "APPOINTMENT_CREATED"
	EventAppointmentConflict = "APPOINTMENT_CONFLICT"
)

var (
	ErrSlotBeingBooked    = errors.New("slot is currently being booked, please retry")
	ErrInvalidAppointment = errors.New("invalid appointment")
)

// IsConflict reports whether err means the requested slot is not available.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSlotTaken) || errors.Is(err, ErrSlotBeingBooked)
}

type Options struct {
	Hours      Hours
	WindowDays int
	Location   *time.Location
	Now        func() time.Time
	Logger     zerolog.Logger
	Metrics    *metrics.BookingMetrics
}

// Service computes free slots and records appointments.
type Service struct {
	repo       Repository
	locker     redisclient.Locker
	hours      Hours
	windowDays int
	loc        *time.Location
	now        func() time.Time
	log        zerolog.Logger
	metrics    *metrics.BookingMetrics
}

func NewService(repo Repository, locker redisclient.Locker, opts Options) *Service {
	if opts.Hours == (Hours{}) {
		opts.Hours = DefaultHours
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 7
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:       repo,
		locker:     locker,
		hours:      opts.Hours,
		windowDays: opts.WindowDays,
		loc:        opts.Location,
		now:        opts.Now,
		log:        opts.Logger,
		metrics:    opts.Metrics,
	}
}

func (s *Service) Hours() Hours {
	return s.hours
}

func (s *Service) localNow() time.Time {
	return s.now().In(s.loc)
}

// Today is the current calendar date in the salon's time zone.
func (s *Service) Today() time.Time {
	return DateOf(s.localNow())
}

// FreeSlots returns the bookable hours of date in ascending order. The result
// is advisory: a slot may be taken before it is booked.
func (s *Service) FreeSlots(ctx context.Context, date time.Time) ([]int, error) {
	date = DateOf(date)
	candidates := s.hours.CandidateHours(date, s.localNow())
	if len(candidates) == 0 {
		return nil, nil
	}

	booked, err := s.repo.BookedSlots(ctx, date, date)
	if err != nil {
		return nil, fmt.Errorf("load booked slots: %w", err)
	}

	return FreeHours(candidates, bookedByDate(booked)[date]), nil
}

// FreeDates returns the dates of the booking window that still have at least
// one free hour, in date order.
func (s *Service) FreeDates(ctx context.Context) ([]DaySlots, error) {
	now := s.localNow()
	from := DateOf(now)
	to := from.AddDate(0, 0, s.windowDays-1)

	booked, err := s.repo.BookedSlots(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load booked slots: %w", err)
	}
	byDate := bookedByDate(booked)

	var days []DaySlots
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		free := FreeHours(s.hours.CandidateHours(date, now), byDate[date])
		if len(free) > 0 {
			days = append(days, DaySlots{Date: date, Hours: free})
		}
	}
	return days, nil
}

// IsSlotFree checks a single slot against the current free list.
func (s *Service) IsSlotFree(ctx context.Context, slot Slot) (bool, error) {
	free, err := s.FreeSlots(ctx, slot.Date)
	if err != nil {
		return false, err
	}
	for _, hour := range free {
		if hour == slot.Hour {
			return true, nil
		}
	}
	return false, nil
}

func bookedByDate(slots []Slot) map[time.Time]map[int]struct{} {
	out := make(map[time.Time]map[int]struct{})
	for _, slot := range slots {
		date := DateOf(slot.Date)
		if out[date] == nil {
			out[date] = make(map[int]struct{})
		}
		out[date][slot.Hour] = struct{}{}
	}
	return out
}

func (s *Service) validate(ctx context.Context, n NewAppointment) error {
	if n.UserID <= 0 {
		return fmt.Errorf("%w: user id must be positive", ErrInvalidAppointment)
	}
	if len(n.ServiceIDs) == 0 {
		return fmt.Errorf("%w: at least one service is required", ErrInvalidAppointment)
	}
	if !s.hours.Contains(n.Hour) {
		return fmt.Errorf("%w: hour %d outside opening hours", ErrInvalidAppointment, n.Hour)
	}
	if DateOf(n.Date).Before(s.Today()) {
		return fmt.Errorf("%w: date %s is in the past", ErrInvalidAppointment, FormatDate(n.Date))
	}

	catalogue, err := s.catalogue(ctx)
	if err != nil {
		return err
	}
	for _, id := range n.ServiceIDs {
		if id <= 0 {
			return fmt.Errorf("%w: service id %d", ErrInvalidAppointment, id)
		}
		if _, ok := catalogue[id]; !ok {
			return fmt.Errorf("%w: id %d", ErrServiceNotFound, id)
		}
	}
	return nil
}

// CreateAppointment records a booking. Two concurrent calls for the same slot
// cannot both succeed: the Redis lock rejects the overlapping caller and the
// storage unique constraint rejects anything that slips past it.
func (s *Service) CreateAppointment(ctx context.Context, n NewAppointment) (*Appointment, error) {
	n.Date = DateOf(n.Date)
	if err := s.validate(ctx, n); err != nil {
		return nil, err
	}

	slot := n.Slot()
	var created *Appointment

	err := s.locker.WithSlotLock(ctx, slot.Key(), func(lockCtx context.Context) error {
		appt, err := s.repo.CreateAppointment(lockCtx, n)
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return err
			}
			return fmt.Errorf("create appointment: %w", err)
		}
		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			err = ErrSlotBeingBooked
		}
		if IsConflict(err) {
			s.metrics.ObserveConflict()
			s.logEvent(ctx, nil, EventAppointmentConflict, map[string]any{
				"user_id": n.UserID,
				"slot":    slot.Key(),
				"reason":  err.Error(),
			})
		}
		return nil, err
	}

	s.metrics.ObserveCreated()
	s.logEvent(ctx, &created.ID, EventAppointmentCreated, map[string]any{
		"user_id":      created.UserID,
		"services_ids": created.ServiceIDs,
		"slot":         slot.Key(),
	})

	return created, nil
}

// ActiveAppointments lists the user's appointments from today on, with
// service titles. Unknown service ids are logged and left out; they do not
// abort the listing.
func (s *Service) ActiveAppointments(ctx context.Context, userID int64) ([]ActiveAppointment, error) {
	appts, err := s.repo.ListActiveByUser(ctx, userID, s.Today())
	if err != nil {
		return nil, fmt.Errorf("list active appointments: %w", err)
	}
	if len(appts) == 0 {
		return []ActiveAppointment{}, nil
	}

	catalogue, err := s.catalogue(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]ActiveAppointment, 0, len(appts))
	for _, appt := range appts {
		titles := make([]string, 0, len(appt.ServiceIDs))
		for _, id := range appt.ServiceIDs {
			svc, ok := catalogue[id]
			if !ok {
				s.log.Error().
					Err(ErrServiceNotFound).
					Int64("appointment_id", appt.ID).
					Int64("service_id", id).
					Msg("appointment references unknown service")
				continue
			}
			titles = append(titles, svc.Title)
		}
		active = append(active, ActiveAppointment{
			Date:          appt.Date,
			Hour:          appt.Hour,
			ServiceTitles: titles,
		})
	}
	return active, nil
}

func (s *Service) ListServices(ctx context.Context) ([]SalonService, error) {
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

func (s *Service) catalogue(ctx context.Context) (map[int64]SalonService, error) {
	services, err := s.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]SalonService, len(services))
	for _, svc := range services {
		byID[svc.ID] = svc
	}
	return byID, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID *int64, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Msg("failed to insert event log")
	}
}
