package booking

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps the ledger in process memory. It backs the memory
// storage driver for local runs and the tests; slot uniqueness is enforced
// under the same mutex as the insert.
type MemoryRepository struct {
	mu       sync.Mutex
	nextID   int64
	services []SalonService
	bySlot   map[string]Appointment
	events   []EventLog
	now      func() time.Time
}

func NewMemoryRepository(services []SalonService) *MemoryRepository {
	return &MemoryRepository{
		services: slices.Clone(services),
		bySlot:   make(map[string]Appointment),
		now:      time.Now,
	}
}

func (r *MemoryRepository) ListServices(ctx context.Context) ([]SalonService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.services), nil
}

func (r *MemoryRepository) BookedSlots(ctx context.Context, from, to time.Time) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	from, to = DateOf(from), DateOf(to)
	var result []Slot
	for _, appt := range r.bySlot {
		if appt.Date.Before(from) || appt.Date.After(to) {
			continue
		}
		result = append(result, appt.Slot())
	}
	sort.Slice(result, func(i, j int) bool {
		return slotLess(result[i], result[j])
	})
	return result, nil
}

func (r *MemoryRepository) CreateAppointment(ctx context.Context, n NewAppointment) (*Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	slot := n.Slot()
	slot.Date = DateOf(slot.Date)
	if _, taken := r.bySlot[slot.Key()]; taken {
		return nil, ErrSlotTaken
	}

	r.nextID++
	appt := Appointment{
		ID:         r.nextID,
		UserID:     n.UserID,
		ServiceIDs: slices.Clone(n.ServiceIDs),
		Date:       slot.Date,
		Hour:       slot.Hour,
		CreatedAt:  r.now(),
	}
	r.bySlot[slot.Key()] = appt

	out := appt
	return &out, nil
}

func (r *MemoryRepository) ListActiveByUser(ctx context.Context, userID int64, from time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	from = DateOf(from)
	var result []Appointment
	for _, appt := range r.bySlot {
		if appt.UserID != userID || appt.Date.Before(from) {
			continue
		}
		appt.ServiceIDs = slices.Clone(appt.ServiceIDs)
		result = append(result, appt)
	}
	sort.Slice(result, func(i, j int) bool {
		return slotLess(result[i].Slot(), result[j].Slot())
	})
	return result, nil
}

func (r *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Appointments returns every stored appointment ordered by slot.
func (r *MemoryRepository) Appointments() []Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Appointment, 0, len(r.bySlot))
	for _, appt := range r.bySlot {
		result = append(result, appt)
	}
	sort.Slice(result, func(i, j int) bool {
		return slotLess(result[i].Slot(), result[j].Slot())
	})
	return result
}

func slotLess(a, b Slot) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	return a.Hour < b.Hour
}
