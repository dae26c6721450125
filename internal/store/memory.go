package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBookings is a BookingRepository kept in process memory. A single
// mutex serialises writers, which gives UpdateStatusIfMatch its atomicity.
type MemoryBookings struct {
	mu      sync.Mutex
	byID    map[string]*Booking
	byToken map[string]string
	now     func() time.Time
}

// NewMemoryBookings returns an empty in-memory repository.
func NewMemoryBookings() *MemoryBookings {
	return &MemoryBookings{
		byID:    make(map[string]*Booking),
		byToken: make(map[string]string),
		now:     time.Now,
	}
}

func (m *MemoryBookings) Create(ctx context.Context, nb NewBooking) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byToken[nb.ConfirmToken]; taken {
		return nil, ErrTokenConflict
	}

	b := &Booking{
		ID:           uuid.NewString(),
		ConfirmToken: nb.ConfirmToken,
		FullName:     nb.FullName,
		Email:        nb.Email,
		Phone:        nb.Phone,
		EventType:    nb.EventType,
		Location:     nb.Location,
		Notes:        nb.Notes,
		StartISO:     nb.StartISO,
		EndISO:       nb.EndISO,
		Timezone:     nb.Timezone,
		Status:       StatusRequested,
		CreatedAt:    m.now().UTC(),
	}
	m.byID[b.ID] = b
	m.byToken[b.ConfirmToken] = b.ID
	return clone(b), nil
}

func (m *MemoryBookings) GetByID(ctx context.Context, id string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(b), nil
}

func (m *MemoryBookings) GetByToken(ctx context.Context, token string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(m.byID[id]), nil
}

func (m *MemoryBookings) UpdateStatusIfMatch(ctx context.Context, id string, expected, next Status, confirmedAt time.Time) (UpdateResult, error) {
	if !expected.CanTransitionTo(next) {
		return UpdateResult{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, expected, next)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.byID[id]
	if !ok {
		return UpdateResult{Outcome: NotFound}, nil
	}
	switch b.Status {
	case expected:
		at := confirmedAt
		b.Status = next
		b.ConfirmedAt = &at
		return UpdateResult{Outcome: Updated, Booking: clone(b)}, nil
	case next:
		return UpdateResult{Outcome: AlreadyInTargetState, Booking: clone(b)}, nil
	}
	return UpdateResult{}, fmt.Errorf("%w: booking %s is %s", ErrInvalidTransition, id, b.Status)
}

// Count returns the number of stored bookings.
func (m *MemoryBookings) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func clone(b *Booking) *Booking {
	c := *b
	if b.ConfirmedAt != nil {
		t := *b.ConfirmedAt
		c.ConfirmedAt = &t
	}
	return &c
}
