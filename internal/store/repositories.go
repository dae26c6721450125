package store

import (
	"context"
	"time"
)

// BookingRepository defines persistence operations for bookings.
type BookingRepository interface {
	Create(ctx context.Context, b NewBooking) (*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	GetByToken(ctx context.Context, token string) (*Booking, error)
	// UpdateStatusIfMatch moves the booking from expected to next only if it
	// is still in expected. Concurrent callers see exactly one Updated.
	UpdateStatusIfMatch(ctx context.Context, id string, expected, next Status, confirmedAt time.Time) (UpdateResult, error)
}
