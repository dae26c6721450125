package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Store aggregates repositories behind a shared backend.
type Store struct {
	pool pinger

	Bookings BookingRepository
}

// NewPostgres wires repositories backed by a pgx connection pool.
func NewPostgres(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:     pool,
		Bookings: &bookingRepo{pool: pool},
	}
}

// NewMemory wires in-process repositories. Data does not survive a restart.
func NewMemory() *Store {
	return &Store{
		Bookings: NewMemoryBookings(),
	}
}

// HealthCheck verifies that the underlying database is reachable.
func (s *Store) HealthCheck(ctx context.Context) (err error) {
	if s.pool == nil {
		return nil
	}
	defer observeDB(ctx, "db.healthcheck")(&err)
	return s.pool.Ping(ctx)
}
