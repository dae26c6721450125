package store

import (
	"context"
	"errors"
	"time"

	"github.com/saadiahenna/hennabook/internal/metrics"
)

// observeDB times a database operation. Call the returned func with a pointer
// to the operation's error so failures are counted as well.
func observeDB(ctx context.Context, operation string) func(*error) {
	start := time.Now()
	return func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		if errors.Is(err, ErrNotFound) {
			err = nil
		}
		metrics.ObserveDBLatency(ctx, operation, start, err)
	}
}
