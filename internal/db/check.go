package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Check probes the connection described by dsn, retrying transient
// failures with a growing backoff. Retries live here at the tooling
// level only; a Session never retries.
func Check(ctx context.Context, dsn string, maxAttempts uint8) error {
	pool, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer pool.Close()

	var attempt uint8
	for attempt = 1; attempt <= maxAttempts; attempt++ {
		err = pool.PingContext(ctx)
		if err == nil {
			slog.InfoContext(ctx, "Connection check succeeded", "attempt", attempt)
			return nil
		}
		if ctx.Err() != nil {
			return &CancellationError{Err: ctx.Err()}
		}

		slog.Warn("Connection check failed",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err,
		)
		if attempt < maxAttempts {
			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return &CancellationError{Err: ctx.Err()}
			}
		}
	}

	return &ConnectionError{Err: fmt.Errorf("no successful ping after %d attempts: %w", maxAttempts, err)}
}

// backoff grows linearly with the attempt number. The multiply happens
// in time.Duration: uint8 arithmetic would wrap to a zero sleep once
// attempt*2 passes 255.
func backoff(attempt uint8) time.Duration {
	return time.Duration(attempt) * 2 * time.Second
}
