package nalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/vzubenko/npd-receipt-backend/internal/observability/metrics"
	"github.com/vzubenko/npd-receipt-backend/internal/receipt"
)

const (
	// registerAttempts is how many times a registration is tried before the
	// failure is handed back to the caller.
	registerAttempts = 3

	// registerDelay is the fixed pause between attempts. No backoff, no
	// jitter.
	registerDelay = 2 * time.Second
)

// RetryingRegistrar wraps a Registrar with bounded fixed-delay retry. After
// the attempts are exhausted the last error is returned as-is so callers (and
// the failure file) see the upstream message, not a wrapper around it.
type RetryingRegistrar struct {
	inner    Registrar
	attempts int
	delay    time.Duration
	logger   *slog.Logger

	// sleep is swapped out in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryingRegistrar wraps inner with the standard 3×/2s retry policy.
func NewRetryingRegistrar(inner Registrar, logger *slog.Logger) *RetryingRegistrar {
	return &RetryingRegistrar{
		inner:    inner,
		attempts: registerAttempts,
		delay:    registerDelay,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// RegisterIncome tries the inner registrar up to the attempt limit, logging
// each failure, and pausing the fixed delay between attempts (never after the
// last one).
func (r *RetryingRegistrar) RegisterIncome(ctx context.Context, d receipt.Declaration) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		receiptID, err := r.inner.RegisterIncome(ctx, d)
		if err == nil {
			metrics.IncRegistrarAttempt(metrics.ResultSuccess)
			if attempt > 1 {
				r.logger.Info("nalog: registration succeeded after retry",
					"attempt", attempt,
				)
			}
			return receiptID, nil
		}
		lastErr = err
		metrics.IncRegistrarAttempt(metrics.ResultError)

		r.logger.Warn("nalog: registration attempt failed",
			"attempt", attempt,
			"max", r.attempts,
			"error", err,
		)

		if attempt < r.attempts {
			if err := r.sleep(ctx, r.delay); err != nil {
				return "", lastErr
			}
		}
	}

	return "", lastErr
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
