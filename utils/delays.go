package utils

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryDelay blocks between retry attempts and gives up when ctx ends.
type RetryDelay interface {
	Wait(ctx context.Context, attempt int) error
}

// ConstantDelay waits Period between attempts.
type ConstantDelay struct {
	Period time.Duration
}

func (d ConstantDelay) Wait(ctx context.Context, attempt int) error {
	return sleep(ctx, d.Period)
}

const (
	DefaultBackoffBase = 2 * time.Second
	DefaultBackoffMax  = 10 * time.Second
)

// ExponentialBackoff doubles Base per attempt up to Max, plus up to Jitter of
// random spread. The zero value waits 2s, 4s, 8s, 10s... with no jitter.
type ExponentialBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter time.Duration
}

// Delay is the deterministic part of the wait before attempt (1-based).
func (d ExponentialBackoff) Delay(attempt int) time.Duration {
	base, ceiling := d.Base, d.Max
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if ceiling <= 0 {
		ceiling = DefaultBackoffMax
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt && delay < ceiling; i++ {
		delay *= 2
	}
	return min(delay, ceiling)
}

func (d ExponentialBackoff) Wait(ctx context.Context, attempt int) error {
	delay := d.Delay(attempt)
	if d.Jitter > 0 {
		delay += rand.N(d.Jitter)
	}
	return sleep(ctx, delay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
