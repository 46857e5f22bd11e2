// Package retry describes bounded exponential backoff. Policies are plain
// values and sleeping goes through Sleeper, so reconnect behavior is
// testable without waiting on the wall clock.
package retry

import (
	"context"
	"math"
	"time"
)

type Policy struct {
	// MaxAttempts is the number of consecutive failures tolerated before giving up.
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
		MaxDelay:    30 * time.Second,
	}
}

// Delay returns the wait before the retry that follows the given number of
// consecutive failures: BaseDelay * Multiplier^failures.
func (p Policy) Delay(failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(failures))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Exhausted reports whether failures has reached the attempt bound.
func (p Policy) Exhausted(failures int) bool {
	return failures >= p.MaxAttempts
}

type Sleeper interface {
	// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

type realSleeper struct{}

func RealSleeper() Sleeper { return realSleeper{} }

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
