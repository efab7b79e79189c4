package analysis

import (
	"context"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
)

// SleepFunc pauses for d or until the context ends. Injectable so tests
// never wait on real timers.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retryer re-runs an operation on transient failures with exponential
// backoff. Anything that is not a TransientError returns immediately;
// retrying malformed input or a policy denial cannot help.
type Retryer struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Sleep       SleepFunc
	OnRetry     func(op string)
}

func NewRetryer() Retryer {
	return Retryer{
		MaxAttempts: defaultMaxAttempts,
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    defaultMaxDelay,
		Sleep:       sleepWithContext,
	}
}

func (r Retryer) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	logger := zerolog.Ctx(ctx)

	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !domain.IsTransient(err) || attempt == attempts {
			return err
		}

		delay := r.backoff(attempt)
		logger.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("transient failure, retrying")
		if r.OnRetry != nil {
			r.OnRetry(op)
		}

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}
	return err
}

func (r Retryer) backoff(attempt int) time.Duration {
	base := r.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	max := r.MaxDelay
	if max <= 0 {
		max = defaultMaxDelay
	}

	delay := base << (attempt - 1)
	if delay > max {
		return max
	}
	return delay
}
