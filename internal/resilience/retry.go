package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig configures the exponential-backoff retry used around
// halt-record persistence (consent.RedisHaltStore), so a transient Redis
// blip doesn't immediately degrade a consent_required response into
// "resume won't work" per spec.md §4.7/§7.
type RetryConfig struct {
	MaxAttempts  uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryConfig mirrors the teacher's resilience.DefaultRetryConfig
// shape (100ms initial, 5s cap, 3 attempts) but is expressed against the
// real cenkalti/backoff/v5 dependency instead of a hand-rolled loop.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// Retry runs fn with exponential backoff until it succeeds, the context is
// cancelled, or MaxAttempts is exhausted.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts == 0 {
		cfg = DefaultRetryConfig()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.MaxInterval = cfg.MaxDelay

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	}, backoff.WithBackOff(b), backoff.WithMaxTries(cfg.MaxAttempts))
	return err
}
