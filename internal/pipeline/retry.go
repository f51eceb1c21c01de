package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ppiankov/continuum/internal/model"
)

// retryPolicy bounds one external call
type retryPolicy struct {
	maxAttempts int
	initial     time.Duration
	max         time.Duration
	callTimeout time.Duration
	retryable   func(error) bool
}

func newRetryPolicy(cfg model.RetryConfig, retryable func(error) bool) retryPolicy {
	p := retryPolicy{
		maxAttempts: cfg.MaxAttempts,
		initial:     cfg.InitialInterval,
		max:         cfg.MaxInterval,
		callTimeout: cfg.CallTimeout,
		retryable:   retryable,
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = 1
	}
	if p.initial <= 0 {
		p.initial = 500 * time.Millisecond
	}
	if p.max < p.initial {
		p.max = p.initial
	}
	return p
}

// callWithRetry runs fn with a per-attempt timeout, retrying transient
// errors with exponential backoff. The last error is returned.
func callWithRetry(ctx context.Context, p retryPolicy, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initial
	b.MaxInterval = p.max
	b.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		callCtx := ctx
		if p.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.callTimeout)
			defer cancel()
		}

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || (p.retryable != nil && !p.retryable(err)) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.Debug("retrying external call",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.maxAttempts-1)), ctx)
	return backoff.RetryNotify(operation, policy, notify)
}
