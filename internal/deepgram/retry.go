package deepgram

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/nguyentantai21042004/batch-transcriber/internal/domain"
)

// withRetry runs op until it succeeds, fails permanently, or the attempt
// budget is spent. Only quota/rate-limit and network errors are retried.
func (c *implClient) withRetry(ctx context.Context, name string, op func() (*domain.TranscriptResult, error)) (*domain.TranscriptResult, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialBackoff
	b.MaxInterval = c.opts.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0

	attempt := 0
	result, err := backoff.Retry(ctx, func() (*domain.TranscriptResult, error) {
		attempt++
		res, err := op()
		if err == nil {
			return res, nil
		}
		var tErr *domain.TranscriptionError
		if errors.As(err, &tErr) && tErr.Retryable() {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.opts.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn(ctx, "  ! %s: attempt %d/%d failed (%v), retrying in %s",
				name, attempt, c.opts.MaxAttempts, err, next)
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		return nil, err
	}
	return result, nil
}
