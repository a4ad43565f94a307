package profile

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"github.com/koustreak/dschema/internal/errs"
)

// retry runs op, retrying statements that timed out up to StepRetries times
// with exponential backoff. Any other failure is returned at once.
func (p *Profiler) retry(ctx context.Context, op func() error) error {
	if p.opts.StepRetries == 0 {
		return op()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.opts.RetryInitialDelay
	policy.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(p.opts.StepRetries)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

func retryable(ctx context.Context, err error) bool {
	return ctx.Err() == nil && errs.IsTimeout(err)
}
