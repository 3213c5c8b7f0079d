package upstream

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/racedecoder/f1-warehouse-go/log"
)

// ErrInvalidPayload marks a structurally invalid upstream response
// (empty schedule, zero lap rows). Retrying won't fix malformed data,
// so these are never retried.
var ErrInvalidPayload = errors.New("invalid upstream payload")

type retrySchedule struct {
	attempts uint64
	base     time.Duration
}

// withRetries wraps a flaky upstream call in a bounded exponential
// backoff: base * 2^(attempt-1) between attempts, no jitter. The last
// error is returned when all attempts fail.
//
//nolint:whitespace // can't make both editor and linter happy
func withRetries[T any](
	ctx context.Context,
	logger *log.Logger,
	label string,
	sched retrySchedule,
	timer backoff.Timer,
	fn func() (T, error),
) (T, error) {
	var result T
	op := func() error {
		r, err := fn()
		if err != nil {
			if errors.Is(err, ErrInvalidPayload) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = r
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = sched.base
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = time.Hour
	bo.MaxElapsedTime = 0

	notify := func(err error, next time.Duration) {
		logger.Warn("upstream call failed, retrying",
			log.String("label", label),
			log.Duration("backoff", next),
			log.ErrorField(err))
	}

	err := backoff.RetryNotifyWithTimer(op,
		backoff.WithContext(backoff.WithMaxRetries(bo, sched.attempts-1), ctx),
		notify, timer)
	return result, err
}
