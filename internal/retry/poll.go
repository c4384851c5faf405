package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

// Poll calls probe until it reports done, returns an error or maxAttempts
// calls were made. The first call happens immediately, subsequent ones are
// spaced by interval.
// It returns the value of the last probe call. stillPending is true when
// all attempts were used up without probe reporting done.
func Poll[T any](
	ctx context.Context,
	maxAttempts uint64,
	interval time.Duration,
	probe func(context.Context) (result T, done bool, err error),
) (result T, stillPending bool, err error) {
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), maxAttempts-1)
	bo.Reset()

	for {
		var done bool

		result, done, err = probe(ctx)
		if err != nil {
			return result, false, err
		}

		if done {
			return result, false, nil
		}

		next := bo.NextBackOff()
		if next == backoff.Stop {
			return result, true, nil
		}

		t := time.NewTimer(next)
		select {
		case <-ctx.Done():
			t.Stop()
			return result, true, ctx.Err()
		case <-t.C:
		}
	}
}
