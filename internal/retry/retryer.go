// Package retry runs operations repeatedly until they succeed or a cancel
// condition happens.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/simplesurance/depupdater/internal/logfields"
	"github.com/simplesurance/depupdater/internal/updateerr"
)

const loggerName = "retryer"

const (
	DefaultTimeout                    = 2 * time.Minute
	DefaultBackoffInitialInterval     = 2 * time.Second
	DefaultBackoffRandomizationFactor = 0.5
)

// ErrStopped is returned by Run when the Retryer was stopped.
var ErrStopped = errors.New("retryer stopped")

// Retryer executes a function repeatedly until it was successful or cancel
// condition happened.
type Retryer struct {
	logger                     *zap.Logger
	defTimeout                 time.Duration
	backoffInitialInterval     time.Duration
	backoffRandomizationFactor float64
	shutdownChan               chan struct{}
}

func NewRetryer() *Retryer {
	return &Retryer{
		logger:                     zap.L().Named(loggerName),
		defTimeout:                 DefaultTimeout,
		backoffInitialInterval:     DefaultBackoffInitialInterval,
		backoffRandomizationFactor: DefaultBackoffRandomizationFactor,
		shutdownChan:               make(chan struct{}),
	}
}

// Run executes fn until it was successful, it returned an error that
// does not wrap updateerr.RetryableError or the execution was aborted via the
// context.
// If ctx has no deadline, the default timeout of the Retryer is applied.
func (r *Retryer) Run(ctx context.Context, fn func(context.Context) error, logF []zap.Field) error {
	var tryCnt uint
	var lastErr error

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancelFn context.CancelFunc
		ctx, cancelFn = context.WithTimeout(ctx, r.defTimeout)
		defer cancelFn()
	}

	retryTimer := time.NewTimer(0)
	defer retryTimer.Stop()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.backoffInitialInterval
	bo.RandomizationFactor = r.backoffRandomizationFactor
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		tryCnt++
		logger := r.logger.With(logF...).With(zap.Uint("try_count", tryCnt))

		select {
		case <-ctx.Done():
			logger.Debug(
				"operation cancelled",
				logfields.Event("operation_cancelled"),
				zap.Error(lastErr),
			)

			if lastErr != nil {
				return fmt.Errorf("%w, last error: %s", ctx.Err(), lastErr)
			}

			return ctx.Err()

		case <-retryTimer.C:
			err := fn(ctx)
			if err == nil {
				if tryCnt > 1 {
					logger.Debug(
						"operation succeeded after retrying",
						logfields.Event("operation_retry_succeeded"),
					)
				}

				return nil
			}

			var retryError *updateerr.RetryableError

			if errors.Is(err, context.Canceled) || !errors.As(err, &retryError) {
				return err
			}

			lastErr = err

			if deadline, ok := ctx.Deadline(); ok && retryError.After.After(deadline) {
				logger.Info(
					"operation failed, next possible retry time is after timeout expiration",
					logfields.Event("operation_failed"),
					zap.Time("earliest_allowed_retry", retryError.After),
					zap.Error(err),
				)

				return err
			}

			retryIn := bo.NextBackOff()
			if untilAfter := time.Until(retryError.After); untilAfter > retryIn {
				retryIn = untilAfter
			}

			retryTimer.Reset(retryIn)

			logger.Info(
				"operation failed, retry scheduled",
				logfields.Event("operation_retry_scheduled"),
				zap.Duration("retry_in", retryIn),
				zap.Duration("age", bo.GetElapsedTime()),
				zap.Error(err),
			)

		case <-r.shutdownChan:
			logger.Info(
				"retryer terminating, operation not executed",
				logfields.Event("operation_cancelled_retryer_terminated"),
			)

			return ErrStopped
		}
	}
}

// Stop notifies all Run() methods to terminate.
// It does not wait for their termination.
func (r *Retryer) Stop() {
	r.logger.Debug("retryer terminating", logfields.Event("retryer_terminating"))

	select {
	case <-r.shutdownChan:
		return // already closed
	default:
		close(r.shutdownChan)
	}
}
