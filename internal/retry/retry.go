// Package retry implements the capped exponential backoff helper the
// Stream Engine uses to replace the source's recursive
// `stream(data, retry_depth-1)` with an iterative loop (spec §9 Design
// Notes, "Recursive retry"). Grounded on internal/data/retry.go's
// ExecWithRetry, generalized from a pgx-specific exec to an arbitrary
// sink operation.
package retry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// MaxAttempts is the spec's retry_depth (§4.4): five attempts before
	// a Stream spills a batch to its failure directory.
	MaxAttempts   = 5
	baseBackoff   = 500 * time.Millisecond
	backoffFactor = 2
	capBackoff    = 30 * time.Second
)

// Classifier reports whether err is transient and worth retrying at
// all; a nil Classifier treats every non-nil error as transient.
type Classifier func(err error) bool

// Do runs fn up to MaxAttempts times with capped exponential backoff,
// invoking onRetry (if non-nil) between attempts so the caller can
// invalidate a stale connection before the next try. A cancelled ctx
// aborts immediately. Returns the last error if every attempt fails.
func Do(ctx context.Context, fn func(attempt int) error, onRetry func(attempt int, err error), classify Classifier) error {
	if classify == nil {
		classify = func(err error) bool { return err != nil }
	}
	backoff := baseBackoff
	var err error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err = fn(attempt)
		if err == nil {
			return nil
		}
		if !classify(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == MaxAttempts {
			break
		}
		logrus.WithError(err).WithField("attempt", attempt).Warn("retry: sink operation failed, retrying")
		if onRetry != nil {
			onRetry(attempt, err)
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= backoffFactor
		if backoff > capBackoff {
			backoff = capBackoff
		}
	}
	return err
}
