package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docqa/internal/llm"
)

// DefaultMaxAttempts bounds generation attempts per question.
const DefaultMaxAttempts = 3

const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 8 * time.Second
)

// IsRetryable reports whether err carries a transient provider failure.
func IsRetryable(err error) bool {
	var retryErr *llm.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff waits between half and all of base·2^attempt, capped at
// backoffCap. Attempts are 0-indexed.
func Backoff(attempt int) time.Duration {
	d := backoffCap
	if attempt < 5 {
		d = min(backoffBase<<attempt, backoffCap)
	}
	half := d / 2
	return half + time.Duration(rand.Int64N(int64(half)+1))
}
