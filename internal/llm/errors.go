package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyAnswer is returned when the model produced no usable text.
var ErrEmptyAnswer = errors.New("empty answer from model")

// GenerationError is any failure to obtain an answer from a provider.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate (%s): %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// RetryableError indicates a transient failure that can be retried.
// StatusCode is zero for transport failures.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("retryable error: %s", truncate(e.Message, 200))
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
