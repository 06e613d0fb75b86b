package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound   = errors.New("qa record not found")
	ErrFeedbackConflict = errors.New("feedback already recorded for this answer")
	ErrInvalidVerdict   = errors.New("invalid verdict")
	ErrCorruptState     = errors.New("corrupt ledger state")
)

// PersistenceError is a failed save or load against a Store.
type PersistenceError struct {
	Op  string // save or load
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
