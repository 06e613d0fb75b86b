// Package ledger records every answered question, applies one-shot user
// feedback, and persists the stats and QA log as a pair.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists ledger state. Save must be all-or-nothing: after a failed
// Save the previously stored state is still what Load returns.
type Store interface {
	Save(ctx context.Context, st State) error
	Load(ctx context.Context) (State, error)
}

// Ledger is safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	store   Store
	log     *slog.Logger
	stats   Stats
	records []QARecord
	byID    map[string]int
	now     func() time.Time
}

// New returns an empty ledger. A nil store keeps everything in memory.
func New(store Store, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		store: store,
		log:   log,
		byID:  make(map[string]int),
		now:   time.Now,
	}
}

// RecordAnswer appends an unrated record and returns its id.
func (l *Ledger) RecordAnswer(query, retrieved string, page int, answer string) string {
	id := uuid.NewString()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.byID[id] = len(l.records)
	l.records = append(l.records, QARecord{
		ID:               id,
		Query:            query,
		RetrievalContext: retrieved,
		RetrievedPage:    page,
		GeneratedAnswer:  answer,
		CreatedAt:        l.now().UTC(),
	})
	l.stats.Total++
	return id
}

// ApplyFeedback rates the record with the given id and then writes the
// ledger through to the store. If that write fails the rating still
// stands in memory and a *PersistenceError is returned.
func (l *Ledger) ApplyFeedback(ctx context.Context, id string, v Verdict) error {
	if v != Correct && v != Incorrect {
		return fmt.Errorf("%w: %s", ErrInvalidVerdict, v)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	rec := &l.records[i]
	if rec.Feedback != Unset {
		return fmt.Errorf("%w: %s is already %s", ErrFeedbackConflict, id, rec.Feedback)
	}
	rec.Feedback = v
	if v == Correct {
		l.stats.Correct++
	} else {
		l.stats.Incorrect++
	}
	l.log.Info("feedback applied", "record_id", id, "verdict", v.String(),
		"total", l.stats.Total, "correct", l.stats.Correct, "incorrect", l.stats.Incorrect)

	return l.saveLocked(ctx)
}

// Save persists the current state.
func (l *Ledger) Save(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveLocked(ctx)
}

func (l *Ledger) saveLocked(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	if err := l.store.Save(ctx, l.stateLocked()); err != nil {
		l.log.Error("ledger save failed", "error", err)
		var pe *PersistenceError
		if errors.As(err, &pe) {
			return err
		}
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// Load replaces the in-memory state with the stored one. On any error the
// current state is kept.
func (l *Ledger) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	st, err := l.store.Load(ctx)
	if err != nil {
		var pe *PersistenceError
		if errors.As(err, &pe) {
			return err
		}
		return &PersistenceError{Op: "load", Err: err}
	}
	if err := st.validate(); err != nil {
		return &PersistenceError{Op: "load", Err: err}
	}

	byID := make(map[string]int, len(st.Records))
	for i, r := range st.Records {
		byID[r.ID] = i
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats = st.Stats
	l.records = st.Records
	l.byID = byID
	l.log.Info("ledger loaded", "total", st.Stats.Total, "correct", st.Stats.Correct, "incorrect", st.Stats.Incorrect)
	return nil
}

// Snapshot returns copies of the stats and the ordered QA log.
func (l *Ledger) Snapshot() (Stats, []QARecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.stateLocked()
	return st.Stats, st.Records
}

// Stats returns the current counters.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Ledger) stateLocked() State {
	return State{
		Stats:   l.stats,
		Records: append([]QARecord{}, l.records...),
	}
}
