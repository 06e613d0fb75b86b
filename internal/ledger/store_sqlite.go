package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the ledger in one SQLite database. Save replaces both
// tables in a single transaction.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stats (
		id        INTEGER PRIMARY KEY CHECK (id = 1),
		total     INTEGER NOT NULL,
		correct   INTEGER NOT NULL,
		incorrect INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS qa_log (
		seq               INTEGER PRIMARY KEY,
		id                TEXT NOT NULL UNIQUE,
		query             TEXT NOT NULL,
		retrieval_context TEXT NOT NULL,
		retrieved_page    INTEGER NOT NULL,
		generated_answer  TEXT NOT NULL,
		feedback          TEXT,
		created_at        TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, st State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO stats (id, total, correct, incorrect) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET total = excluded.total, correct = excluded.correct, incorrect = excluded.incorrect`,
		st.Stats.Total, st.Stats.Correct, st.Stats.Incorrect,
	); err != nil {
		return &PersistenceError{Op: "save", Err: fmt.Errorf("write stats: %w", err)}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM qa_log`); err != nil {
		return &PersistenceError{Op: "save", Err: fmt.Errorf("clear qa log: %w", err)}
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO qa_log (seq, id, query, retrieval_context, retrieved_page, generated_answer, feedback, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	defer stmt.Close()
	for i, r := range st.Records {
		if _, err := stmt.ExecContext(ctx, i, r.ID, r.Query, r.RetrievalContext, r.RetrievedPage,
			r.GeneratedAnswer, feedbackColumn(r.Feedback), r.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return &PersistenceError{Op: "save", Err: fmt.Errorf("write record %s: %w", r.ID, err)}
		}
	}
	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (State, error) {
	st := State{Records: []QARecord{}}
	err := s.db.QueryRowContext(ctx, `SELECT total, correct, incorrect FROM stats WHERE id = 1`).
		Scan(&st.Stats.Total, &st.Stats.Correct, &st.Stats.Incorrect)
	if err != nil && err != sql.ErrNoRows {
		return State{}, &PersistenceError{Op: "load", Err: err}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, retrieval_context, retrieved_page, generated_answer, feedback, created_at
		 FROM qa_log ORDER BY seq`)
	if err != nil {
		return State{}, &PersistenceError{Op: "load", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r        QARecord
			feedback sql.NullString
			created  string
		)
		if err := rows.Scan(&r.ID, &r.Query, &r.RetrievalContext, &r.RetrievedPage, &r.GeneratedAnswer, &feedback, &created); err != nil {
			return State{}, &PersistenceError{Op: "load", Err: err}
		}
		if r.Feedback, err = feedbackFromColumn(feedback); err != nil {
			return State{}, &PersistenceError{Op: "load", Err: fmt.Errorf("%w: record %s: %v", ErrCorruptState, r.ID, err)}
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return State{}, &PersistenceError{Op: "load", Err: fmt.Errorf("%w: record %s: %v", ErrCorruptState, r.ID, err)}
		}
		st.Records = append(st.Records, r)
	}
	if err := rows.Err(); err != nil {
		return State{}, &PersistenceError{Op: "load", Err: err}
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func feedbackColumn(v Verdict) any {
	if v == Unset {
		return nil
	}
	return v.String()
}

func feedbackFromColumn(ns sql.NullString) (Verdict, error) {
	if !ns.Valid {
		return Unset, nil
	}
	return ParseVerdict(ns.String)
}
