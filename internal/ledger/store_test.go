package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func sampleState() State {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return State{
		Stats: Stats{Total: 3, Correct: 1, Incorrect: 1},
		Records: []QARecord{
			{ID: "r1", Query: "q1", RetrievalContext: "c1", RetrievedPage: 1, GeneratedAnswer: "a1", Feedback: Correct, CreatedAt: at},
			{ID: "r2", Query: "q2", RetrievalContext: "c2", RetrievedPage: 4, GeneratedAnswer: "a2", Feedback: Incorrect, CreatedAt: at.Add(time.Minute)},
			{ID: "r3", Query: "q3", RetrievalContext: "c3", RetrievedPage: 2, GeneratedAnswer: "a3", CreatedAt: at.Add(2 * time.Minute)},
		},
	}
}

func TestJSONStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewJSONStore(filepath.Join(dir, "stats.json"), filepath.Join(dir, "qa_log.json"))
	want := sampleState()

	if err := s.Save(context.Background(), want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	raw, _ := os.ReadFile(s.LogPath)
	if !strings.Contains(string(raw), `"feedback": "yes"`) || !strings.Contains(string(raw), `"feedback": null`) {
		t.Errorf("unexpected feedback encoding:\n%s", raw)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("expected only the two artifacts, found %d entries", len(entries))
	}
}

func TestJSONStore_MissingFilesIsEmpty(t *testing.T) {
	dir := t.TempDir()
	s := NewJSONStore(filepath.Join(dir, "stats.json"), filepath.Join(dir, "qa_log.json"))
	st, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Stats != (Stats{}) || len(st.Records) != 0 {
		t.Errorf("expected empty state, got %+v", st)
	}
}

func TestJSONStore_CorruptShapes(t *testing.T) {
	cases := map[string][2]string{
		"unknown stats field": {`{"total":0,"correct":0,"incorrect":0,"extra":1}`, `[]`},
		"stats not object":    {`[1,2,3]`, `[]`},
		"log not array":       {`{"total":0,"correct":0,"incorrect":0}`, `{"id":"x"}`},
		"log null":            {`{"total":0,"correct":0,"incorrect":0}`, `null`},
		"bad verdict":         {`{"total":1,"correct":1,"incorrect":0}`, `[{"id":"x","query":"q","retrieval_context":"","retrieved_page":1,"generated_answer":"a","feedback":"maybe","created_at":"2026-01-01T00:00:00Z"}]`},
		"trailing garbage":    {`{"total":0,"correct":0,"incorrect":0} {}`, `[]`},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			s := NewJSONStore(filepath.Join(dir, "stats.json"), filepath.Join(dir, "qa_log.json"))
			os.WriteFile(s.StatsPath, []byte(files[0]), 0o644)
			os.WriteFile(s.LogPath, []byte(files[1]), 0o644)
			_, err := s.Load(context.Background())
			if !errors.Is(err, ErrCorruptState) {
				t.Errorf("expected ErrCorruptState, got %v", err)
			}
		})
	}
}

func TestJSONStore_HalfPairIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := NewJSONStore(filepath.Join(dir, "stats.json"), filepath.Join(dir, "qa_log.json"))
	os.WriteFile(s.StatsPath, []byte(`{"total":0,"correct":0,"incorrect":0}`), 0o644)
	if _, err := s.Load(context.Background()); !errors.Is(err, ErrCorruptState) {
		t.Errorf("expected ErrCorruptState, got %v", err)
	}
}

func TestJSONStore_FailedLogWriteRestoresStats(t *testing.T) {
	dir := t.TempDir()
	s := NewJSONStore(filepath.Join(dir, "stats.json"), filepath.Join(dir, "qa_log.json"))
	old := State{Stats: Stats{Total: 1}, Records: []QARecord{{ID: "old", CreatedAt: time.Unix(0, 0).UTC()}}}
	if err := s.Save(context.Background(), old); err != nil {
		t.Fatalf("initial Save: %v", err)
	}
	before, _ := os.ReadFile(s.StatsPath)

	// A directory in place of the log file makes the final rename fail.
	blocked := NewJSONStore(s.StatsPath, filepath.Join(dir, "blocked"))
	if err := os.Mkdir(blocked.LogPath, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(blocked.LogPath, "keep"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	err := blocked.Save(context.Background(), sampleState())
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	after, _ := os.ReadFile(s.StatsPath)
	if string(after) != string(before) {
		t.Errorf("stats file changed after failed save:\nbefore %s\nafter  %s", before, after)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestLedger_JSONStoreEndToEnd(t *testing.T) {
	dir := t.TempDir()
	store := NewJSONStore(filepath.Join(dir, "stats.json"), filepath.Join(dir, "qa_log.json"))
	l := New(store, quietLogger())
	id := l.RecordAnswer("When?", "founded in 1999", 1, "1999")
	if err := l.ApplyFeedback(context.Background(), id, Correct); err != nil {
		t.Fatalf("ApplyFeedback: %v", err)
	}

	reloaded := New(store, quietLogger())
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	wantStats, wantRecs := l.Snapshot()
	gotStats, gotRecs := reloaded.Snapshot()
	if gotStats != wantStats || !reflect.DeepEqual(gotRecs, wantRecs) {
		t.Errorf("reloaded ledger differs:\n got %+v %+v\nwant %+v %+v", gotStats, gotRecs, wantStats, wantRecs)
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer s.Close()

	empty, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if empty.Stats != (Stats{}) || len(empty.Records) != 0 {
		t.Errorf("expected empty state, got %+v", empty)
	}

	want := sampleState()
	if err := s.Save(context.Background(), want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// A second save replaces rather than appends.
	if err := s.Save(context.Background(), want); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}
