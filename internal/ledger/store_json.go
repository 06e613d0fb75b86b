package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// JSONStore keeps the stats object and the QA log array in two indented
// JSON files.
type JSONStore struct {
	StatsPath string
	LogPath   string
}

func NewJSONStore(statsPath, logPath string) *JSONStore {
	return &JSONStore{StatsPath: statsPath, LogPath: logPath}
}

// Save writes both files through temp files and renames. If the log rename
// fails the previous stats file is put back, so readers never see a new
// stats file next to an old log.
func (s *JSONStore) Save(ctx context.Context, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	records := st.Records
	if records == nil {
		records = []QARecord{}
	}
	statsData, err := json.MarshalIndent(st.Stats, "", "    ")
	if err != nil {
		return &PersistenceError{Op: "save", Err: fmt.Errorf("encode stats: %w", err)}
	}
	logData, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return &PersistenceError{Op: "save", Err: fmt.Errorf("encode qa log: %w", err)}
	}

	statsTmp, err := writeTemp(s.StatsPath, statsData)
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	logTmp, err := writeTemp(s.LogPath, logData)
	if err != nil {
		os.Remove(statsTmp)
		return &PersistenceError{Op: "save", Err: err}
	}

	prevStats, readErr := os.ReadFile(s.StatsPath)
	hadStats := readErr == nil
	if readErr != nil && !errors.Is(readErr, fs.ErrNotExist) {
		os.Remove(statsTmp)
		os.Remove(logTmp)
		return &PersistenceError{Op: "save", Err: fmt.Errorf("read previous stats: %w", readErr)}
	}

	if err := os.Rename(statsTmp, s.StatsPath); err != nil {
		os.Remove(statsTmp)
		os.Remove(logTmp)
		return &PersistenceError{Op: "save", Err: fmt.Errorf("replace stats: %w", err)}
	}
	if err := os.Rename(logTmp, s.LogPath); err != nil {
		os.Remove(logTmp)
		if rerr := restore(s.StatsPath, prevStats, hadStats); rerr != nil {
			err = errors.Join(err, fmt.Errorf("restore stats: %w", rerr))
		}
		return &PersistenceError{Op: "save", Err: fmt.Errorf("replace qa log: %w", err)}
	}
	return nil
}

// Load reads both files. Two missing files is an empty ledger; exactly one
// missing is a broken pair.
func (s *JSONStore) Load(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	statsData, statsErr := os.ReadFile(s.StatsPath)
	logData, logErr := os.ReadFile(s.LogPath)
	statsMissing := errors.Is(statsErr, fs.ErrNotExist)
	logMissing := errors.Is(logErr, fs.ErrNotExist)

	switch {
	case statsMissing && logMissing:
		return State{Records: []QARecord{}}, nil
	case statsMissing || logMissing:
		return State{}, &PersistenceError{Op: "load", Err: fmt.Errorf("%w: only one of %s and %s exists", ErrCorruptState, s.StatsPath, s.LogPath)}
	case statsErr != nil:
		return State{}, &PersistenceError{Op: "load", Err: statsErr}
	case logErr != nil:
		return State{}, &PersistenceError{Op: "load", Err: logErr}
	}

	var st State
	if err := decodeStrict(statsData, &st.Stats); err != nil {
		return State{}, &PersistenceError{Op: "load", Err: fmt.Errorf("%w: %s: %v", ErrCorruptState, s.StatsPath, err)}
	}
	if err := decodeStrict(logData, &st.Records); err != nil {
		return State{}, &PersistenceError{Op: "load", Err: fmt.Errorf("%w: %s: %v", ErrCorruptState, s.LogPath, err)}
	}
	if st.Records == nil {
		return State{}, &PersistenceError{Op: "load", Err: fmt.Errorf("%w: %s: qa log must be an array", ErrCorruptState, s.LogPath)}
	}
	return st, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

func writeTemp(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", f.Name(), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("sync %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func restore(path string, prev []byte, existed bool) error {
	if !existed {
		return os.Remove(path)
	}
	tmp, err := writeTemp(path, prev)
	if err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
