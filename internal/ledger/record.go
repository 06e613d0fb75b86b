package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Verdict is the user's judgement of an answer. Unset is the only
// non-terminal state.
type Verdict int

const (
	Unset Verdict = iota
	Correct
	Incorrect
)

func (v Verdict) String() string {
	switch v {
	case Correct:
		return "yes"
	case Incorrect:
		return "no"
	default:
		return "unset"
	}
}

// ParseVerdict accepts yes/correct and no/incorrect, case-insensitively.
func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "correct":
		return Correct, nil
	case "no", "incorrect":
		return Incorrect, nil
	default:
		return Unset, fmt.Errorf("%w: %q", ErrInvalidVerdict, s)
	}
}

// MarshalJSON encodes Unset as null and the terminal states as "yes"/"no".
func (v Verdict) MarshalJSON() ([]byte, error) {
	switch v {
	case Unset:
		return []byte("null"), nil
	case Correct, Incorrect:
		return json.Marshal(v.String())
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidVerdict, int(v))
	}
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Unset
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: feedback must be null, \"yes\" or \"no\"", ErrInvalidVerdict)
	}
	switch s {
	case "yes":
		*v = Correct
	case "no":
		*v = Incorrect
	default:
		return fmt.Errorf("%w: %q", ErrInvalidVerdict, s)
	}
	return nil
}

// QARecord is one answered question and its feedback.
type QARecord struct {
	ID               string    `json:"id"`
	Query            string    `json:"query"`
	RetrievalContext string    `json:"retrieval_context"`
	RetrievedPage    int       `json:"retrieved_page"`
	GeneratedAnswer  string    `json:"generated_answer"`
	Feedback         Verdict   `json:"feedback"`
	CreatedAt        time.Time `json:"created_at"`
}

// Stats are the running feedback counters.
type Stats struct {
	Total     int `json:"total"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

// State is everything a Store persists.
type State struct {
	Stats   Stats
	Records []QARecord
}

// validate reports whether st is internally consistent.
func (st State) validate() error {
	if st.Stats.Total < 0 || st.Stats.Correct < 0 || st.Stats.Incorrect < 0 {
		return fmt.Errorf("%w: negative counter in %+v", ErrCorruptState, st.Stats)
	}
	if st.Stats.Total != len(st.Records) {
		return fmt.Errorf("%w: total=%d but log has %d records", ErrCorruptState, st.Stats.Total, len(st.Records))
	}
	seen := make(map[string]struct{}, len(st.Records))
	var correct, incorrect int
	for i, r := range st.Records {
		if r.ID == "" {
			return fmt.Errorf("%w: record %d has no id", ErrCorruptState, i)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: duplicate record id %s", ErrCorruptState, r.ID)
		}
		seen[r.ID] = struct{}{}
		switch r.Feedback {
		case Correct:
			correct++
		case Incorrect:
			incorrect++
		case Unset:
		default:
			return fmt.Errorf("%w: record %s has verdict %d", ErrCorruptState, r.ID, int(r.Feedback))
		}
	}
	if correct != st.Stats.Correct || incorrect != st.Stats.Incorrect {
		return fmt.Errorf("%w: counters %+v disagree with log (correct=%d incorrect=%d)",
			ErrCorruptState, st.Stats, correct, incorrect)
	}
	return nil
}
