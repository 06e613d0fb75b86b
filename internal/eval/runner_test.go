package eval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/docqa/internal/doctree"
	"github.com/dgallion1/docqa/internal/index"
)

func testIndex() index.Retriever {
	return index.BuildBM25([]doctree.Chunk{
		{Page: 1, Index: 0, Text: "The company was founded in 1999 by two engineers."},
		{Page: 2, Index: 1, Text: "Revenue grew 12% in 2023 driven by exports."},
		{Page: 3, Index: 2, Text: "The headquarters moved to Lisbon last spring."},
	}, index.BM25Options{})
}

type fakeAnswerer struct {
	Searcher
	prompts []string
	answer  func(prompt string) (string, error)
}

func (f *fakeAnswerer) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer(prompt)
}

func TestRetrievalAccuracy(t *testing.T) {
	cases := []Case{
		{Query: "When was the company founded?", ExpectedPage: 1},
		{Query: "How much did Revenue grow?", ExpectedPage: 2},
		{Query: "headquarters moved where", ExpectedPage: 1}, // wrong label
		{Query: "No page label", ExpectedAnswer: "x"},
	}
	rep, err := RetrievalAccuracy(FromRetriever(testIndex()), cases, 1)
	if err != nil {
		t.Fatalf("RetrievalAccuracy: %v", err)
	}
	if rep.Total != 3 || rep.Correct != 2 {
		t.Fatalf("expected 2/3, got %d/%d", rep.Correct, rep.Total)
	}
	if acc := rep.Accuracy; acc < 0.666 || acc > 0.667 {
		t.Errorf("unexpected accuracy %v", rep.Accuracy)
	}
	if rep.Cases[2].FoundPage != 3 || rep.Cases[2].Hit {
		t.Errorf("expected miss on page 3, got %+v", rep.Cases[2])
	}
}

func TestRun_WithContext(t *testing.T) {
	a := &fakeAnswerer{
		Searcher: FromRetriever(testIndex()),
		answer:   func(string) (string, error) { return "It was founded in 1999.", nil },
	}
	cases := []Case{
		{Query: "When was the company founded?", ExpectedAnswer: "It was founded in 1999."},
		{Query: "Retrieval only", ExpectedPage: 2},
	}
	rep, err := Run(context.Background(), a, cases, Options{WithContext: true, TopK: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Scored != 1 || len(rep.Cases) != 1 {
		t.Fatalf("expected one scored case, got %+v", rep)
	}
	if rep.Cases[0].Page != 1 {
		t.Errorf("expected page 1, got %d", rep.Cases[0].Page)
	}
	if rep.Average.Similarity != 1 || rep.Average.RougeL != 1 {
		t.Errorf("expected perfect averages, got %+v", rep.Average)
	}
	if !strings.Contains(a.prompts[0], "Context:\nThe company was founded in 1999") {
		t.Errorf("expected grounded prompt, got %q", a.prompts[0])
	}
}

func TestRun_ZeroShotSkipsRetrieval(t *testing.T) {
	a := &fakeAnswerer{
		Searcher: nil, // any search call would panic
		answer:   func(string) (string, error) { return "Lisbon", nil },
	}
	rep, err := Run(context.Background(), a, []Case{{Query: "Where?", ExpectedAnswer: "Lisbon"}}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.WithContext || rep.Scored != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if a.prompts[0] != "Answer the following question:\nWhere?\n\nAnswer:" {
		t.Errorf("unexpected prompt %q", a.prompts[0])
	}
}

func TestRun_GenerationFailureExcludedFromAverage(t *testing.T) {
	calls := 0
	a := &fakeAnswerer{
		Searcher: FromRetriever(testIndex()),
		answer: func(string) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("provider down")
			}
			return "exact", nil
		},
	}
	cases := []Case{
		{Query: "first", ExpectedAnswer: "exact"},
		{Query: "second", ExpectedAnswer: "exact"},
	}
	rep, err := Run(context.Background(), a, cases, Options{WithContext: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Failed != 1 || rep.Scored != 1 {
		t.Fatalf("expected 1 failed and 1 scored, got %+v", rep)
	}
	if rep.Cases[0].Error == "" {
		t.Error("expected error recorded on failed case")
	}
	if rep.Average.Similarity != 1 {
		t.Errorf("failed case leaked into averages: %+v", rep.Average)
	}
}

func TestLoadCases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.yaml")
	data := `cases:
  - query: When was the company founded?
    expected_page: 1
    expected_answer: In 1999.
  - query: Where is the office?
    expected_page: 3
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cases, err := LoadCases(path)
	if err != nil {
		t.Fatalf("LoadCases: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	if cases[0].ExpectedAnswer != "In 1999." || cases[1].ExpectedPage != 3 {
		t.Errorf("unexpected cases %+v", cases)
	}
}

func TestParseCases_Rejects(t *testing.T) {
	bad := map[string]string{
		"empty query":   "cases:\n  - query: \"  \"\n    expected_page: 1\n",
		"no cases":      "cases: []\n",
		"negative page": "cases:\n  - query: q\n    expected_page: -2\n",
		"not yaml":      "cases: [unclosed",
	}
	for name, doc := range bad {
		if _, err := ParseCases([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
