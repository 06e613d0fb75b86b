package eval

import (
	"context"
	"fmt"

	"github.com/dgallion1/docqa/internal/doctree"
	"github.com/dgallion1/docqa/internal/index"
	"github.com/dgallion1/docqa/internal/llm"
)

// Searcher retrieves ranked chunks for a query.
type Searcher interface {
	Search(query string, topK int) ([]index.Result, error)
}

// Answerer can both retrieve and complete a prompt. Completions made
// through it are not recorded anywhere.
type Answerer interface {
	Searcher
	Complete(ctx context.Context, prompt string) (string, error)
}

// FromRetriever adapts a bare index to Searcher.
func FromRetriever(r index.Retriever) Searcher { return retrieverSearcher{r} }

type retrieverSearcher struct{ r index.Retriever }

func (s retrieverSearcher) Search(query string, topK int) ([]index.Result, error) {
	return s.r.Search(query, topK), nil
}

// RetrievalHit is the outcome of one retrieval case.
type RetrievalHit struct {
	Query        string `json:"query"`
	ExpectedPage int    `json:"expected_page"`
	FoundPage    int    `json:"found_page"`
	Excerpt      string `json:"excerpt"`
	Hit          bool   `json:"hit"`
}

// RetrievalReport is page-hit accuracy over the cases that name a page.
type RetrievalReport struct {
	Cases    []RetrievalHit `json:"cases"`
	Correct  int            `json:"correct"`
	Total    int            `json:"total"`
	Accuracy float64        `json:"accuracy"`
}

// RetrievalAccuracy checks whether the top-ranked chunk comes from the
// expected page. Cases without an expected page are skipped.
func RetrievalAccuracy(s Searcher, cases []Case, topK int) (RetrievalReport, error) {
	if topK <= 0 {
		topK = 1
	}
	var rep RetrievalReport
	for _, c := range cases {
		if c.ExpectedPage == 0 {
			continue
		}
		results, err := s.Search(c.Query, topK)
		if err != nil {
			return RetrievalReport{}, fmt.Errorf("search %q: %w", c.Query, err)
		}
		hit := RetrievalHit{Query: c.Query, ExpectedPage: c.ExpectedPage}
		if len(results) > 0 {
			hit.FoundPage = results[0].Chunk.Page
			hit.Excerpt = excerpt(results[0].Chunk.Text, 200)
			hit.Hit = hit.FoundPage == c.ExpectedPage
		}
		if hit.Hit {
			rep.Correct++
		}
		rep.Total++
		rep.Cases = append(rep.Cases, hit)
	}
	if rep.Total > 0 {
		rep.Accuracy = float64(rep.Correct) / float64(rep.Total)
	}
	return rep, nil
}

// Options control an answer-quality run.
type Options struct {
	// WithContext selects the grounded prompt. When false the zero-shot
	// prompt is used and nothing is retrieved.
	WithContext bool
	TopK        int
}

// CaseResult is the outcome of one answer-quality case.
type CaseResult struct {
	Query     string `json:"query"`
	Reference string `json:"reference"`
	Generated string `json:"generated,omitempty"`
	Page      int    `json:"page,omitempty"`
	Scores    Scores `json:"scores"`
	Error     string `json:"error,omitempty"`
}

// Report holds per-case results and averages over the cases that produced
// an answer.
type Report struct {
	WithContext bool         `json:"with_context"`
	Cases       []CaseResult `json:"cases"`
	Scored      int          `json:"scored"`
	Failed      int          `json:"failed"`
	Average     Scores       `json:"average"`
}

// Run generates an answer for every case that has a reference answer and
// scores it. A failed generation is reported on its case and left out of
// the averages; a retrieval failure aborts the run.
func Run(ctx context.Context, a Answerer, cases []Case, opts Options) (Report, error) {
	if opts.TopK <= 0 {
		opts.TopK = 1
	}
	rep := Report{WithContext: opts.WithContext}
	var sum Scores
	for _, c := range cases {
		if c.ExpectedAnswer == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res := CaseResult{Query: c.Query, Reference: c.ExpectedAnswer}

		prompt := llm.BuildZeroShotPrompt(c.Query)
		if opts.WithContext {
			results, err := a.Search(c.Query, opts.TopK)
			if err != nil {
				return rep, fmt.Errorf("search %q: %w", c.Query, err)
			}
			chunks := make([]doctree.Chunk, len(results))
			for i, r := range results {
				chunks[i] = r.Chunk
			}
			if len(chunks) > 0 {
				res.Page = chunks[0].Page
			}
			prompt = llm.BuildPrompt(c.Query, chunks)
		}

		answer, err := a.Complete(ctx, prompt)
		if err != nil {
			res.Error = err.Error()
			rep.Failed++
			rep.Cases = append(rep.Cases, res)
			continue
		}
		res.Generated = answer
		res.Scores = Evaluate(answer, c.ExpectedAnswer)
		sum.Similarity += res.Scores.Similarity
		sum.BLEU += res.Scores.BLEU
		sum.RougeL += res.Scores.RougeL
		rep.Scored++
		rep.Cases = append(rep.Cases, res)
	}
	if rep.Scored > 0 {
		n := float64(rep.Scored)
		rep.Average = Scores{Similarity: sum.Similarity / n, BLEU: sum.BLEU / n, RougeL: sum.RougeL / n}
	}
	return rep, nil
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
