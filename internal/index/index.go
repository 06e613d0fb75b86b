// Package index ranks chunks against a query. Indexes are immutable once
// built and safe for concurrent searches.
package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dgallion1/docqa/internal/doctree"
)

// Result is a chunk with its relevance score.
type Result struct {
	Chunk doctree.Chunk `json:"chunk"`
	Score float64       `json:"score"`
}

// Retriever answers top-k queries over a fixed chunk corpus.
type Retriever interface {
	Search(query string, topK int) []Result
	Len() int
}

// Tokenizer splits text into terms. The same tokenizer is used for
// indexing and querying.
type Tokenizer func(string) []string

// Whitespace splits on runs of whitespace and keeps case.
func Whitespace(s string) []string { return strings.Fields(s) }

// Lowercase splits on whitespace and lower-cases each term.
func Lowercase(s string) []string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

// TokenizerByName resolves a configured tokenizer.
func TokenizerByName(name string) (Tokenizer, error) {
	switch name {
	case "", "whitespace":
		return Whitespace, nil
	case "lowercase":
		return Lowercase, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer: %s", name)
	}
}

// New builds the retriever named by kind over chunks.
func New(kind string, chunks []doctree.Chunk, tok Tokenizer) (Retriever, error) {
	switch kind {
	case "", "bm25":
		return BuildBM25(chunks, BM25Options{Tokenizer: tok}), nil
	case "tfidf":
		return BuildTFIDF(chunks, tok), nil
	default:
		return nil, fmt.Errorf("unknown retriever: %s", kind)
	}
}

// topResults orders scores descending, breaking ties by ascending chunk
// index, and keeps the first min(topK, len) entries.
func topResults(chunks []doctree.Chunk, scores []float64, topK int) []Result {
	if topK <= 0 || len(chunks) == 0 {
		return []Result{}
	}
	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := scores[order[a]], scores[order[b]]
		if sa != sb {
			return sa > sb
		}
		return chunks[order[a]].Index < chunks[order[b]].Index
	})
	k := min(topK, len(order))
	results := make([]Result, k)
	for i := 0; i < k; i++ {
		j := order[i]
		results[i] = Result{Chunk: chunks[j], Score: scores[j]}
	}
	return results
}
