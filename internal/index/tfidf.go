package index

import (
	"math"
	"sort"
	"strings"

	"github.com/dgallion1/docqa/internal/doctree"
)

// TFIDF ranks chunks by cosine similarity of smoothed TF-IDF vectors. It
// is the vector-similarity alternative to BM25 behind the same contract.
type TFIDF struct {
	tok     Tokenizer
	chunks  []doctree.Chunk
	idf     map[string]float64
	vectors []map[string]float64 // L2-normalized, sparse
}

// BuildTFIDF computes document frequencies and chunk vectors.
func BuildTFIDF(chunks []doctree.Chunk, tok Tokenizer) *TFIDF {
	if tok == nil {
		tok = Whitespace
	}
	t := &TFIDF{
		tok:     tok,
		chunks:  append([]doctree.Chunk(nil), chunks...),
		idf:     make(map[string]float64),
		vectors: make([]map[string]float64, len(chunks)),
	}

	df := make(map[string]int)
	for _, c := range chunks {
		seen := make(map[string]struct{})
		for _, term := range t.terms(c.Text) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	n := float64(len(chunks))
	for term, freq := range df {
		t.idf[term] = math.Log((1+n)/(1+float64(freq))) + 1.0
	}
	for i, c := range chunks {
		t.vectors[i] = t.embed(c.Text)
	}
	return t
}

// Len returns the number of indexed chunks.
func (t *TFIDF) Len() int { return len(t.chunks) }

// Search returns the topK chunks closest to query.
func (t *TFIDF) Search(query string, topK int) []Result {
	q := t.embed(query)
	scores := make([]float64, len(t.chunks))
	terms := sortedKeys(q)
	for i, v := range t.vectors {
		sum := 0.0
		for _, term := range terms {
			sum += q[term] * v[term]
		}
		scores[i] = sum
	}
	return topResults(t.chunks, scores, topK)
}

func (t *TFIDF) terms(text string) []string {
	raw := t.tok(text)
	out := raw[:0]
	for _, term := range raw {
		if _, stop := stopwords[strings.ToLower(term)]; stop {
			continue
		}
		out = append(out, term)
	}
	return out
}

// embed returns the normalized TF-IDF vector of text. Terms outside the
// vocabulary are ignored.
func (t *TFIDF) embed(text string) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for _, term := range t.terms(text) {
		if _, ok := t.idf[term]; ok {
			counts[term]++
			total++
		}
	}
	vec := make(map[string]float64, len(counts))
	if total == 0 {
		return vec
	}
	norm := 0.0
	for _, term := range sortedKeys(counts) {
		v := float64(counts[term]) / float64(total) * t.idf[term]
		vec[term] = v
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for term := range vec {
		vec[term] /= norm
	}
	return vec
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
