package index

import (
	"math"
	"sort"

	"github.com/dgallion1/docqa/internal/doctree"
)

// BM25Options are the Okapi BM25 parameters. Zero values take the
// defaults of the rank_bm25 Okapi implementation.
type BM25Options struct {
	K1        float64
	B         float64
	Epsilon   float64 // Floor for negative idf, as a fraction of mean idf.
	Tokenizer Tokenizer
}

func (o *BM25Options) applyDefaults() {
	if o.K1 == 0 {
		o.K1 = 1.5
	}
	if o.B == 0 {
		o.B = 0.75
	}
	if o.Epsilon == 0 {
		o.Epsilon = 0.25
	}
	if o.Tokenizer == nil {
		o.Tokenizer = Whitespace
	}
}

// BM25 is an Okapi BM25 index over chunk texts.
type BM25 struct {
	opts   BM25Options
	chunks []doctree.Chunk
	tf     []map[string]int // per-chunk term frequencies
	docLen []int
	avgdl  float64
	idf    map[string]float64
}

// BuildBM25 indexes chunks in one pass over their tokens.
func BuildBM25(chunks []doctree.Chunk, opts BM25Options) *BM25 {
	opts.applyDefaults()
	idx := &BM25{
		opts:   opts,
		chunks: append([]doctree.Chunk(nil), chunks...),
		tf:     make([]map[string]int, len(chunks)),
		docLen: make([]int, len(chunks)),
		idf:    make(map[string]float64),
	}

	df := make(map[string]int)
	total := 0
	for i, c := range chunks {
		tokens := opts.Tokenizer(c.Text)
		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		for term := range freqs {
			df[term]++
		}
		idx.tf[i] = freqs
		idx.docLen[i] = len(tokens)
		total += len(tokens)
	}
	if len(chunks) == 0 {
		return idx
	}
	idx.avgdl = float64(total) / float64(len(chunks))

	// Sum in sorted term order so the epsilon floor is bit-reproducible.
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	n := float64(len(chunks))
	idfSum := 0.0
	var negative []string
	for _, term := range terms {
		freq := df[term]
		v := math.Log(n-float64(freq)+0.5) - math.Log(float64(freq)+0.5)
		idx.idf[term] = v
		idfSum += v
		if v < 0 {
			negative = append(negative, term)
		}
	}
	// Terms in more than half the chunks get a small positive idf
	// instead of a negative one.
	eps := opts.Epsilon * idfSum / float64(len(idx.idf))
	for _, term := range negative {
		idx.idf[term] = eps
	}
	return idx
}

// Len returns the number of indexed chunks.
func (b *BM25) Len() int { return len(b.chunks) }

// Scores returns the BM25 score of every chunk for query, in chunk order.
// Repeated query terms contribute once per occurrence.
func (b *BM25) Scores(query string) []float64 {
	scores := make([]float64, len(b.chunks))
	if len(b.chunks) == 0 || b.avgdl == 0 {
		return scores
	}
	k1, bb := b.opts.K1, b.opts.B
	for _, q := range b.opts.Tokenizer(query) {
		idf, ok := b.idf[q]
		if !ok {
			continue
		}
		for i := range b.chunks {
			f := float64(b.tf[i][q])
			if f == 0 {
				continue
			}
			norm := k1 * (1 - bb + bb*float64(b.docLen[i])/b.avgdl)
			scores[i] += idf * f * (k1 + 1) / (f + norm)
		}
	}
	return scores
}

// Search returns the topK best chunks for query.
func (b *BM25) Search(query string, topK int) []Result {
	return topResults(b.chunks, b.Scores(query), topK)
}
