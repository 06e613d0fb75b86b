package index

import (
	"math"
	"reflect"
	"testing"

	"github.com/dgallion1/docqa/internal/doctree"
)

func corpus() []doctree.Chunk {
	texts := []struct {
		page int
		text string
	}{
		{1, "the cat sat on the mat near the door"},
		{1, "dogs chase cats around the garden all day"},
		{2, "the stock market fell sharply on monday morning"},
		{2, "investors sold shares as the market dropped"},
		{3, "a recipe for bread needs flour water and yeast"},
	}
	chunks := make([]doctree.Chunk, len(texts))
	for i, tx := range texts {
		chunks[i] = doctree.Chunk{Page: tx.page, Text: tx.text, Index: i}
	}
	return chunks
}

func TestBM25_ReferenceScore(t *testing.T) {
	chunks := []doctree.Chunk{
		{Index: 0, Text: "apple banana"},
		{Index: 1, Text: "cherry date"},
		{Index: 2, Text: "elder fig"},
	}
	idx := BuildBM25(chunks, BM25Options{})
	scores := idx.Scores("apple")

	// N=3, n=1: idf = ln(2.5/1.5); dl == avgdl so tf term is (1*2.5)/(1+1.5) = 1.
	want := math.Log(2.5 / 1.5)
	if math.Abs(scores[0]-want) > 1e-12 {
		t.Errorf("expected score %v, got %v", want, scores[0])
	}
	if scores[1] != 0 || scores[2] != 0 {
		t.Errorf("expected zero scores for non-matching chunks, got %v", scores)
	}
}

func TestBM25_NegativeIDFFloored(t *testing.T) {
	chunks := []doctree.Chunk{
		{Index: 0, Text: "common a"},
		{Index: 1, Text: "common b"},
		{Index: 2, Text: "common c"},
		{Index: 3, Text: "common d"},
		{Index: 4, Text: "e f"},
		{Index: 5, Text: "g h"},
	}
	idx := BuildBM25(chunks, BM25Options{})
	// "common" is in 4 of 6 chunks: raw idf ln(2.5/4.5) < 0 is replaced by
	// 0.25 * mean raw idf over all nine terms, positive for this corpus.
	rare := math.Log(5.5 / 1.5)
	mean := (8*rare + math.Log(2.5/4.5)) / 9
	want := 0.25 * mean
	if got := idx.idf["common"]; math.Abs(got-want) > 1e-12 || got <= 0 {
		t.Fatalf("expected floored idf %v, got %v", want, got)
	}
	if got := idx.idf["a"]; math.Abs(got-rare) > 1e-12 {
		t.Errorf("expected unfloored idf %v for a rare term, got %v", rare, got)
	}
	for i, s := range idx.Scores("common") {
		if (i < 4) != (s > 0) {
			t.Errorf("chunk %d: unexpected score %v for common term", i, s)
		}
	}
}

func TestBM25_RankingAndTopK(t *testing.T) {
	idx := BuildBM25(corpus(), BM25Options{})
	results := idx.Search("market investors", 3)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Chunk.Index != 3 {
		t.Errorf("expected chunk 3 first, got %d", results[0].Chunk.Index)
	}
	if results[1].Chunk.Index != 2 {
		t.Errorf("expected chunk 2 second, got %d", results[1].Chunk.Index)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %v > %v", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestBM25_TiesByAscendingIndex(t *testing.T) {
	idx := BuildBM25(corpus(), BM25Options{})
	// No term matches: every score is zero, order is chunk order.
	results := idx.Search("zebra", 10)
	if len(results) != 5 {
		t.Fatalf("expected min(10, 5) = 5 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Chunk.Index != i || r.Score != 0 {
			t.Errorf("position %d: got chunk %d score %v", i, r.Chunk.Index, r.Score)
		}
	}
}

func TestBM25_Deterministic(t *testing.T) {
	a := BuildBM25(corpus(), BM25Options{}).Search("the market cat", 5)
	b := BuildBM25(corpus(), BM25Options{}).Search("the market cat", 5)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical corpus and query gave different results")
	}
}

func TestBM25_EmptyCorpus(t *testing.T) {
	idx := BuildBM25(nil, BM25Options{})
	results := idx.Search("anything", 3)
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}
	if idx.Len() != 0 {
		t.Errorf("expected Len 0, got %d", idx.Len())
	}
}

func TestBM25_TopKZero(t *testing.T) {
	idx := BuildBM25(corpus(), BM25Options{})
	if got := idx.Search("market", 0); len(got) != 0 {
		t.Errorf("expected no results for topK=0, got %d", len(got))
	}
}

func TestBM25_TokenizerIsCaseSensitiveByDefault(t *testing.T) {
	chunks := []doctree.Chunk{{Index: 0, Text: "Market news"}, {Index: 1, Text: "other text"}, {Index: 2, Text: "more text"}}
	if s := BuildBM25(chunks, BM25Options{}).Scores("market")[0]; s != 0 {
		t.Errorf("whitespace tokenizer should not match across case, got %v", s)
	}
	if s := BuildBM25(chunks, BM25Options{Tokenizer: Lowercase}).Scores("market")[0]; s <= 0 {
		t.Errorf("lowercase tokenizer should match, got %v", s)
	}
}

func TestTFIDF_Ranking(t *testing.T) {
	idx := BuildTFIDF(corpus(), Lowercase)
	results := idx.Search("bread flour", 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.Index != 4 {
		t.Errorf("expected recipe chunk first, got %d", results[0].Chunk.Index)
	}
	if results[0].Score <= 0 || results[0].Score > 1+1e-9 {
		t.Errorf("cosine score out of range: %v", results[0].Score)
	}
	if results[1].Score != 0 {
		t.Errorf("expected zero score for unrelated chunk, got %v", results[1].Score)
	}
	if results[1].Chunk.Index != 0 {
		t.Errorf("expected tie broken by lowest index, got %d", results[1].Chunk.Index)
	}
}

func TestNew_UnknownKind(t *testing.T) {
	if _, err := New("qdrant", corpus(), Whitespace); err == nil {
		t.Fatal("expected error for unknown retriever")
	}
	r, err := New("", corpus(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.(*BM25); !ok {
		t.Errorf("expected BM25 default, got %T", r)
	}
}

func TestTokenizerByName(t *testing.T) {
	tok, err := TokenizerByName("lowercase")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tok("Hello  World"); !reflect.DeepEqual(got, []string{"hello", "world"}) {
		t.Errorf("unexpected tokens %v", got)
	}
	if _, err := TokenizerByName("stemmed"); err == nil {
		t.Error("expected error for unknown tokenizer")
	}
}
