// Package eval scores generated answers against references and measures
// retrieval page accuracy over a labelled dataset.
package eval

import (
	"math"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	porterstemmer "github.com/reiver/go-porterstemmer"
)

// Scores are the three answer-quality metrics, each in [0, 1].
type Scores struct {
	Similarity float64 `json:"similarity"`
	BLEU       float64 `json:"bleu"`
	RougeL     float64 `json:"rouge_l"`
}

// Evaluate scores generated against reference. The reference is trimmed
// first; generated is scored as given.
func Evaluate(generated, reference string) Scores {
	reference = strings.TrimSpace(reference)
	return Scores{
		Similarity: Similarity(generated, reference),
		BLEU:       BLEU(reference, generated),
		RougeL:     RougeL(reference, generated),
	}
}

// Similarity is the character-level matching-blocks ratio 2*M/T.
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

var wordTokenRe = regexp.MustCompile(`\w+|[^\w\s]`)

// BLEU is sentence-level BLEU-4 with uniform weights, the brevity penalty,
// and epsilon smoothing (0.1) for higher-order n-gram precisions that have
// no match.
func BLEU(reference, candidate string) float64 {
	ref := wordTokenRe.FindAllString(reference, -1)
	hyp := wordTokenRe.FindAllString(candidate, -1)
	if len(hyp) == 0 || len(ref) == 0 {
		return 0
	}

	const maxN = 4
	logSum := 0.0
	for n := 1; n <= maxN; n++ {
		matched, total := clippedMatches(ref, hyp, n)
		if n == 1 && matched == 0 {
			return 0
		}
		denom := float64(max(total, 1))
		p := float64(matched) / denom
		if matched == 0 {
			p = 0.1 / denom
		}
		logSum += math.Log(p) / maxN
	}

	bp := 1.0
	if c, r := len(hyp), len(ref); c <= r {
		bp = math.Exp(1 - float64(r)/float64(c))
	}
	return bp * math.Exp(logSum)
}

// clippedMatches counts candidate n-grams also in the reference, each
// clipped to its reference count.
func clippedMatches(ref, hyp []string, n int) (matched, total int) {
	refCounts := ngrams(ref, n)
	for gram, c := range ngrams(hyp, n) {
		matched += min(c, refCounts[gram])
		total += c
	}
	return matched, total
}

func ngrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return counts
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// RougeL is the LCS-based F-measure on lower-cased alphanumeric tokens,
// Porter-stemming tokens longer than three characters.
func RougeL(reference, candidate string) float64 {
	ref := rougeTokens(reference)
	hyp := rougeTokens(candidate)
	if len(ref) == 0 || len(hyp) == 0 {
		return 0
	}
	lcs := lcsLength(ref, hyp)
	if lcs == 0 {
		return 0
	}
	precision := float64(lcs) / float64(len(hyp))
	recall := float64(lcs) / float64(len(ref))
	return 2 * precision * recall / (precision + recall)
}

func rougeTokens(s string) []string {
	fields := strings.Fields(nonAlnumRe.ReplaceAllString(strings.ToLower(s), " "))
	for i, f := range fields {
		if len(f) > 3 {
			fields[i] = porterstemmer.StemString(f)
		}
	}
	return fields
}

func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
