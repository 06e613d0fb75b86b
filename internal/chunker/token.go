package chunker

import "strings"

// EstimateTokens gives a rough token count for logging prompt sizes,
// using ~1.33 tokens per whitespace-separated word.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return max(int(float64(words)*1.33), 1)
}
