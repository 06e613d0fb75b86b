package llm

import (
	"regexp"
	"strings"
)

var codeBlockRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// cleanAnswer trims model output and unwraps a lone fenced block.
func cleanAnswer(s string) (string, error) {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		s = strings.TrimSpace(m[1])
	}
	if s == "" {
		return "", ErrEmptyAnswer
	}
	return s, nil
}
