package chunker

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docqa/internal/doctree"
)

// MinChunkChars is the length a chunk's text must exceed to be kept.
const MinChunkChars = 20

// Config controls chunking behavior.
type Config struct {
	WindowWords  int // Words per chunk.
	OverlapWords int // Words shared by consecutive chunks of a page.
}

// DefaultConfig returns the window used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		WindowWords:  1000,
		OverlapWords: 50,
	}
}

// ConfigError reports an unusable window/overlap pair.
type ConfigError struct {
	WindowWords  int
	OverlapWords int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid chunk config: need 0 <= overlap (%d) < window (%d)", e.OverlapWords, e.WindowWords)
}

// Validate rejects configs that would not advance the window.
func (c Config) Validate() error {
	if c.OverlapWords < 0 || c.OverlapWords >= c.WindowWords {
		return &ConfigError{WindowWords: c.WindowWords, OverlapWords: c.OverlapWords}
	}
	return nil
}

// Step is how far the window advances per chunk.
func (c Config) Step() int {
	return c.WindowWords - c.OverlapWords
}

// Chunk slides the word window over every page in order. All chunks of a
// page precede those of the next page; Index numbers the kept chunks
// globally from 0.
func Chunk(pages []doctree.Page, cfg Config) ([]doctree.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var chunks []doctree.Chunk
	for _, page := range pages {
		for _, text := range windows(page.Text, cfg) {
			if len(text) <= MinChunkChars {
				continue
			}
			chunks = append(chunks, doctree.Chunk{
				Page:  page.Number,
				Text:  text,
				Index: len(chunks),
			})
		}
	}
	return chunks, nil
}

// windows returns the space-joined word windows of text, starting at
// offset 0 and stopping once the start reaches the word count.
func windows(text string, cfg Config) []string {
	words := strings.Fields(text)
	var out []string
	for start := 0; start < len(words); start += cfg.Step() {
		end := min(start+cfg.WindowWords, len(words))
		out = append(out, strings.Join(words[start:end], " "))
	}
	return out
}
