package parser

import (
	"fmt"
	"io"

	"github.com/dgallion1/docqa/internal/doctree"
)

// maxTextBytes bounds plain text input.
const maxTextBytes = 64 << 20

// TextExtractor handles plain text files, typically the output of a PDF
// to text converter. Form feeds separate pages; text without any form
// feed is a single page.
type TextExtractor struct{}

func (p *TextExtractor) Extract(r io.Reader, filename string) ([]doctree.Page, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxTextBytes+1))
	if err != nil {
		return nil, &IngestionError{Filename: filename, Err: err}
	}
	if len(data) > maxTextBytes {
		return nil, &IngestionError{Filename: filename, Err: fmt.Errorf("text exceeds %d bytes", maxTextBytes)}
	}
	return finalize(filename, splitPages(string(data)))
}
