package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docqa/internal/doctree"
)

// Extractor converts raw document bytes into ordered, non-empty pages.
type Extractor interface {
	Extract(r io.Reader, filename string) ([]doctree.Page, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tunes extractor construction.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate extractor for a filename.
func ForFile(filename string, opts Options) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".csv":
		return &CSVExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".pdf":
		return &PDFExtractor{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ExtractFile reads path and extracts its pages with the extractor matching
// its extension.
func ExtractFile(path string, opts Options) ([]doctree.Page, error) {
	ex, err := ForFile(path, opts)
	if err != nil {
		return nil, &IngestionError{Filename: path, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IngestionError{Filename: path, Err: err}
	}
	return ex.Extract(bytes.NewReader(data), filepath.Base(path))
}

// finalize trims page text, drops blank pages and reports an empty document.
func finalize(filename string, pages []doctree.Page) ([]doctree.Page, error) {
	out := pages[:0]
	for _, p := range pages {
		p.Text = strings.TrimSpace(p.Text)
		if p.Text == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, &IngestionError{Filename: filename, Err: ErrEmptyDocument}
	}
	return out, nil
}
