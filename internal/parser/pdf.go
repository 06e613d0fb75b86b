package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docqa/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFExtractor handles PDF files. It reads page by page with the Go
// library, then falls back to pdftotext if enabled and the library
// produced nothing.
type PDFExtractor struct {
	FallbackPdftotext bool
}

func (p *PDFExtractor) Extract(r io.Reader, filename string) ([]doctree.Page, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docqa-pdf-*.pdf")
	if err != nil {
		return nil, &IngestionError{Filename: filename, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, &IngestionError{Filename: filename, Err: fmt.Errorf("write temp file: %w", err)}
	}
	tmp.Close()

	pages, err := extractPDFPages(tmpPath)
	if (err != nil || len(pages) == 0) && p.FallbackPdftotext {
		var text string
		text, err = extractPdftotext(tmpPath)
		if err == nil {
			pages = splitPages(text)
		}
	}
	if err != nil {
		return nil, &IngestionError{Filename: filename, Err: fmt.Errorf("extract pdf text: %w", err)}
	}
	return finalize(filename, pages)
}

func extractPDFPages(path string) ([]doctree.Page, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []doctree.Page
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		text, ok := pageText(reader, i)
		if !ok {
			continue
		}
		pages = append(pages, doctree.Page{Number: i, Text: text})
	}
	return pages, nil
}

// pageText returns the plain text of page i. Malformed pages report false
// so the caller can skip them; the library panics on some broken fonts.
func pageText(reader *pdflib.Reader, i int) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()
	page := reader.Page(i)
	if page.V.IsNull() {
		return "", false
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return text, true
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

// splitPages cuts form-feed separated text into physical pages. Empty
// segments keep their slot so later pages retain their numbers.
func splitPages(text string) []doctree.Page {
	parts := strings.Split(text, "\f")
	pages := make([]doctree.Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, doctree.Page{Number: i + 1, Text: part})
	}
	return pages
}
