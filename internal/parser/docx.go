package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/docqa/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXExtractor handles .docx files. Heading 1/2 paragraphs open a new
// logical page.
type DOCXExtractor struct{}

func (p *DOCXExtractor) Extract(r io.Reader, filename string) ([]doctree.Page, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "docqa-docx-*.docx")
	if err != nil {
		return nil, &IngestionError{Filename: filename, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	defer tmp.Close()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return nil, &IngestionError{Filename: filename, Err: fmt.Errorf("write temp file: %w", err)}
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, &IngestionError{Filename: filename, Err: fmt.Errorf("seek temp file: %w", err)}
	}

	doc, err := docx.Parse(tmp, size)
	if err != nil {
		return nil, &IngestionError{Filename: filename, Err: fmt.Errorf("parse docx: %w", err)}
	}

	var s sectioner
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if level := docxHeadingLevel(para); level > 0 {
			s.heading(level, text)
		} else {
			s.text(text)
		}
	}
	return finalize(filename, s.done())
}

// docxHeadingLevel reads the level out of "Heading2" or "heading 2" styles.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") || len(style) != len("heading")+1 {
		return 0
	}
	d := style[len(style)-1]
	if d < '1' || d > '6' {
		return 0
	}
	return int(d - '0')
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
