package parser

import (
	"strings"

	"github.com/dgallion1/docqa/internal/doctree"
)

// sectionLevel is the deepest heading level that opens a new logical page.
const sectionLevel = 2

// sectioner turns a stream of headings and text blocks from a
// non-paginated format into logical pages.
type sectioner struct {
	pages []doctree.Page
	cur   strings.Builder
}

func (s *sectioner) heading(level int, title string) {
	if level <= sectionLevel {
		s.flush()
	}
	s.text(title)
}

func (s *sectioner) text(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if s.cur.Len() > 0 {
		s.cur.WriteString("\n\n")
	}
	s.cur.WriteString(t)
}

func (s *sectioner) flush() {
	if t := strings.TrimSpace(s.cur.String()); t != "" {
		s.pages = append(s.pages, doctree.Page{Number: len(s.pages) + 1, Text: t})
	}
	s.cur.Reset()
}

func (s *sectioner) done() []doctree.Page {
	s.flush()
	return s.pages
}
