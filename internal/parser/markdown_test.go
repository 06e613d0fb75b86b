package parser

import (
	"strings"
	"testing"
)

func TestMarkdownExtractor_SectionsBecomePages(t *testing.T) {
	input := `Preface text.

# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.

## Section B

Section B content.
`
	p := &MarkdownExtractor{}
	pages, err := p.Extract(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pages) != 4 {
		t.Fatalf("expected 4 pages, got %d: %+v", len(pages), pages)
	}
	for i, pg := range pages {
		if pg.Number != i+1 {
			t.Errorf("page[%d]: expected number %d, got %d", i, i+1, pg.Number)
		}
	}
	if pages[0].Text != "Preface text." {
		t.Errorf("page 1: got %q", pages[0].Text)
	}
	if !strings.HasPrefix(pages[1].Text, "Title") || !strings.Contains(pages[1].Text, "Intro text.") {
		t.Errorf("page 2: got %q", pages[1].Text)
	}
	// h3 stays inside its h2 section.
	if !strings.Contains(pages[2].Text, "Section A content.") || !strings.Contains(pages[2].Text, "Subsection A1 content.") {
		t.Errorf("page 3: got %q", pages[2].Text)
	}
	if !strings.Contains(pages[3].Text, "Section B content.") {
		t.Errorf("page 4: got %q", pages[3].Text)
	}
}

func TestMarkdownExtractor_Empty(t *testing.T) {
	p := &MarkdownExtractor{}
	if _, err := p.Extract(strings.NewReader("\n\n"), "empty.md"); err == nil {
		t.Fatal("expected empty-document error")
	}
}

func TestHTMLExtractor_SkipsChromeAndSplitsSections(t *testing.T) {
	input := `<html><head><title>T</title><style>p{}</style></head><body>
<nav><p>menu</p></nav>
<h1>Alpha</h1><p>First   paragraph.</p>
<h2>Beta</h2><ul><li>item one</li></ul>
<script>var x = 1;</script>
</body></html>`
	p := &HTMLExtractor{}
	pages, err := p.Extract(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d: %+v", len(pages), pages)
	}
	if pages[0].Text != "Alpha\n\nFirst paragraph." {
		t.Errorf("page 1: got %q", pages[0].Text)
	}
	if pages[1].Text != "Beta\n\nitem one" {
		t.Errorf("page 2: got %q", pages[1].Text)
	}
	for _, pg := range pages {
		if strings.Contains(pg.Text, "menu") || strings.Contains(pg.Text, "var x") {
			t.Errorf("non-content leaked into %q", pg.Text)
		}
	}
}

func TestHTMLExtractor_BareContainerText(t *testing.T) {
	input := `<html><body><div>Quarterly revenue grew twelve percent in 2023.</div>
<span>Margins held steady.</span></body></html>`
	pages, err := (&HTMLExtractor{}).Extract(strings.NewReader(input), "a.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d: %+v", len(pages), pages)
	}
	want := "Quarterly revenue grew twelve percent in 2023.\n\nMargins held steady."
	if pages[0].Text != want {
		t.Errorf("got %q, want %q", pages[0].Text, want)
	}
}

func TestCSVExtractor_RowBatches(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("name,score\n")
	for i := 0; i < 25; i++ {
		sb.WriteString("row,")
		sb.WriteString(strings.Repeat("9", i%3+1))
		sb.WriteString("\n")
	}
	p := &CSVExtractor{}
	pages, err := p.Extract(strings.NewReader(sb.String()), "data.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if got := strings.Count(pages[0].Text, "\n") + 1; got != 20 {
		t.Errorf("expected 20 rows on page 1, got %d", got)
	}
	if !strings.HasPrefix(pages[0].Text, "name: row, score: 9") {
		t.Errorf("unexpected row rendering %q", pages[0].Text)
	}
}
