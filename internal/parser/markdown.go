package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/docqa/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor handles Markdown files using goldmark. Each h1/h2
// section is one logical page.
type MarkdownExtractor struct{}

func (p *MarkdownExtractor) Extract(r io.Reader, filename string) ([]doctree.Page, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, &IngestionError{Filename: filename, Err: err}
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var s sectioner
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			s.heading(h.Level, string(h.Text(src)))
			continue
		}
		s.text(blockText(n, src))
	}
	return finalize(filename, s.done())
}

// blockText gets the text content of a goldmark AST node. Leaf blocks
// carry their source lines; containers are walked child by child.
func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
			continue
		}
		if part := blockText(c, src); part != "" {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(part)
		}
	}
	return strings.TrimSpace(buf.String())
}
