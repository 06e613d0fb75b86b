package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docqa/internal/doctree"
)

// csvRowsPerPage groups data rows into logical pages.
const csvRowsPerPage = 20

// CSVExtractor handles CSV files. Every batch of data rows, rendered as
// "header: value" pairs, is one logical page.
type CSVExtractor struct{}

func (p *CSVExtractor) Extract(r io.Reader, filename string) ([]doctree.Page, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &IngestionError{Filename: filename, Err: fmt.Errorf("parse csv: %w", err)}
	}
	if len(records) < 2 {
		return finalize(filename, nil)
	}

	headers, rows := records[0], records[1:]
	var pages []doctree.Page
	for i := 0; i < len(rows); i += csvRowsPerPage {
		end := min(i+csvRowsPerPage, len(rows))
		var sb strings.Builder
		for _, row := range rows[i:end] {
			cells := make([]string, len(row))
			for j, cell := range row {
				if j < len(headers) {
					cells[j] = headers[j] + ": " + cell
				} else {
					cells[j] = cell
				}
			}
			sb.WriteString(strings.Join(cells, ", "))
			sb.WriteString("\n")
		}
		pages = append(pages, doctree.Page{Number: len(pages) + 1, Text: sb.String()})
	}
	return finalize(filename, pages)
}
