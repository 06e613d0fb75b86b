// Package doctree holds the document units shared by extraction, chunking
// and retrieval.
package doctree

// Page is the text of one page. Number is the 1-based physical page for
// paginated formats and the 1-based section position otherwise.
type Page struct {
	Number int
	Text   string
}

// Chunk is a window of page text, the unit of retrieval.
type Chunk struct {
	Page  int    `json:"page"`
	Text  string `json:"chunk"`
	Index int    `json:"index"` // Global position: page-major, then window order.
}
