package parser

import (
	"errors"
	"fmt"
)

// ErrEmptyDocument means no page of the document yielded any text.
var ErrEmptyDocument = errors.New("no extractable text")

// IngestionError reports an unreadable document or one without text.
// It is fatal to the ingestion that produced it only.
type IngestionError struct {
	Filename string
	Err      error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Filename, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }
