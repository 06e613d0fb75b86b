package parser

import (
	"errors"
	"strings"
	"testing"
)

func TestTextExtractor_FormFeedPages(t *testing.T) {
	input := "First page line one.\nFirst page line two.\fSecond page.\f\fFourth page."
	p := &TextExtractor{}
	pages, err := p.Extract(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	wantNums := []int{1, 2, 4}
	wantText := []string{
		"First page line one.\nFirst page line two.",
		"Second page.",
		"Fourth page.",
	}
	for i := range wantNums {
		if pages[i].Number != wantNums[i] {
			t.Errorf("page[%d]: expected number %d, got %d", i, wantNums[i], pages[i].Number)
		}
		if pages[i].Text != wantText[i] {
			t.Errorf("page[%d]: expected %q, got %q", i, wantText[i], pages[i].Text)
		}
	}
}

func TestTextExtractor_NoFormFeedIsOnePage(t *testing.T) {
	p := &TextExtractor{}
	pages, err := p.Extract(strings.NewReader("  Hello world  \n"), "single.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Number != 1 || pages[0].Text != "Hello world" {
		t.Errorf("unexpected page %+v", pages[0])
	}
}

func TestTextExtractor_AllBlankIsIngestionError(t *testing.T) {
	p := &TextExtractor{}
	pages, err := p.Extract(strings.NewReader(" \n\f\t\f  "), "blank.txt")
	if err == nil {
		t.Fatalf("expected error, got %d pages", len(pages))
	}
	var ingestErr *IngestionError
	if !errors.As(err, &ingestErr) {
		t.Fatalf("expected *IngestionError, got %T", err)
	}
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestForFile_UnsupportedExtension(t *testing.T) {
	if _, err := ForFile("archive.zip", Options{}); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if IsSupportedExtension("archive.zip") {
		t.Error("zip should not be supported")
	}
	if !IsSupportedExtension("Report.PDF") {
		t.Error("extension match should be case-insensitive")
	}
}
