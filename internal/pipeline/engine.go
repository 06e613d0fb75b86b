// Package pipeline wires extraction, chunking, retrieval, generation and
// the feedback ledger into a question-answering engine over one document.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docqa/internal/chunker"
	"github.com/dgallion1/docqa/internal/doctree"
	"github.com/dgallion1/docqa/internal/index"
	"github.com/dgallion1/docqa/internal/ledger"
	"github.com/dgallion1/docqa/internal/llm"
	"github.com/dgallion1/docqa/internal/parser"
)

var (
	ErrNotIngested = errors.New("no document has been ingested")
	ErrEmptyQuery  = errors.New("query is empty")
)

// EngineConfig configures an Engine. Generator and Ledger are required.
type EngineConfig struct {
	Chunk           chunker.Config
	Parser          parser.Options
	Retriever       string // bm25 or tfidf
	Tokenizer       index.Tokenizer
	TopK            int
	Generate        llm.GenerateConfig
	GenerateTimeout time.Duration
	MaxAttempts     int

	Generator llm.Generator
	Ledger    *ledger.Ledger
	Log       *slog.Logger
}

// Document describes the currently indexed document.
type Document struct {
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	Pages       int       `json:"pages"`
	Chunks      int       `json:"chunks"`
	Retriever   string    `json:"retriever"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// IngestResult is returned by a successful Ingest.
type IngestResult struct {
	Document
	Unchanged  bool  `json:"unchanged"`
	DurationMs int64 `json:"duration_ms"`
}

// Answer is a generated answer with the chunks it was grounded on.
type Answer struct {
	RecordID string         `json:"record_id"`
	Text     string         `json:"answer"`
	Page     int            `json:"page"`
	Sources  []index.Result `json:"sources"`
}

// Engine answers questions about the most recently ingested document.
// Searches share the index lock; an ingest swaps the index only after the
// new one is fully built.
type Engine struct {
	cfg EngineConfig
	log *slog.Logger

	mu        sync.RWMutex
	retriever index.Retriever
	doc       *Document

	ingestMu sync.Mutex
	backoff  func(attempt int) time.Duration
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Chunk.Validate(); err != nil {
		return nil, err
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("engine: generator is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("engine: ledger is required")
	}
	if cfg.Retriever == "" {
		cfg.Retriever = "bm25"
	}
	if _, err := index.New(cfg.Retriever, nil, cfg.Tokenizer); err != nil {
		return nil, err
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 1
	}
	if cfg.Generate.MaxTokens <= 0 {
		cfg.Generate.MaxTokens = llm.DefaultGenerateConfig().MaxTokens
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Engine{cfg: cfg, log: cfg.Log, backoff: Backoff}, nil
}

// Ingest extracts, chunks and indexes data, replacing the current index.
// On failure the previous index stays in place.
func (e *Engine) Ingest(ctx context.Context, filename string, data []byte) (IngestResult, error) {
	return e.ingest(ctx, filename, data, nil)
}

func (e *Engine) ingest(ctx context.Context, filename string, data []byte, phase func(JobStatus)) (IngestResult, error) {
	if phase == nil {
		phase = func(JobStatus) {}
	}
	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	start := time.Now()
	log := e.log.With("filename", filename)
	hash := ContentHashHex(data)

	e.mu.RLock()
	current := e.doc
	e.mu.RUnlock()
	if current != nil && current.ContentHash == hash && current.Filename == filename {
		log.Info("document unchanged, keeping index", "content_hash", hash)
		return IngestResult{Document: *current, Unchanged: true}, nil
	}

	phase(StatusExtracting)
	ex, err := parser.ForFile(filename, e.cfg.Parser)
	if err != nil {
		return IngestResult{}, &parser.IngestionError{Filename: filename, Err: err}
	}
	pages, err := ex.Extract(bytes.NewReader(data), filename)
	if err != nil {
		log.Error("extraction failed", "error", err)
		return IngestResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return IngestResult{}, err
	}

	phase(StatusChunking)
	chunks, err := chunker.Chunk(pages, e.cfg.Chunk)
	if err != nil {
		return IngestResult{}, err
	}
	if len(chunks) == 0 {
		return IngestResult{}, &parser.IngestionError{Filename: filename, Err: fmt.Errorf("no chunks longer than %d characters", chunker.MinChunkChars)}
	}
	if err := ctx.Err(); err != nil {
		return IngestResult{}, err
	}

	phase(StatusIndexing)
	r, err := index.New(e.cfg.Retriever, chunks, e.cfg.Tokenizer)
	if err != nil {
		return IngestResult{}, err
	}

	doc := &Document{
		Filename:    filename,
		ContentHash: hash,
		Pages:       len(pages),
		Chunks:      len(chunks),
		Retriever:   e.cfg.Retriever,
		IngestedAt:  time.Now().UTC(),
	}
	e.mu.Lock()
	e.retriever = r
	e.doc = doc
	e.mu.Unlock()

	res := IngestResult{Document: *doc, DurationMs: time.Since(start).Milliseconds()}
	log.Info("document indexed", "pages", doc.Pages, "chunks", doc.Chunks,
		"retriever", doc.Retriever, "duration_ms", res.DurationMs)
	return res, nil
}

// Document returns the indexed document, or nil before the first ingest.
func (e *Engine) Document() *Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.doc == nil {
		return nil
	}
	d := *e.doc
	return &d
}

// Search returns the topK chunks for query. A non-positive topK uses the
// configured default.
func (e *Engine) Search(query string, topK int) ([]index.Result, error) {
	if topK <= 0 {
		topK = e.cfg.TopK
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.retriever == nil {
		return nil, ErrNotIngested
	}
	return e.retriever.Search(query, topK), nil
}

// Ask retrieves context for query, generates an answer and records it in
// the ledger. A failed generation leaves no record.
func (e *Engine) Ask(ctx context.Context, query string) (Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Answer{}, ErrEmptyQuery
	}
	// With nothing indexed the corpus is empty: the model still gets the
	// question, with the no-context instruction.
	results, err := e.Search(query, e.cfg.TopK)
	if errors.Is(err, ErrNotIngested) {
		results = []index.Result{}
	} else if err != nil {
		return Answer{}, err
	}

	chunks := make([]doctree.Chunk, len(results))
	texts := make([]string, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
		texts[i] = r.Chunk.Text
	}

	prompt := llm.BuildPrompt(query, chunks)
	text, err := e.Complete(ctx, prompt)
	if err != nil {
		e.log.Error("generation failed", "error", err)
		return Answer{}, err
	}

	page := 0
	if len(results) > 0 {
		page = results[0].Chunk.Page
	}
	id := e.cfg.Ledger.RecordAnswer(query, strings.Join(texts, "\n\n"), page, text)
	e.log.Info("question answered", "record_id", id, "page", page, "sources", len(results),
		"prompt_tokens", chunker.EstimateTokens(prompt))
	return Answer{RecordID: id, Text: text, Page: page, Sources: results}, nil
}

// Complete runs one prompt through the generator with the per-call timeout
// and bounded retries on transient failures. Nothing is recorded.
func (e *Engine) Complete(ctx context.Context, prompt string) (string, error) {
	gen := e.cfg.Generator
	var lastErr error
	for attempt := range e.cfg.MaxAttempts {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.GenerateTimeout)
		out, err := gen.Generate(callCtx, prompt, e.cfg.Generate)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == e.cfg.MaxAttempts-1 {
			break
		}
		wait := e.backoff(attempt)
		e.log.Warn("retryable generation error", "attempt", attempt, "backoff_ms", wait.Milliseconds(), "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			lastErr = ctx.Err()
			return "", &llm.GenerationError{Provider: gen.Name(), Err: lastErr}
		}
	}
	var genErr *llm.GenerationError
	if errors.As(lastErr, &genErr) {
		return "", lastErr
	}
	return "", &llm.GenerationError{Provider: gen.Name(), Err: lastErr}
}

// Feedback applies a verdict to a recorded answer.
func (e *Engine) Feedback(ctx context.Context, recordID string, v ledger.Verdict) error {
	return e.cfg.Ledger.ApplyFeedback(ctx, recordID, v)
}

// Ledger exposes the ledger for reporting.
func (e *Engine) Ledger() *ledger.Ledger { return e.cfg.Ledger }

// GeneratorName names the configured generation provider.
func (e *Engine) GeneratorName() string { return e.cfg.Generator.Name() }
