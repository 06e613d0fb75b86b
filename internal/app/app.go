// Package app assembles an Engine and its collaborators from Config. Both
// the HTTP server and the CLI start through it.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/docqa/internal/chunker"
	"github.com/dgallion1/docqa/internal/config"
	"github.com/dgallion1/docqa/internal/index"
	"github.com/dgallion1/docqa/internal/ledger"
	"github.com/dgallion1/docqa/internal/llm"
	"github.com/dgallion1/docqa/internal/parser"
	"github.com/dgallion1/docqa/internal/pipeline"
)

// App is a configured engine plus the resources it owns.
type App struct {
	Engine   *pipeline.Engine
	Ledger   *ledger.Ledger
	LLMStats *llm.LLMStats

	closers []func() error
}

// New builds the ledger store, generator and engine. The ledger is loaded
// from its store when cfg asks for it; a missing store is an empty ledger.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{LLMStats: llm.NewLLMStats(cfg.LLMStatsWindow)}

	store, err := a.openStore(cfg)
	if err != nil {
		return nil, err
	}
	a.Ledger = ledger.New(store, log.With("component", "ledger"))
	if cfg.LoadLedgerOnStart {
		if err := a.Ledger.Load(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("load ledger: %w", err)
		}
	}

	gen, err := llm.NewGenerator(cfg.ProviderConfig())
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := gen.(*llm.ClaudeClient); ok {
		a.closers = append(a.closers, func() error { c.Close(); return nil })
	}

	tok, err := index.TokenizerByName(cfg.Tokenizer)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Engine, err = pipeline.NewEngine(pipeline.EngineConfig{
		Chunk:           cfg.ChunkConfig(),
		Parser:          parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
		Retriever:       cfg.Retriever,
		Tokenizer:       tok,
		TopK:            cfg.TopK,
		Generate:        cfg.GenerateConfig(),
		GenerateTimeout: cfg.GenerateTimeout,
		MaxAttempts:     cfg.GenerateMaxAttempts,
		Generator:       llm.Instrument(gen, a.LLMStats),
		Ledger:          a.Ledger,
		Log:             log.With("component", "engine"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openStore(cfg config.Config) (ledger.Store, error) {
	switch cfg.LedgerBackend {
	case "sqlite":
		s, err := ledger.OpenSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return ledger.NewJSONStore(cfg.StatsPath, cfg.QALogPath), nil
	}
}

// OpenLedger opens the configured store and loads the ledger from it
// without building a generator. The returned close func releases the store.
func OpenLedger(ctx context.Context, cfg config.Config, log *slog.Logger) (*ledger.Ledger, func() error, error) {
	a := &App{}
	store, err := a.openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	l := ledger.New(store, log.With("component", "ledger"))
	if err := l.Load(ctx); err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("load ledger: %w", err)
	}
	return l, a.Close, nil
}

// IndexFile extracts, chunks and indexes one file with the configured
// retriever. It needs no generator.
func IndexFile(cfg config.Config, path string) (index.Retriever, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &parser.IngestionError{Filename: path, Err: err}
	}
	name := filepath.Base(path)
	ex, err := parser.ForFile(name, parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext})
	if err != nil {
		return nil, &parser.IngestionError{Filename: name, Err: err}
	}
	pages, err := ex.Extract(bytes.NewReader(data), name)
	if err != nil {
		return nil, err
	}
	chunks, err := chunker.Chunk(pages, cfg.ChunkConfig())
	if err != nil {
		return nil, err
	}
	tok, err := index.TokenizerByName(cfg.Tokenizer)
	if err != nil {
		return nil, err
	}
	return index.New(cfg.Retriever, chunks, tok)
}

// IngestFile reads a document from disk into the engine.
func (a *App) IngestFile(ctx context.Context, path string) (pipeline.IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pipeline.IngestResult{}, &parser.IngestionError{Filename: path, Err: err}
		}
		return pipeline.IngestResult{}, err
	}
	return a.Engine.Ingest(ctx, filepath.Base(path), data)
}

// Close releases stores and idle connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
