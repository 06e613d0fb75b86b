package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docqa/internal/api"
	"github.com/dgallion1/docqa/internal/app"
	"github.com/dgallion1/docqa/internal/config"
	"github.com/dgallion1/docqa/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}

	if cfg.DocumentPath != "" {
		res, err := a.IngestFile(ctx, cfg.DocumentPath)
		if err != nil {
			log.Error("initial ingest failed", "path", cfg.DocumentPath, "error", err)
			a.Close()
			os.Exit(1)
		}
		log.Info("initial document ingested", "filename", res.Filename, "pages", res.Pages, "chunks", res.Chunks)
	}

	orch := pipeline.NewOrchestrator(a.Engine, pipeline.OrchestratorConfig{
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
	}, log.With("component", "orchestrator"))
	orch.Start(ctx)

	srv := api.NewServer(orch, a.LLMStats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GenerateTimeout*time.Duration(cfg.GenerateMaxAttempts) + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		if err := a.Ledger.Save(shutdownCtx); err != nil {
			log.Error("final ledger save failed", "error", err)
		}
		if err := a.Close(); err != nil {
			log.Error("close failed", "error", err)
		}
	}()

	log.Info("starting docqa", "port", cfg.Port, "provider", a.Engine.GeneratorName())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
