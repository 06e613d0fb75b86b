package pipeline

import (
	"context"
	"log/slog"
)

// Worker runs queued ingestion jobs against an Engine.
type Worker struct {
	engine *Engine
	log    *slog.Logger
}

func NewWorker(engine *Engine, log *slog.Logger) *Worker {
	return &Worker{engine: engine, log: log}
}

// Process ingests the job's file and records the outcome on the job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	res, err := w.engine.ingest(ctx, job.Filename, job.FileData(), func(s JobStatus) {
		job.SetStatus(s, string(s))
	})
	if err != nil {
		log.Error("ingest failed", "error", err)
		job.Fail(err.Error())
		return
	}

	job.SetCounts(res.Pages, res.Chunks)
	if res.Unchanged {
		job.SetStatus(StatusUnchanged, "done")
		return
	}
	job.SetStatus(StatusCompleted, "done")
	log.Info("ingest job complete", "pages", res.Pages, "chunks", res.Chunks, "duration_ms", res.DurationMs)
}
