package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// OrchestratorConfig sizes the ingestion queue.
type OrchestratorConfig struct {
	MaxQueueSize int
	JobTTL       time.Duration
}

// Orchestrator accepts upload jobs and ingests them one at a time, so index
// rebuilds never overlap.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	engine *Engine
	log    *slog.Logger
	cfg    OrchestratorConfig

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOrchestrator(engine *Engine, cfg OrchestratorConfig, log *slog.Logger) *Orchestrator {
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 16
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		engine: engine,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches the worker and the job cleanup loop.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		w := NewWorker(o.engine, o.log)
		for {
			select {
			case <-workerCtx.Done():
				return
			case job, ok := <-o.queue:
				if !ok {
					return
				}
				w.Process(workerCtx, job)
			}
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues filename for ingestion and returns its job.
func (o *Orchestrator) Submit(filename string, data []byte) (*Job, error) {
	job := NewJob(uuid.NewString(), filename, data)
	o.jobs.Put(job)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		job.SetStatus(StatusFailed, "shutdown")
		return job, fmt.Errorf("ingestion is shutting down")
	}
	select {
	case o.queue <- job:
		o.log.Info("ingest job queued", "job_id", job.ID, "filename", filename, "bytes", len(data))
		return job, nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return job, fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Engine returns the engine jobs are ingested into.
func (o *Orchestrator) Engine() *Engine {
	return o.engine
}
