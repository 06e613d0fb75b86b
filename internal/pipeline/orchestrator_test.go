package pipeline

import (
	"context"
	"testing"
	"time"
)

func waitTerminal(t *testing.T, o *Orchestrator, id string) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := o.GetJob(id).Snapshot()
		if snap.Status.Terminal() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return JobSnapshot{}
}

func TestOrchestrator_IngestJobs(t *testing.T) {
	e := newTestEngine(t, &scriptedGenerator{answer: "x"})
	o := NewOrchestrator(e, OrchestratorConfig{MaxQueueSize: 4}, quietLogger())
	o.Start(context.Background())
	defer o.Stop()

	ok, err := o.Submit("report.txt", []byte(report))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	snap := waitTerminal(t, o, ok.ID)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %+v", snap)
	}
	if snap.Progress.Pages != 3 || snap.Progress.Chunks != 3 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}

	same, _ := o.Submit("report.txt", []byte(report))
	if snap := waitTerminal(t, o, same.ID); snap.Status != StatusUnchanged {
		t.Errorf("expected unchanged, got %q", snap.Status)
	}

	bad, _ := o.Submit("blank.txt", []byte("\f\f"))
	snap = waitTerminal(t, o, bad.ID)
	if snap.Status != StatusFailed || snap.Phase != string(StatusExtracting) {
		t.Errorf("expected failure while extracting, got %+v", snap)
	}
	if len(snap.Progress.Errors) == 0 {
		t.Error("expected failure reason on the job")
	}
	if doc := e.Document(); doc == nil || doc.Filename != "report.txt" {
		t.Errorf("failed job should not replace the index, got %+v", doc)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	e := newTestEngine(t, &scriptedGenerator{})
	o := NewOrchestrator(e, OrchestratorConfig{MaxQueueSize: 1}, quietLogger())
	// Not started: nothing drains the queue.
	if _, err := o.Submit("a.txt", []byte("first document body text")); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	job, err := o.Submit("b.txt", []byte("second document body text"))
	if err == nil {
		t.Fatal("expected queue-full error")
	}
	if snap := job.Snapshot(); snap.Status != StatusFailed || snap.Phase != "queue_full" {
		t.Errorf("unexpected rejected job state %+v", snap)
	}
	o.Stop()
	if _, err := o.Submit("c.txt", []byte("third")); err == nil {
		t.Error("expected error after Stop")
	}
}
