package inmemory

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HoltermanP/VermogenVitaal/internal/jobs"
)

func TestQueuePublishAndConsume(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, store)
	defer q.Close()

	var handled int32
	done := make(chan struct{})
	handler := func(ctx context.Context, job jobs.Job) error {
		if atomic.AddInt32(&handled, 1) == 1 {
			close(done)
		}
		return nil
	}

	ctx := context.Background()
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.ParseAuditJob{AuditID: "audit-1", GCSURI: "gs://b/o.csv", Format: "csv"}
	if err := q.PublishParseAudit(ctx, job); err != nil {
		t.Fatalf("PublishParseAudit: %v", err)
	}
	if job.JobID == "" {
		t.Fatal("job ID not assigned on publish")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not handled in time")
	}

	// Give processJob a moment to write the final state.
	deadline := time.Now().Add(time.Second)
	for {
		stored, err := store.GetJob(ctx, job.JobID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if stored.Status == jobs.JobStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job status = %s, want completed", stored.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	defer q.Close()

	var attempts int32
	done := make(chan struct{})
	handler := func(ctx context.Context, job jobs.Job) error {
		if atomic.AddInt32(&attempts, 1) < 2 {
			return fmt.Errorf("transient failure")
		}
		close(done)
		return nil
	}

	ctx := context.Background()
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.ParseAuditJob{AuditID: "audit-2", GCSURI: "gs://b/o.xaf", Format: "xaf", MaxRetries: 2}
	if err := q.PublishParseAudit(ctx, job); err != nil {
		t.Fatalf("PublishParseAudit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("job was not retried to success, attempts = %d", atomic.LoadInt32(&attempts))
	}
}

func TestQueueClosedRejectsPublish(t *testing.T) {
	q := NewQueue(1, 1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	err := q.PublishParseAudit(context.Background(), &jobs.ParseAuditJob{AuditID: "x"})
	if err == nil {
		t.Fatal("publish on closed queue succeeded")
	}
}

func TestStoreFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i, auditID := range []string{"a1", "a1", "a2"} {
		job := &jobs.ParseAuditJob{
			JobID:   fmt.Sprintf("job-%d", i),
			AuditID: auditID,
			Status:  jobs.JobStatusPending,
		}
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}

	byAudit, err := store.ListJobs(ctx, jobs.JobFilter{AuditID: "a1"})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(byAudit) != 2 {
		t.Errorf("got %d jobs for a1, want 2", len(byAudit))
	}

	if err := store.UpdateJobStatus(ctx, "job-0", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}
	failed, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(failed) != 1 || failed[0].Error != "boom" {
		t.Errorf("failed jobs = %+v, want one with error boom", failed)
	}
}
