// Package jobs defines the asynchronous work items of the service and the
// queue abstractions they travel through. Parsing an uploaded administration
// can take a while (GCS fetch, XML walking, BigQuery inserts), so the upload
// endpoint only enqueues and the workers do the rest.
package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeParseAudit represents a bookkeeping-file parsing job.
	JobTypeParseAudit JobType = "parse_audit"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ParseAuditJob asks a worker to parse one uploaded administration file.
type ParseAuditJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// AuditID is the ID of the audit record in BigQuery.
	AuditID string `json:"audit_id"`

	// GCSURI points at the uploaded file to parse.
	GCSURI string `json:"gcs_uri"`

	// Format is the detected file format, "csv" or "xaf".
	Format string `json:"format"`

	// Filename is the original upload filename, for logging.
	Filename string `json:"filename,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ParseAuditJob) GetID() string        { return j.JobID }
func (j *ParseAuditJob) GetType() JobType     { return JobTypeParseAudit }
func (j *ParseAuditJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue. The
// abstraction keeps the door open for Cloud Tasks or Pub/Sub behind the same
// call sites.
type Publisher interface {
	PublishParseAudit(ctx context.Context, job *ParseAuditJob) error
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs; the handler is called for each job.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job failed and
// eligible for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so the API can report progress.
type JobStore interface {
	SaveJob(ctx context.Context, job *ParseAuditJob) error
	GetJob(ctx context.Context, jobID string) (*ParseAuditJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ParseAuditJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// AuditID filters jobs by audit.
	AuditID string

	// Status filters jobs by status.
	Status JobStatus

	Limit  int
	Offset int
}
