package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/HoltermanP/VermogenVitaal/internal/jobs"
)

// Store keeps job state in memory. Data is lost on restart; the audit rows
// in BigQuery remain the durable record.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.ParseAuditJob
}

// NewStore creates a new in-memory job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.ParseAuditJob),
	}
}

// SaveJob saves or updates a job. Stores a copy so later mutations by the
// queue don't leak into readers.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ParseAuditJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ParseAuditJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs retrieves jobs matching the filter.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ParseAuditJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.ParseAuditJob
	for _, job := range s.jobs {
		if filter.AuditID != "" && job.AuditID != filter.AuditID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.ParseAuditJob{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateJobStatus updates the status of a stored job.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

var _ jobs.JobStore = (*Store)(nil)
