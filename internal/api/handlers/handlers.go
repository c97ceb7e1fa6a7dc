// Package handlers implements the HTTP endpoints of the audit service.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HoltermanP/VermogenVitaal/internal/api/middleware"
	"github.com/HoltermanP/VermogenVitaal/internal/audit"
	"github.com/HoltermanP/VermogenVitaal/internal/gcs"
	infra "github.com/HoltermanP/VermogenVitaal/internal/infra/bigquery"
	"github.com/HoltermanP/VermogenVitaal/internal/ingest"
	"github.com/HoltermanP/VermogenVitaal/internal/jobs"
)

// maxUploadBytes bounds a single administration upload. XAF exports of small
// companies run to a few MB; 50MB leaves ample room without letting a bad
// client exhaust memory.
const maxUploadBytes = 50 << 20

// AuditsHandler handles the audit endpoints: upload, status, transactions,
// questions and analysis.
type AuditsHandler struct {
	repo      audit.Repository
	service   *audit.Service
	publisher jobs.Publisher
	storage   gcs.StorageService
	bucket    string
	log       zerolog.Logger
}

// NewAuditsHandler creates a new audits handler.
func NewAuditsHandler(repo audit.Repository, service *audit.Service, publisher jobs.Publisher, storage gcs.StorageService, bucket string, log zerolog.Logger) *AuditsHandler {
	return &AuditsHandler{
		repo:      repo,
		service:   service,
		publisher: publisher,
		storage:   storage,
		bucket:    bucket,
		log:       log,
	}
}

// Upload handles POST /api/audits. It accepts a multipart upload under the
// "file" field, stores the file in GCS, records the audit and enqueues the
// parse job.
func (h *AuditsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	format, err := audit.FormatFromFilename(filename)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read upload")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Empty file")
		return
	}
	if len(data) > maxUploadBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	auditID := uuid.NewString()
	objectName := fmt.Sprintf("uploads/%s/%s-%s", time.Now().Format("2006/01/02"), auditID, filename)

	gcsURI, err := h.storage.UploadBytes(ctx, h.bucket, objectName, data)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to upload to GCS")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	row := &infra.AuditRow{
		AuditID:          auditID,
		GCSURI:           gcsURI,
		OriginalFilename: filename,
		FileFormat:       format,
		Status:           infra.AuditStatusUploaded,
		UploadTS:         time.Now(),
	}
	if err := h.repo.InsertAudit(ctx, row); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert audit")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to record audit")
		return
	}

	job := &jobs.ParseAuditJob{
		AuditID:  auditID,
		GCSURI:   gcsURI,
		Format:   format,
		Filename: filename,
	}
	if err := h.publisher.PublishParseAudit(ctx, job); err != nil {
		h.log.Error().Err(err).Str("audit_id", auditID).Msg("Failed to enqueue parse job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue parsing")
		return
	}

	h.log.Info().
		Str("audit_id", auditID).
		Str("job_id", job.JobID).
		Str("gcs_uri", gcsURI).
		Int("bytes", len(data)).
		Msg("Audit uploaded and parse job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"audit_id": auditID,
		"job_id":   job.JobID,
		"gcs_uri":  gcsURI,
		"status":   row.Status,
	})
}

// List handles GET /api/audits.
func (h *AuditsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	audits, err := h.repo.ListAudits(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list audits")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list audits")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"audits": audits,
		"count":  len(audits),
	})
}

// Get handles GET /api/audits/{id}.
func (h *AuditsHandler) Get(w http.ResponseWriter, r *http.Request, auditID string) {
	ctx := r.Context()

	row, err := h.repo.GetAudit(ctx, auditID)
	if err != nil {
		h.log.Error().Err(err).Str("audit_id", auditID).Msg("Failed to get audit")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get audit")
		return
	}
	if row == nil {
		middleware.WriteError(w, http.StatusNotFound, "Audit not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, row)
}

// ListTransactions handles GET /api/audits/{id}/transactions. It returns the
// canonical transactions plus the aggregate summary.
func (h *AuditsHandler) ListTransactions(w http.ResponseWriter, r *http.Request, auditID string) {
	ctx := r.Context()

	rows, err := h.repo.ListTransactionsByAudit(ctx, auditID)
	if err != nil {
		h.log.Error().Err(err).Str("audit_id", auditID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	txs := make([]ingest.Transaction, len(rows))
	for i, row := range rows {
		txs[i] = row.ToTransaction()
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"summary":      ingest.Summarize(txs),
	})
}

// Questions handles GET /api/audits/{id}/questions.
func (h *AuditsHandler) Questions(w http.ResponseWriter, r *http.Request, auditID string) {
	ctx := r.Context()

	questions, err := h.service.Questions(ctx, auditID)
	if err != nil {
		h.log.Error().Err(err).Str("audit_id", auditID).Msg("Failed to generate questions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to generate questions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"audit_id":  auditID,
		"questions": questions,
	})
}

// Analyze handles POST /api/audits/{id}/analyze. The body carries the
// client's answers to the clarifying questions.
func (h *AuditsHandler) Analyze(w http.ResponseWriter, r *http.Request, auditID string) {
	ctx := r.Context()

	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := h.service.Analyze(ctx, auditID, req.Answers)
	if err != nil {
		h.log.Error().Err(err).Str("audit_id", auditID).Msg("Analysis failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Analysis failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"audit_id": auditID,
		"result":   result,
	})
}

// JobsHandler handles job-status endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		AuditID: query.Get("audit_id"),
		Status:  jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
