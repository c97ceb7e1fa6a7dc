package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/HoltermanP/VermogenVitaal/internal/analysis"
	"github.com/HoltermanP/VermogenVitaal/internal/api/handlers"
	"github.com/HoltermanP/VermogenVitaal/internal/api/middleware"
	"github.com/HoltermanP/VermogenVitaal/internal/audit"
	"github.com/HoltermanP/VermogenVitaal/internal/gcsuploader"
	infraBQ "github.com/HoltermanP/VermogenVitaal/internal/infra/bigquery"
	"github.com/HoltermanP/VermogenVitaal/internal/ingest"
	"github.com/HoltermanP/VermogenVitaal/internal/jobs"
	"github.com/HoltermanP/VermogenVitaal/internal/jobs/inmemory"
	"github.com/HoltermanP/VermogenVitaal/internal/logger"
)

func main() {
	var (
		port    = flag.String("port", "8080", "HTTP server port")
		bucket  = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for audit uploads (or set GCS_BUCKET env)")
		model   = flag.String("model", os.Getenv("GEMINI_MODEL"), "Gemini model for analysis (or set GEMINI_MODEL env)")
		workers = flag.Int("workers", 2, "Number of parse workers")
	)
	flag.Parse()

	log := logger.New()
	ingest.SetLogger(log)

	if *bucket == "" {
		log.Warn().Msg("No GCS bucket configured - uploads will fail until one is set")
	}

	ctx := context.Background()

	repo, err := infraBQ.NewRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	storage := gcsuploader.NewGCSStorageService()
	analyzer := analysis.NewGeminiAnalyzer(*model)
	svc := audit.NewService(repo, storage, analyzer)

	// Job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		parseJob, ok := job.(*jobs.ParseAuditJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", parseJob.JobID).
			Str("audit_id", parseJob.AuditID).
			Str("gcs_uri", parseJob.GCSURI).
			Msg("Processing parse job")

		ctx = logger.WithContext(ctx, log.With().Str("job_id", parseJob.JobID).Logger())
		if err := svc.ParseUpload(ctx, parseJob.AuditID, parseJob.GCSURI, parseJob.Format, parseJob.Filename); err != nil {
			log.Error().
				Err(err).
				Str("job_id", parseJob.JobID).
				Str("audit_id", parseJob.AuditID).
				Msg("Parse pipeline failed")
			return err
		}

		log.Info().
			Str("job_id", parseJob.JobID).
			Str("audit_id", parseJob.AuditID).
			Msg("Parse pipeline completed")
		return nil
	}

	go func() {
		log.Info().Int("workers", *workers).Msg("Starting parse workers")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job workers stopped with error")
		}
	}()

	auditsHandler := handlers.NewAuditsHandler(repo, svc, jobQueue, storage, *bucket, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	mux := http.NewServeMux()

	// Audits endpoints
	mux.HandleFunc("/api/audits", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			auditsHandler.Upload(w, r)
		case http.MethodGet:
			auditsHandler.List(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/audits/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/audits/")
		auditID, sub, _ := strings.Cut(rest, "/")
		if auditID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Audit ID is required")
			return
		}

		switch {
		case sub == "" && r.Method == http.MethodGet:
			auditsHandler.Get(w, r, auditID)
		case sub == "transactions" && r.Method == http.MethodGet:
			auditsHandler.ListTransactions(w, r, auditID)
		case sub == "questions" && r.Method == http.MethodGet:
			auditsHandler.Questions(w, r, auditID)
		case sub == "analyze" && r.Method == http.MethodPost:
			auditsHandler.Analyze(w, r, auditID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
