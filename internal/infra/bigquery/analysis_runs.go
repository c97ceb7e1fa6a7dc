package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/HoltermanP/VermogenVitaal/internal/logger"
)

const analysisRunsTable = "analysis_runs"

type AnalysisRunRow struct {
	AnalysisRunID string `bigquery:"analysis_run_id"` // REQUIRED
	AuditID       string `bigquery:"audit_id"`        // REQUIRED

	Status string `bigquery:"status"` // RUNNING | SUCCESS | FAILED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	// Result holds the full analysis.Result as JSON on success.
	Result bigquery.NullJSON `bigquery:"result"` // NULLABLE

	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE
}

// StartAnalysisRunWithClient inserts a RUNNING analysis run and returns its
// generated ID.
func StartAnalysisRunWithClient(ctx context.Context, client *bigquery.Client, auditID string) (string, error) {
	analysisRunID := uuid.NewString()

	q := client.Query(fmt.Sprintf(`
		INSERT %s.%s (analysis_run_id, audit_id, status, started_ts)
		VALUES (@analysis_run_id, @audit_id, @status, @started_ts)
	`, datasetID, analysisRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "analysis_run_id", Value: analysisRunID},
		{Name: "audit_id", Value: auditID},
		{Name: "status", Value: "RUNNING"},
		{Name: "started_ts", Value: time.Now()},
	}

	if err := runDML(ctx, q); err != nil {
		return "", fmt.Errorf("StartAnalysisRun: %w", err)
	}
	return analysisRunID, nil
}

// MarkAnalysisRunSucceededWithClient stores the result JSON and closes the
// run with status=SUCCESS.
func MarkAnalysisRunSucceededWithClient(ctx context.Context, client *bigquery.Client, analysisRunID, resultJSON string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    result = PARSE_JSON(@result),
		    error_message = ""
		WHERE analysis_run_id = @analysis_run_id
	`, datasetID, analysisRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "result", Value: resultJSON},
		{Name: "analysis_run_id", Value: analysisRunID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkAnalysisRunSucceeded: %w", err)
	}
	return nil
}

// MarkAnalysisRunFailedWithClient closes the run with status=FAILED. Best
// effort, like MarkAuditFailed.
func MarkAnalysisRunFailedWithClient(ctx context.Context, client *bigquery.Client, analysisRunID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE analysis_run_id = @analysis_run_id
	`, datasetID, analysisRunsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "analysis_run_id", Value: analysisRunID},
	}

	if err := runDML(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("analysis_run_id", analysisRunID).
			Msg("MarkAnalysisRunFailed: update query")
	}
}
