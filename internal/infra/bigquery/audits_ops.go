package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/HoltermanP/VermogenVitaal/internal/logger"
)

const auditsTable = "audits"

// InsertAuditWithClient inserts a single AuditRow into administratie.audits.
func InsertAuditWithClient(ctx context.Context, client *bigquery.Client, row *AuditRow) error {
	inserter := client.Dataset(datasetID).Table(auditsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertAudit: inserting row: %w", err)
	}
	return nil
}

// MarkAuditParsedWithClient sets status=PARSED, processed_ts, the transaction
// count and the summary JSON, clearing any previous error.
func MarkAuditParsedWithClient(ctx context.Context, client *bigquery.Client, auditID string, txCount int, summaryJSON string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    processed_ts = @processed_ts,
		    transaction_count = @transaction_count,
		    summary = PARSE_JSON(@summary),
		    error_message = ""
		WHERE audit_id = @audit_id
	`, datasetID, auditsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: AuditStatusParsed},
		{Name: "processed_ts", Value: time.Now()},
		{Name: "transaction_count", Value: txCount},
		{Name: "summary", Value: summaryJSON},
		{Name: "audit_id", Value: auditID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkAuditParsed: %w", err)
	}
	return nil
}

// MarkAuditFailedWithClient sets status=FAILED with the error message. Best
// effort: failures are logged, not returned, because this already runs on an
// error path.
func MarkAuditFailedWithClient(ctx context.Context, client *bigquery.Client, auditID string, parseErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if parseErr != nil {
		errMsg = parseErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    processed_ts = @processed_ts,
		    error_message = @error_message
		WHERE audit_id = @audit_id
	`, datasetID, auditsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: AuditStatusFailed},
		{Name: "processed_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "audit_id", Value: auditID},
	}

	if err := runDML(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("audit_id", auditID).
			Msg("MarkAuditFailed: update query")
	}
}

// MarkAuditParsingWithClient sets status=PARSING when a worker picks the
// audit up.
func MarkAuditParsingWithClient(ctx context.Context, client *bigquery.Client, auditID string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status
		WHERE audit_id = @audit_id
	`, datasetID, auditsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: AuditStatusParsing},
		{Name: "audit_id", Value: auditID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkAuditParsing: %w", err)
	}
	return nil
}

// GetAuditWithClient fetches one audit by ID. Returns nil without error when
// the audit does not exist.
func GetAuditWithClient(ctx context.Context, client *bigquery.Client, auditID string) (*AuditRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT audit_id, gcs_uri, original_filename, file_format, status,
		       upload_ts, processed_ts, transaction_count, summary, error_message
		FROM %s.%s
		WHERE audit_id = @audit_id
		LIMIT 1
	`, datasetID, auditsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "audit_id", Value: auditID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetAudit: query read: %w", err)
	}

	var row AuditRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetAudit: iter next: %w", err)
	}
	return &row, nil
}

// ListAuditsWithClient returns the most recent audits, newest first.
func ListAuditsWithClient(ctx context.Context, client *bigquery.Client) ([]*AuditRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT audit_id, gcs_uri, original_filename, file_format, status,
		       upload_ts, processed_ts, transaction_count, summary, error_message
		FROM %s.%s
		ORDER BY upload_ts DESC
		LIMIT 100
	`, datasetID, auditsTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAudits: query read: %w", err)
	}

	var rows []*AuditRow
	for {
		var r AuditRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAudits: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// runDML runs a parameterized DML query and waits for completion.
func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
