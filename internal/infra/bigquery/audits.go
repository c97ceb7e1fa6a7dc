package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// Audit statuses, in lifecycle order.
const (
	AuditStatusUploaded = "UPLOADED"
	AuditStatusParsing  = "PARSING"
	AuditStatusParsed   = "PARSED"
	AuditStatusFailed   = "FAILED"
)

type AuditRow struct {
	AuditID string `bigquery:"audit_id"` // REQUIRED
	GCSURI  string `bigquery:"gcs_uri"`  // REQUIRED

	OriginalFilename string `bigquery:"original_filename"` // NULLABLE
	FileFormat       string `bigquery:"file_format"`       // REQUIRED, "csv" or "xaf"

	Status string `bigquery:"status"` // REQUIRED

	UploadTS    time.Time              `bigquery:"upload_ts"`    // REQUIRED
	ProcessedTS bigquery.NullTimestamp `bigquery:"processed_ts"` // NULLABLE

	TransactionCount bigquery.NullInt64 `bigquery:"transaction_count"` // NULLABLE

	// Summary holds the aggregate figures (ingest.Summary) as JSON once the
	// file has been parsed.
	Summary bigquery.NullJSON `bigquery:"summary"` // NULLABLE

	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE
}
