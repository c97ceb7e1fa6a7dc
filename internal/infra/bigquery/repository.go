// Package bigquery is the persistence layer: audit files, their parsed
// transactions and the analysis runs over them live in BigQuery tables.
package bigquery

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
)

var (
	projectID = envOr("BQ_PROJECT_ID", "vermogen-vitaal")
	datasetID = envOr("BQ_DATASET_ID", "administratie")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Repository holds a shared BigQuery client so the pipeline does not open a
// new connection per operation.
type Repository struct {
	client *bigquery.Client
}

// NewRepository creates a Repository with a shared BigQuery client.
func NewRepository(ctx context.Context) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client}, nil
}

// Close releases the underlying client. Call when the repository is no
// longer needed.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) InsertAudit(ctx context.Context, row *AuditRow) error {
	return InsertAuditWithClient(ctx, r.client, row)
}

func (r *Repository) MarkAuditParsing(ctx context.Context, auditID string) error {
	return MarkAuditParsingWithClient(ctx, r.client, auditID)
}

func (r *Repository) MarkAuditParsed(ctx context.Context, auditID string, txCount int, summaryJSON string) error {
	return MarkAuditParsedWithClient(ctx, r.client, auditID, txCount, summaryJSON)
}

func (r *Repository) MarkAuditFailed(ctx context.Context, auditID string, parseErr error) {
	MarkAuditFailedWithClient(ctx, r.client, auditID, parseErr)
}

func (r *Repository) GetAudit(ctx context.Context, auditID string) (*AuditRow, error) {
	return GetAuditWithClient(ctx, r.client, auditID)
}

func (r *Repository) ListAudits(ctx context.Context) ([]*AuditRow, error) {
	return ListAuditsWithClient(ctx, r.client)
}

func (r *Repository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	return InsertTransactionsWithClient(ctx, r.client, rows)
}

func (r *Repository) ListTransactionsByAudit(ctx context.Context, auditID string) ([]*TransactionRow, error) {
	return ListTransactionsByAuditWithClient(ctx, r.client, auditID)
}

func (r *Repository) StartAnalysisRun(ctx context.Context, auditID string) (string, error) {
	return StartAnalysisRunWithClient(ctx, r.client, auditID)
}

func (r *Repository) MarkAnalysisRunSucceeded(ctx context.Context, analysisRunID, resultJSON string) error {
	return MarkAnalysisRunSucceededWithClient(ctx, r.client, analysisRunID, resultJSON)
}

func (r *Repository) MarkAnalysisRunFailed(ctx context.Context, analysisRunID string, runErr error) {
	MarkAnalysisRunFailedWithClient(ctx, r.client, analysisRunID, runErr)
}
