package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const transactionsTable = "transactions"

// InsertTransactionsWithClient inserts a batch of TransactionRow into
// administratie.transactions.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.Dataset(datasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// ListTransactionsByAuditWithClient returns all transactions of one audit in
// insertion order.
func ListTransactionsByAuditWithClient(ctx context.Context, client *bigquery.Client, auditID string) ([]*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT transaction_id, audit_id, transaction_date, raw_date,
		       description, amount, tx_type, category, vat,
		       counter_account, invoice_ref, is_expense, is_revenue,
		       extra, created_ts
		FROM %s.%s
		WHERE audit_id = @audit_id
		ORDER BY created_ts, transaction_id
	`, datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "audit_id", Value: auditID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsByAudit: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactionsByAudit: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
