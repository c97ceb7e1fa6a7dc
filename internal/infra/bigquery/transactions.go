package bigquery

import (
	"encoding/json"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/HoltermanP/VermogenVitaal/internal/ingest"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	AuditID       string `bigquery:"audit_id"`       // REQUIRED

	// TransactionDate is the normalized date; RawDate preserves whatever the
	// source carried, including strings that never parsed to a date.
	TransactionDate bigquery.NullDate `bigquery:"transaction_date"` // NULLABLE
	RawDate         string            `bigquery:"raw_date"`         // NULLABLE

	Description string   `bigquery:"description"` // REQUIRED
	Amount      *big.Rat `bigquery:"amount"`      // REQUIRED NUMERIC

	TxType         bigquery.NullString `bigquery:"tx_type"`         // NULLABLE
	Category       bigquery.NullString `bigquery:"category"`        // NULLABLE
	VAT            bigquery.NullString `bigquery:"vat"`             // NULLABLE
	CounterAccount bigquery.NullString `bigquery:"counter_account"` // NULLABLE
	InvoiceRef     bigquery.NullString `bigquery:"invoice_ref"`     // NULLABLE

	IsExpense bool `bigquery:"is_expense"`
	IsRevenue bool `bigquery:"is_revenue"`

	Extra bigquery.NullJSON `bigquery:"extra"` // NULLABLE JSON

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// RowFromTransaction converts a parsed transaction into its storage row.
func RowFromTransaction(auditID string, t ingest.Transaction) *TransactionRow {
	row := &TransactionRow{
		TransactionID:  uuid.NewString(),
		AuditID:        auditID,
		RawDate:        t.Date,
		Description:    t.Description,
		Amount:         new(big.Rat).SetFloat64(t.Amount),
		TxType:         nullString(t.Type),
		Category:       nullString(t.Category),
		VAT:            nullString(t.VAT),
		CounterAccount: nullString(t.CounterAccount),
		InvoiceRef:     nullString(t.InvoiceRef),
		IsExpense:      ingest.IsExpense(t),
		IsRevenue:      ingest.IsRevenue(t),
		CreatedTS:      time.Now(),
	}

	if d, err := civil.ParseDate(t.Date); err == nil {
		row.TransactionDate = bigquery.NullDate{Date: d, Valid: true}
	}
	if len(t.Extra) > 0 {
		if data, err := json.Marshal(t.Extra); err == nil {
			row.Extra = bigquery.NullJSON{JSONVal: string(data), Valid: true}
		}
	}
	return row
}

// ToTransaction reconstructs the canonical transaction from a storage row.
func (r *TransactionRow) ToTransaction() ingest.Transaction {
	t := ingest.Transaction{
		Date:           r.RawDate,
		Description:    r.Description,
		Type:           r.TxType.StringVal,
		Category:       r.Category.StringVal,
		VAT:            r.VAT.StringVal,
		CounterAccount: r.CounterAccount.StringVal,
		InvoiceRef:     r.InvoiceRef.StringVal,
	}
	if r.TransactionDate.Valid {
		t.Date = r.TransactionDate.Date.String()
	}
	if r.Amount != nil {
		t.Amount, _ = r.Amount.Float64()
	}
	if r.Extra.Valid {
		var extra map[string]string
		if err := json.Unmarshal([]byte(r.Extra.JSONVal), &extra); err == nil && len(extra) > 0 {
			t.Extra = extra
		}
	}
	return t
}

func nullString(v string) bigquery.NullString {
	return bigquery.NullString{StringVal: v, Valid: v != ""}
}
