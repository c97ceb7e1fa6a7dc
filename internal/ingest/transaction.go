// Package ingest turns bookkeeping export files (CSV or XAF/XML) into a
// canonical list of transactions. Export formats in the wild are wildly
// inconsistent, so both ingesters are deliberately defensive: they try to
// recover as many transactions as possible instead of validating against any
// official schema, and they default individual fields rather than failing a
// whole file over one bad row or node.
package ingest

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Transaction is the canonical unit the rest of the system consumes. It is
// constructed once per upload and never mutated afterwards; downstream
// consumers (classifier, summary, AI analysis) only read.
type Transaction struct {
	// Date is an ISO YYYY-MM-DD string, or empty when no date could be
	// recovered from the source unit.
	Date string `json:"date"`

	// Description is free text. When the source carries none, a placeholder
	// ("Transaction {n}") or a synthesis of other fields is substituted.
	Description string `json:"description"`

	// Amount is the signed amount in the bookkeeping's base currency unit.
	// Positive leans debit/revenue, negative leans credit/payment, but the
	// revenue/expense judgement is IsRevenue/IsExpense, not the sign alone.
	Amount float64 `json:"amount"`

	// Type and Category are free-text classification hints. Category usually
	// carries the ledger account code when one was found.
	Type     string `json:"type,omitempty"`
	Category string `json:"category,omitempty"`

	// VAT is a free-text VAT code/amount annotation, e.g. "21 (315.00)".
	VAT string `json:"vat,omitempty"`

	// CounterAccount and InvoiceRef are optional cross-reference identifiers.
	CounterAccount string `json:"counterAccount,omitempty"`
	InvoiceRef     string `json:"invoiceRef,omitempty"`

	// Extra preserves additional source fields (CSV columns under their
	// original header names, XAF line details such as period or custSupID)
	// for traceability.
	Extra map[string]string `json:"extra,omitempty"`

	// Raw is a snapshot of the source unit (the raw CSV line, or the XAF
	// node as compact JSON) kept for debugging unfamiliar export shapes.
	Raw string `json:"raw,omitempty"`
}

// setExtra records a source field, skipping empty values so the bag only
// carries information that was actually present.
func (t *Transaction) setExtra(key, value string) {
	if value == "" {
		return
	}
	if t.Extra == nil {
		t.Extra = make(map[string]string)
	}
	t.Extra[key] = value
}

// ParseError is the single fatal failure this package raises: the document
// could not be tokenized at all. Everything structural degrades to an empty
// or partial result instead.
type ParseError struct {
	Format string // "csv" or "xaf"
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// log is the package diagnostics logger. Parsing itself never depends on it;
// it only surfaces structural information about unfamiliar export shapes.
var log = zerolog.Nop()

// SetLogger installs a logger for parse diagnostics. By default the package
// is silent.
func SetLogger(l zerolog.Logger) {
	log = l
}
