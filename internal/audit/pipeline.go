// Package audit orchestrates the life of an uploaded administration file:
// fetch from storage, parse into transactions, persist, and run the
// advisory analysis over the result.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/HoltermanP/VermogenVitaal/internal/analysis"
	infra "github.com/HoltermanP/VermogenVitaal/internal/infra/bigquery"
	"github.com/HoltermanP/VermogenVitaal/internal/ingest"
	"github.com/HoltermanP/VermogenVitaal/internal/logger"
)

// Repository is the persistence surface the audit flow needs. Satisfied by
// *infra.Repository; narrowed here so tests can mock it.
type Repository interface {
	InsertAudit(ctx context.Context, row *infra.AuditRow) error
	MarkAuditParsing(ctx context.Context, auditID string) error
	MarkAuditParsed(ctx context.Context, auditID string, txCount int, summaryJSON string) error
	MarkAuditFailed(ctx context.Context, auditID string, parseErr error)
	GetAudit(ctx context.Context, auditID string) (*infra.AuditRow, error)
	ListAudits(ctx context.Context) ([]*infra.AuditRow, error)
	InsertTransactions(ctx context.Context, rows []*infra.TransactionRow) error
	ListTransactionsByAudit(ctx context.Context, auditID string) ([]*infra.TransactionRow, error)
	StartAnalysisRun(ctx context.Context, auditID string) (string, error)
	MarkAnalysisRunSucceeded(ctx context.Context, analysisRunID, resultJSON string) error
	MarkAnalysisRunFailed(ctx context.Context, analysisRunID string, runErr error)
}

// Storage is the piece of the storage service the parse flow needs.
type Storage interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// FormatFromFilename maps an upload filename to a parse format. XML files
// are treated as XAF; that is the only XML dialect this service accepts.
func FormatFromFilename(filename string) (string, error) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".csv":
		return "csv", nil
	case ".xaf", ".xml":
		return "xaf", nil
	default:
		return "", fmt.Errorf("unsupported file type %q (accepted: .csv, .xaf, .xml)", path.Ext(filename))
	}
}

// ParseText dispatches file content to the right ingester.
func ParseText(format, text string) ([]ingest.Transaction, error) {
	switch format {
	case "csv":
		return ingest.ParseCSV(text), nil
	case "xaf":
		return ingest.ParseXAF(text)
	default:
		return nil, fmt.Errorf("ParseText: unknown format %q", format)
	}
}

// Step is a single stage of the parse pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State is the shared state threaded through the pipeline steps.
type State struct {
	AuditID  string
	GCSURI   string
	Format   string
	Filename string

	FileBytes    []byte
	Transactions []ingest.Transaction
	Summary      ingest.Summary
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline from the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, stopping at the first failure.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// MarkParsingStep flips the audit to PARSING so the UI can show progress.
type MarkParsingStep struct {
	Repo Repository
}

func (s *MarkParsingStep) Execute(ctx context.Context, state *State) error {
	if err := s.Repo.MarkAuditParsing(ctx, state.AuditID); err != nil {
		return err
	}
	return nil
}

// FetchFileStep fetches the uploaded file bytes from GCS.
type FetchFileStep struct {
	Repo    Repository
	Storage Storage
}

func (s *FetchFileStep) Execute(ctx context.Context, state *State) error {
	data, err := s.Storage.FetchFromGCS(ctx, state.GCSURI)
	if err != nil {
		s.Repo.MarkAuditFailed(ctx, state.AuditID, err)
		return err
	}
	state.FileBytes = data
	return nil
}

// ParseFileStep runs the ingester for the audit's format and computes the
// aggregate summary.
type ParseFileStep struct {
	Repo Repository
}

func (s *ParseFileStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)

	txs, err := ParseText(state.Format, string(state.FileBytes))
	if err != nil {
		s.Repo.MarkAuditFailed(ctx, state.AuditID, err)
		return err
	}
	state.Transactions = txs
	state.Summary = ingest.Summarize(txs)

	log.Info().
		Str("audit_id", state.AuditID).
		Str("format", state.Format).
		Int("transactions", len(txs)).
		Msg("audit file parsed")
	return nil
}

// StoreTransactionsStep persists the parsed transactions.
type StoreTransactionsStep struct {
	Repo Repository
}

func (s *StoreTransactionsStep) Execute(ctx context.Context, state *State) error {
	rows := make([]*infra.TransactionRow, len(state.Transactions))
	for i, t := range state.Transactions {
		rows[i] = infra.RowFromTransaction(state.AuditID, t)
	}
	if err := s.Repo.InsertTransactions(ctx, rows); err != nil {
		s.Repo.MarkAuditFailed(ctx, state.AuditID, err)
		return err
	}
	return nil
}

// MarkParsedStep closes the audit with its transaction count and summary.
type MarkParsedStep struct {
	Repo Repository
}

func (s *MarkParsedStep) Execute(ctx context.Context, state *State) error {
	summaryJSON, err := json.Marshal(state.Summary)
	if err != nil {
		return fmt.Errorf("MarkParsedStep: marshal summary: %w", err)
	}
	if err := s.Repo.MarkAuditParsed(ctx, state.AuditID, len(state.Transactions), string(summaryJSON)); err != nil {
		return err
	}
	return nil
}

// Service ties the parse pipeline and the analysis flow together.
type Service struct {
	repo     Repository
	storage  Storage
	analyzer analysis.Analyzer
}

// NewService creates the audit service.
func NewService(repo Repository, storage Storage, analyzer analysis.Analyzer) *Service {
	return &Service{repo: repo, storage: storage, analyzer: analyzer}
}

// ParseUpload runs the standard parse pipeline for one uploaded audit.
func (s *Service) ParseUpload(ctx context.Context, auditID, gcsURI, format, filename string) error {
	pipeline := NewPipeline(
		&MarkParsingStep{Repo: s.repo},
		&FetchFileStep{Repo: s.repo, Storage: s.storage},
		&ParseFileStep{Repo: s.repo},
		&StoreTransactionsStep{Repo: s.repo},
		&MarkParsedStep{Repo: s.repo},
	)
	state := &State{
		AuditID:  auditID,
		GCSURI:   gcsURI,
		Format:   format,
		Filename: filename,
	}
	return pipeline.Execute(ctx, state)
}
