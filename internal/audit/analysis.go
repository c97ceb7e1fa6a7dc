package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HoltermanP/VermogenVitaal/internal/analysis"
	"github.com/HoltermanP/VermogenVitaal/internal/ingest"
	"github.com/HoltermanP/VermogenVitaal/internal/logger"
)

// loadTransactions reconstructs the canonical transactions of an audit from
// storage.
func (s *Service) loadTransactions(ctx context.Context, auditID string) ([]ingest.Transaction, ingest.Summary, error) {
	rows, err := s.repo.ListTransactionsByAudit(ctx, auditID)
	if err != nil {
		return nil, ingest.Summary{}, fmt.Errorf("loading transactions: %w", err)
	}
	txs := make([]ingest.Transaction, len(rows))
	for i, r := range rows {
		txs[i] = r.ToTransaction()
	}
	return txs, ingest.Summarize(txs), nil
}

// Questions returns the clarifying questions for an audit. A model failure
// degrades to the default question set; the client always gets something to
// answer.
func (s *Service) Questions(ctx context.Context, auditID string) ([]string, error) {
	log := logger.FromContext(ctx)

	txs, summary, err := s.loadTransactions(ctx, auditID)
	if err != nil {
		return nil, fmt.Errorf("Questions: %w", err)
	}

	questions, err := s.analyzer.GenerateQuestions(ctx, txs, summary)
	if err != nil {
		log.Warn().
			Err(err).
			Str("audit_id", auditID).
			Msg("question generation failed, using defaults")
		return analysis.DefaultQuestions(), nil
	}
	return questions, nil
}

// Analyze runs the advisory analysis over an audit with the client's
// answers. A model failure degrades to the heuristic fallback; the run is
// recorded either way.
func (s *Service) Analyze(ctx context.Context, auditID string, answers map[string]string) (*analysis.Result, error) {
	log := logger.FromContext(ctx)

	txs, summary, err := s.loadTransactions(ctx, auditID)
	if err != nil {
		return nil, fmt.Errorf("Analyze: %w", err)
	}

	runID, err := s.repo.StartAnalysisRun(ctx, auditID)
	if err != nil {
		return nil, fmt.Errorf("Analyze: starting run: %w", err)
	}

	result, err := s.analyzer.Analyze(ctx, txs, summary, answers)
	if err != nil {
		log.Warn().
			Err(err).
			Str("audit_id", auditID).
			Msg("model analysis failed, using heuristic fallback")
		result = analysis.FallbackAnalysis(txs, summary)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		s.repo.MarkAnalysisRunFailed(ctx, runID, err)
		return nil, fmt.Errorf("Analyze: marshal result: %w", err)
	}
	if err := s.repo.MarkAnalysisRunSucceeded(ctx, runID, string(resultJSON)); err != nil {
		// The analysis itself succeeded; a bookkeeping failure should not
		// withhold the result from the client.
		log.Error().
			Err(err).
			Str("audit_id", auditID).
			Str("analysis_run_id", runID).
			Msg("recording analysis run failed")
	}
	return result, nil
}
