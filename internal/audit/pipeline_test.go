package audit

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/HoltermanP/VermogenVitaal/internal/analysis"
	infra "github.com/HoltermanP/VermogenVitaal/internal/infra/bigquery"
	"github.com/HoltermanP/VermogenVitaal/internal/ingest"
)

type mockRepo struct {
	parsingCalls []string
	parsedCount  int
	parsedJSON   string
	failedErr    error
	inserted     []*infra.TransactionRow

	listRows []*infra.TransactionRow
	listErr  error

	runID         string
	succeededJSON string
	runFailedErr  error

	insertErr error
}

func (m *mockRepo) InsertAudit(ctx context.Context, row *infra.AuditRow) error { return nil }

func (m *mockRepo) MarkAuditParsing(ctx context.Context, auditID string) error {
	m.parsingCalls = append(m.parsingCalls, auditID)
	return nil
}

func (m *mockRepo) MarkAuditParsed(ctx context.Context, auditID string, txCount int, summaryJSON string) error {
	m.parsedCount = txCount
	m.parsedJSON = summaryJSON
	return nil
}

func (m *mockRepo) MarkAuditFailed(ctx context.Context, auditID string, parseErr error) {
	m.failedErr = parseErr
}

func (m *mockRepo) GetAudit(ctx context.Context, auditID string) (*infra.AuditRow, error) {
	return nil, nil
}

func (m *mockRepo) ListAudits(ctx context.Context) ([]*infra.AuditRow, error) { return nil, nil }

func (m *mockRepo) InsertTransactions(ctx context.Context, rows []*infra.TransactionRow) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, rows...)
	return nil
}

func (m *mockRepo) ListTransactionsByAudit(ctx context.Context, auditID string) ([]*infra.TransactionRow, error) {
	return m.listRows, m.listErr
}

func (m *mockRepo) StartAnalysisRun(ctx context.Context, auditID string) (string, error) {
	m.runID = "run-1"
	return m.runID, nil
}

func (m *mockRepo) MarkAnalysisRunSucceeded(ctx context.Context, analysisRunID, resultJSON string) error {
	m.succeededJSON = resultJSON
	return nil
}

func (m *mockRepo) MarkAnalysisRunFailed(ctx context.Context, analysisRunID string, runErr error) {
	m.runFailedErr = runErr
}

type mockStorage struct {
	data []byte
	err  error
}

func (m *mockStorage) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return m.data, m.err
}

type mockAnalyzer struct {
	questions []string
	result    *analysis.Result
	err       error
}

func (m *mockAnalyzer) GenerateQuestions(ctx context.Context, txs []ingest.Transaction, summary ingest.Summary) ([]string, error) {
	return m.questions, m.err
}

func (m *mockAnalyzer) Analyze(ctx context.Context, txs []ingest.Transaction, summary ingest.Summary, answers map[string]string) (*analysis.Result, error) {
	return m.result, m.err
}

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		wantErr  bool
	}{
		{"administratie.csv", "csv", false},
		{"Export.CSV", "csv", false},
		{"boekjaar2023.xaf", "xaf", false},
		{"auditfile.xml", "xaf", false},
		{"scan.pdf", "", true},
		{"geen-extensie", "", true},
	}
	for _, tt := range tests {
		got, err := FormatFromFilename(tt.filename)
		if tt.wantErr {
			if err == nil {
				t.Errorf("FormatFromFilename(%q) accepted unsupported file", tt.filename)
			}
			continue
		}
		if err != nil {
			t.Errorf("FormatFromFilename(%q): %v", tt.filename, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatFromFilename(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestParseUploadCSV(t *testing.T) {
	repo := &mockRepo{}
	storage := &mockStorage{data: []byte("Datum,Omschrijving,Bedrag\n01-01-2023,Omzet,100\n02-01-2023,Huur,-50")}
	svc := NewService(repo, storage, &mockAnalyzer{})

	err := svc.ParseUpload(context.Background(), "audit-1", "gs://b/o.csv", "csv", "o.csv")
	if err != nil {
		t.Fatalf("ParseUpload: %v", err)
	}

	if len(repo.parsingCalls) != 1 || repo.parsingCalls[0] != "audit-1" {
		t.Errorf("MarkAuditParsing calls = %v", repo.parsingCalls)
	}
	if len(repo.inserted) != 2 {
		t.Fatalf("inserted %d rows, want 2", len(repo.inserted))
	}
	if repo.inserted[0].AuditID != "audit-1" {
		t.Errorf("row AuditID = %q", repo.inserted[0].AuditID)
	}
	if repo.parsedCount != 2 {
		t.Errorf("parsed count = %d, want 2", repo.parsedCount)
	}
	if !strings.Contains(repo.parsedJSON, `"count":2`) {
		t.Errorf("summary JSON = %s", repo.parsedJSON)
	}
	if repo.failedErr != nil {
		t.Errorf("audit marked failed: %v", repo.failedErr)
	}
}

func TestParseUploadStorageFailure(t *testing.T) {
	repo := &mockRepo{}
	storage := &mockStorage{err: fmt.Errorf("object not found")}
	svc := NewService(repo, storage, &mockAnalyzer{})

	err := svc.ParseUpload(context.Background(), "audit-1", "gs://b/missing.csv", "csv", "missing.csv")
	if err == nil {
		t.Fatal("ParseUpload succeeded despite storage failure")
	}
	if repo.failedErr == nil {
		t.Error("audit not marked failed")
	}
	if len(repo.inserted) != 0 {
		t.Errorf("transactions inserted on failure: %d", len(repo.inserted))
	}
}

func TestParseUploadMalformedXAF(t *testing.T) {
	repo := &mockRepo{}
	storage := &mockStorage{data: []byte("<auditfile><unclosed")}
	svc := NewService(repo, storage, &mockAnalyzer{})

	err := svc.ParseUpload(context.Background(), "audit-1", "gs://b/bad.xaf", "xaf", "bad.xaf")
	if err == nil {
		t.Fatal("ParseUpload accepted malformed XAF")
	}
	if repo.failedErr == nil {
		t.Error("audit not marked failed")
	}
}

func storedRows(txs ...ingest.Transaction) []*infra.TransactionRow {
	rows := make([]*infra.TransactionRow, len(txs))
	for i, tx := range txs {
		rows[i] = infra.RowFromTransaction("audit-1", tx)
	}
	return rows
}

func TestQuestionsFallsBackToDefaults(t *testing.T) {
	repo := &mockRepo{listRows: storedRows(
		ingest.Transaction{Date: "2023-01-01", Description: "Omzet", Amount: 100},
	)}
	svc := NewService(repo, &mockStorage{}, &mockAnalyzer{err: fmt.Errorf("model down")})

	questions, err := svc.Questions(context.Background(), "audit-1")
	if err != nil {
		t.Fatalf("Questions: %v", err)
	}
	defaults := analysis.DefaultQuestions()
	if len(questions) != len(defaults) {
		t.Fatalf("got %d questions, want %d defaults", len(questions), len(defaults))
	}
	for i := range defaults {
		if questions[i] != defaults[i] {
			t.Errorf("question %d = %q, want %q", i, questions[i], defaults[i])
		}
	}
}

func TestAnalyzeRecordsResult(t *testing.T) {
	repo := &mockRepo{listRows: storedRows(
		ingest.Transaction{Date: "2023-01-01", Description: "Omzet", Amount: 100},
	)}
	want := &analysis.Result{Summary: "Alles in orde."}
	svc := NewService(repo, &mockStorage{}, &mockAnalyzer{result: want})

	got, err := svc.Analyze(context.Background(), "audit-1", map[string]string{"vraag": "antwoord"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Summary != want.Summary {
		t.Errorf("Summary = %q", got.Summary)
	}
	if repo.runID == "" {
		t.Error("analysis run not started")
	}
	if !strings.Contains(repo.succeededJSON, "Alles in orde.") {
		t.Errorf("recorded result = %s", repo.succeededJSON)
	}
}

func TestAnalyzeFallsBackOnModelFailure(t *testing.T) {
	repo := &mockRepo{listRows: storedRows(
		ingest.Transaction{Date: "2023-01-01", Description: "Omzet", Amount: 100},
	)}
	svc := NewService(repo, &mockStorage{}, &mockAnalyzer{err: fmt.Errorf("model down")})

	got, err := svc.Analyze(context.Background(), "audit-1", nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !got.Fallback {
		t.Error("result not marked as fallback")
	}
	if repo.succeededJSON == "" {
		t.Error("fallback result not recorded")
	}
}
