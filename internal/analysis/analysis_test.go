package analysis

import (
	"strings"
	"testing"

	"github.com/HoltermanP/VermogenVitaal/internal/ingest"
)

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare array", `["a","b"]`, `["a","b"]`},
		{"bare object", `{"summary":"ok"}`, `{"summary":"ok"}`},
		{"fenced array", "```json\n[\"a\"]\n```", `["a"]`},
		{"fenced object", "```\n{\"x\":1}\n```", `{"x":1}`},
		{"chatter around array", "Hier is de JSON:\n[\"a\"]\nSucces!", `["a"]`},
		{"chatter around object", "Resultaat: {\"x\":1} klaar", `{"x":1}`},
		{"object containing array keeps object", `{"findings":["a"]}`, `{"findings":["a"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMergeQuestions(t *testing.T) {
	proposed := []string{
		"Zijn alle zakelijke kilometers geregistreerd?",
		"wat is de rechtsvorm van de onderneming (eenmanszaak, vof, bv)?", // duplicate of a default
		"  ",
		"Is er geïnvesteerd in bedrijfsmiddelen boven 450 euro?",
		"Vraag 5?", "Vraag 6?", "Vraag 7?", "Vraag 8?",
	}
	got := mergeQuestions(proposed)

	if len(got) != maxQuestions {
		t.Fatalf("got %d questions, want %d", len(got), maxQuestions)
	}
	for i, q := range defaultQuestions {
		if got[i] != q {
			t.Errorf("question %d = %q, want default %q", i, got[i], q)
		}
	}
	for i, q := range got {
		for j := i + 1; j < len(got); j++ {
			if strings.EqualFold(q, got[j]) {
				t.Errorf("duplicate question at %d and %d: %q", i, j, q)
			}
		}
	}
}

func TestTransactionSampleCapped(t *testing.T) {
	txs := make([]ingest.Transaction, maxPromptTransactions+50)
	for i := range txs {
		txs[i] = ingest.Transaction{
			Date:        "2023-01-01",
			Description: "tx",
			Amount:      1,
			Raw:         strings.Repeat("x", 1000),
		}
	}
	sample := transactionSample(txs)
	if n := strings.Count(sample, `"description"`); n != maxPromptTransactions {
		t.Errorf("sample holds %d transactions, want %d", n, maxPromptTransactions)
	}
	if strings.Contains(sample, "xxx") {
		t.Error("sample leaked raw payload into the prompt")
	}
}

func TestSummaryBlockIncludesClassCounts(t *testing.T) {
	txs := []ingest.Transaction{
		{Date: "2023-01-01", Description: "Omzet", Amount: 500},
		{Date: "2023-02-01", Description: "Huur", Amount: -1200},
		{Date: "2023-03-01", Description: "Verkoop", Amount: 300},
	}
	block := summaryBlock(ingest.Summarize(txs))

	if !strings.Contains(block, "Totale omzet: 800.00 (2 transacties)") {
		t.Errorf("revenue line missing count:\n%s", block)
	}
	if !strings.Contains(block, "Totale kosten: 1200.00 (1 transacties)") {
		t.Errorf("expense line missing count:\n%s", block)
	}
}

func TestAnswerExtraction(t *testing.T) {
	answers := map[string]string{
		"Wat is de rechtsvorm van de onderneming (eenmanszaak, VOF, BV)?": " BV ",
		"Over welk belastingjaar gaat deze administratie?":                "Dit gaat over 2023.",
		"Zijn er privé-uitgaven via de zakelijke rekening geboekt?":       "Nee",
	}
	if got := legalFormFromAnswers(answers); got != "BV" {
		t.Errorf("legalFormFromAnswers = %q, want BV", got)
	}
	if got := taxYearFromAnswers(answers); got != "2023" {
		t.Errorf("taxYearFromAnswers = %q, want 2023", got)
	}
	if got := legalFormFromAnswers(nil); got != "" {
		t.Errorf("legalFormFromAnswers(nil) = %q, want empty", got)
	}
}

func TestFallbackAnalysis(t *testing.T) {
	txs := []ingest.Transaction{
		{Date: "2023-01-01", Description: "Omzet", Amount: 15000},
		{Date: "", Description: "Transaction 2", Amount: 0},
		{Date: "2023-02-01", Description: "", Amount: 50},
	}
	result := FallbackAnalysis(txs, ingest.Summarize(txs))

	if !result.Fallback {
		t.Error("Fallback flag not set")
	}
	if result.Summary == "" {
		t.Error("Summary empty")
	}
	wantTitles := map[string]bool{
		"Transacties zonder bedrag":       false,
		"Transacties zonder datum":        false,
		"Transacties zonder omschrijving": false,
	}
	for _, f := range result.Findings {
		if _, ok := wantTitles[f.Title]; ok {
			wantTitles[f.Title] = true
		}
		if f.Severity != SeverityLow && f.Severity != SeverityMedium && f.Severity != SeverityHigh {
			t.Errorf("finding %q has invalid severity %q", f.Title, f.Severity)
		}
	}
	for title, seen := range wantTitles {
		if !seen {
			t.Errorf("expected finding %q missing", title)
		}
	}
	if len(result.Recommendations) == 0 {
		t.Error("no recommendations in fallback result")
	}
}

func TestFallbackAnalysisCleanData(t *testing.T) {
	txs := []ingest.Transaction{
		{Date: "2023-01-01", Description: "Omzet januari", Amount: 500, VAT: "21 (105.00)"},
		{Date: "2023-02-01", Description: "Huur", Amount: -1200, VAT: "21 (252.00)"},
	}
	result := FallbackAnalysis(txs, ingest.Summarize(txs))
	if len(result.Findings) != 0 {
		t.Errorf("clean administration produced %d findings: %+v", len(result.Findings), result.Findings)
	}
}
