package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HoltermanP/VermogenVitaal/internal/ingest"
)

// defaultQuestions are always asked regardless of what the model proposes:
// without legal form and tax year no Dutch tax advice is possible.
var defaultQuestions = []string{
	"Wat is de rechtsvorm van de onderneming (eenmanszaak, VOF, BV)?",
	"Over welk belastingjaar gaat deze administratie?",
	"Zijn er privé-uitgaven via de zakelijke rekening geboekt?",
}

// DefaultQuestions returns the questions asked when the model cannot
// propose any.
func DefaultQuestions() []string {
	out := make([]string, len(defaultQuestions))
	copy(out, defaultQuestions)
	return out
}

func questionsPrompt(summary ingest.Summary, sample string) string {
	return "Je bent een Nederlandse belastingadviseur die een aangeleverde administratie beoordeelt.\n\n" +
		"Hieronder staan de kerncijfers en een steekproef van de transacties.\n" +
		summaryBlock(summary) +
		"\nSteekproef transacties (JSON):\n" + sample + "\n\n" +
		"Taak:\n" +
		fmt.Sprintf("- Formuleer maximaal %d korte verduidelijkingsvragen aan de klant.\n", maxQuestions) +
		"- Vraag alleen naar zaken die fiscaal relevant zijn en niet uit de cijfers blijken.\n" +
		"- Stel de vragen in het Nederlands.\n\n" +
		"Output:\n" +
		"- STRICT JSON, een array van strings.\n" +
		"- Geen codefences, geen Markdown, geen tekst buiten de JSON.\n" +
		"Output must begin with \"[\" and end with \"]\".\n"
}

func analysisPrompt(summary ingest.Summary, sample string, answers map[string]string) string {
	var b strings.Builder
	b.WriteString("Je bent een Nederlandse belastingadviseur. Analyseer de onderstaande administratie")
	if form := legalFormFromAnswers(answers); form != "" {
		b.WriteString(" van een " + form)
	}
	if year := taxYearFromAnswers(answers); year != "" {
		b.WriteString(" over belastingjaar " + year)
	}
	b.WriteString(".\n\n")
	b.WriteString(summaryBlock(summary))
	b.WriteString("\nSteekproef transacties (JSON):\n" + sample + "\n")

	if len(answers) > 0 {
		b.WriteString("\nAntwoorden van de klant op eerdere vragen:\n")
		for q, a := range answers {
			b.WriteString(fmt.Sprintf("- %s: %s\n", q, a))
		}
	}

	b.WriteString("\nTaak:\n" +
		"- Benoem fiscale aandachtspunten: BTW-risico's, grote of ongebruikelijke posten, ontbrekende gegevens, mogelijke privé-vermenging.\n" +
		"- Geef concrete aanbevelingen in het Nederlands.\n\n" +
		"Output:\n" +
		"- STRICT JSON, één object met deze velden:\n" +
		"  \"summary\": string (korte samenvatting in het Nederlands)\n" +
		"  \"findings\": array van objecten met \"category\", \"severity\" (\"laag\", \"gemiddeld\" of \"hoog\"), \"title\", \"description\", \"advice\"\n" +
		"  \"recommendations\": array van strings\n" +
		"- Geen codefences, geen Markdown, geen tekst buiten de JSON.\n" +
		"Output must begin with \"{\" and end with \"}\".\n")
	return b.String()
}

func summaryBlock(s ingest.Summary) string {
	return fmt.Sprintf(
		"Kerncijfers:\n"+
			"- Aantal transacties: %d\n"+
			"- Totale omzet: %.2f (%d transacties)\n"+
			"- Totale kosten: %.2f (%d transacties)\n"+
			"- Transacties boven %.0f: %d\n"+
			"- Positieve transacties zonder BTW-vermelding: %d\n"+
			"- Periode: %s\n",
		s.Count, s.TotalRevenue, s.RevenueCount, s.TotalExpenses, s.ExpenseCount,
		ingest.LargeTransactionThreshold, s.LargeCount,
		s.WithoutVATCount, s.DateRange)
}

// transactionSample renders a prompt-sized JSON slice of the transactions,
// trimmed of the raw/extra payloads that would blow up the token count.
func transactionSample(txs []ingest.Transaction) string {
	if len(txs) > maxPromptTransactions {
		txs = txs[:maxPromptTransactions]
	}
	type sampleTx struct {
		Date        string  `json:"date"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category,omitempty"`
		VAT         string  `json:"vat,omitempty"`
	}
	sample := make([]sampleTx, len(txs))
	for i, t := range txs {
		sample[i] = sampleTx{
			Date:        t.Date,
			Description: t.Description,
			Amount:      t.Amount,
			Category:    t.Category,
			VAT:         t.VAT,
		}
	}
	data, err := json.Marshal(sample)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// legalFormFromAnswers digs the company's legal form out of the free-form
// question/answer pairs.
func legalFormFromAnswers(answers map[string]string) string {
	for q, a := range answers {
		if strings.Contains(strings.ToLower(q), "rechtsvorm") {
			return strings.TrimSpace(a)
		}
	}
	return ""
}

// taxYearFromAnswers extracts a four-digit year from the answer to the tax
// year question.
func taxYearFromAnswers(answers map[string]string) string {
	for q, a := range answers {
		lq := strings.ToLower(q)
		if !strings.Contains(lq, "belastingjaar") && !strings.Contains(lq, "jaar") {
			continue
		}
		for i := 0; i+4 <= len(a); i++ {
			if isYear(a[i : i+4]) {
				return a[i : i+4]
			}
		}
	}
	return ""
}

func isYear(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s[0] == '1' || s[0] == '2'
}
