package analysis

import (
	"fmt"
	"strings"

	"github.com/HoltermanP/VermogenVitaal/internal/ingest"
)

// FallbackAnalysis produces a basic review from heuristic checks alone, used
// when the model is unavailable or returns garbage. It only reports data
// quality signals it can compute locally; the result is marked Fallback so
// the client knows no adviser-level analysis happened.
func FallbackAnalysis(txs []ingest.Transaction, summary ingest.Summary) *Result {
	result := &Result{
		Summary: fmt.Sprintf(
			"Basisanalyse van %d transacties (%s): omzet %.2f, kosten %.2f.",
			summary.Count, summary.DateRange, summary.TotalRevenue, summary.TotalExpenses),
		Fallback: true,
	}

	var zeroAmounts, missingDates, missingDescriptions int
	for _, t := range txs {
		if t.Amount == 0 {
			zeroAmounts++
		}
		if strings.TrimSpace(t.Date) == "" {
			missingDates++
		}
		if strings.TrimSpace(t.Description) == "" || strings.HasPrefix(t.Description, "Transaction ") {
			missingDescriptions++
		}
	}

	if zeroAmounts > 0 {
		result.Findings = append(result.Findings, Finding{
			Category:    "datakwaliteit",
			Severity:    SeverityMedium,
			Title:       "Transacties zonder bedrag",
			Description: fmt.Sprintf("%d transacties hebben bedrag 0; mogelijk zijn bedragen niet goed ingelezen.", zeroAmounts),
			Advice:      "Controleer het bronbestand en de bedragkolom.",
		})
	}
	if missingDates > 0 {
		result.Findings = append(result.Findings, Finding{
			Category:    "datakwaliteit",
			Severity:    SeverityMedium,
			Title:       "Transacties zonder datum",
			Description: fmt.Sprintf("%d transacties missen een datum, waardoor de periode-indeling onbetrouwbaar is.", missingDates),
			Advice:      "Vul ontbrekende boekdatums aan in de administratie.",
		})
	}
	if missingDescriptions > 0 {
		result.Findings = append(result.Findings, Finding{
			Category:    "datakwaliteit",
			Severity:    SeverityLow,
			Title:       "Transacties zonder omschrijving",
			Description: fmt.Sprintf("%d transacties hebben geen bruikbare omschrijving.", missingDescriptions),
			Advice:      "Voorzie boekingen van een omschrijving voor de fiscale onderbouwing.",
		})
	}
	if summary.WithoutVATCount > 0 {
		result.Findings = append(result.Findings, Finding{
			Category:    "btw",
			Severity:    SeverityMedium,
			Title:       "Ontvangsten zonder BTW-vermelding",
			Description: fmt.Sprintf("%d positieve transacties dragen geen BTW-code.", summary.WithoutVATCount),
			Advice:      "Controleer of deze omzet BTW-plichtig is.",
		})
	}
	if summary.LargeCount > 0 {
		result.Findings = append(result.Findings, Finding{
			Category:    "grote posten",
			Severity:    SeverityHigh,
			Title:       fmt.Sprintf("Transacties boven %.0f", ingest.LargeTransactionThreshold),
			Description: fmt.Sprintf("%d transacties overschrijden de grens voor grote posten.", summary.LargeCount),
			Advice:      "Leg van grote posten de onderbouwing (factuur, overeenkomst) vast.",
		})
	}

	result.Recommendations = []string{
		"Laat de administratie door een adviseur beoordelen; dit is een automatische basisanalyse.",
		"Bewaar onderliggende facturen en bonnen bij de geboekte transacties.",
	}
	return result
}
