package ingest

import (
	"strconv"
	"strings"
)

// Column synonym tables for fuzzy header mapping. Dutch bookkeeping packages
// export under Dutch headers, international ones under English headers, and
// plenty of tools invent their own variants; matching is substring-based in
// either direction (see findColumn).
var (
	dateColumns        = []string{"datum", "date", "transactiedatum", "boekdatum"}
	descriptionColumns = []string{"omschrijving", "description", "beschrijving", "commentaar", "tekst"}
	amountColumns      = []string{"bedrag", "amount", "aantal", "waarde", "saldo"}
	typeColumns        = []string{"type", "soort", "categorie"}
	categoryColumns    = []string{"categorie", "category", "rekening", "account"}
	vatColumns         = []string{"btw", "vat", "belasting", "tax"}
	counterColumns     = []string{"tegenrekening", "tegen_rekening", "tegenrekeningnummer", "counter_account"}
	invoiceColumns     = []string{"factuur", "invoice", "factuurnummer", "invoice_number"}
	numberColumns      = []string{"nr", "nummer", "number", "id", "transaction_id"}
)

// ParseCSV parses a bookkeeping CSV export into canonical transactions.
// It sniffs the delimiter from the header line, maps headers onto canonical
// fields through the synonym tables, and extracts rows tolerantly: a
// malformed or empty row is skipped and counted, never fatal. An empty file
// yields an empty result, not an error.
func ParseCSV(text string) []Transaction {
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		log.Debug().Msg("csv: file contains no lines")
		return []Transaction{}
	}

	headerLine := strings.TrimPrefix(lines[0], "\uFEFF")
	sep := detectDelimiter(headerLine)

	headers := splitCSVLine(headerLine, sep)
	for i, h := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	dateIdx := findColumn(headers, dateColumns)
	descIdx := findColumn(headers, descriptionColumns)
	amountIdx := findColumn(headers, amountColumns)
	typeIdx := findColumn(headers, typeColumns)
	categoryIdx := findColumn(headers, categoryColumns)
	vatIdx := findColumn(headers, vatColumns)
	counterIdx := findColumn(headers, counterColumns)
	invoiceIdx := findColumn(headers, invoiceColumns)
	numberIdx := findColumn(headers, numberColumns)

	log.Debug().
		Str("delimiter", string(sep)).
		Strs("headers", headers).
		Msg("csv: header mapped")

	transactions := make([]Transaction, 0, len(lines)-1)
	skipped := 0

	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" || delimitersOnly(line, sep) {
			skipped++
			continue
		}

		values := splitCSVLine(line, sep)
		if allEmpty(values) {
			skipped++
			continue
		}

		t := Transaction{Raw: line}

		// Preserve every column under its original header name; columns
		// beyond the header row get positional names.
		for i, v := range values {
			if i < len(headers) {
				t.setExtra(headers[i], v)
			} else {
				t.setExtra("column_"+strconv.Itoa(i), v)
			}
		}

		if v := valueAt(values, dateIdx); v != "" {
			t.Date = ParseDate(v)
		}
		if v := valueAt(values, amountIdx); v != "" {
			t.Amount = ParseAmount(v)
		}
		t.Type = valueAt(values, typeIdx)
		t.Category = valueAt(values, categoryIdx)
		t.VAT = valueAt(values, vatIdx)
		t.CounterAccount = valueAt(values, counterIdx)
		t.InvoiceRef = valueAt(values, invoiceIdx)
		t.setExtra("nr", valueAt(values, numberIdx))

		if v := valueAt(values, descIdx); v != "" {
			t.Description = v
		} else {
			t.Description = synthesizeDescription(&t)
		}

		// Any non-empty token is enough to accept the row; all-empty rows
		// were already skipped above.
		if t.Description == "" {
			// Last resort: borrow the first value substantial enough to
			// mean something.
			for _, v := range values {
				if len(strings.TrimSpace(v)) > 3 {
					t.Description = strings.TrimSpace(v)
					break
				}
			}
		}

		transactions = append(transactions, t)
	}

	log.Debug().
		Int("transactions", len(transactions)).
		Int("skipped", skipped).
		Msg("csv: parse finished")

	return transactions
}

// detectDelimiter tests comma, semicolon and tab against the header line in
// that priority order and picks the first that occurs.
func detectDelimiter(headerLine string) rune {
	for _, sep := range []rune{',', ';', '\t'} {
		if strings.ContainsRune(headerLine, sep) {
			return sep
		}
	}
	return ','
}

// splitCSVLine tokenizes one line honoring double-quote-enclosed fields,
// including escaped "" inside quotes: a delimiter inside quotes must not
// split the field.
func splitCSVLine(line string, sep rune) []string {
	var values []string
	var current strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == sep && !inQuotes:
			values = append(values, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(c)
		}
	}
	values = append(values, strings.TrimSpace(current.String()))
	return values
}

// findColumn returns the index of the first header matching any of the
// candidate names. Exact matches win over fuzzy ones across the whole
// candidate list, otherwise "tegenrekening" would fuzzy-match a "rekening"
// header before its own exact column is considered. The fuzzy pass accepts
// substring containment in either direction, or equality once both sides are
// reduced to their alphabetic characters. Returns -1 when nothing matches.
func findColumn(headers []string, candidates []string) int {
	for _, name := range candidates {
		for i, h := range headers {
			if h == name {
				return i
			}
		}
	}
	for _, name := range candidates {
		for i, h := range headers {
			if strings.Contains(h, name) || strings.Contains(name, h) ||
				alphaOnly(h) == alphaOnly(name) {
				return i
			}
		}
	}
	return -1
}

// synthesizeDescription builds a description from whatever classification
// fields the row carries when no explicit description column matched.
func synthesizeDescription(t *Transaction) string {
	var parts []string
	if t.Type != "" {
		parts = append(parts, t.Type)
	}
	if t.Category != "" {
		parts = append(parts, "Rekening: "+t.Category)
	}
	if t.CounterAccount != "" {
		parts = append(parts, "Tegenrekening: "+t.CounterAccount)
	}
	if t.InvoiceRef != "" {
		parts = append(parts, "Factuur: "+t.InvoiceRef)
	}
	return strings.Join(parts, " | ")
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(strings.TrimSuffix(line, "\r")) != "" {
			lines = append(lines, strings.TrimSuffix(line, "\r"))
		}
	}
	return lines
}

func delimitersOnly(line string, sep rune) bool {
	return strings.TrimSpace(strings.ReplaceAll(line, string(sep), "")) == ""
}

func allEmpty(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func valueAt(values []string, idx int) string {
	if idx < 0 || idx >= len(values) {
		return ""
	}
	return strings.Trim(strings.TrimSpace(values[idx]), `"`)
}

func alphaOnly(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= 'a' && c <= 'z' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
