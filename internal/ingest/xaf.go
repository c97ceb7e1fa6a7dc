package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/clbanning/mxj/v2"
	"github.com/shopspring/decimal"
)

func init() {
	// Match the attribute convention the synonym tables and getChild use.
	mxj.SetAttrPrefix("@_")
}

const (
	// maxSearchDepth bounds every recursive walk over the document tree.
	maxSearchDepth = 10

	// maxHarvestedObjects caps the array-harvesting strategy; very large
	// exports would otherwise drown the analysis in master-file noise.
	maxHarvestedObjects = 500

	// maxLastResortObjects caps the blind collect-everything fallback.
	maxLastResortObjects = 100
)

// Ordered field synonym tables for per-transaction extraction. getChild
// already folds case, attribute prefixes and namespaces, so each entry is a
// canonical name; dotted entries are nested paths.
var (
	txIDFields = []string{"transactionID"}

	txDateFields = []string{
		"transactionDate", "date",
		"transactionHeader.transactionDate", "header.transactionDate",
		"periodStart", "periodEnd", "entryDate", "postingDate",
		"sourceDocumentID.date", "documentDate",
	}

	txDescriptionFields = []string{
		"description",
		"transactionHeader.description", "header.description",
		"comment", "narrative", "reference", "remarks", "memo", "text",
	}

	txAmountFields  = []string{"amount", "transactionAmount", "totalAmount", "value", "monetaryValue"}
	txAccountFields = []string{"accountID", "account", "accountCode", "accountNumber", "accountDescription"}
	txTypeFields    = []string{"transactionType", "type", "entryType", "documentType", "sourceDocumentID.type"}
	txInvoiceFields = []string{"transactionID", "sourceDocumentID", "documentNumber", "invoiceNumber", "reference", "documentID"}

	lineDebitFields    = []string{"debitAmount", "debit"}
	lineCreditFields   = []string{"creditAmount", "credit"}
	lineAccountFields  = []string{"accountID", "account", "accountCode", "accountNumber"}
	lineRecordFields   = []string{"recordID"}
	lineCustSupFields  = []string{"custSupID", "customerID", "supplierID", "customerSupplierID"}
	lineCostFields     = []string{"costDesc", "costDescription"}
	lineProductFields  = []string{"productDesc", "productDescription"}
	lineProjectFields  = []string{"projectDesc", "projectDescription"}
	lineVATCodeFields  = []string{"vat.vatCode", "vatCode", "taxInformation.taxRate", "taxInformation.taxPercentage", "taxRate", "vatRate", "vatPercentage"}
	lineVATAmtFields   = []string{"vat.vatAmount", "vatAmount"}
	lineDescFields     = []string{"description", "narrative", "comment", "text", "memo"}
	lineDateFields     = []string{"effectiveDate", "date"}
	lineCounterFields  = []string{"counterpartAccountID", "counterpartAccount", "relatedAccountID", "relatedAccount"}
	lineDocumentFields = []string{"documentID", "sourceDocumentID", "documentNumber", "invoiceNumber", "reference"}
)

// ParseXAF parses an XAF (XML Auditfile Financieel) export into canonical
// transactions. The only fatal failure is XML that cannot be tokenized at
// all; every structural surprise degrades through a cascade of extraction
// strategies, and an unrecognizable document yields an empty list rather
// than an error.
func ParseXAF(xmlText string) ([]Transaction, error) {
	root, err := mxj.NewMapXml([]byte(xmlText))
	if err != nil {
		return nil, &ParseError{Format: "xaf", Err: err}
	}
	doc := map[string]interface{}(root)

	candidates := collectCandidates(doc)
	log.Debug().Int("candidates", len(candidates)).Msg("xaf: raw candidates collected")

	transactions := make([]Transaction, 0, len(candidates))
	skipped := 0
	for i, node := range candidates {
		t, ok := extractTransaction(node, i)
		if !ok {
			skipped++
			continue
		}
		transactions = append(transactions, *t)
	}

	log.Debug().
		Int("transactions", len(transactions)).
		Int("skipped", skipped).
		Msg("xaf: parse finished")

	if len(transactions) == 0 {
		logDocumentShape(doc)
	}
	return transactions, nil
}

// collectCandidates runs the extraction strategies in order and stops at the
// first one that yields anything; the blind object scan runs only when all
// typed strategies came up empty.
func collectCandidates(doc map[string]interface{}) []map[string]interface{} {
	strategies := []struct {
		name string
		fn   func(map[string]interface{}) []map[string]interface{}
	}{
		{"known-paths", knownPathCandidates},
		{"generic-paths", genericPathCandidates},
		{"recursive-search", recursiveCandidates},
		{"array-harvest", harvestArrayCandidates},
	}
	for _, s := range strategies {
		if found := s.fn(doc); len(found) > 0 {
			log.Debug().Str("strategy", s.name).Int("count", len(found)).Msg("xaf: strategy matched")
			return found
		}
	}

	log.Debug().Msg("xaf: all typed strategies empty, collecting every object")
	return collectAllObjects(doc, 0, maxLastResortObjects)
}

// knownJournalPaths are the historically observed homes of journal nodes.
// e-Boekhouden emits the lowercase variants; other exporters use the
// PascalCase AuditFile layout.
var knownJournalPaths = []string{
	"auditfile.transactions.journal",
	"auditfile.generalLedger.journal",
	"AuditFile.MasterFiles.Transaction.JournalTransaction",
	"AuditFile.GeneralLedgerEntries.Journal",
}

// knownTransactionPaths resolve directly to transaction nodes.
var knownTransactionPaths = []string{
	"AuditFile.GeneralLedgerEntries.Transaction",
	"AuditFile.Transaction",
}

func knownPathCandidates(doc map[string]interface{}) []map[string]interface{} {
	var found []map[string]interface{}
	for _, path := range knownJournalPaths {
		for _, journal := range asNodeList(lookupFirst(doc, []string{path})) {
			found = append(found, journalTransactions(journal)...)
		}
	}
	for _, path := range knownTransactionPaths {
		found = append(found, asNodeList(lookupFirst(doc, []string{path}))...)
	}
	return found
}

// genericPaths is the broader table of plausible transaction containers
// tried when the known layouts are absent.
var genericPaths = []string{
	"auditfile.transactions.journal",
	"auditfile.generalLedger.journal",
	"AuditFile.GeneralLedgerEntries.Journal",
	"AuditFile.GeneralLedgerEntries",
	"AuditFile.MasterFiles",
	"AuditFile",
	"AuditFile.Transaction",
	"AuditFile.Transactions",
	"AuditFile.Journal",
	"AuditFile.Journals",
	"GeneralLedgerEntries",
	"Transactions",
	"Transaction",
}

func genericPathCandidates(doc map[string]interface{}) []map[string]interface{} {
	var found []map[string]interface{}
	for _, path := range genericPaths {
		v := lookupFirst(doc, []string{path})
		if v == nil {
			continue
		}
		for _, node := range asNodeList(v) {
			if txs := journalTransactions(node); len(txs) > 0 {
				found = append(found, txs...)
			} else {
				found = append(found, node)
			}
		}
	}
	return found
}

// recursiveCandidates walks the whole tree classifying nodes, unwrapping
// journals and collecting transaction-like objects. The walk always descends
// in the first few levels and below that only into keys whose names hint at
// bookkeeping content.
func recursiveCandidates(doc map[string]interface{}) []map[string]interface{} {
	return recursiveSearch(doc, 0)
}

func recursiveSearch(v interface{}, depth int) []map[string]interface{} {
	if depth > maxSearchDepth {
		return nil
	}

	var found []map[string]interface{}
	switch val := v.(type) {
	case []interface{}:
		for _, item := range val {
			node, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			switch classifyNode(node) {
			case nodeJournal:
				found = append(found, journalTransactions(node)...)
			case nodeTransactionLike:
				found = append(found, node)
			default:
				found = append(found, recursiveSearch(node, depth+1)...)
			}
		}
	case map[string]interface{}:
		// A classified node ends the branch; descending further would collect
		// its transactions a second time.
		switch classifyNode(val) {
		case nodeJournal:
			return journalTransactions(val)
		case nodeTransactionLike:
			return []map[string]interface{}{val}
		}
		for k, child := range val {
			if depth < 5 || hintedKey(k) {
				found = append(found, recursiveSearch(child, depth+1)...)
			}
		}
	}
	return found
}

func hintedKey(k string) bool {
	lk := strings.ToLower(k)
	for _, hint := range descendKeyHints {
		if strings.Contains(lk, hint) {
			return true
		}
	}
	return false
}

// harvestArrayCandidates collects every array in the tree whose first
// element is object-shaped and either looks transactional or is long enough
// (>5 elements) to be a data table, then filters the flattened result down
// to objects with at least one transaction-like field.
func harvestArrayCandidates(doc map[string]interface{}) []map[string]interface{} {
	var harvested []map[string]interface{}
	var walk func(v interface{}, depth int)
	walk = func(v interface{}, depth int) {
		if depth > maxSearchDepth {
			return
		}
		switch val := v.(type) {
		case []interface{}:
			for _, item := range val {
				walk(item, depth+1)
			}
		case map[string]interface{}:
			for _, child := range val {
				if list, ok := child.([]interface{}); ok && len(list) > 0 {
					if first, ok := list[0].(map[string]interface{}); ok {
						if hasTransactionLikeField(first) || len(list) > 5 {
							harvested = append(harvested, asNodeList(list)...)
						}
					}
				}
				walk(child, depth+1)
			}
		}
	}
	walk(doc, 0)

	filtered := make([]map[string]interface{}, 0, len(harvested))
	for _, node := range harvested {
		if len(node) > 0 && hasTransactionLikeField(node) {
			filtered = append(filtered, node)
			if len(filtered) == maxHarvestedObjects {
				break
			}
		}
	}
	return filtered
}

// collectAllObjects is the absolute last resort: hand the caller the first
// maxN non-empty objects anywhere in the tree so there is always something
// to inspect instead of a silent dead end.
func collectAllObjects(v interface{}, depth, maxN int) []map[string]interface{} {
	if depth > 8 {
		return nil
	}
	var found []map[string]interface{}
	switch val := v.(type) {
	case []interface{}:
		for _, item := range val {
			found = append(found, collectAllObjects(item, depth+1, maxN-len(found))...)
			if len(found) >= maxN {
				return found[:maxN]
			}
		}
	case map[string]interface{}:
		if len(val) > 0 {
			found = append(found, val)
		}
		for _, child := range val {
			found = append(found, collectAllObjects(child, depth+1, maxN-len(found))...)
			if len(found) >= maxN {
				return found[:maxN]
			}
		}
	}
	if len(found) > maxN {
		found = found[:maxN]
	}
	return found
}

// extractTransaction converts one raw candidate node into a canonical
// transaction. A candidate without a transaction identity and without line
// entries is noise from the broader strategies and is rejected.
func extractTransaction(node map[string]interface{}, index int) (*Transaction, bool) {
	id := lookupString(node, txIDFields)
	lines := asNodeList(lookupLines(node))

	if id == "" && len(lines) == 0 {
		return nil, false
	}

	t := &Transaction{
		Date:        lookupString(node, txDateFields),
		Description: lookupString(node, txDescriptionFields),
	}
	t.setExtra("period", lookupString(node, []string{"period"}))
	t.setExtra("sourceID", lookupString(node, []string{"sourceID"}))

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	var accountIDs, documentIDs, custSupIDs, recordIDs []string
	var costDescs, productDescs, projectDescs []string

	for _, line := range lines {
		totalDebit = totalDebit.Add(lineAmount(line, lineDebitFields))
		totalCredit = totalCredit.Add(lineAmount(line, lineCreditFields))

		accountIDs = appendUnique(accountIDs, lookupString(line, lineAccountFields))
		recordIDs = appendUnique(recordIDs, lookupString(line, lineRecordFields))
		custSupIDs = appendUnique(custSupIDs, lookupString(line, lineCustSupFields))
		costDescs = appendUnique(costDescs, lookupString(line, lineCostFields))
		productDescs = appendUnique(productDescs, lookupString(line, lineProductFields))
		projectDescs = appendUnique(projectDescs, lookupString(line, lineProjectFields))
		documentIDs = appendUnique(documentIDs, lookupString(line, lineDocumentFields))

		if t.VAT == "" {
			if code := lookupString(line, lineVATCodeFields); code != "" {
				if amt := lookupString(line, lineVATAmtFields); amt != "" {
					t.VAT = fmt.Sprintf("%s (%s)", code, amt)
				} else {
					t.VAT = code
				}
			}
		}
		if t.Description == "" {
			t.Description = lookupString(line, lineDescFields)
		}
		if t.Date == "" {
			t.Date = lookupString(line, lineDateFields)
		}
		if t.CounterAccount == "" {
			t.CounterAccount = lookupString(line, lineCounterFields)
		}
	}

	// Resolve a single signed amount from the line totals. Heuristic, not a
	// verified double-entry interpretation: the larger side wins, credits
	// carry a negative sign. Postings where both sides are non-zero lose the
	// smaller side by design of the original rule.
	if !totalDebit.IsZero() || !totalCredit.IsZero() {
		if totalDebit.GreaterThanOrEqual(totalCredit) {
			t.Amount = totalDebit.InexactFloat64()
		} else {
			t.Amount = totalCredit.Neg().InexactFloat64()
		}
	}
	if t.Amount == 0 {
		t.Amount = amountFromValue(lookupFirst(node, txAmountFields))
	}

	if len(accountIDs) > 0 {
		t.Category = accountIDs[0]
	} else {
		t.Category = lookupString(node, txAccountFields)
	}
	t.Type = lookupString(node, txTypeFields)

	if len(documentIDs) > 0 {
		t.InvoiceRef = documentIDs[0]
	} else {
		t.InvoiceRef = lookupString(node, txInvoiceFields)
	}

	t.setExtra("recordID", strings.Join(recordIDs, ", "))
	t.setExtra("custSupID", strings.Join(custSupIDs, ", "))
	t.setExtra("costDesc", strings.Join(costDescs, "; "))
	t.setExtra("productDesc", strings.Join(productDescs, "; "))
	t.setExtra("projectDesc", strings.Join(projectDescs, "; "))

	if t.Description == "" {
		if id != "" {
			t.Description = "Transaction " + id
		} else {
			t.Description = fmt.Sprintf("Transaction %d", index+1)
		}
	}

	t.Date = ParseDate(t.Date)
	if t.Date == "" {
		t.Date = time.Now().Format("2006-01-02")
	}

	if raw, err := json.Marshal(node); err == nil {
		t.Raw = string(raw)
	}
	return t, true
}

func lookupLines(node map[string]interface{}) interface{} {
	v, _ := getChild(node, "line")
	return v
}

func lineAmount(line map[string]interface{}, synonyms []string) decimal.Decimal {
	return decimal.NewFromFloat(amountFromValue(lookupFirst(line, synonyms)))
}

// amountFromValue parses an amount leaf that may already be numeric or may
// be a locale-formatted string.
func amountFromValue(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	default:
		return ParseAmount(valueString(v))
	}
}

func appendUnique(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

// logDocumentShape surfaces enough structure to diagnose an export shape
// none of the strategies recognized.
func logDocumentShape(doc map[string]interface{}) {
	for key, v := range doc {
		ev := log.Warn().Str("root", key)
		switch val := v.(type) {
		case map[string]interface{}:
			keys := make([]string, 0, len(val))
			for k, child := range val {
				if list, ok := child.([]interface{}); ok {
					k = fmt.Sprintf("%s[%d]", k, len(list))
				}
				keys = append(keys, k)
			}
			ev.Strs("keys", keys)
		case []interface{}:
			ev.Int("elements", len(val))
		}
		ev.Msg("xaf: no transactions recovered, document shape")
	}
}
