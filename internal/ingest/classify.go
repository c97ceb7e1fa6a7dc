package ingest

import (
	"strconv"
	"strings"
)

// expenseKeywords mark a transaction as an expense when they occur in its
// description or type. Dutch terms first, English equivalents after; all
// matched case-insensitively as substrings.
var expenseKeywords = []string{
	"kosten", "inkoop", "uitgaven", "huur", "salaris", "loon",
	"betaling", "afschrijving", "rente", "memoriaal",
	"expense", "cost", "purchase", "rent", "salary", "payment",
}

// revenueKeywords mark a transaction as revenue the same way.
var revenueKeywords = []string{
	"omzet", "verkoop", "opbrengst", "ontvangst", "factuur klant",
	"revenue", "sales", "income", "turnover", "receipt",
}

// Dutch general-ledger numbering conventions (RGS-adjacent): 4xxx-7xxx are
// cost accounts, 8xxx are revenue accounts.
const (
	expenseAccountLow  = 4000
	expenseAccountHigh = 7999
	revenueAccountLow  = 8000
	revenueAccountHigh = 8999
)

// IsExpense reports whether a transaction represents money going out. Checks
// in order: a zero amount is neither class; a negative amount is always an
// expense; then the ledger account range, the keyword scan over description
// and type, and finally the counter-account range decide.
func IsExpense(t Transaction) bool {
	if t.Amount == 0 {
		return false
	}
	if t.Amount < 0 {
		return true
	}
	if acct, ok := accountNumber(t.Category); ok &&
		acct >= expenseAccountLow && acct <= expenseAccountHigh {
		return true
	}
	text := strings.ToLower(t.Description + " " + t.Type)
	if containsAny(text, expenseKeywords) {
		return true
	}
	if acct, ok := accountNumber(t.CounterAccount); ok &&
		acct >= expenseAccountLow && acct <= expenseAccountHigh {
		return true
	}
	return false
}

// IsRevenue is the mirror judgement: money coming in. An expense is never
// revenue, which keeps the two classes mutually exclusive; past that gate a
// positive amount suffices, with the account range, keywords and
// counter-account as fallbacks.
func IsRevenue(t Transaction) bool {
	if t.Amount == 0 {
		return false
	}
	if IsExpense(t) {
		return false
	}
	if t.Amount > 0 {
		return true
	}
	if acct, ok := accountNumber(t.Category); ok &&
		acct >= revenueAccountLow && acct <= revenueAccountHigh {
		return true
	}
	text := strings.ToLower(t.Description + " " + t.Type)
	if containsAny(text, revenueKeywords) {
		return true
	}
	if acct, ok := accountNumber(t.CounterAccount); ok &&
		acct >= revenueAccountLow && acct <= revenueAccountHigh {
		return true
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// accountNumber extracts the leading numeric part of a ledger account code.
// Codes like "4500 Huisvestingskosten" or "8000" resolve; purely textual
// categories do not.
func accountNumber(category string) (int, bool) {
	s := strings.TrimSpace(category)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
