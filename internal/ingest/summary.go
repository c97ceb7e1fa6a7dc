package ingest

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LargeTransactionThreshold is the absolute amount above which a transaction
// counts as "large" in the summary. Large postings are the first thing an
// adviser wants to eyeball.
const LargeTransactionThreshold = 10000.0

// Summary aggregates a parsed transaction list into the headline numbers the
// analysis and the API surface report.
type Summary struct {
	Count         int     `json:"count"`
	TotalExpenses float64 `json:"totalExpenses"`
	TotalRevenue  float64 `json:"totalRevenue"`

	// ExpenseCount and RevenueCount are the number of transactions behind
	// each total; the remainder of Count fell in neither class.
	ExpenseCount int `json:"expenseCount"`
	RevenueCount int `json:"revenueCount"`

	// LargeCount is the number of transactions whose absolute amount exceeds
	// LargeTransactionThreshold.
	LargeCount int `json:"largeCount"`

	// WithoutVATCount counts positive-amount transactions carrying no VAT
	// annotation and no VAT-flavored type, a common bookkeeping omission.
	WithoutVATCount int `json:"withoutVatCount"`

	// DateRange is "DD-MM-YYYY - DD-MM-YYYY" over the parseable dates, or
	// "Onbekend" when no transaction carries a usable date.
	DateRange string `json:"dateRange"`
}

// Summarize computes the aggregate view of a transaction list. Expense and
// revenue totals are sums of absolute amounts over the respective classes,
// so both totals are non-negative.
func Summarize(transactions []Transaction) Summary {
	s := Summary{Count: len(transactions), DateRange: "Onbekend"}

	var dates []time.Time
	for _, t := range transactions {
		if IsExpense(t) {
			s.TotalExpenses += abs(t.Amount)
			s.ExpenseCount++
		} else if IsRevenue(t) {
			s.TotalRevenue += abs(t.Amount)
			s.RevenueCount++
		}
		if abs(t.Amount) > LargeTransactionThreshold {
			s.LargeCount++
		}
		if withoutVAT(t) {
			s.WithoutVATCount++
		}
		if d, err := time.Parse("2006-01-02", t.Date); err == nil {
			dates = append(dates, d)
		}
	}

	if len(dates) > 0 {
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		s.DateRange = fmt.Sprintf("%s - %s",
			dates[0].Format("02-01-2006"),
			dates[len(dates)-1].Format("02-01-2006"))
	}
	return s
}

// withoutVAT flags positive-amount transactions that carry no VAT annotation
// anywhere: no VAT field and no "btw" in the type.
func withoutVAT(t Transaction) bool {
	return t.Amount > 0 && t.VAT == "" &&
		!strings.Contains(strings.ToLower(t.Type), "btw")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
