package ingest

import "testing"

func TestSummarize(t *testing.T) {
	txs := []Transaction{
		{Date: "2023-03-01", Description: "Omzet maart", Amount: 12500, VAT: "21 (2625.00)"},
		{Date: "2023-01-15", Description: "Huur kantoor", Amount: -1500, VAT: "21 (315.00)"},
		{Date: "2023-06-30", Description: "Inkoop voorraad", Amount: -11000},
		{Date: "2023-02-10", Description: "Verkoop webshop", Amount: 450},
	}

	s := Summarize(txs)
	if s.Count != 4 {
		t.Errorf("Count = %d, want 4", s.Count)
	}
	if s.TotalRevenue != 12950 {
		t.Errorf("TotalRevenue = %v, want 12950", s.TotalRevenue)
	}
	if s.TotalExpenses != 12500 {
		t.Errorf("TotalExpenses = %v, want 12500", s.TotalExpenses)
	}
	if s.RevenueCount != 2 {
		t.Errorf("RevenueCount = %d, want 2", s.RevenueCount)
	}
	if s.ExpenseCount != 2 {
		t.Errorf("ExpenseCount = %d, want 2", s.ExpenseCount)
	}
	// 12500 and -11000 both exceed the threshold in absolute value.
	if s.LargeCount != 2 {
		t.Errorf("LargeCount = %d, want 2", s.LargeCount)
	}
	// Only the positive VAT-less transaction (450) counts.
	if s.WithoutVATCount != 1 {
		t.Errorf("WithoutVATCount = %d, want 1", s.WithoutVATCount)
	}
	if s.DateRange != "15-01-2023 - 30-06-2023" {
		t.Errorf("DateRange = %q", s.DateRange)
	}
}

func TestSummarizeWithoutVATRules(t *testing.T) {
	txs := []Transaction{
		{Date: "2023-01-01", Description: "Ontvangst", Amount: 100},                 // counts
		{Date: "2023-01-02", Description: "Betaling", Amount: -100},                 // negative, never counts
		{Date: "2023-01-03", Description: "Ontvangst", Amount: 100, VAT: "21"},      // has VAT
		{Date: "2023-01-04", Description: "Aangifte", Amount: 100, Type: "BTW Q1"},  // btw type
	}
	s := Summarize(txs)
	if s.WithoutVATCount != 1 {
		t.Errorf("WithoutVATCount = %d, want 1", s.WithoutVATCount)
	}
}

func TestSummarizeEmptyAndUndated(t *testing.T) {
	s := Summarize(nil)
	if s.Count != 0 || s.TotalExpenses != 0 || s.TotalRevenue != 0 {
		t.Errorf("empty summary not zeroed: %+v", s)
	}
	if s.DateRange != "Onbekend" {
		t.Errorf("DateRange = %q, want Onbekend", s.DateRange)
	}

	s = Summarize([]Transaction{{Description: "Zonder datum", Amount: 10, Date: "ooit"}})
	if s.DateRange != "Onbekend" {
		t.Errorf("DateRange = %q, want Onbekend for unparseable dates", s.DateRange)
	}

	// Zero-amount transactions land in neither class and neither count.
	s = Summarize([]Transaction{{Date: "2023-01-01", Description: "Nulboeking", Amount: 0}})
	if s.ExpenseCount != 0 || s.RevenueCount != 0 {
		t.Errorf("zero amount counted: expenses %d, revenues %d", s.ExpenseCount, s.RevenueCount)
	}
}
