package ingest

import (
	"strings"
	"testing"
)

const sampleCSV = `Nr,Datum,Soort,Bedrag,Rekening,Tegenrekening,Factuur,Omschrijving
1,02-01-2023,Verkoop,"1.210,00",8000,NL01BANK0123456789,F2023-001,Factuur klant Jansen
2,15-01-2023,Inkoop,"-250,50",4300,NL02BANK9876543210,L2023-010,Kantoorartikelen
3,20-01-2023,Huur,"-1.500,00",4100,,,"Huur kantoor, januari"`

func TestParseCSV(t *testing.T) {
	txs := ParseCSV(sampleCSV)
	if len(txs) != 3 {
		t.Fatalf("ParseCSV returned %d transactions, want 3", len(txs))
	}

	first := txs[0]
	if first.Date != "2023-01-02" {
		t.Errorf("Date = %q, want 2023-01-02", first.Date)
	}
	if first.Amount != 1210.00 {
		t.Errorf("Amount = %v, want 1210", first.Amount)
	}
	if first.Description != "Factuur klant Jansen" {
		t.Errorf("Description = %q", first.Description)
	}
	if first.Type != "Verkoop" {
		t.Errorf("Type = %q, want Verkoop", first.Type)
	}
	if first.Category != "8000" {
		t.Errorf("Category = %q, want 8000", first.Category)
	}
	if first.CounterAccount != "NL01BANK0123456789" {
		t.Errorf("CounterAccount = %q", first.CounterAccount)
	}
	if first.InvoiceRef != "F2023-001" {
		t.Errorf("InvoiceRef = %q", first.InvoiceRef)
	}
	if first.Extra["nr"] != "1" {
		t.Errorf("Extra[nr] = %q, want 1", first.Extra["nr"])
	}
	if first.Raw == "" {
		t.Error("Raw line not preserved")
	}

	// Quoted field with an embedded delimiter must survive intact.
	if txs[2].Description != "Huur kantoor, januari" {
		t.Errorf("quoted description = %q", txs[2].Description)
	}
	if txs[2].Amount != -1500 {
		t.Errorf("Amount = %v, want -1500", txs[2].Amount)
	}
}

func TestParseCSVSemicolonDelimiter(t *testing.T) {
	text := "Datum;Omschrijving;Bedrag\n01-03-2023;Omzet webshop;450,00"
	txs := ParseCSV(text)
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	if txs[0].Amount != 450 {
		t.Errorf("Amount = %v, want 450", txs[0].Amount)
	}
	if txs[0].Description != "Omzet webshop" {
		t.Errorf("Description = %q", txs[0].Description)
	}
}

func TestParseCSVTabDelimiter(t *testing.T) {
	text := "Datum\tOmschrijving\tBedrag\n01-03-2023\tKoffie\t3,50"
	txs := ParseCSV(text)
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	if txs[0].Amount != 3.5 {
		t.Errorf("Amount = %v, want 3.5", txs[0].Amount)
	}
}

func TestParseCSVSkipsEmptyAndMalformedRows(t *testing.T) {
	text := "Datum,Omschrijving,Bedrag\n" +
		"\n" +
		"01-01-2023,Eerste,100\n" +
		",,\n" +
		"   \n" +
		"02-01-2023,Tweede,200\n"
	txs := ParseCSV(text)
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if txs[0].Description != "Eerste" || txs[1].Description != "Tweede" {
		t.Errorf("descriptions = %q, %q", txs[0].Description, txs[1].Description)
	}
}

func TestParseCSVEnglishHeaders(t *testing.T) {
	text := "Date,Description,Amount,Account\n2023-05-01,Office rent,1200.00,4100"
	txs := ParseCSV(text)
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	if txs[0].Date != "2023-05-01" {
		t.Errorf("Date = %q", txs[0].Date)
	}
	if txs[0].Amount != 1200 {
		t.Errorf("Amount = %v", txs[0].Amount)
	}
	if txs[0].Category != "4100" {
		t.Errorf("Category = %q", txs[0].Category)
	}
}

func TestParseCSVSynthesizedDescription(t *testing.T) {
	text := "Datum,Soort,Bedrag,Rekening,Tegenrekening\n01-06-2023,Betaling,-75,4500,NL99BANK0000000001"
	txs := ParseCSV(text)
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	desc := txs[0].Description
	for _, want := range []string{"Betaling", "Rekening: 4500", "Tegenrekening: NL99BANK0000000001"} {
		if !strings.Contains(desc, want) {
			t.Errorf("synthesized description %q missing %q", desc, want)
		}
	}
}

func TestParseCSVBOMHeader(t *testing.T) {
	text := "\uFEFFDatum,Omschrijving,Bedrag\n01-01-2023,Met BOM,10"
	txs := ParseCSV(text)
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	if txs[0].Date != "2023-01-01" {
		t.Errorf("Date = %q, BOM broke header mapping", txs[0].Date)
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	if txs := ParseCSV(""); len(txs) != 0 {
		t.Errorf("empty input yielded %d transactions", len(txs))
	}
	if txs := ParseCSV("Datum,Bedrag\n"); len(txs) != 0 {
		t.Errorf("header-only input yielded %d transactions", len(txs))
	}
}

func TestParseCSVDeterministic(t *testing.T) {
	a := ParseCSV(sampleCSV)
	b := ParseCSV(sampleCSV)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Date != b[i].Date || a[i].Amount != b[i].Amount || a[i].Description != b[i].Description {
			t.Errorf("transaction %d differs between runs", i)
		}
	}
}

func TestSplitCSVLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		sep  rune
		want []string
	}{
		{"plain", "a,b,c", ',', []string{"a", "b", "c"}},
		{"quoted delimiter", `a,"b,c",d`, ',', []string{"a", "b,c", "d"}},
		{"escaped quote", `a,"say ""hi""",c`, ',', []string{"a", `say "hi"`, "c"}},
		{"trailing empty", "a,b,", ',', []string{"a", "b", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitCSVLine(tt.line, tt.sep)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d fields %v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("field %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
