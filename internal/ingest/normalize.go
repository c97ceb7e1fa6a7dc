package ingest

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// Dutch/European grouping: dots are thousands separators, the comma is
	// the decimal separator (1.234,56).
	dutchAmountRe = regexp.MustCompile(`^\d{1,3}(\.\d{3})*(,\d{1,2})?$`)

	// US grouping: commas are thousands separators, the dot is the decimal
	// separator (1,234.56).
	usAmountRe = regexp.MustCompile(`^\d{1,3}(,\d{3})*(\.\d{1,2})?$`)

	dayFirstDateRe  = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})$`)
	yearFirstDateRe = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})$`)
	compactDateRe   = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)

	// Currency symbols, whitespace and stray percent signs that exporters
	// glue onto amount columns.
	amountNoise = strings.NewReplacer(
		"€", "", "$", "", "£", "", "%", "",
		" ", "", "\t", "", " ", "",
	)
)

// ParseAmount converts a locale-formatted amount token into a float64.
// It disambiguates Dutch (1.234,56) and US (1,234.56) separator conventions
// and returns 0 for empty or unparseable input; it never fails.
func ParseAmount(raw string) float64 {
	s := amountNoise.Replace(strings.TrimSpace(raw))
	if s == "" {
		return 0
	}

	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	switch {
	case dutchAmountRe.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case usAmountRe.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Contains(s, ",") && !strings.Contains(s, "."):
		// Only a comma: decimal separator, Dutch style.
		s = strings.Replace(s, ",", ".", 1)
	case strings.Contains(s, ".") && !strings.Contains(s, ","):
		// Only a dot: thousands separator when more digits follow than a
		// 2-decimal currency would have, otherwise a plain decimal point.
		if len(s)-strings.Index(s, ".") > 4 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	if negative {
		d = d.Neg()
	}
	return d.InexactFloat64()
}

// ParseDate normalizes day-first (DD-MM-YYYY) and year-first (YYYY-MM-DD)
// dates with dash, slash or dot separators, plus bare YYYYMMDD, to
// YYYY-MM-DD, zero-padding day and month. Anything else is passed through
// unchanged; validation is the caller's concern.
func ParseDate(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), `"`)
	if s == "" {
		return ""
	}

	if m := dayFirstDateRe.FindStringSubmatch(s); m != nil {
		return m[3] + "-" + pad2(m[2]) + "-" + pad2(m[1])
	}
	if m := yearFirstDateRe.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + pad2(m[2]) + "-" + pad2(m[3])
	}
	if m := compactDateRe.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}

	return s
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
