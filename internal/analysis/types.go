// Package analysis produces a tax-advisory review of a parsed administration:
// clarifying questions for the client and a findings/recommendations report.
// The primary implementation asks Gemini; a heuristic fallback covers model
// outages so an upload never ends without any review at all.
package analysis

// Severity grades a finding. Values are Dutch because they surface verbatim
// in the client-facing report.
type Severity string

const (
	SeverityLow    Severity = "laag"
	SeverityMedium Severity = "gemiddeld"
	SeverityHigh   Severity = "hoog"
)

// Finding is one observation about the administration.
type Finding struct {
	Category    string   `json:"category"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Advice      string   `json:"advice,omitempty"`
}

// Result is the full review of one administration.
type Result struct {
	Summary         string    `json:"summary"`
	Findings        []Finding `json:"findings"`
	Recommendations []string  `json:"recommendations"`

	// Fallback marks a result produced by the heuristic checks instead of
	// the model, so the caller can label it as a basic review.
	Fallback bool `json:"fallback,omitempty"`
}
