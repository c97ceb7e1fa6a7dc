package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/HoltermanP/VermogenVitaal/internal/ingest"
)

const (
	// DefaultModelName is the default Gemini model used for the review.
	DefaultModelName = "gemini-2.5-flash"

	// maxQuestions caps the clarifying questions shown to the client.
	maxQuestions = 7

	// maxPromptTransactions caps the transaction sample embedded in prompts.
	maxPromptTransactions = 100
)

// Analyzer reviews a parsed administration. Defined here so the audit flow
// can swap in a mock and so the heuristic fallback stays interchangeable
// with the model-backed implementation.
type Analyzer interface {
	GenerateQuestions(ctx context.Context, txs []ingest.Transaction, summary ingest.Summary) ([]string, error)
	Analyze(ctx context.Context, txs []ingest.Transaction, summary ingest.Summary, answers map[string]string) (*Result, error)
}

// GeminiAnalyzer asks Gemini for the review. The zero value is not usable;
// construct with NewGeminiAnalyzer.
type GeminiAnalyzer struct {
	model string
}

func NewGeminiAnalyzer(model string) *GeminiAnalyzer {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiAnalyzer{model: model}
}

// GenerateQuestions asks the model for clarifying questions about the
// administration and merges them with the defaults that are always needed.
func (g *GeminiAnalyzer) GenerateQuestions(ctx context.Context, txs []ingest.Transaction, summary ingest.Summary) ([]string, error) {
	raw, err := g.generate(ctx, questionsPrompt(summary, transactionSample(txs)))
	if err != nil {
		return nil, fmt.Errorf("GenerateQuestions: %w", err)
	}

	var questions []string
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &questions); err != nil {
		return nil, fmt.Errorf("GenerateQuestions: unmarshal JSON: %w\nraw response: %s", err, raw)
	}
	return mergeQuestions(questions), nil
}

// Analyze runs the full review with the client's answers folded into the
// prompt.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, txs []ingest.Transaction, summary ingest.Summary, answers map[string]string) (*Result, error) {
	raw, err := g.generate(ctx, analysisPrompt(summary, transactionSample(txs), answers))
	if err != nil {
		return nil, fmt.Errorf("Analyze: %w", err)
	}

	var result Result
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &result); err != nil {
		return nil, fmt.Errorf("Analyze: unmarshal JSON: %w\nraw response: %s", err, raw)
	}
	return &result, nil
}

func (g *GeminiAnalyzer) generate(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp.Text() == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return resp.Text(), nil
}

// mergeQuestions puts the default questions first, appends the model's
// proposals without duplicates, and caps the total.
func mergeQuestions(proposed []string) []string {
	merged := make([]string, 0, maxQuestions)
	seen := make(map[string]bool)

	add := func(q string) {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if q == "" || seen[key] || len(merged) >= maxQuestions {
			return
		}
		seen[key] = true
		merged = append(merged, q)
	}

	for _, q := range defaultQuestions {
		add(q)
	}
	for _, q := range proposed {
		add(q)
	}
	return merged
}

// cleanModelJSON strips Markdown fences and surrounding chatter when the
// model ignores the raw-JSON instruction. Works for both array and object
// responses.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost JSON value if junk still surrounds it; the
	// first opening bracket decides whether we expect an array or an object.
	arr := strings.Index(s, "[")
	obj := strings.Index(s, "{")
	open, close := "[", "]"
	if arr == -1 || (obj != -1 && obj < arr) {
		open, close = "{", "}"
	}
	if start := strings.Index(s, open); start != -1 {
		if end := strings.LastIndex(s, close); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
