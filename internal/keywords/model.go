package keywords

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docsentry/docsentry/internal/llm"
)

// ModelStrategy asks the completion provider for keywords as structured
// JSON and validates the response against the configured count bounds.
type ModelStrategy struct {
	provider llm.Provider
	model    string
	min      int
	max      int
}

// NewModelStrategy creates a model-backed strategy that requires between
// min and max unique keyword phrases.
func NewModelStrategy(provider llm.Provider, model string, min, max int) *ModelStrategy {
	return &ModelStrategy{provider: provider, model: model, min: min, max: max}
}

func (s *ModelStrategy) Provenance() Provenance { return ProvenanceModel }

const keywordSystemPrompt = `You extract topical keywords from documents.
Respond with valid JSON of the form {"keywords": ["phrase", ...]}.
Each keyword is a short phrase of one or two words. No duplicates.`

func (s *ModelStrategy) Extract(ctx context.Context, text string) ([]string, error) {
	prompt := fmt.Sprintf("Extract between %d and %d unique topical keywords from the following document:\n\n%s", s.min, s.max, text)

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: keywordSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   512,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword completion: %w", err)
	}

	var parsed struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return nil, fmt.Errorf("parsing keyword response: %w", err)
	}

	unique := dedupeFold(parsed.Keywords)
	if len(unique) < s.min || len(unique) > s.max {
		return nil, fmt.Errorf("model returned %d unique keywords, want %d-%d", len(unique), s.min, s.max)
	}
	return unique, nil
}

func dedupeFold(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, kw := range in {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	return out
}
