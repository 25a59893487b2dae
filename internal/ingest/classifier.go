package ingest

import (
	"context"
	"fmt"

	"github.com/docsentry/docsentry/internal/classify"
	"github.com/docsentry/docsentry/internal/llm"
)

const classifyPrompt = `You classify documents for security handling.
Respond with a JSON object of this exact shape:
{"classification": {"category": "<category>", "sensitivity": "<Public|Internal|Confidential|Restricted>", "reasoning": "<one or two sentences>"}}`

// classifyExcerptLimit bounds how much document text is sent for
// classification.
const classifyExcerptLimit = 4000

// Classifier derives a security classification for extracted text. The
// model response goes through the normalizer, so a malformed payload
// still yields a usable Unknown result instead of failing the document.
type Classifier struct {
	provider llm.Provider
	model    string
}

func NewClassifier(provider llm.Provider, model string) *Classifier {
	return &Classifier{provider: provider, model: model}
}

func (c *Classifier) Classify(ctx context.Context, text, filename, extractionStatus string) (classify.Result, error) {
	excerpt := text
	if runes := []rune(excerpt); len(runes) > classifyExcerptLimit {
		excerpt = string(runes[:classifyExcerptLimit])
	}

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: classifyPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Filename: %s\n\nDocument text:\n%s", filename, excerpt)},
		},
		MaxTokens:   512,
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return classify.Result{}, fmt.Errorf("classification request: %w", err)
	}
	return classify.Normalize(resp.Content, extractionStatus, filename), nil
}
