// Package router constrains one class of model response to a closed,
// per-request vocabulary and validates conformance.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docsentry/docsentry/internal/llm"
)

// Sentinel is the fallback token returned when the model cannot produce
// a valid selection.
const Sentinel = "none"

// Router issues structured requests constrained to a closed vocabulary.
type Router struct {
	provider llm.Provider
	model    string
}

// New creates a router over the given provider.
func New(provider llm.Provider, model string) *Router {
	return &Router{provider: provider, model: model}
}

// Route asks which tokens from vocabulary apply to the query. The
// sentinel "none" is always added to the allowed set. Every returned
// token must be a member of that set; an out-of-vocabulary token
// invalidates the whole response. One clarifying retry is attempted;
// after that the sentinel result is returned instead of an error.
func (r *Router) Route(ctx context.Context, query string, vocabulary []string) ([]string, error) {
	allowed := append(append([]string(nil), vocabulary...), Sentinel)

	prompt := fmt.Sprintf(
		"Select every token from the allowed set that applies to the following input. If none apply, select %q.\n\nAllowed: %s\n\nInput: %s",
		Sentinel, strings.Join(allowed, ", "), query)

	selected, err := r.attempt(ctx, prompt, allowed)
	if err == nil {
		return selected, nil
	}
	slog.Debug("constrained selection invalid, retrying with restated vocabulary", "err", err)

	clarified := fmt.Sprintf(
		"Your previous selection contained tokens outside the allowed set. You must choose ONLY from these exact tokens: %s. Select %q if nothing applies.\n\nInput: %s",
		strings.Join(allowed, ", "), Sentinel, query)

	selected, err = r.attempt(ctx, clarified, allowed)
	if err == nil {
		return selected, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	slog.Debug("constrained selection invalid after retry, falling back to sentinel", "err", err)
	return []string{Sentinel}, nil
}

func (r *Router) attempt(ctx context.Context, prompt string, allowed []string) ([]string, error) {
	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		Model: r.model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   256,
		Temperature: 0,
		Constraint: &llm.Constraint{
			Name:       "select_tokens",
			Vocabulary: allowed,
		},
	})
	if err != nil {
		return nil, err
	}

	selected, err := parseSelection(resp)
	if err != nil {
		return nil, err
	}
	return validate(selected, allowed)
}

// parseSelection reads the structured payload, falling back to a
// comma-separated content line for providers without tool support.
func parseSelection(resp *llm.CompletionResponse) ([]string, error) {
	if resp.Structured != "" {
		var parsed struct {
			Selected []string `json:"selected"`
		}
		if err := json.Unmarshal([]byte(resp.Structured), &parsed); err != nil {
			return nil, fmt.Errorf("parsing structured selection: %w", err)
		}
		return parsed.Selected, nil
	}

	var tokens []string
	for _, tok := range strings.Split(resp.Content, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens, nil
}

// validate rejects the whole selection when any token falls outside the
// allowed set, and collapses a mixed selection containing the sentinel
// down to the real tokens.
func validate(selected, allowed []string) ([]string, error) {
	if len(selected) == 0 {
		return nil, fmt.Errorf("empty selection")
	}

	member := make(map[string]bool, len(allowed))
	for _, tok := range allowed {
		member[tok] = true
	}

	var out []string
	for _, tok := range selected {
		if !member[tok] {
			return nil, fmt.Errorf("token %q not in allowed vocabulary", tok)
		}
		if tok == Sentinel {
			continue
		}
		out = append(out, tok)
	}
	if len(out) == 0 {
		return []string{Sentinel}, nil
	}
	return out, nil
}
