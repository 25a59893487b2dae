package keywords

import (
	"context"
	"testing"

	"github.com/docsentry/docsentry/internal/llm"
)

// cannedProvider returns a fixed completion.
type cannedProvider struct {
	content string
	err     error
	calls   int
}

func (c *cannedProvider) Name() string { return "canned" }

func (c *cannedProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &llm.CompletionResponse{Content: c.content}, nil
}

func TestModelStrategy_ParsesKeywords(t *testing.T) {
	p := &cannedProvider{content: `{"keywords": ["ransomware", "data exfiltration", "backup policy"]}`}
	s := NewModelStrategy(p, "test-model", 2, 5)

	kws, err := s.Extract(context.Background(), "document text")
	if err != nil {
		t.Fatal(err)
	}
	if len(kws) != 3 || kws[0] != "ransomware" {
		t.Errorf("keywords = %v", kws)
	}
}

func TestModelStrategy_RejectsCountOutOfBounds(t *testing.T) {
	p := &cannedProvider{content: `{"keywords": ["only one"]}`}
	s := NewModelStrategy(p, "test-model", 3, 8)

	if _, err := s.Extract(context.Background(), "text"); err == nil {
		t.Error("expected validation error for too few keywords")
	}
}

func TestModelStrategy_RejectsMalformedJSON(t *testing.T) {
	p := &cannedProvider{content: `sure! here are your keywords: foo, bar`}
	s := NewModelStrategy(p, "test-model", 1, 5)

	if _, err := s.Extract(context.Background(), "text"); err == nil {
		t.Error("expected parse error")
	}
}

func TestModelStrategy_DuplicatesCollapseBeforeValidation(t *testing.T) {
	p := &cannedProvider{content: `{"keywords": ["Phishing", "phishing", "phishing "]}`}
	s := NewModelStrategy(p, "test-model", 2, 5)

	// Three raw entries collapse to one unique keyword, under the minimum.
	if _, err := s.Extract(context.Background(), "text"); err == nil {
		t.Error("expected validation error after dedupe")
	}
}
