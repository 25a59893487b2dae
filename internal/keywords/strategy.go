// Package keywords derives topical keywords for a document. Two strategies
// exist: a model-backed structured extraction and a local statistical
// fallback. A single document's keywords always come from exactly one
// strategy; the result records which.
package keywords

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
)

// Provenance identifies the strategy that produced a keyword set.
type Provenance string

const (
	ProvenanceModel       Provenance = "model"
	ProvenanceStatistical Provenance = "statistical"
)

// Result is a deduplicated, order-stable keyword list with its provenance.
type Result struct {
	Keywords   []string
	Provenance Provenance
}

// Strategy extracts keywords from text.
type Strategy interface {
	Extract(ctx context.Context, text string) ([]string, error)
	Provenance() Provenance
}

// Tagger tries strategies in priority order and returns the first
// successful result.
type Tagger struct {
	strategies []Strategy
}

// NewTagger creates a tagger. Strategies are tried in the order given;
// the last one is expected to be the local statistical fallback.
func NewTagger(strategies ...Strategy) *Tagger {
	return &Tagger{strategies: strategies}
}

// Tags extracts keywords for text. Strategies are never blended: the
// result carries exactly one provenance.
func (t *Tagger) Tags(ctx context.Context, text string) (Result, error) {
	var lastErr error
	for _, s := range t.strategies {
		kws, err := s.Extract(ctx, text)
		if err != nil {
			slog.Debug("keyword strategy failed, trying next", "strategy", s.Provenance(), "err", err)
			lastErr = err
			continue
		}
		return Result{Keywords: clean(kws), Provenance: s.Provenance()}, nil
	}
	return Result{}, lastErr
}

// clean deduplicates keywords preserving first-seen order and drops
// candidates consisting solely of non-alphanumeric characters, which the
// bigram candidate pool otherwise leaks.
func clean(kws []string) []string {
	seen := make(map[string]bool, len(kws))
	out := make([]string, 0, len(kws))
	for _, kw := range kws {
		kw = strings.TrimSpace(kw)
		if kw == "" || !hasAlphanumeric(kw) {
			continue
		}
		key := strings.ToLower(kw)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	return out
}

func hasAlphanumeric(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
