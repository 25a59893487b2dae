package session

import (
	"context"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// SearchOptions bounds a history search.
type SearchOptions struct {
	TopK      int
	Threshold float64 // minimum normalized similarity, results below are excluded
}

// DefaultSearchOptions mirrors the configuration defaults.
var DefaultSearchOptions = SearchOptions{TopK: 5, Threshold: 0.3}

// Search scores every stored turn of a user against the query with a
// longest-matching-subsequence ratio and returns the top matches above
// the threshold, ranked descending. Searching mutates nothing, so
// repeating a query is a no-op on stored data.
func (s *Store) Search(ctx context.Context, userID, query string, opts SearchOptions) ([]Match, error) {
	if opts.TopK <= 0 {
		opts.TopK = DefaultSearchOptions.TopK
	}

	turns, err := s.TurnsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, turn := range turns {
		score := Similarity(query, turn.Content)
		if score < opts.Threshold {
			continue
		}
		matches = append(matches, Match{Turn: turn, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}
	return matches, nil
}

// Similarity is a normalized 0-1 score based on the longest matching
// subsequence ratio between the two strings, case-folded. A query fully
// contained in a much longer turn still scores well because the ratio is
// also taken against the query alone.
func Similarity(query, content string) float64 {
	q := chars(strings.ToLower(query))
	c := chars(strings.ToLower(content))
	if len(q) == 0 || len(c) == 0 {
		return 0
	}

	full := difflib.NewMatcher(q, c).Ratio()

	// Substring-style match: ratio of matched characters to the query
	// length, so "phishing email" scores high against a longer sentence
	// containing it.
	matched := 0
	for _, m := range difflib.NewMatcher(q, c).GetMatchingBlocks() {
		matched += m.Size
	}
	contained := float64(matched) / float64(len(q))

	if contained > full {
		return contained
	}
	return full
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
