package keywords

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// StatisticalStrategy is the local fallback: frequency-scored unigram and
// bigram candidates, trimmed to a fixed pool, then selected with a
// maximal-marginal-relevance pass so the result is not five variants of
// the same phrase.
type StatisticalStrategy struct {
	TopN     int
	PoolSize int
}

// NewStatisticalStrategy creates the fallback strategy with its fixed
// candidate pool size and result count.
func NewStatisticalStrategy(topN, poolSize int) *StatisticalStrategy {
	if topN <= 0 {
		topN = 10
	}
	if poolSize <= 0 {
		poolSize = 40
	}
	return &StatisticalStrategy{TopN: topN, PoolSize: poolSize}
}

func (s *StatisticalStrategy) Provenance() Provenance { return ProvenanceStatistical }

type candidate struct {
	phrase string
	score  float64
	tokens map[string]bool
}

// stopwords kept small on purpose: the MMR pass handles most redundancy.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "with": true, "as": true, "at": true,
	"by": true, "it": true, "this": true, "that": true, "from": true,
}

func (s *StatisticalStrategy) Extract(_ context.Context, text string) ([]string, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	// Frequency-score unigrams and bigrams.
	freq := make(map[string]float64)
	for _, tok := range tokens {
		if !stopwords[tok] {
			freq[tok]++
		}
	}
	for i := 0; i+1 < len(tokens); i++ {
		if stopwords[tokens[i]] || stopwords[tokens[i+1]] {
			continue
		}
		// Bigrams weighted up: a repeated pair is a stronger topic signal
		// than either word alone.
		freq[tokens[i]+" "+tokens[i+1]] += 1.5
	}

	pool := make([]candidate, 0, len(freq))
	for phrase, score := range freq {
		pool = append(pool, candidate{phrase: phrase, score: score, tokens: tokenSet(phrase)})
	}
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].score != pool[j].score {
			return pool[i].score > pool[j].score
		}
		return pool[i].phrase < pool[j].phrase
	})
	if len(pool) > s.PoolSize {
		pool = pool[:s.PoolSize]
	}

	return s.selectDiverse(pool), nil
}

// selectDiverse greedily picks candidates balancing relevance against
// similarity to what is already selected (lambda-weighted MMR).
func (s *StatisticalStrategy) selectDiverse(pool []candidate) []string {
	const lambda = 0.7

	var selected []candidate
	remaining := append([]candidate(nil), pool...)

	for len(selected) < s.TopN && len(remaining) > 0 {
		bestIdx := -1
		bestVal := 0.0
		for i, c := range remaining {
			maxSim := 0.0
			for _, sel := range selected {
				if sim := jaccard(c.tokens, sel.tokens); sim > maxSim {
					maxSim = sim
				}
			}
			val := lambda*c.score - (1-lambda)*maxSim*c.score
			if bestIdx == -1 || val > bestVal {
				bestIdx, bestVal = i, val
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	out := make([]string, len(selected))
	for i, c := range selected {
		out[i] = c.phrase
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func tokenSet(phrase string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(phrase) {
		set[t] = true
	}
	return set
}

// tokenize lowercases and splits on non-letter/digit boundaries. Splitting
// this way keeps punctuation out of unigrams, but bigram spans can still
// pair odd fragments; the tagger filters punctuation-only candidates on
// the way out regardless.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
