package session

import (
	"context"
	"testing"
)

func TestSearch_RanksAndExcludesBelowThreshold(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sess, _ := store.CreateSession(ctx, "alice")

	store.AppendExchange(ctx, sess.ID,
		&Turn{Role: RoleUser, Content: "This looks like a phishing email attempt"},
		&Turn{Role: RoleAssistant, Content: "Unrelated text about weather"},
	)

	matches, err := store.Search(ctx, "alice", "phishing email", DefaultSearchOptions)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1: %+v", len(matches), matches)
	}
	if matches[0].Turn.Content != "This looks like a phishing email attempt" {
		t.Errorf("top match = %q", matches[0].Turn.Content)
	}
	if matches[0].Score < DefaultSearchOptions.Threshold {
		t.Errorf("score %f below threshold", matches[0].Score)
	}
}

func TestSearch_TopKBound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sess, _ := store.CreateSession(ctx, "alice")

	for i := 0; i < 8; i++ {
		store.AppendExchange(ctx, sess.ID,
			&Turn{Role: RoleUser, Content: "phishing email variant"})
	}

	matches, err := store.Search(ctx, "alice", "phishing email", SearchOptions{TopK: 3, Threshold: 0.3})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Errorf("got %d matches, want 3", len(matches))
	}
}

func TestSearch_RepeatedQueryIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sess, _ := store.CreateSession(ctx, "alice")
	store.AppendExchange(ctx, sess.ID, &Turn{Role: RoleUser, Content: "incident report for phishing"})

	first, err := store.Search(ctx, "alice", "phishing", DefaultSearchOptions)
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Search(ctx, "alice", "phishing", DefaultSearchOptions)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) || first[0].Score != second[0].Score {
		t.Error("repeated search changed results")
	}

	turns, _ := store.Turns(ctx, sess.ID)
	if len(turns) != 1 {
		t.Errorf("search mutated stored turns: %d", len(turns))
	}
}

func TestSimilarity_Bounds(t *testing.T) {
	if got := Similarity("abc", "abc"); got != 1.0 {
		t.Errorf("identical strings = %f, want 1.0", got)
	}
	if got := Similarity("", "anything"); got != 0 {
		t.Errorf("empty query = %f, want 0", got)
	}
	exact := Similarity("phishing email", "This looks like a phishing email attempt")
	miss := Similarity("phishing email", "Unrelated text about weather")
	if exact <= miss {
		t.Errorf("exact containment (%f) should outscore mismatch (%f)", exact, miss)
	}
	if miss >= DefaultSearchOptions.Threshold {
		t.Errorf("mismatch score %f should fall below default threshold", miss)
	}
}
