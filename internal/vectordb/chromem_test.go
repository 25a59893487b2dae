package vectordb

import (
	"context"
	"math"
	"testing"
	"time"
)

// mockEmbedder returns deterministic embeddings based on text content.
// Shared characters contribute to the same vector positions, so similar
// texts produce similar vectors.
type mockEmbedder struct {
	dims  int
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.vector(text)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

func (m *mockEmbedder) vector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		vec[(int(ch)+i)%m.dims] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func testRecord(docID string, idx int, content string) Record {
	return Record{
		ID:      RecordID(docID, idx),
		Content: content,
		Metadata: RecordMetadata{
			DocumentID:     docID,
			ChunkIndex:     idx,
			Fingerprint:    "fp-" + docID + "-" + string(rune('0'+idx)),
			Filename:       docID + ".txt",
			Keywords:       []string{"alpha", "beta"},
			Classification: "Public",
			Sensitivity:    "Low",
			IndexedAt:      time.Now(),
		},
	}
}

func TestChromemStore_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	store, err := NewChromemStore(&mockEmbedder{dims: 64})
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	records := []Record{
		testRecord("doc1", 0, "the phishing email asked for credentials"),
		testRecord("doc2", 0, "quarterly weather report for the region"),
	}
	if err := store.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if store.Count() != 2 {
		t.Fatalf("Count = %d, want 2", store.Count())
	}

	results, err := store.Query(ctx, "phishing email credentials", 1, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Record.Metadata.DocumentID != "doc1" {
		t.Errorf("top result = %s, want doc1", results[0].Record.Metadata.DocumentID)
	}
	if got := results[0].Record.Metadata.Keywords; len(got) != 2 || got[0] != "alpha" {
		t.Errorf("keywords round-trip failed: %v", got)
	}
}

func TestChromemStore_QueryEmptyStore(t *testing.T) {
	store, err := NewChromemStore(&mockEmbedder{dims: 16})
	if err != nil {
		t.Fatal(err)
	}
	results, err := store.Query(context.Background(), "anything", 5, nil)
	if err != nil {
		t.Fatalf("Query on empty store: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestChromemStore_Fingerprints(t *testing.T) {
	ctx := context.Background()
	store, err := NewChromemStore(&mockEmbedder{dims: 32})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Upsert(ctx, []Record{
		testRecord("doc1", 0, "first span of text"),
		testRecord("doc1", 1, "second span of text"),
		testRecord("doc2", 0, "unrelated document"),
	}); err != nil {
		t.Fatal(err)
	}

	fps, err := store.Fingerprints(ctx, "doc1")
	if err != nil {
		t.Fatalf("Fingerprints: %v", err)
	}
	if len(fps) != 2 {
		t.Errorf("got %d fingerprints, want 2: %v", len(fps), fps)
	}
	if fps["fp-doc1-0"] != "doc1:0" || fps["fp-doc1-1"] != "doc1:1" {
		t.Errorf("missing expected fingerprints: %v", fps)
	}
}

func TestChromemStore_FingerprintsWithoutEmbedding(t *testing.T) {
	ctx := context.Background()
	embedder := &mockEmbedder{dims: 32}
	store, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Upsert(ctx, []Record{
		testRecord("doc1", 0, "first span"),
		testRecord("doc1", 1, "second span"),
	}); err != nil {
		t.Fatal(err)
	}

	callsAfterUpsert := embedder.calls
	if _, err := store.Fingerprints(ctx, "doc1"); err != nil {
		t.Fatalf("Fingerprints: %v", err)
	}
	if embedder.calls != callsAfterUpsert {
		t.Errorf("listing fingerprints ran %d embedding call(s)", embedder.calls-callsAfterUpsert)
	}
}

func TestChromemStore_DeleteRecords(t *testing.T) {
	ctx := context.Background()
	store, err := NewChromemStore(&mockEmbedder{dims: 32})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Upsert(ctx, []Record{
		testRecord("doc1", 0, "kept span"),
		testRecord("doc1", 1, "dropped span"),
		testRecord("doc1", 2, "another dropped span"),
	}); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteRecords(ctx, []string{"doc1:1", "doc1:2"}); err != nil {
		t.Fatalf("DeleteRecords: %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("Count = %d after delete, want 1", store.Count())
	}

	// An empty id list must not clear the collection.
	if err := store.DeleteRecords(ctx, nil); err != nil {
		t.Fatalf("DeleteRecords(nil): %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("empty delete removed records: Count = %d", store.Count())
	}
}

func TestChromemStore_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	store, err := NewChromemStore(&mockEmbedder{dims: 32})
	if err != nil {
		t.Fatal(err)
	}

	store.Upsert(ctx, []Record{
		testRecord("doc1", 0, "to be deleted"),
		testRecord("doc2", 0, "to be kept"),
	})

	if err := store.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("Count = %d after delete, want 1", store.Count())
	}
}

func TestChromemStore_LoadMissingIndexStartsEmpty(t *testing.T) {
	store, err := NewChromemStore(&mockEmbedder{dims: 16})
	if err != nil {
		t.Fatal(err)
	}

	// A data directory that has never been persisted to.
	if err := store.Load(context.Background(), t.TempDir()); err != nil {
		t.Fatalf("Load on fresh directory: %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("Count = %d, want 0", store.Count())
	}

	// The store must remain usable after the empty load.
	if err := store.Upsert(context.Background(), []Record{testRecord("doc1", 0, "first document")}); err != nil {
		t.Fatalf("Upsert after empty load: %v", err)
	}
}

func TestChromemStore_PersistAndLoad(t *testing.T) {
	ctx := context.Background()
	embedder := &mockEmbedder{dims: 32}
	dir := t.TempDir()

	store, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatal(err)
	}
	store.Upsert(ctx, []Record{testRecord("doc1", 0, "persisted content")})
	if err := store.Persist(ctx, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	fresh, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatal(err)
	}
	if err := fresh.Load(ctx, dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fresh.Count() != 1 {
		t.Errorf("Count after load = %d, want 1", fresh.Count())
	}
}
