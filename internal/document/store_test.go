package document

import (
	"context"
	"testing"
	"time"

	"github.com/docsentry/docsentry/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestSaveAndByHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := New("doc-1", "/inbox/report.docx", "hash-a")
	doc.Type = ".docx"
	doc.Metadata["category"] = "Financial"
	if err := doc.SetStatus(StatusSuccess); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.ByHash(ctx, "hash-a")
	if err != nil {
		t.Fatalf("ByHash: %v", err)
	}
	if got == nil {
		t.Fatal("ByHash returned nil for saved document")
	}
	if got.ID != "doc-1" || got.Type != ".docx" || got.Status != StatusSuccess {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Metadata["category"] != "Financial" {
		t.Errorf("metadata not round-tripped: %v", got.Metadata)
	}
}

func TestByHash_Missing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.ByHash(context.Background(), "no-such-hash")
	if err != nil {
		t.Fatalf("ByHash: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown hash, got %+v", got)
	}
}

func TestByHash_NewestWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := New("doc-old", "/inbox/a.txt", "hash-b")
	older.IngestedAt = time.Now().Add(-time.Hour)
	newer := New("doc-new", "/inbox/a.txt", "hash-b")

	for _, d := range []*Document{older, newer} {
		if err := d.SetStatus(StatusSuccess); err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
		if err := store.Save(ctx, d); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := store.ByHash(ctx, "hash-b")
	if err != nil {
		t.Fatalf("ByHash: %v", err)
	}
	if got.ID != "doc-new" {
		t.Errorf("expected newest record, got %s", got.ID)
	}
}

func TestByPath_ReturnsLatestForSourcePath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := New("doc-1", "/inbox/report.txt", "hash-v1")
	if err := doc.SetStatus(StatusSuccess); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.ByPath(ctx, "/inbox/report.txt")
	if err != nil {
		t.Fatalf("ByPath: %v", err)
	}
	if got == nil || got.ID != "doc-1" {
		t.Fatalf("ByPath = %+v, want doc-1", got)
	}

	missing, err := store.ByPath(ctx, "/inbox/other.txt")
	if err != nil {
		t.Fatalf("ByPath: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown path, got %+v", missing)
	}
}

func TestSave_ReplacesExistingID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := New("doc-1", "/inbox/a.txt", "hash-c")
	if err := doc.SetStatus(StatusError); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	doc.Metadata["error_detail"] = "extractor crashed"
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	retry := New("doc-1", "/inbox/a.txt", "hash-c")
	if err := retry.SetStatus(StatusSuccess); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.Save(ctx, retry); err != nil {
		t.Fatalf("Save: %v", err)
	}

	docs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 record after replace, got %d", len(docs))
	}
	if docs[0].Status != StatusSuccess {
		t.Errorf("status = %s, want %s", docs[0].Status, StatusSuccess)
	}
}

func TestSetStatus_TerminalOnce(t *testing.T) {
	doc := New("doc-1", "/inbox/a.txt", "h")
	if err := doc.SetStatus(StatusUnsupported); err != nil {
		t.Fatalf("first transition: %v", err)
	}
	if err := doc.SetStatus(StatusSuccess); err == nil {
		t.Error("second transition should be rejected")
	}
}

func TestFingerprint_DocumentScoped(t *testing.T) {
	a := Fingerprint("doc-a", "shared span")
	b := Fingerprint("doc-b", "shared span")
	if a == b {
		t.Error("identical spans in different documents must not collide")
	}
	if a != Fingerprint("doc-a", "shared span") {
		t.Error("fingerprint must be deterministic")
	}
}
