package chunker

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/docsentry/docsentry/internal/classify"
	"github.com/docsentry/docsentry/internal/document"
	"github.com/docsentry/docsentry/internal/vectordb"
)

// Indexer stages chunk records for a document and commits them to the
// vector store in one pass. A document's chunks are either all visible
// after Index returns nil, or none are.
type Indexer struct {
	store vectordb.Store
	opts  Options
}

// NewIndexer creates an indexer over the given store.
func NewIndexer(store vectordb.Store, opts Options) *Indexer {
	return &Indexer{store: store, opts: opts}
}

// Index splits the document's text, drops chunks whose fingerprint the
// store already holds for this document, and upserts the rest together
// with the document's keyword and classification metadata. Re-indexing
// unchanged text is a no-op.
func (ix *Indexer) Index(ctx context.Context, doc *document.Document, kws []string, cls classify.Result) error {
	if doc.Status != document.StatusSuccess {
		return fmt.Errorf("document %s: cannot index with status %s", doc.ID, doc.Status)
	}

	existing, err := ix.store.Fingerprints(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("loading fingerprints for %s: %w", doc.ID, err)
	}

	spans := Split(doc.Text, ix.opts)
	now := time.Now()

	// Stage only chunks the store does not already hold.
	var staged []vectordb.Record
	for i, span := range spans {
		fp := document.Fingerprint(doc.ID, span)
		if _, held := existing[fp]; held {
			continue
		}
		staged = append(staged, vectordb.Record{
			ID:      vectordb.RecordID(doc.ID, i),
			Content: span,
			Metadata: vectordb.RecordMetadata{
				DocumentID:     doc.ID,
				ChunkIndex:     i,
				Fingerprint:    fp,
				Filename:       filepath.Base(doc.SourcePath),
				Keywords:       kws,
				Classification: cls.Category,
				Sensitivity:    cls.Sensitivity,
				IndexedAt:      now,
			},
		})
	}

	// Records past the new span count are leftovers from a longer prior
	// version of this document. Same-index records are replaced by the
	// upsert; these have to be removed explicitly.
	keep := make(map[string]bool, len(spans))
	for i := range spans {
		keep[vectordb.RecordID(doc.ID, i)] = true
	}
	var stale []string
	for _, id := range existing {
		if !keep[id] {
			stale = append(stale, id)
		}
	}

	if len(staged) == 0 && len(stale) == 0 {
		slog.Debug("all chunks already indexed", "document", doc.ID)
		return nil
	}

	// Respect cancellation before anything becomes visible.
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(staged) > 0 {
		if err := ix.store.Upsert(ctx, staged); err != nil {
			// Discard whatever the failed upsert left behind so the document
			// is never partially visible. First-time indexing only: if prior
			// chunks exist we leave them and the new batch failed atomically
			// from the caller's perspective.
			if len(existing) == 0 {
				if derr := ix.store.DeleteDocument(context.WithoutCancel(ctx), doc.ID); derr != nil {
					slog.Warn("discarding staged chunks failed", "document", doc.ID, "err", derr)
				}
			}
			return fmt.Errorf("upserting chunks for %s: %w", doc.ID, err)
		}
	}

	if err := ix.store.DeleteRecords(context.WithoutCancel(ctx), stale); err != nil {
		return fmt.Errorf("removing superseded chunks for %s: %w", doc.ID, err)
	}
	return nil
}
