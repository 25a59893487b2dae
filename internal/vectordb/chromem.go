package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/docsentry/docsentry/internal/embeddings"
)

const (
	collectionName = "documents"
	indexFile      = "chromem.gob.gz"
)

// ChromemStore implements Store using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedder:   embedder,
		embedFunc:  ef,
	}, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for i, rec := range records {
		docs[i] = chromem.Document{
			ID:       rec.ID,
			Content:  rec.Content,
			Metadata: metadataToMap(rec.Metadata),
		}
	}

	return s.collection.AddDocuments(ctx, docs, 1)
}

func (s *ChromemStore) Query(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	// chromem-go requires nResults <= collection size.
	if count := s.collection.Count(); count == 0 {
		return nil, nil
	} else if limit > count {
		limit = count
	}

	where := buildWhereClause(filter)

	results, err := s.collection.Query(ctx, query, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Record: Record{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: mapToMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

// Fingerprints walks the document's record ids directly. Chunk indices
// are contiguous from zero, so the walk stops at the first gap and no
// query (and no embedding call) is needed.
func (s *ChromemStore) Fingerprints(ctx context.Context, documentID string) (map[string]string, error) {
	fps := make(map[string]string)
	for i := 0; ; i++ {
		id := RecordID(documentID, i)
		doc, err := s.collection.GetByID(ctx, id)
		if err != nil {
			return fps, nil
		}
		fps[doc.Metadata["fingerprint"]] = id
	}
}

func (s *ChromemStore) DeleteDocument(ctx context.Context, documentID string) error {
	where := map[string]string{"document_id": documentID}
	return s.collection.Delete(ctx, where, nil)
}

func (s *ChromemStore) DeleteRecords(ctx context.Context, ids []string) error {
	// An empty id list would tell chromem to delete everything.
	if len(ids) == 0 {
		return nil
	}
	return s.collection.Delete(ctx, nil, nil, ids...)
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(filepath.Join(dir, indexFile), true, "")
}

// Load restores a previously persisted index. A missing index file is
// not an error; the store simply starts empty.
func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	path := filepath.Join(dir, indexFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := s.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// metadataToMap converts RecordMetadata to the flat map[string]string
// chromem stores.
func metadataToMap(m RecordMetadata) map[string]string {
	return map[string]string{
		"document_id":    m.DocumentID,
		"chunk_index":    strconv.Itoa(m.ChunkIndex),
		"fingerprint":    m.Fingerprint,
		"filename":       m.Filename,
		"keywords":       strings.Join(m.Keywords, ","),
		"classification": m.Classification,
		"sensitivity":    m.Sensitivity,
		"indexed_at":     m.IndexedAt.Format(time.RFC3339),
	}
}

// mapToMetadata converts the flat map back to RecordMetadata.
func mapToMetadata(m map[string]string) RecordMetadata {
	idx, _ := strconv.Atoi(m["chunk_index"])
	indexedAt, _ := time.Parse(time.RFC3339, m["indexed_at"])

	var keywords []string
	if m["keywords"] != "" {
		keywords = strings.Split(m["keywords"], ",")
	}

	return RecordMetadata{
		DocumentID:     m["document_id"],
		ChunkIndex:     idx,
		Fingerprint:    m["fingerprint"],
		Filename:       m["filename"],
		Keywords:       keywords,
		Classification: m["classification"],
		Sensitivity:    m["sensitivity"],
		IndexedAt:      indexedAt,
	}
}

// buildWhereClause converts a SearchFilter to a chromem where clause.
func buildWhereClause(filter *SearchFilter) map[string]string {
	if filter == nil {
		return nil
	}

	where := make(map[string]string)
	if filter.DocumentID != nil {
		where["document_id"] = *filter.DocumentID
	}
	if filter.Classification != nil {
		where["classification"] = *filter.Classification
	}
	if len(where) == 0 {
		return nil
	}
	return where
}
