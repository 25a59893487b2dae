package vectordb

import "context"

// Store is the vector store contract the indexer and engine depend on.
type Store interface {
	// Upsert adds or replaces chunk records in the store.
	Upsert(ctx context.Context, records []Record) error

	// Query performs a semantic search using the query text.
	Query(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error)

	// Fingerprints returns the chunk fingerprints stored for a document,
	// keyed fingerprint to record id.
	Fingerprints(ctx context.Context, documentID string) (map[string]string, error)

	// DeleteDocument removes all chunk records for a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// DeleteRecords removes individual chunk records by id.
	DeleteRecords(ctx context.Context, ids []string) error

	// Persist saves the store's data under the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from the given directory.
	Load(ctx context.Context, dir string) error

	// Count returns the total number of chunk records in the store.
	Count() int
}
