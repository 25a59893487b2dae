package vectordb

import (
	"fmt"
	"time"
)

// Record is a chunk entry held in the vector store: the chunk text plus
// the metadata payload copied alongside it.
type Record struct {
	ID       string
	Content  string
	Metadata RecordMetadata
}

// RecordMetadata is the auxiliary payload stored with each chunk. The
// vector store owns the embedding; document metadata lives here.
type RecordMetadata struct {
	DocumentID     string
	ChunkIndex     int
	Fingerprint    string
	Filename       string
	Keywords       []string
	Classification string
	Sensitivity    string
	IndexedAt      time.Time
}

// RecordID is the canonical id of a document's chunk record. Chunk
// indices are contiguous from zero, so a document's records can be
// enumerated without a search.
func RecordID(documentID string, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}

// SearchResult pairs a record with its similarity score.
type SearchResult struct {
	Record     Record
	Similarity float32
}

// SearchFilter narrows search results by metadata fields.
type SearchFilter struct {
	DocumentID     *string
	Classification *string
}
