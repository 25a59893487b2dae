// Package document defines the ingestion-side data model: documents,
// chunks, and their terminal extraction statuses.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Status is the terminal extraction status of a document. It is set exactly
// once per ingestion attempt.
type Status string

const (
	StatusPending     Status = "pending"
	StatusSuccess     Status = "success"
	StatusUnsupported Status = "unsupported"
	StatusError       Status = "error"
)

// Document is a single ingested file.
type Document struct {
	ID          string
	SourcePath  string
	ContentHash string
	Type        string // resolved extension, e.g. ".docx"; empty if undetermined
	Status      Status
	Text        string // populated only when Status == StatusSuccess
	Metadata    map[string]string
	IngestedAt  time.Time
}

// Chunk is a bounded span of a document's text stored alongside an embedding.
type Chunk struct {
	DocumentID  string
	Index       int // 0-based, contiguous within a document
	Text        string
	Fingerprint string
}

// New creates a pending document for the given source path and content hash.
func New(id, sourcePath, contentHash string) *Document {
	return &Document{
		ID:          id,
		SourcePath:  sourcePath,
		ContentHash: contentHash,
		Status:      StatusPending,
		Metadata:    make(map[string]string),
		IngestedAt:  time.Now(),
	}
}

// SetStatus transitions the document from pending to a terminal status.
// A second transition is rejected so a status can never be overwritten.
func (d *Document) SetStatus(s Status) error {
	if d.Status != StatusPending {
		return fmt.Errorf("document %s: status already %s, cannot set %s", d.ID, d.Status, s)
	}
	if s == StatusPending {
		return fmt.Errorf("document %s: cannot transition back to pending", d.ID)
	}
	d.Status = s
	return nil
}

// Fingerprint computes the content fingerprint for a chunk of a document.
// The parent document id is mixed in so identical spans in different
// documents do not collide.
func Fingerprint(docID, text string) string {
	h := sha256.Sum256([]byte(docID + "\x00" + text))
	return hex.EncodeToString(h[:])
}

// ToMap flattens the document into a map of primitive fields for
// storage-agnostic persistence.
func (d *Document) ToMap() map[string]string {
	m := map[string]string{
		"id":           d.ID,
		"source_path":  d.SourcePath,
		"content_hash": d.ContentHash,
		"type":         d.Type,
		"status":       string(d.Status),
		"ingested_at":  d.IngestedAt.Format(time.RFC3339),
	}
	for k, v := range d.Metadata {
		m[k] = v
	}
	return m
}
