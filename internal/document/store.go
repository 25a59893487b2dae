package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/docsentry/docsentry/internal/db"
)

// Store persists document records in SQLite. The catalog is the ledger
// of every ingestion outcome, including quarantined and failed files.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Save inserts or replaces the record for a document.
func (s *Store) Save(ctx context.Context, doc *Document) error {
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, source_path, content_hash, type, status, metadata, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.SourcePath, doc.ContentHash, doc.Type, string(doc.Status),
		string(meta), doc.IngestedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving document %s: %w", doc.ID, err)
	}
	return nil
}

// ByHash returns the most recently ingested document with the given
// content hash, or nil when none exists.
func (s *Store) ByHash(ctx context.Context, hash string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_path, content_hash, type, status, metadata, ingested_at
		 FROM documents WHERE content_hash = ? ORDER BY ingested_at DESC LIMIT 1`, hash)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return doc, err
}

// ByPath returns the most recently ingested document for the given
// source path, or nil when none exists.
func (s *Store) ByPath(ctx context.Context, sourcePath string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_path, content_hash, type, status, metadata, ingested_at
		 FROM documents WHERE source_path = ? ORDER BY ingested_at DESC LIMIT 1`, sourcePath)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return doc, err
}

// List returns all document records, newest first.
func (s *Store) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_path, content_hash, type, status, metadata, ingested_at
		 FROM documents ORDER BY ingested_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var doc Document
	var status, meta, ingested string
	if err := row.Scan(&doc.ID, &doc.SourcePath, &doc.ContentHash, &doc.Type, &status, &meta, &ingested); err != nil {
		return nil, err
	}
	doc.Status = Status(status)
	if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata for %s: %w", doc.ID, err)
	}
	if t, err := time.Parse(time.RFC3339, ingested); err == nil {
		doc.IngestedAt = t
	}
	return &doc, nil
}
