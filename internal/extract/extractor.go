// Package extract turns uploaded files into plain text and records the
// outcome on the owning document. One extractor exists per resolved file
// type; the dispatcher routes a document to the right one and handles
// quarantine for formats nothing can read.
package extract

import (
	"context"
	"errors"
)

// ErrUnsupportedFormat signals that no extractor can handle the file's
// resolved type. The dispatcher quarantines such files.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Extractor converts one file format into plain text.
type Extractor interface {
	// Extract reads the file at path and returns its text content.
	Extract(ctx context.Context, path string) (string, error)
}

// Registry routes extraction by resolved extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry creates a registry with the built-in extractors wired up.
func NewRegistry() *Registry {
	md := &MarkdownExtractor{}
	txt := &PlaintextExtractor{}
	return &Registry{
		byExt: map[string]Extractor{
			".txt":  txt,
			".csv":  txt,
			".log":  txt,
			".md":   md,
			".docx": &DocxExtractor{},
		},
	}
}

// Register adds or replaces the extractor for an extension.
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[ext] = e
}

// For returns the extractor registered for ext, or nil.
func (r *Registry) For(ext string) Extractor {
	return r.byExt[ext]
}
