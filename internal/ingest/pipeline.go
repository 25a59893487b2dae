// Package ingest runs files through the full intake pipeline: type
// resolution, extraction, keyword tagging, classification, and chunk
// indexing, with a catalog record for every outcome.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/docsentry/docsentry/internal/chunker"
	"github.com/docsentry/docsentry/internal/document"
	"github.com/docsentry/docsentry/internal/extract"
	"github.com/docsentry/docsentry/internal/filetype"
	"github.com/docsentry/docsentry/internal/keywords"
)

// Options tune pipeline behavior.
type Options struct {
	// MaxConcurrency bounds how many files are processed at once.
	MaxConcurrency int

	// Progress, if set, is called as each file's report completes.
	// Calls are serialized; completion order is not input order.
	Progress func(Report)
}

// Report is the outcome of one file's ingestion.
type Report struct {
	Path       string
	DocumentID string
	Status     document.Status
	Keywords   []string
	Category   string
	// Skipped means the content hash was already ingested successfully.
	Skipped bool
	// Shared means another in-flight ingestion of identical content did
	// the work and this report reuses its result.
	Shared bool
	Err    error
}

// Pipeline wires the ingestion stages together. Identical content being
// ingested concurrently is deduplicated: only one embedding pass runs.
type Pipeline struct {
	dispatcher *extract.Dispatcher
	tagger     *keywords.Tagger
	classifier *Classifier
	indexer    *chunker.Indexer
	catalog    *document.Store
	opts       Options

	inflight singleflight.Group
}

func NewPipeline(dispatcher *extract.Dispatcher, tagger *keywords.Tagger, classifier *Classifier, indexer *chunker.Indexer, catalog *document.Store, opts Options) *Pipeline {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	return &Pipeline{
		dispatcher: dispatcher,
		tagger:     tagger,
		classifier: classifier,
		indexer:    indexer,
		catalog:    catalog,
		opts:       opts,
	}
}

// Run ingests the given files concurrently and returns one report per
// path, in input order. Per-file failures land in the report; only
// context cancellation aborts the batch.
func (p *Pipeline) Run(ctx context.Context, paths []string) ([]Report, error) {
	reports := make([]Report, len(paths))

	var progressMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.MaxConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			r := p.ingest(gctx, path)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			reports[i] = r
			if p.opts.Progress != nil {
				progressMu.Lock()
				p.opts.Progress(r)
				progressMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// File ingests a single path.
func (p *Pipeline) File(ctx context.Context, path string) (Report, error) {
	r := p.ingest(ctx, path)
	if ctx.Err() != nil {
		return Report{}, ctx.Err()
	}
	return r, nil
}

func (p *Pipeline) ingest(ctx context.Context, path string) Report {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{Path: path, Status: document.StatusError, Err: fmt.Errorf("reading %s: %w", path, err)}
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	// Concurrent ingests of identical content collapse onto one worker;
	// the others reuse its report.
	v, err, shared := p.inflight.Do(hash, func() (any, error) {
		return p.ingestContent(ctx, path, hash, data), nil
	})
	if err != nil {
		return Report{Path: path, Status: document.StatusError, Err: err}
	}
	r := v.(Report)
	if shared {
		r.Path = path
		r.Shared = true
	}
	return r
}

func (p *Pipeline) ingestContent(ctx context.Context, path, hash string, data []byte) Report {
	existing, err := p.catalog.ByHash(ctx, hash)
	if err != nil {
		return Report{Path: path, Status: document.StatusError, Err: err}
	}
	if existing != nil && existing.Status == document.StatusSuccess {
		slog.Debug("content unchanged, skipping", "path", path, "hash", hash[:12])
		return Report{Path: path, DocumentID: existing.ID, Status: existing.Status, Skipped: true}
	}

	// A changed file keeps its document id so the indexer replaces the
	// superseded chunks instead of accumulating a second copy.
	id := uuid.NewString()
	if prior, err := p.catalog.ByPath(ctx, path); err != nil {
		return Report{Path: path, Status: document.StatusError, Err: err}
	} else if prior != nil {
		id = prior.ID
	}

	doc := document.New(id, path, hash)
	doc.Type = resolveType(path, data)

	if err := p.dispatcher.Dispatch(ctx, doc); err != nil {
		return Report{Path: path, DocumentID: doc.ID, Status: doc.Status, Err: err}
	}

	report := Report{Path: path, DocumentID: doc.ID, Status: doc.Status}
	if doc.Status == document.StatusSuccess {
		if err := p.enrich(ctx, doc, &report); err != nil {
			return Report{Path: path, DocumentID: doc.ID, Status: doc.Status, Err: err}
		}
	}

	if err := p.catalog.Save(ctx, doc); err != nil {
		report.Err = err
	}
	return report
}

// resolveType sniffs content first so renamed files get their true
// type. Plain-text sniffs keep the filename's more specific text
// extension, since markdown and csv both sniff as text.
func resolveType(path string, data []byte) string {
	resolved := filetype.ResolveBytes(data)
	ext := strings.ToLower(filepath.Ext(path))
	switch resolved {
	case "":
		return ext
	case ".txt":
		switch ext {
		case ".md", ".csv", ".log":
			return ext
		}
	}
	return resolved
}

// enrich runs tagging, classification, and indexing for a successfully
// extracted document.
func (p *Pipeline) enrich(ctx context.Context, doc *document.Document, report *Report) error {
	tags, err := p.tagger.Tags(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("tagging %s: %w", doc.SourcePath, err)
	}
	doc.Metadata["keyword_provenance"] = string(tags.Provenance)
	report.Keywords = tags.Keywords

	cls, err := p.classifier.Classify(ctx, doc.Text, filepath.Base(doc.SourcePath), string(doc.Status))
	if err != nil {
		return err
	}
	doc.Metadata["category"] = cls.Category
	doc.Metadata["sensitivity"] = cls.Sensitivity
	report.Category = cls.Category

	if err := p.indexer.Index(ctx, doc, tags.Keywords, cls); err != nil {
		return fmt.Errorf("indexing %s: %w", doc.SourcePath, err)
	}
	return nil
}
