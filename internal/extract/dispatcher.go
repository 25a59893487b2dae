package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docsentry/docsentry/internal/document"
)

// Dispatcher runs extraction for a document and records the terminal
// outcome. It never retries; retry policy belongs to the caller.
type Dispatcher struct {
	registry      *Registry
	quarantineDir string
}

// NewDispatcher creates a dispatcher. Unsupported files are moved under
// quarantineDir, which is created on demand.
func NewDispatcher(registry *Registry, quarantineDir string) *Dispatcher {
	return &Dispatcher{registry: registry, quarantineDir: quarantineDir}
}

// Dispatch extracts text for doc and sets its status exactly once:
//   - success: text populated
//   - unsupported: source file moved to quarantine, no text
//   - error: detail recorded, file left in place, no text
func (d *Dispatcher) Dispatch(ctx context.Context, doc *document.Document) error {
	ex := d.registry.For(doc.Type)
	if ex == nil {
		return d.markUnsupported(doc)
	}

	text, err := ex.Extract(ctx, doc.SourcePath)
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			return d.markUnsupported(doc)
		}
		doc.Metadata["error_detail"] = err.Error()
		if serr := doc.SetStatus(document.StatusError); serr != nil {
			return serr
		}
		return nil
	}

	doc.Text = text
	doc.Metadata["extraction_method"] = fmt.Sprintf("%T", ex)
	doc.Metadata["size"] = fmt.Sprintf("%d", len(text))
	return doc.SetStatus(document.StatusSuccess)
}

func (d *Dispatcher) markUnsupported(doc *document.Document) error {
	if err := d.Quarantine(doc.SourcePath); err != nil {
		return fmt.Errorf("quarantining %s: %w", doc.SourcePath, err)
	}
	return doc.SetStatus(document.StatusUnsupported)
}

// Quarantine moves a file into the quarantine directory, preserving its
// base name. Moving a file that is already quarantined, or that no longer
// exists at the source path, is a no-op.
func (d *Dispatcher) Quarantine(path string) error {
	dest := filepath.Join(d.quarantineDir, filepath.Base(path))
	if path == dest {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if _, derr := os.Stat(dest); derr == nil {
			return nil // already moved
		}
		return fmt.Errorf("quarantine source missing: %s", path)
	}
	if err := os.MkdirAll(d.quarantineDir, 0o755); err != nil {
		return err
	}
	return os.Rename(path, dest)
}
