package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/docsentry/docsentry/internal/document"
)

// failingExtractor always fails with the configured error.
type failingExtractor struct {
	err error
}

func (f *failingExtractor) Extract(context.Context, string) (string, error) {
	return "", f.err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDispatch_Success(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "hello world")

	doc := document.New("d1", path, "hash1")
	doc.Type = ".txt"

	d := NewDispatcher(NewRegistry(), filepath.Join(dir, "quarantine"))
	if err := d.Dispatch(context.Background(), doc); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if doc.Status != document.StatusSuccess {
		t.Errorf("status = %s, want success", doc.Status)
	}
	if doc.Text != "hello world" {
		t.Errorf("text = %q", doc.Text)
	}
}

func TestDispatch_UnsupportedQuarantines(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "image.png", "\x89PNG")
	qdir := filepath.Join(dir, "quarantine")

	doc := document.New("d1", path, "hash1")
	doc.Type = ".png"

	d := NewDispatcher(NewRegistry(), qdir)
	if err := d.Dispatch(context.Background(), doc); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if doc.Status != document.StatusUnsupported {
		t.Errorf("status = %s, want unsupported", doc.Status)
	}
	if doc.Text != "" {
		t.Errorf("unsupported document carries text %q", doc.Text)
	}
	if _, err := os.Stat(filepath.Join(qdir, "image.png")); err != nil {
		t.Errorf("file not quarantined: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original file still present after quarantine")
	}
}

func TestQuarantine_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "weird.bin", "data")
	qdir := filepath.Join(dir, "quarantine")

	d := NewDispatcher(NewRegistry(), qdir)
	if err := d.Quarantine(path); err != nil {
		t.Fatalf("first quarantine: %v", err)
	}
	// Second move of the same (now absent) source is a no-op.
	if err := d.Quarantine(path); err != nil {
		t.Fatalf("second quarantine: %v", err)
	}
}

func TestDispatch_ErrorLeavesFileInPlace(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.txt", "data")

	reg := NewRegistry()
	reg.Register(".txt", &failingExtractor{err: errors.New("parser exploded")})

	doc := document.New("d1", path, "hash1")
	doc.Type = ".txt"

	d := NewDispatcher(reg, filepath.Join(dir, "quarantine"))
	if err := d.Dispatch(context.Background(), doc); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if doc.Status != document.StatusError {
		t.Errorf("status = %s, want error", doc.Status)
	}
	if doc.Metadata["error_detail"] != "parser exploded" {
		t.Errorf("error_detail = %q", doc.Metadata["error_detail"])
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file should be left in place on extraction error: %v", err)
	}
}

func TestDispatch_StatusSetOnce(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "hello")

	doc := document.New("d1", path, "h")
	doc.Type = ".txt"

	d := NewDispatcher(NewRegistry(), filepath.Join(dir, "q"))
	if err := d.Dispatch(context.Background(), doc); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if err := d.Dispatch(context.Background(), doc); err == nil {
		t.Error("second dispatch should fail: status is terminal")
	}
}
