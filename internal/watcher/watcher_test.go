package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(ctx context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recorder) waitFor(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if got := r.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d handled files, have %v", n, r.snapshot())
	return nil
}

func startWatcher(t *testing.T, dir string, rec *recorder) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := New(dir, rec.handle, 50*time.Millisecond).Run(ctx); err != context.Canceled {
			t.Errorf("Run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give the watcher a moment to register before writing files.
	time.Sleep(100 * time.Millisecond)
	return cancel
}

func TestRun_NewFileIsHandledAfterSettling(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec)

	path := filepath.Join(dir, "fresh.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := rec.waitFor(t, 1)
	if got[0] != path {
		t.Fatalf("handled %q, want %q", got[0], path)
	}
}

func TestRun_BurstOfWritesHandledOnce(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec)

	path := filepath.Join(dir, "burst.txt")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := f.WriteString("chunk\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
		f.Sync()
		time.Sleep(10 * time.Millisecond)
	}
	f.Close()

	rec.waitFor(t, 1)
	// Allow any stray timers to fire, then confirm only one hand-off.
	time.Sleep(200 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("handled %d times, want 1: %v", len(got), got)
	}
}

func TestRun_TemporaryFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec)

	for _, name := range []string{"upload.part", "scratch.tmp", ".hidden"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "real.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write real.txt: %v", err)
	}

	got := rec.waitFor(t, 1)
	time.Sleep(200 * time.Millisecond)
	got = rec.snapshot()
	if len(got) != 1 || filepath.Base(got[0]) != "real.txt" {
		t.Fatalf("handled = %v, want only real.txt", got)
	}
}

func TestRun_NewSubdirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec)

	sub := filepath.Join(dir, "incoming")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Give the watcher time to pick up the new directory.
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(sub, "nested.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := rec.waitFor(t, 1)
	if got[0] != path {
		t.Fatalf("handled %q, want %q", got[0], path)
	}
}
