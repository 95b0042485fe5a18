package batch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"meridian-hq/medscrub/pkg/dataset"
)

// TestWatcher_InitialRun tests the sweep that happens before any event.
func TestWatcher_InitialRun(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32
	w := NewWatcher(dir, &WatcherConfig{Debounce: 20 * time.Millisecond},
		func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	waitFor(t, time.Second, func() bool { return runs.Load() >= 1 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
}

// TestWatcher_TriggersOnNewRecord tests that an arriving record schedules a
// debounced run.
func TestWatcher_TriggersOnNewRecord(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32
	w := NewWatcher(dir, &WatcherConfig{Debounce: 20 * time.Millisecond},
		func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	waitFor(t, time.Second, func() bool { return runs.Load() >= 1 })

	if err := os.WriteFile(filepath.Join(dir, "scan_001"+dataset.Extension), []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return runs.Load() >= 2 })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
}

// TestWatcher_IgnoresForeignFiles tests that unrelated files do not trigger
// a run.
func TestWatcher_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	var runs atomic.Int32
	w := NewWatcher(dir, &WatcherConfig{Debounce: 20 * time.Millisecond},
		func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	waitFor(t, time.Second, func() bool { return runs.Load() >= 1 })

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if runs.Load() != 1 {
		t.Errorf("foreign file triggered a run, runs = %d", runs.Load())
	}

	cancel()
	<-done
}

// TestWatcher_MissingDirectory tests startup failure on an absent directory.
func TestWatcher_MissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "nope"), nil,
		func(ctx context.Context) error { return nil }, nil)
	if err := w.Watch(context.Background()); err == nil {
		t.Fatalf("Watch() should fail on a missing directory")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
