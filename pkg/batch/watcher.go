package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"meridian-hq/medscrub/pkg/dataset"
)

// WatcherConfig contains configuration for continuous intake mode.
type WatcherConfig struct {
	// Debounce is the quiet period after the last filesystem event before a
	// batch run triggers (default: 2s). Records usually arrive in bursts;
	// the debounce collapses a burst into one run.
	Debounce time.Duration
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		Debounce: 2 * time.Second,
	}
}

// Watcher runs a batch whenever new records settle in the input directory.
// Re-running over already-anonymized output is safe: the pipeline is
// idempotent per record, so a watcher-triggered run only adds work for files
// that actually arrived.
type Watcher struct {
	dir    string
	config *WatcherConfig
	run    func(ctx context.Context) error
	logger *slog.Logger
}

// NewWatcher creates a watcher over dir. run executes one full batch and is
// never invoked concurrently with itself.
func NewWatcher(dir string, config *WatcherConfig, run func(ctx context.Context) error, logger *slog.Logger) *Watcher {
	if config == nil {
		config = DefaultWatcherConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:    dir,
		config: config,
		run:    run,
		logger: logger.With("component", "batch.watcher"),
	}
}

// Watch processes the directory once, then blocks serving filesystem events
// until the context is canceled. A failed run is logged and watching
// continues; only watcher-level failures return an error.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.logger.Info("watch mode started",
		"input", w.dir,
		"debounce_ms", w.config.Debounce.Milliseconds(),
	)

	// Initial sweep picks up records that arrived before the watch began.
	if err := w.run(ctx); err != nil {
		w.logger.Error("initial batch run failed", "error", err)
	}

	debounce := time.NewTimer(w.config.Debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch mode stopped")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("watcher event channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("record activity", "event", event.Op.String(), "path", event.Name)
			if pending && !debounce.Stop() {
				<-debounce.C
			}
			debounce.Reset(w.config.Debounce)
			pending = true

		case <-debounce.C:
			pending = false
			if err := w.run(ctx); err != nil {
				w.logger.Error("batch run failed", "error", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// relevant filters events down to record arrivals and rewrites.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, dataset.Extension) {
		return false
	}
	return event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Rename)
}
