package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig controls expiry of persisted audit and log files.
type RetentionConfig struct {
	// RetentionDays is the number of days to retain files.
	// 0 means keep files forever (no pruning).
	RetentionDays int

	// Schedule is a cron expression for automatic pruning.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables the scheduler.
	Schedule string
}

// DefaultRetentionConfig returns the default retention configuration.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		RetentionDays: 365,
		Schedule:      "0 3 * * *",
	}
}

// Pruner deletes audit and log files older than the retention period. Sealed
// audit records are append-only while live; the pruner is the only component
// allowed to remove them, and only past their retention window.
type Pruner struct {
	auditDir string
	logDir   string
	config   *RetentionConfig
	logger   *slog.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewPruner creates a pruner over the audit and log directories.
func NewPruner(auditDir, logDir string, config *RetentionConfig) *Pruner {
	if config == nil {
		config = DefaultRetentionConfig()
	}
	return &Pruner{
		auditDir: auditDir,
		logDir:   logDir,
		config:   config,
		logger:   slog.Default().With("component", "audit.retention"),
		cron:     cron.New(),
	}
}

// Prune deletes expired files once and returns the number removed. A missing
// directory is skipped, not an error.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	if p.config.RetentionDays <= 0 {
		p.logger.Debug("retention disabled, nothing to prune")
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)

	total := 0
	for _, target := range []struct {
		dir    string
		prefix string
	}{
		{p.auditDir, "audit_"},
		{p.logDir, "anonymization_"},
	} {
		if target.dir == "" {
			continue
		}
		deleted, err := p.pruneDir(ctx, target.dir, target.prefix, cutoff)
		total += deleted
		if err != nil {
			return total, NewRetentionError(p.config.RetentionDays, err)
		}
	}

	if total > 0 {
		p.logger.Info("retention pruning completed",
			"deleted_count", total,
			"retention_days", p.config.RetentionDays,
		)
	} else {
		p.logger.Debug("no files pruned", "retention_days", p.config.RetentionDays)
	}
	return total, nil
}

func (p *Pruner) pruneDir(ctx context.Context, dir, prefix string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}

	deleted := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return deleted, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			return deleted, fmt.Errorf("remove %s: %w", path, err)
		}
		p.logger.Debug("expired file removed", "path", path)
		deleted++
	}
	return deleted, nil
}

// Start begins scheduled pruning based on the configured cron expression.
// An empty schedule disables the scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Schedule == "" {
		p.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(p.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.config.Schedule, err)
	}

	_, err := p.cron.AddFunc(p.config.Schedule, func() {
		if _, err := p.Prune(ctx); err != nil {
			p.logger.Error("scheduled pruning failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("retention scheduler started",
		"schedule", p.config.Schedule,
		"retention_days", p.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// Stop stops the scheduler and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil && p.running {
		<-p.cron.Stop().Done()
		p.running = false
		p.logger.Info("retention scheduler stopped")
	}
}

// NextRun returns the next scheduled pruning time, or nil when the scheduler
// is idle.
func (p *Pruner) NextRun() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
