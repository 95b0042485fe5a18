package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("Chtimes() failed: %v", err)
	}
	return path
}

// TestPrune_RemovesExpiredFiles tests age-based pruning across both
// directories.
func TestPrune_RemovesExpiredFiles(t *testing.T) {
	auditDir := t.TempDir()
	logDir := t.TempDir()

	expiredAudit := writeAged(t, auditDir, "audit_20250101_000000_aaaaaaaa.json", 400*24*time.Hour)
	freshAudit := writeAged(t, auditDir, "audit_20260801_000000_bbbbbbbb.json", 24*time.Hour)
	expiredLog := writeAged(t, logDir, "anonymization_20250101_000000.log", 400*24*time.Hour)
	unrelated := writeAged(t, auditDir, "notes.txt", 400*24*time.Hour)

	p := NewPruner(auditDir, logDir, &RetentionConfig{RetentionDays: 365})
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	for _, gone := range []string{expiredAudit, expiredLog} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Errorf("%s should have been pruned", gone)
		}
	}
	for _, kept := range []string{freshAudit, unrelated} {
		if _, err := os.Stat(kept); err != nil {
			t.Errorf("%s should have survived: %v", kept, err)
		}
	}
}

// TestPrune_DisabledRetention tests that a zero retention period keeps
// everything.
func TestPrune_DisabledRetention(t *testing.T) {
	auditDir := t.TempDir()
	old := writeAged(t, auditDir, "audit_20200101_000000_cccccccc.json", 2000*24*time.Hour)

	p := NewPruner(auditDir, "", &RetentionConfig{RetentionDays: 0})
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
	if _, err := os.Stat(old); err != nil {
		t.Errorf("file removed despite disabled retention: %v", err)
	}
}

// TestPrune_MissingDirectory tests that absent directories are skipped.
func TestPrune_MissingDirectory(t *testing.T) {
	p := NewPruner(filepath.Join(t.TempDir(), "nope"), "", &RetentionConfig{RetentionDays: 30})
	if _, err := p.Prune(context.Background()); err != nil {
		t.Errorf("Prune() should skip a missing directory, got %v", err)
	}
}

// TestScheduler_InvalidSchedule tests cron expression validation.
func TestScheduler_InvalidSchedule(t *testing.T) {
	p := NewPruner(t.TempDir(), "", &RetentionConfig{RetentionDays: 30, Schedule: "not a cron line"})
	if err := p.Start(context.Background()); err == nil {
		t.Fatalf("Start() should reject an invalid schedule")
	}
}

// TestScheduler_StartStop tests the scheduler lifecycle.
func TestScheduler_StartStop(t *testing.T) {
	p := NewPruner(t.TempDir(), "", &RetentionConfig{RetentionDays: 30, Schedule: "0 3 * * *"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if next := p.NextRun(); next == nil || !next.After(time.Now()) {
		t.Errorf("NextRun() = %v, want a future time", next)
	}
	p.Stop()
	p.Stop() // idempotent
}
