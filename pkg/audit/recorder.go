package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"meridian-hq/medscrub/pkg/vault"
)

// Sealed is the persisted audit record, one JSON object per batch. PHIRemoved
// is a vault token; everything else is operational data and stays readable
// without the key.
type Sealed struct {
	BatchID         string    `json:"batch_id"`
	Timestamp       time.Time `json:"timestamp"`
	FilesProcessed  int       `json:"files_processed"`
	DurationSeconds float64   `json:"duration_seconds"`
	PHIRemoved      string    `json:"phi_removed"`
	ErrorCount      int       `json:"error_count"`
	WarningCount    int       `json:"warning_count"`
	Aborted         bool      `json:"aborted,omitempty"`
}

// Recorder seals audit trails into uniquely named files under a fixed
// directory. Concurrent finalize calls across batches never collide: the
// filename carries both a timestamp and a uniqueness suffix, and the file is
// created exclusively.
type Recorder struct {
	dir    string
	vault  *vault.Vault
	logger *slog.Logger
}

// NewRecorder creates a recorder writing to dir.
func NewRecorder(dir string, v *vault.Vault, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		dir:    dir,
		vault:  v,
		logger: logger.With("component", "audit.recorder"),
	}
}

// Finalize seals the trail and persists it, returning the path of the new
// audit file. The end time defaults to now when the trail carries none; an
// end time before the start time fails. An existing audit file is never
// overwritten.
func (r *Recorder) Finalize(trail *Trail) (string, error) {
	if trail.EndTime.IsZero() {
		trail.EndTime = time.Now()
	}
	duration := trail.EndTime.Sub(trail.StartTime)
	if duration < 0 {
		return "", NewFinalizeError(trail.BatchID,
			fmt.Errorf("end time %s precedes start time %s", trail.EndTime, trail.StartTime))
	}

	phi, err := json.Marshal(trail.PHIRemoved())
	if err != nil {
		return "", NewFinalizeError(trail.BatchID, fmt.Errorf("encode phi summaries: %w", err))
	}
	token, err := r.vault.Seal(phi)
	if err != nil {
		return "", NewFinalizeError(trail.BatchID, fmt.Errorf("seal phi summaries: %w", err))
	}

	sealed := &Sealed{
		BatchID:         trail.BatchID,
		Timestamp:       trail.EndTime,
		FilesProcessed:  trail.FilesProcessed,
		DurationSeconds: duration.Seconds(),
		PHIRemoved:      token,
		ErrorCount:      len(trail.Errors),
		WarningCount:    len(trail.Warnings),
		Aborted:         trail.Aborted,
	}

	data, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return "", NewFinalizeError(trail.BatchID, err)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", NewFinalizeError(trail.BatchID, fmt.Errorf("create audit directory: %w", err))
	}
	name := fmt.Sprintf("audit_%s_%s.json",
		trail.EndTime.Format("20060102_150405"),
		uuid.New().String()[:8],
	)
	path := filepath.Join(r.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", NewFinalizeError(trail.BatchID, fmt.Errorf("create audit file: %w", err))
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", NewFinalizeError(trail.BatchID, fmt.Errorf("write audit file: %w", err))
	}
	if err := f.Close(); err != nil {
		return "", NewFinalizeError(trail.BatchID, fmt.Errorf("close audit file: %w", err))
	}

	r.logger.Info("audit record sealed",
		"batch_id", trail.BatchID,
		"path", path,
		"files_processed", trail.FilesProcessed,
		"error_count", len(trail.Errors),
		"warning_count", len(trail.Warnings),
		"aborted", trail.Aborted,
	)
	return path, nil
}
