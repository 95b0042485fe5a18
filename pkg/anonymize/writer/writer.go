package writer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"meridian-hq/medscrub/pkg/dataset"
)

// WriteVerificationError reports a failed commit step. The destination is
// guaranteed untouched and the temporary artifact removed.
type WriteVerificationError struct {
	Path  string // intended destination
	Step  string // commit step that failed
	Cause error
}

func (e *WriteVerificationError) Error() string {
	return fmt.Sprintf("write verification failed [step=%s, path=%s]: %v", e.Step, e.Path, e.Cause)
}

func (e *WriteVerificationError) Unwrap() error {
	return e.Cause
}

// Writer commits records durably. A single Writer may serve many workers,
// provided no two commits ever target the same destination path concurrently.
type Writer struct {
	janitor *Janitor
	logger  *slog.Logger

	// Decode hooks, replaceable in tests to simulate verification failures.
	verifyPrimary   func(path string) error
	verifySecondary func(path string) error
}

// New creates a writer. janitor may be shared with the process signal
// handler; if nil, a private one is created.
func New(janitor *Janitor, logger *slog.Logger) *Writer {
	if janitor == nil {
		janitor = NewJanitor()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		janitor: janitor,
		logger:  logger.With("component", "anonymize.writer"),
		verifyPrimary: func(path string) error {
			_, err := dataset.ReadFile(path)
			return err
		},
		verifySecondary: func(path string) error {
			_, err := dataset.ReadFileYAML(path)
			return err
		},
	}
}

// Commit writes rec to dest using the safe-write protocol:
//
//  1. encode to a fresh temporary file in dest's directory
//  2. re-read and fully parse the temp file with the primary decoder
//  3. re-parse with the independent secondary decoder
//  4. remove any pre-existing dest, then atomically rename temp over dest
//  5. confirm dest exists
//
// Failure at any step removes the temporary file, leaves any pre-existing
// dest untouched, and returns a WriteVerificationError.
func (w *Writer) Commit(rec *dataset.Record, dest string) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteVerificationError{Path: dest, Step: "prepare", Cause: err}
	}

	tmp, err := os.CreateTemp(dir, ".medscrub-*"+dataset.Extension)
	if err != nil {
		return &WriteVerificationError{Path: dest, Step: "create_temp", Cause: err}
	}
	tmpPath := tmp.Name()
	w.janitor.register(tmpPath)

	fail := func(step string, cause error) error {
		tmp.Close()
		os.Remove(tmpPath)
		w.janitor.deregister(tmpPath)
		w.logger.Error("commit aborted",
			"step", step,
			"destination", dest,
			"error", cause,
		)
		return &WriteVerificationError{Path: dest, Step: step, Cause: cause}
	}

	data, err := dataset.EncodeJSON(rec)
	if err != nil {
		return fail("encode", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fail("write_temp", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync_temp", err)
	}
	if err := tmp.Close(); err != nil {
		return fail("close_temp", err)
	}

	if err := w.verifyPrimary(tmpPath); err != nil {
		return fail("verify_primary", err)
	}
	if err := w.verifySecondary(tmpPath); err != nil {
		return fail("verify_secondary", err)
	}

	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fail("replace", err)
		}
	} else if !os.IsNotExist(err) {
		return fail("replace", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fail("replace", err)
	}
	w.janitor.deregister(tmpPath)

	if _, err := os.Stat(dest); err != nil {
		return &WriteVerificationError{Path: dest, Step: "confirm", Cause: err}
	}

	w.logger.Debug("record committed", "destination", dest)
	return nil
}
