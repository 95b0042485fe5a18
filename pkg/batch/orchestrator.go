package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"meridian-hq/medscrub/pkg/anonymize/policy"
	"meridian-hq/medscrub/pkg/anonymize/rewriter"
	"meridian-hq/medscrub/pkg/anonymize/validator"
	"meridian-hq/medscrub/pkg/anonymize/writer"
	"meridian-hq/medscrub/pkg/audit"
	"meridian-hq/medscrub/pkg/dataset"
	"meridian-hq/medscrub/pkg/telemetry/metrics"
)

// Options controls one orchestrator instance.
type Options struct {
	// Input is the directory of source records.
	Input string

	// Output is the destination directory for anonymized records.
	Output string

	// Quarantine receives unmodified copies of failed records.
	Quarantine string

	// Workers is the number of concurrent record workers. Default: 4.
	Workers int

	// OnRecord, if set, is called after each record finishes (err is nil on
	// success). It runs on worker goroutines and must be safe for concurrent
	// use.
	OnRecord func(name string, err error)
}

// Deps are the collaborators a batch run drives.
type Deps struct {
	Policy    *policy.Policy
	Writer    *writer.Writer
	Validator *validator.Validator
	Recorder  *audit.Recorder
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

// Orchestrator runs batches. It exclusively owns the audit trail for the
// duration of a run; no two concurrent runs may share an output directory.
type Orchestrator struct {
	opts    Options
	policy  *policy.Policy
	writer  *writer.Writer
	valid   *validator.Validator
	rec     *audit.Recorder
	metrics *metrics.Collector
	logger  *slog.Logger
}

// New creates an orchestrator.
func New(opts Options, deps Deps) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector(&metrics.Config{Enabled: false}, nil)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{
		opts:    opts,
		policy:  deps.Policy,
		writer:  deps.Writer,
		valid:   deps.Validator,
		rec:     deps.Recorder,
		metrics: deps.Metrics,
		logger:  deps.Logger.With("component", "batch"),
	}
}

// Run processes every record in the input directory and seals the batch's
// audit record. Per-record failures never abort the run; they are logged into
// the trail and the source is quarantined. The audit record is finalized on
// every exit path, including cancellation, with an aborted marker when the
// batch did not complete normally.
//
// The returned error covers fatal conditions only (input unreadable, audit
// finalize failed). Callers must still inspect the Result.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	trail := audit.NewTrail()
	logger := o.logger.With("batch_id", trail.BatchID)
	started := time.Now()

	res := &Result{State: StateInit, Trail: trail}

	names, err := dataset.List(o.opts.Input)
	if err != nil {
		trail.Aborted = true
		trail.AddError(fmt.Sprintf("enumerate input: %v", err))
		logger.Error("batch aborted before processing", "input", o.opts.Input, "error", err)
		o.seal(res, logger)
		o.metrics.RecordBatch("aborted", time.Since(started))
		return res, err
	}

	res.State = StateProcessing
	logger.Info("batch started",
		"input", o.opts.Input,
		"output", o.opts.Output,
		"records", len(names),
		"workers", o.opts.Workers,
	)

	// Workers report into their own slot; they never touch the trail. Real
	// errors stay in the outcome, so the group never short-circuits on a
	// per-record failure.
	outcomes := make([]recordOutcome, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if gctx.Err() != nil {
				outcomes[i] = recordOutcome{name: name, skipped: true}
				return nil
			}
			outcomes[i] = o.processOne(name, logger)
			if o.opts.OnRecord != nil {
				o.opts.OnRecord(name, outcomes[i].err)
			}
			return nil
		})
	}
	g.Wait()

	// Aggregation happens here and only here, in lexical record order.
	for _, out := range outcomes {
		switch {
		case out.skipped:
			// Accounted for by the aborted marker below.
		case out.ok:
			trail.FilesProcessed++
			trail.AddPHI(out.summary)
			o.metrics.RecordProcessed()
		default:
			trail.AddError(fmt.Sprintf("%s: %v", out.name, out.err))
			o.metrics.RecordError(out.reason)
			if out.quarantineErr != nil {
				trail.AddWarning(fmt.Sprintf("%s: quarantine copy failed: %v", out.name, out.quarantineErr))
			} else if out.quarantinePath != "" {
				o.metrics.RecordQuarantined()
			}
		}
	}

	if err := ctx.Err(); err != nil {
		trail.Aborted = true
		trail.AddError(fmt.Sprintf("batch aborted: %v", err))
		logger.Warn("batch canceled", "processed", trail.FilesProcessed)
	}

	batchOK := false
	if !trail.Aborted {
		res.State = StateValidating
		batchOK = o.valid.ValidateBatch(o.opts.Output)
		if !batchOK {
			// A validation failure flips the validity flag but never blocks
			// audit persistence.
			logger.Error("batch validation failed", "output", o.opts.Output)
		}
	}

	res.Success = trail.FilesProcessed > 0 && batchOK && !trail.Aborted

	ferr := o.seal(res, logger)

	outcome := "success"
	switch {
	case trail.Aborted:
		outcome = "aborted"
	case trail.FilesProcessed == 0:
		outcome = "partial_failure"
	case !batchOK:
		outcome = "validation_failed"
	}
	o.metrics.RecordBatch(outcome, time.Since(started))

	logger.Info("batch finished",
		"success", res.Success,
		"state", string(res.State),
		"files_processed", trail.FilesProcessed,
		"errors", len(trail.Errors),
		"warnings", len(trail.Warnings),
		"audit", res.AuditPath,
	)
	return res, ferr
}

// seal finalizes the audit trail and settles the terminal state.
func (o *Orchestrator) seal(res *Result, logger *slog.Logger) error {
	path, err := o.rec.Finalize(res.Trail)
	if err != nil {
		logger.Error("audit finalize failed", "error", err)
		res.State = StatePartialFailure
		return err
	}
	res.AuditPath = path
	if res.Trail.FilesProcessed > 0 && !res.Trail.Aborted {
		res.State = StateSealed
	} else {
		res.State = StatePartialFailure
	}
	return nil
}

// processOne runs the full pipeline for a single record: read, rewrite,
// durable commit, per-file validation. Any failure quarantines the unmodified
// source.
func (o *Orchestrator) processOne(name string, logger *slog.Logger) recordOutcome {
	out := recordOutcome{name: name}
	src := filepath.Join(o.opts.Input, name)

	rec, err := dataset.ReadFile(src)
	if err != nil {
		out.err = &RecordReadError{Path: src, Cause: err}
		out.reason = "read"
		o.quarantine(&out, src, logger)
		return out
	}

	out.summary = rewriter.Summarize(rec)
	anon := rewriter.Rewrite(rec, dataset.Stem(name), o.policy)

	dest := filepath.Join(o.opts.Output, name)
	if err := o.writer.Commit(anon, dest); err != nil {
		out.err = err
		out.reason = "commit"
		o.quarantine(&out, src, logger)
		return out
	}

	if !o.valid.ValidateFile(dest) {
		out.err = &ValidationViolation{Path: dest}
		out.reason = "validate"
		o.quarantine(&out, src, logger)
		return out
	}

	out.ok = true
	return out
}

// quarantine copies the unmodified source into the quarantine directory.
// Copies are append-only: a name collision gets a uniqueness suffix instead
// of overwriting an earlier copy. The source is never deleted.
func (o *Orchestrator) quarantine(out *recordOutcome, src string, logger *slog.Logger) {
	if err := os.MkdirAll(o.opts.Quarantine, 0o755); err != nil {
		out.quarantineErr = err
		logger.Error("quarantine directory unavailable", "error", err)
		return
	}

	name := filepath.Base(src)
	dst := filepath.Join(o.opts.Quarantine, name)
	if _, err := os.Stat(dst); err == nil {
		dst = filepath.Join(o.opts.Quarantine,
			fmt.Sprintf("%s_%s%s", dataset.Stem(name), uuid.New().String()[:8], dataset.Extension))
	}

	if err := dataset.CopyFile(src, dst); err != nil {
		out.quarantineErr = err
		logger.Error("quarantine copy failed", "source", src, "error", err)
		return
	}
	out.quarantinePath = dst
	logger.Warn("record quarantined", "source", src, "quarantine", dst)
}
