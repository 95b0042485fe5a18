package audit

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"meridian-hq/medscrub/pkg/anonymize/rewriter"
)

// Trail is the mutable per-batch audit aggregate. A single owner (the batch
// orchestrator) mutates it for the duration of the batch; workers report
// results instead of touching the trail directly. Once the Recorder seals it,
// the persisted record is immutable.
type Trail struct {
	BatchID        string
	StartTime      time.Time
	EndTime        time.Time
	FilesProcessed int
	Errors         []string
	Warnings       []string
	Aborted        bool

	phi map[rewriter.Summary]struct{}
}

// NewTrail starts a trail for a fresh batch with a unique batch ID and the
// current time as its start.
func NewTrail() *Trail {
	return &Trail{
		BatchID:   uuid.New().String(),
		StartTime: time.Now(),
		phi:       make(map[rewriter.Summary]struct{}),
	}
}

// AddError appends a per-record error message.
func (t *Trail) AddError(msg string) {
	t.Errors = append(t.Errors, msg)
}

// AddWarning appends a warning message.
func (t *Trail) AddWarning(msg string) {
	t.Warnings = append(t.Warnings, msg)
}

// AddPHI records the pre-anonymization summary of one record. Duplicate
// summaries collapse; the trail keeps a set, not a log.
func (t *Trail) AddPHI(s rewriter.Summary) {
	if t.phi == nil {
		t.phi = make(map[rewriter.Summary]struct{})
	}
	t.phi[s] = struct{}{}
}

// PHIRemoved returns the collected summaries in a stable order.
func (t *Trail) PHIRemoved() []rewriter.Summary {
	out := make([]rewriter.Summary, 0, len(t.phi))
	for s := range t.phi {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PatientID != out[j].PatientID {
			return out[i].PatientID < out[j].PatientID
		}
		if out[i].PatientName != out[j].PatientName {
			return out[i].PatientName < out[j].PatientName
		}
		return out[i].InstitutionName < out[j].InstitutionName
	})
	return out
}
