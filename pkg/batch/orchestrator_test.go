package batch

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"meridian-hq/medscrub/pkg/anonymize/policy"
	"meridian-hq/medscrub/pkg/anonymize/validator"
	"meridian-hq/medscrub/pkg/anonymize/writer"
	"meridian-hq/medscrub/pkg/audit"
	"meridian-hq/medscrub/pkg/dataset"
	"meridian-hq/medscrub/pkg/vault"
)

type testEnv struct {
	input      string
	output     string
	quarantine string
	auditDir   string
	vault      *vault.Vault
	orch       *Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()

	key := make([]byte, vault.KeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand.Read() failed: %v", err)
	}
	v, err := vault.New(key)
	if err != nil {
		t.Fatalf("vault.New() failed: %v", err)
	}

	env := &testEnv{
		input:      filepath.Join(root, "input"),
		output:     filepath.Join(root, "output"),
		quarantine: filepath.Join(root, "quarantine"),
		auditDir:   filepath.Join(root, "audit"),
		vault:      v,
	}
	for _, dir := range []string{env.input, env.output, env.quarantine} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("MkdirAll() failed: %v", err)
		}
	}

	pol := policy.Default()
	env.orch = New(
		Options{
			Input:      env.input,
			Output:     env.output,
			Quarantine: env.quarantine,
			Workers:    2,
		},
		Deps{
			Policy:    pol,
			Writer:    writer.New(writer.NewJanitor(), nil),
			Validator: validator.New(pol, nil),
			Recorder:  audit.NewRecorder(env.auditDir, v, nil),
		},
	)
	return env
}

func (e *testEnv) writeInput(t *testing.T, stem, patientName, patientID string) {
	t.Helper()
	r := dataset.New()
	r.Set(dataset.TagPatientName, dataset.NewStringElement("PN", patientName))
	r.Set(dataset.TagPatientID, dataset.NewStringElement("LO", patientID))
	r.Set(dataset.TagPatientBirthDate, dataset.NewStringElement("DA", "19700101"))
	r.Set(dataset.TagInstitutionName, dataset.NewStringElement("LO", "General Hospital"))
	r.Set(dataset.TagSeriesInstanceUID, dataset.NewStringElement("UI", "1.2.3."+stem))

	data, err := dataset.EncodeJSON(r)
	if err != nil {
		t.Fatalf("EncodeJSON() failed: %v", err)
	}
	path := filepath.Join(e.input, stem+dataset.Extension)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
}

func (e *testEnv) auditFiles(t *testing.T) []string {
	t.Helper()
	paths, err := audit.ListSealed(e.auditDir)
	if err != nil {
		t.Fatalf("ListSealed() failed: %v", err)
	}
	return paths
}

// TestRun_CleanBatch tests the canonical three-record batch: every output
// carries the anonymized placeholders, counters line up and the sealed PHI
// payload decrypts back to the original values.
func TestRun_CleanBatch(t *testing.T) {
	env := newTestEnv(t)
	env.writeInput(t, "scan_001", "Doe^John", "P001")
	env.writeInput(t, "scan_002", "Doe^John", "P002")
	env.writeInput(t, "scan_003", "Roe^Jane", "P003")

	res, err := env.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !res.Success {
		t.Errorf("Success = false, trail errors: %v", res.Trail.Errors)
	}
	if res.State != StateSealed {
		t.Errorf("State = %s, want %s", res.State, StateSealed)
	}
	if res.Trail.FilesProcessed != 3 {
		t.Errorf("FilesProcessed = %d, want 3", res.Trail.FilesProcessed)
	}
	if len(res.Trail.Errors) != 0 {
		t.Errorf("Errors = %v, want none", res.Trail.Errors)
	}

	for _, stem := range []string{"scan_001", "scan_002", "scan_003"} {
		rec, err := dataset.ReadFile(filepath.Join(env.output, stem+dataset.Extension))
		if err != nil {
			t.Fatalf("output %s unreadable: %v", stem, err)
		}
		if got := rec.StringValue(dataset.TagPatientName); got != "ANONYMOUS" {
			t.Errorf("%s PatientName = %q, want ANONYMOUS", stem, got)
		}
		if got := rec.StringValue(dataset.TagPatientID); got != "ANON_"+stem {
			t.Errorf("%s PatientID = %q, want ANON_%s", stem, got, stem)
		}
	}

	// Exactly one sealed audit record, and it decrypts under the batch key.
	paths := env.auditFiles(t)
	if len(paths) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(paths))
	}
	if paths[0] != res.AuditPath {
		t.Errorf("AuditPath = %s, directory has %s", res.AuditPath, paths[0])
	}
	sealed, err := audit.ReadSealed(res.AuditPath)
	if err != nil {
		t.Fatalf("ReadSealed() failed: %v", err)
	}
	summaries, err := audit.DecryptPHI(env.vault, sealed)
	if err != nil {
		t.Fatalf("DecryptPHI() failed: %v", err)
	}
	if len(summaries) != 3 {
		t.Errorf("expected 3 PHI summaries, got %d", len(summaries))
	}
}

// TestRun_CorruptRecordQuarantined tests that an unreadable source is
// quarantined with an error entry while the rest of the batch succeeds.
func TestRun_CorruptRecordQuarantined(t *testing.T) {
	env := newTestEnv(t)
	env.writeInput(t, "scan_001", "Doe^John", "P001")
	if err := os.WriteFile(filepath.Join(env.input, "broken"+dataset.Extension), []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	res, err := env.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !res.Success {
		t.Errorf("Success = false, want true with one survivor")
	}
	if res.Trail.FilesProcessed != 1 {
		t.Errorf("FilesProcessed = %d, want 1", res.Trail.FilesProcessed)
	}
	if len(res.Trail.Errors) != 1 || !strings.Contains(res.Trail.Errors[0], "broken") {
		t.Errorf("expected one error naming the broken record, got %v", res.Trail.Errors)
	}

	// Quarantine holds the original bytes; the source is untouched.
	quarantined, err := os.ReadFile(filepath.Join(env.quarantine, "broken"+dataset.Extension))
	if err != nil {
		t.Fatalf("quarantine copy missing: %v", err)
	}
	if string(quarantined) != "not json" {
		t.Errorf("quarantine copy modified: %q", quarantined)
	}
	if _, err := os.Stat(filepath.Join(env.input, "broken"+dataset.Extension)); err != nil {
		t.Errorf("source record deleted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.output, "broken"+dataset.Extension)); !os.IsNotExist(err) {
		t.Errorf("broken record leaked into output")
	}
}

// TestRun_CommitFailure tests that a record whose durable write fails leaves
// no output file and lands in quarantine.
func TestRun_CommitFailure(t *testing.T) {
	env := newTestEnv(t)
	env.writeInput(t, "scan_001", "Doe^John", "P001")

	// A regular file where the output directory should be makes every
	// commit fail at the prepare step.
	if err := os.RemoveAll(env.output); err != nil {
		t.Fatalf("RemoveAll() failed: %v", err)
	}
	if err := os.WriteFile(env.output, []byte("in the way"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	res, err := env.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res.Success {
		t.Errorf("Success = true, want false")
	}
	if res.State != StatePartialFailure {
		t.Errorf("State = %s, want %s", res.State, StatePartialFailure)
	}
	if len(res.Trail.Errors) != 1 {
		t.Errorf("Errors = %v, want exactly one", res.Trail.Errors)
	}
	if _, err := os.Stat(filepath.Join(env.quarantine, "scan_001"+dataset.Extension)); err != nil {
		t.Errorf("quarantine copy missing: %v", err)
	}
	// The audit record survives the failed batch.
	if len(env.auditFiles(t)) != 1 {
		t.Errorf("audit record lost on failed batch")
	}
}

// TestRun_EmptyInput tests the partial-failure escape when nothing succeeds.
func TestRun_EmptyInput(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res.Success {
		t.Errorf("Success = true on an empty batch")
	}
	if res.State != StatePartialFailure {
		t.Errorf("State = %s, want %s", res.State, StatePartialFailure)
	}
	if len(env.auditFiles(t)) != 1 {
		t.Errorf("audit record missing for empty batch")
	}
}

// TestRun_MissingInputDirFinalizesAudit tests that a fatal setup failure
// still seals an aborted audit record.
func TestRun_MissingInputDirFinalizesAudit(t *testing.T) {
	env := newTestEnv(t)
	if err := os.RemoveAll(env.input); err != nil {
		t.Fatalf("RemoveAll() failed: %v", err)
	}

	res, err := env.orch.Run(context.Background())
	if err == nil {
		t.Fatalf("Run() should fail when input cannot be enumerated")
	}
	if !res.Trail.Aborted {
		t.Errorf("aborted marker missing")
	}

	paths := env.auditFiles(t)
	if len(paths) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(paths))
	}
	sealed, err := audit.ReadSealed(paths[0])
	if err != nil {
		t.Fatalf("ReadSealed() failed: %v", err)
	}
	if !sealed.Aborted {
		t.Errorf("sealed record lost the aborted marker")
	}
}

// TestRun_CanceledContext tests that a canceled batch still persists its
// audit record with the aborted marker.
func TestRun_CanceledContext(t *testing.T) {
	env := newTestEnv(t)
	env.writeInput(t, "scan_001", "Doe^John", "P001")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := env.orch.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res.Success {
		t.Errorf("Success = true on a canceled batch")
	}
	if !res.Trail.Aborted {
		t.Errorf("aborted marker missing")
	}
	if len(env.auditFiles(t)) != 1 {
		t.Errorf("audit record missing for canceled batch")
	}
}

// TestRun_Idempotent tests that re-running over already-anonymized records
// changes nothing and still validates.
func TestRun_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.writeInput(t, "scan_001", "Doe^John", "P001")
	env.writeInput(t, "scan_002", "Roe^Jane", "P002")

	if res, err := env.orch.Run(context.Background()); err != nil || !res.Success {
		t.Fatalf("first Run() failed: %v, success=%v", err, res != nil && res.Success)
	}

	// Second pass consumes the first pass's output.
	second := New(
		Options{
			Input:      env.output,
			Output:     filepath.Join(filepath.Dir(env.output), "output2"),
			Quarantine: env.quarantine,
			Workers:    2,
		},
		Deps{
			Policy:    policy.Default(),
			Writer:    writer.New(writer.NewJanitor(), nil),
			Validator: validator.New(policy.Default(), nil),
			Recorder:  audit.NewRecorder(env.auditDir, env.vault, nil),
		},
	)
	res, err := second.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}
	if !res.Success || res.Trail.FilesProcessed != 2 {
		t.Fatalf("second pass: success=%v processed=%d, want true/2", res.Success, res.Trail.FilesProcessed)
	}

	for _, stem := range []string{"scan_001", "scan_002"} {
		first, err := dataset.ReadFile(filepath.Join(env.output, stem+dataset.Extension))
		if err != nil {
			t.Fatalf("ReadFile() failed: %v", err)
		}
		again, err := dataset.ReadFile(filepath.Join(filepath.Dir(env.output), "output2", stem+dataset.Extension))
		if err != nil {
			t.Fatalf("ReadFile() failed: %v", err)
		}
		if !first.Equal(again) {
			t.Errorf("%s changed on re-anonymization", stem)
		}
	}
}

// TestRun_ProgressHook tests the per-record callback.
func TestRun_ProgressHook(t *testing.T) {
	env := newTestEnv(t)
	env.writeInput(t, "scan_001", "Doe^John", "P001")
	env.writeInput(t, "scan_002", "Roe^Jane", "P002")

	var mu sync.Mutex
	seen := make(map[string]bool)
	env.orch.opts.OnRecord = func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		seen[name] = err == nil
	}

	if _, err := env.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(seen) != 2 || !seen["scan_001"+dataset.Extension] || !seen["scan_002"+dataset.Extension] {
		t.Errorf("progress hook missed records: %v", seen)
	}
}
