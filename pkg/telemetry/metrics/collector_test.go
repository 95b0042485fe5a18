package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestCollector_Counters tests the per-record counters.
func TestCollector_Counters(t *testing.T) {
	c := NewCollector(nil, nil)

	c.RecordProcessed()
	c.RecordProcessed()
	c.RecordError("read")
	c.RecordError("commit")
	c.RecordError("commit")
	c.RecordQuarantined()

	if got := testutil.ToFloat64(c.recordsProcessed); got != 2 {
		t.Errorf("records_processed_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.recordErrors.WithLabelValues("commit")); got != 2 {
		t.Errorf("record_errors_total{reason=commit} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.recordsQuarantined); got != 1 {
		t.Errorf("records_quarantined_total = %v, want 1", got)
	}
}

// TestCollector_Disabled tests that a disabled collector records nothing.
func TestCollector_Disabled(t *testing.T) {
	c := NewCollector(&Config{Enabled: false}, nil)

	c.RecordProcessed()
	c.RecordError("read")
	c.RecordBatch("success", time.Second)

	if got := testutil.ToFloat64(c.recordsProcessed); got != 0 {
		t.Errorf("disabled collector recorded %v processed records", got)
	}
}

// TestCollector_Handler tests the exposition endpoint.
func TestCollector_Handler(t *testing.T) {
	c := NewCollector(nil, nil)
	c.RecordProcessed()
	c.RecordBatch("success", 2*time.Second)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}

	out := string(body)
	for _, metric := range []string{
		"medscrub_batch_records_processed_total",
		"medscrub_batch_batches_total",
		"medscrub_batch_duration_seconds_bucket",
	} {
		if !strings.Contains(out, metric) {
			t.Errorf("exposition missing %s", metric)
		}
	}
}

// TestCollector_PrivateRegistries tests that two collectors never collide.
func TestCollector_PrivateRegistries(t *testing.T) {
	a := NewCollector(nil, nil)
	b := NewCollector(nil, nil)

	a.RecordProcessed()
	if got := testutil.ToFloat64(b.recordsProcessed); got != 0 {
		t.Errorf("registries shared state: %v", got)
	}
}
