package vault

import (
	"bytes"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand.Read() failed: %v", err)
	}
	v, err := New(key)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return v
}

// TestSealOpen_RoundTrip tests open(seal(x)) == x for arbitrary payloads.
func TestSealOpen_RoundTrip(t *testing.T) {
	v := newTestVault(t)

	payloads := [][]byte{
		[]byte(`["{\"PatientName\":\"Doe^John\"}"]`),
		[]byte(""),
		bytes.Repeat([]byte{0x00, 0xff}, 4096),
	}

	for _, payload := range payloads {
		token, err := v.Seal(payload)
		if err != nil {
			t.Fatalf("Seal() failed: %v", err)
		}
		opened, err := v.OpenSealed(token)
		if err != nil {
			t.Fatalf("OpenSealed() failed: %v", err)
		}
		if !bytes.Equal(opened, payload) {
			t.Errorf("round trip mismatch for %d-byte payload", len(payload))
		}
	}
}

// TestSeal_NonDeterministic tests that sealing the same payload twice yields
// different tokens (fresh nonce per seal).
func TestSeal_NonDeterministic(t *testing.T) {
	v := newTestVault(t)

	a, err := v.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}
	b, err := v.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}
	if a == b {
		t.Errorf("two seals of the same payload produced identical tokens")
	}
}

// TestOpenSealed_WrongKey tests that a token sealed under a different key
// fails with DecryptionError.
func TestOpenSealed_WrongKey(t *testing.T) {
	sealer := newTestVault(t)
	opener := newTestVault(t)

	token, err := sealer.Seal([]byte("phi summary"))
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}

	_, err = opener.OpenSealed(token)
	if err == nil {
		t.Fatalf("OpenSealed() with wrong key should fail")
	}
	var decErr *DecryptionError
	if !errors.As(err, &decErr) {
		t.Errorf("expected DecryptionError, got %T: %v", err, err)
	}
}

// TestOpenSealed_Malformed tests malformed token handling.
func TestOpenSealed_Malformed(t *testing.T) {
	v := newTestVault(t)

	for _, token := range []string{"", "not base64!!", "AAAA"} {
		_, err := v.OpenSealed(token)
		var decErr *DecryptionError
		if !errors.As(err, &decErr) {
			t.Errorf("token %q: expected DecryptionError, got %v", token, err)
		}
	}
}

// TestLoadOrCreateKey_Bootstrap tests the one-time idempotent bootstrap.
func TestLoadOrCreateKey_Bootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "encryption.key")

	first, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("LoadOrCreateKey() failed: %v", err)
	}
	if len(first) != KeySize {
		t.Fatalf("expected %d-byte key, got %d", KeySize, len(first))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}

	// Subsequent loads must return the same key.
	second, err := LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("second LoadOrCreateKey() failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("bootstrap is not idempotent: key changed between loads")
	}
}

// TestLoadOrCreateKey_RejectsCorrupt tests truncated and world-readable keys.
func TestLoadOrCreateKey_RejectsCorrupt(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.key")
	if err := os.WriteFile(short, []byte("too short"), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if _, err := LoadOrCreateKey(short); err == nil {
		t.Errorf("truncated key file should be rejected")
	}

	loose := filepath.Join(dir, "loose.key")
	if err := os.WriteFile(loose, make([]byte, KeySize), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if _, err := LoadOrCreateKey(loose); err == nil {
		t.Errorf("world-readable key file should be rejected")
	}
}

// TestNew_RejectsBadKeyLength tests key length validation.
func TestNew_RejectsBadKeyLength(t *testing.T) {
	if _, err := New(make([]byte, 16)); err == nil {
		t.Errorf("16-byte key should be rejected")
	}
	if _, err := New(nil); err == nil {
		t.Errorf("nil key should be rejected")
	}
}
