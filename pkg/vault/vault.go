package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// DecryptionError reports a payload that could not be opened, either because
// it was sealed with a different key or because the ciphertext is malformed.
type DecryptionError struct {
	Cause error
}

func (e *DecryptionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decryption failed: %v", e.Cause)
	}
	return "decryption failed"
}

func (e *DecryptionError) Unwrap() error {
	return e.Cause
}

// Vault seals and opens PHI payloads with an AES-256-GCM key.
// Construct one explicitly and pass it down; there is no ambient key state.
type Vault struct {
	aead cipher.AEAD
}

// New builds a vault from a raw 32-byte key.
func New(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length %d: expected %d bytes", len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init GCM: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// LoadOrCreateKey returns the key persisted at path, generating and
// persisting a new one on first use. The bootstrap is idempotent: concurrent
// first runs race on an exclusive create and the loser re-reads the winner's
// key. The key file is raw binary with 0600 permissions and is never rotated
// automatically.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := readKeyFile(path)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	key = make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			// Another process won the bootstrap; use its key.
			return readKeyFile(path)
		}
		return nil, fmt.Errorf("create key file: %w", err)
	}
	if _, err := f.Write(key); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close key file: %w", err)
	}
	return key, nil
}

// Open is shorthand for LoadOrCreateKey followed by New.
func Open(keyPath string) (*Vault, error) {
	key, err := LoadOrCreateKey(keyPath)
	if err != nil {
		return nil, err
	}
	return New(key)
}

// readKeyFile loads and validates a persisted key, enforcing restrictive
// permissions the same way secret files are checked elsewhere.
func readKeyFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("key path is not a regular file: %s", path)
	}
	if mode := info.Mode().Perm(); mode != 0o600 && mode != 0o400 {
		return nil, fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, mode)
	}
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("corrupt key file %s: %d bytes, expected %d", path, len(key), KeySize)
	}
	return key, nil
}

// Seal encrypts data and returns a base64 token (nonce prepended to the
// GCM ciphertext) suitable for embedding in a JSON audit record.
func (v *Vault) Seal(data []byte) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, data, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenSealed decrypts a token produced by Seal. A token sealed with a
// different key, or any malformed input, yields a DecryptionError.
func (v *Vault) OpenSealed(token string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, &DecryptionError{Cause: err}
	}
	nonceSize := v.aead.NonceSize()
	if len(raw) < nonceSize {
		return nil, &DecryptionError{Cause: errors.New("ciphertext too short")}
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	data, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &DecryptionError{Cause: err}
	}
	return data, nil
}
