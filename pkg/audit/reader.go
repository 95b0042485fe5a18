package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"meridian-hq/medscrub/pkg/anonymize/rewriter"
	"meridian-hq/medscrub/pkg/vault"
)

// ReadSealed loads a persisted audit record.
func ReadSealed(path string) (*Sealed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit record: %w", err)
	}
	var s Sealed
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode audit record %s: %w", path, err)
	}
	return &s, nil
}

// DecryptPHI opens a sealed record's PHI token with the given vault. A token
// sealed under a different key yields a vault.DecryptionError.
func DecryptPHI(v *vault.Vault, s *Sealed) ([]rewriter.Summary, error) {
	data, err := v.OpenSealed(s.PHIRemoved)
	if err != nil {
		return nil, err
	}
	var summaries []rewriter.Summary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, fmt.Errorf("decode phi summaries: %w", err)
	}
	return summaries, nil
}

// ListSealed returns the audit files under dir, newest first by filename
// timestamp.
func ListSealed(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read audit directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "audit_") && strings.HasSuffix(name, ".json") {
			names = append(names, filepath.Join(dir, name))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
