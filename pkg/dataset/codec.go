package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Extension is the filename suffix for imaging records in the JSON model.
const Extension = ".dcm.json"

// wireElement is the on-disk shape of a data element, following the DICOM
// JSON Model field names.
type wireElement struct {
	VR    string `json:"vr"`
	Value []any  `json:"Value,omitempty"`
}

// DecodeError reports a record that could not be decoded or failed
// structural validation.
type DecodeError struct {
	Reason string
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("decode error: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// EncodeJSON serializes a record to indented DICOM JSON Model bytes with a
// stable key order.
func EncodeJSON(r *Record) ([]byte, error) {
	wire := make(map[string]wireElement, r.Len())
	for _, tag := range r.Tags() {
		elem, _ := r.Get(tag)
		wire[tag.String()] = wireElement{VR: elem.VR, Value: elem.Value}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(wire); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeJSON is the primary decode path. It parses DICOM JSON Model bytes
// with encoding/json and applies structural validation.
func DecodeJSON(data []byte) (*Record, error) {
	var wire map[string]wireElement
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&wire); err != nil {
		return nil, &DecodeError{Reason: "invalid JSON", Cause: err}
	}
	// A record is exactly one JSON object; trailing content is corruption.
	if dec.More() {
		return nil, &DecodeError{Reason: "trailing content after record object"}
	}
	return fromWire(wire)
}

// fromWire converts a decoded wire map into a Record, validating tags, VRs,
// and value kinds. Shared by both decode paths.
func fromWire(wire map[string]wireElement) (*Record, error) {
	record := New()
	for key, elem := range wire {
		tag, err := ParseTag(key)
		if err != nil {
			return nil, &DecodeError{Reason: "invalid tag key", Cause: err}
		}
		if err := validateVR(elem.VR); err != nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("tag %s", key), Cause: err}
		}
		for i, v := range elem.Value {
			switch v.(type) {
			case string, float64, int, int64, uint64, bool, nil:
			default:
				return nil, &DecodeError{
					Reason: fmt.Sprintf("tag %s value %d: unsupported kind %T", key, i, v),
				}
			}
		}
		record.Set(tag, Element{VR: elem.VR, Value: elem.Value})
	}
	return record, nil
}

// validateVR checks that a value representation is a two-letter uppercase code.
func validateVR(vr string) error {
	if len(vr) != 2 {
		return fmt.Errorf("invalid VR %q: expected 2 characters", vr)
	}
	for _, c := range vr {
		if c < 'A' || c > 'Z' {
			return fmt.Errorf("invalid VR %q: expected uppercase letters", vr)
		}
	}
	return nil
}

// ReadFile reads and decodes a record file using the primary decode path.
func ReadFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", path, err)
	}
	return DecodeJSON(data)
}
