package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlElement mirrors wireElement for the YAML decode path. YAML treats JSON
// as a subset, so the same on-disk bytes decode through a completely separate
// parser and type mapper.
type yamlElement struct {
	VR    string `yaml:"vr"`
	Value []any  `yaml:"Value"`
}

// DecodeYAML is the secondary, independent decode path. The durable writer
// re-parses every temporary file through this decoder after the primary one;
// a file only commits when two unrelated parsers agree it is well formed.
func DecodeYAML(data []byte) (*Record, error) {
	var raw map[string]yamlElement
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Reason: "invalid document (yaml path)", Cause: err}
	}
	if raw == nil {
		return nil, &DecodeError{Reason: "empty document (yaml path)"}
	}
	wire := make(map[string]wireElement, len(raw))
	for key, elem := range raw {
		values := make([]any, len(elem.Value))
		for i, v := range elem.Value {
			// yaml.v3 decodes integers as int; normalize the kinds the
			// structural validator accepts.
			switch tv := v.(type) {
			case string, float64, int, int64, uint64, bool, nil:
				values[i] = tv
			default:
				return nil, &DecodeError{
					Reason: fmt.Sprintf("tag %s value %d: unsupported kind %T (yaml path)", key, i, v),
				}
			}
		}
		wire[key] = wireElement{VR: elem.VR, Value: values}
	}
	return fromWire(wire)
}

// ReadFileYAML reads and decodes a record file using the secondary path.
func ReadFileYAML(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", path, err)
	}
	return DecodeYAML(data)
}
