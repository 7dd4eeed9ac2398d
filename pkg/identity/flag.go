package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Flag is a boolean that tolerates the three encodings upstream services
// have been observed to emit: true, "true" and 1. It decodes to a plain
// bool once at the JSON boundary so consumers never repeat the check.
type Flag bool

// Bool returns the flag as a plain bool.
func (f Flag) Bool() bool {
	return bool(f)
}

// UnmarshalJSON accepts booleans, numeric 0/1 and the strings
// "true"/"false"/"1"/"0" (case-insensitive). null decodes to false.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = false
		return nil
	}

	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*f = Flag(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		b, err := parseFlagString(s)
		if err != nil {
			return err
		}
		*f = Flag(b)
		return nil
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid flag value %q: %w", data, err)
		}
		*f = n != 0
		return nil
	}
}

// MarshalJSON always emits a canonical JSON boolean.
func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}

// UnmarshalYAML mirrors the JSON behavior for YAML fixture files.
func (f *Flag) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(v)
	case int:
		*f = v != 0
	case float64:
		*f = v != 0
	case string:
		b, err := parseFlagString(v)
		if err != nil {
			return err
		}
		*f = Flag(b)
	default:
		return fmt.Errorf("invalid flag value %v (%T)", raw, raw)
	}
	return nil
}

func parseFlagString(s string) (bool, error) {
	switch s {
	case "", "0", "false", "False", "FALSE", "no":
		return false, nil
	case "1", "true", "True", "TRUE", "yes":
		return true, nil
	}
	return false, fmt.Errorf("invalid flag string %q", s)
}
