// Package jsonutil handles loosely typed JSON values in generation
// replies, where the model may return numbers or arrays in place of the
// strings the schema asks for.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexibleString converts a json.RawMessage to a string, tolerating
// numbers and booleans. Returns empty string for null/absent values.
func FlexibleString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return strings.Trim(string(raw), `"`)
}

// FlexibleStringSlice converts a json.RawMessage to a string slice,
// tolerating a single scalar where an array was expected. Returns nil
// for null/absent values.
func FlexibleStringSlice(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s := FlexibleString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	if s := FlexibleString(raw); s != "" {
		return []string{s}
	}
	return nil
}
