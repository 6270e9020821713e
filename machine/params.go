// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import "fmt"

// StringParam extracts a required string from a driver's Params map.
func StringParam(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required param %q", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("param %q is %T, want string", key, raw)
	}
	if value == "" {
		return "", fmt.Errorf("param %q is empty", key)
	}
	return value, nil
}

// OptionalStringParam extracts an optional string, returning fallback
// when the key is absent.
func OptionalStringParam(params map[string]any, key, fallback string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return fallback, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("param %q is %T, want string", key, raw)
	}
	return value, nil
}

// IntParam extracts an integer param. YAML decoding yields int for
// whole numbers; float64 whole values are accepted too.
func IntParam(params map[string]any, key string) (int, error) {
	raw, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("missing required param %q", key)
	}
	switch value := raw.(type) {
	case int:
		return value, nil
	case int64:
		return int(value), nil
	case uint64:
		return int(value), nil
	case float64:
		if value != float64(int(value)) {
			return 0, fmt.Errorf("param %q is not a whole number", key)
		}
		return int(value), nil
	default:
		return 0, fmt.Errorf("param %q is %T, want integer", key, raw)
	}
}

// MapSliceParam extracts an optional list of mappings (driver node and
// macro tables). Absent keys return nil.
func MapSliceParam(params map[string]any, key string) ([]map[string]any, error) {
	raw, ok := params[key]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("param %q is %T, want list", key, raw)
	}
	entries := make([]map[string]any, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("param %q entry %d is %T, want mapping", key, i, item)
		}
		entries[i] = entry
	}
	return entries, nil
}
