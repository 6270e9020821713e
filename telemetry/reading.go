// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

// Reading maps a category name to a map of field name → scalar value
// (bool, integer, float, or string). Produced once per poll cycle.
//
// Decoded readings carry CBOR's canonical scalar types: integers come
// back as uint64 or int64 regardless of the width they were encoded
// from. Consumers that care about a specific width convert at the
// point of use.
type Reading map[string]map[string]any

// Clone returns a deep copy of the reading. Category and field maps
// are copied; scalar values are shared (they are immutable).
func (r Reading) Clone() Reading {
	if r == nil {
		return nil
	}
	out := make(Reading, len(r))
	for category, fields := range r {
		copied := make(map[string]any, len(fields))
		for name, value := range fields {
			copied[name] = value
		}
		out[category] = copied
	}
	return out
}
