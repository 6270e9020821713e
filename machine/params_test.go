// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import "testing"

func TestStringParam(t *testing.T) {
	params := map[string]any{"address": "10.0.0.5:7000", "port": 7000, "empty": ""}

	if got, err := StringParam(params, "address"); err != nil || got != "10.0.0.5:7000" {
		t.Errorf("StringParam(address) = %q, %v", got, err)
	}
	if _, err := StringParam(params, "missing"); err == nil {
		t.Error("StringParam(missing) succeeded")
	}
	if _, err := StringParam(params, "port"); err == nil {
		t.Error("StringParam accepted an int")
	}
	if _, err := StringParam(params, "empty"); err == nil {
		t.Error("StringParam accepted an empty string")
	}
}

func TestOptionalStringParam(t *testing.T) {
	params := map[string]any{"mode": "Sign"}

	if got, err := OptionalStringParam(params, "mode", "None"); err != nil || got != "Sign" {
		t.Errorf("OptionalStringParam(mode) = %q, %v", got, err)
	}
	if got, err := OptionalStringParam(params, "absent", "None"); err != nil || got != "None" {
		t.Errorf("OptionalStringParam(absent) = %q, %v", got, err)
	}
}

func TestIntParam(t *testing.T) {
	params := map[string]any{"macro": 3027, "float": 5021.0, "frac": 1.5, "text": "7"}

	if got, err := IntParam(params, "macro"); err != nil || got != 3027 {
		t.Errorf("IntParam(macro) = %d, %v", got, err)
	}
	if got, err := IntParam(params, "float"); err != nil || got != 5021 {
		t.Errorf("IntParam(float) = %d, %v", got, err)
	}
	if _, err := IntParam(params, "frac"); err == nil {
		t.Error("IntParam accepted a fraction")
	}
	if _, err := IntParam(params, "text"); err == nil {
		t.Error("IntParam accepted a string")
	}
}

func TestMapSliceParam(t *testing.T) {
	params := map[string]any{
		"queries": []any{
			map[string]any{"group": "rates", "field": "spindle_speed", "macro": 3027},
		},
		"scalar": "x",
	}

	entries, err := MapSliceParam(params, "queries")
	if err != nil || len(entries) != 1 {
		t.Fatalf("MapSliceParam(queries) = %v, %v", entries, err)
	}
	if entries[0]["field"] != "spindle_speed" {
		t.Errorf("entry = %v", entries[0])
	}

	if got, err := MapSliceParam(params, "absent"); err != nil || got != nil {
		t.Errorf("MapSliceParam(absent) = %v, %v", got, err)
	}
	if _, err := MapSliceParam(params, "scalar"); err == nil {
		t.Error("MapSliceParam accepted a scalar")
	}
}
