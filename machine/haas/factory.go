// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package haas

import (
	"fmt"

	"github.com/shopfloor-works/shopfloor/machine"
	"github.com/shopfloor-works/shopfloor/machine/conn"
)

// FromConfig is the Haas driver factory. Params:
//
//	address: TCP address of the mill's serial adapter (required)
//	queries: optional macro table, a list of mappings with group,
//	         field, and macro keys; omit to use DefaultQueries
func FromConfig(cfg machine.Config) (machine.Interface, error) {
	address, err := machine.StringParam(cfg.Params, "address")
	if err != nil {
		return nil, fmt.Errorf("haas driver: %w", err)
	}
	queries, err := queriesFromParams(cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("haas driver: %w", err)
	}
	transport, err := conn.DialCommand(address)
	if err != nil {
		return nil, fmt.Errorf("haas driver: %w", err)
	}
	return New(transport, queries), nil
}

func queriesFromParams(params map[string]any) ([]Query, error) {
	entries, err := machine.MapSliceParam(params, "queries")
	if err != nil {
		return nil, err
	}
	queries := make([]Query, len(entries))
	for i, entry := range entries {
		group, err := machine.StringParam(entry, "group")
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		field, err := machine.StringParam(entry, "field")
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		macro, err := machine.IntParam(entry, "macro")
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		queries[i] = Query{Group: group, Field: field, Macro: macro}
	}
	return queries, nil
}
