// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package opcuamill

import (
	"context"
	"fmt"
	"time"

	"github.com/shopfloor-works/shopfloor/machine"
)

// FromConfig is the OPC UA mill driver factory. Params:
//
//	endpoint:        OPC UA server endpoint (required)
//	nodes:           list of mappings with group, field, and node_id
//	                 keys (required)
//	security_mode:   None, Sign, or SignAndEncrypt (default None)
//	security_policy: OPC UA policy URI suffix (default None)
//	username:        optional; empty selects anonymous auth
//	password:        optional
//	read_timeout:    Go duration string (default 5s)
func FromConfig(cfg machine.Config) (machine.Interface, error) {
	build := func() (Config, error) {
		var out Config
		endpoint, err := machine.StringParam(cfg.Params, "endpoint")
		if err != nil {
			return out, err
		}
		mode, err := machine.OptionalStringParam(cfg.Params, "security_mode", "")
		if err != nil {
			return out, err
		}
		policy, err := machine.OptionalStringParam(cfg.Params, "security_policy", "")
		if err != nil {
			return out, err
		}
		username, err := machine.OptionalStringParam(cfg.Params, "username", "")
		if err != nil {
			return out, err
		}
		password, err := machine.OptionalStringParam(cfg.Params, "password", "")
		if err != nil {
			return out, err
		}
		timeoutText, err := machine.OptionalStringParam(cfg.Params, "read_timeout", "")
		if err != nil {
			return out, err
		}
		var timeout time.Duration
		if timeoutText != "" {
			timeout, err = time.ParseDuration(timeoutText)
			if err != nil {
				return out, fmt.Errorf("param %q: %w", "read_timeout", err)
			}
		}
		nodes, err := nodesFromParams(cfg.Params)
		if err != nil {
			return out, err
		}
		return Config{
			Endpoint:       endpoint,
			SecurityMode:   mode,
			SecurityPolicy: policy,
			Username:       username,
			Password:       password,
			ReadTimeout:    timeout,
			Nodes:          nodes,
		}, nil
	}

	millCfg, err := build()
	if err != nil {
		return nil, fmt.Errorf("opcuamill driver: %w", err)
	}
	device, err := Dial(context.Background(), millCfg)
	if err != nil {
		return nil, fmt.Errorf("opcuamill driver: %w", err)
	}
	return device, nil
}

func nodesFromParams(params map[string]any) ([]Node, error) {
	entries, err := machine.MapSliceParam(params, "nodes")
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("missing required param %q", "nodes")
	}
	nodes := make([]Node, len(entries))
	for i, entry := range entries {
		group, err := machine.StringParam(entry, "group")
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		field, err := machine.StringParam(entry, "field")
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		nodeID, err := machine.StringParam(entry, "node_id")
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		nodes[i] = Node{Group: group, Field: field, NodeID: nodeID}
	}
	return nodes, nil
}
