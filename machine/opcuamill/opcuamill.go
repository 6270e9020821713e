// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// Package opcuamill implements a device driver for milling machines
// that expose their state over OPC UA. Each poll issues one batched
// read of the configured node table against the machine's server.
package opcuamill

import (
	"context"
	"fmt"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/shopfloor-works/shopfloor/machine"
	"github.com/shopfloor-works/shopfloor/telemetry"
)

// Compile-time interface check.
var _ machine.Interface = (*Device)(nil)

// defaultReadTimeout bounds one batched read against the server.
const defaultReadTimeout = 5 * time.Second

// Node maps one OPC UA node to a reading group and field.
type Node struct {
	Group  string
	Field  string
	NodeID string
}

// Config holds the session and node table settings for one mill.
type Config struct {
	Endpoint       string
	SecurityMode   string
	SecurityPolicy string
	Username       string
	Password       string
	ReadTimeout    time.Duration
	Nodes          []Node
}

// reader is the slice of the OPC UA client the driver uses. The
// production implementation is *opcua.Client.
type reader interface {
	Read(ctx context.Context, req *ua.ReadRequest) (*ua.ReadResponse, error)
	Close(ctx context.Context) error
}

// Device reads a node table from an OPC UA server.
type Device struct {
	client  reader
	nodes   []Node
	ids     []*ua.NodeID
	timeout time.Duration
}

// Dial connects to the mill's OPC UA server and returns a driver over
// the session.
func Dial(ctx context.Context, cfg Config) (*Device, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("opcua mill: endpoint is required")
	}
	if len(cfg.Nodes) == 0 {
		return nil, fmt.Errorf("opcua mill: at least one node is required")
	}

	opts := []opcua.Option{
		opcua.SecurityModeString(orDefault(cfg.SecurityMode, "None")),
		opcua.SecurityPolicy(orDefault(cfg.SecurityPolicy, "None")),
		opcua.AutoReconnect(true),
	}
	if cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(cfg.Username, cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}

	client, err := opcua.NewClient(cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("opcua client for %s: %w", cfg.Endpoint, err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Endpoint, err)
	}
	return newDevice(client, cfg)
}

func newDevice(client reader, cfg Config) (*Device, error) {
	ids := make([]*ua.NodeID, len(cfg.Nodes))
	for i, node := range cfg.Nodes {
		id, err := ua.ParseNodeID(node.NodeID)
		if err != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), defaultReadTimeout)
			defer cancel()
			_ = client.Close(closeCtx)
			return nil, fmt.Errorf("parsing node id %q: %w", node.NodeID, err)
		}
		ids[i] = id
	}
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = defaultReadTimeout
	}
	return &Device{client: client, nodes: cfg.Nodes, ids: ids, timeout: timeout}, nil
}

// Poll reads every configured node in one request and assembles a
// reading. A failed read or a bad per-node status aborts the cycle.
func (d *Device) Poll() (telemetry.Reading, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	req := &ua.ReadRequest{
		TimestampsToReturn: ua.TimestampsToReturnNeither,
		NodesToRead:        make([]*ua.ReadValueID, len(d.ids)),
	}
	for i, id := range d.ids {
		req.NodesToRead[i] = &ua.ReadValueID{NodeID: id, AttributeID: ua.AttributeIDValue}
	}

	resp, err := d.client.Read(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("reading node table: %w", err)
	}
	if len(resp.Results) != len(d.nodes) {
		return nil, fmt.Errorf("read returned %d results for %d nodes: %w",
			len(resp.Results), len(d.nodes), machine.ErrMalformedFrame)
	}

	reading := telemetry.Reading{}
	for i, node := range d.nodes {
		result := resp.Results[i]
		if result.Status != ua.StatusOK {
			return nil, fmt.Errorf("node %s status %s: %w", node.NodeID, result.Status, machine.ErrMalformedFrame)
		}
		group, ok := reading[node.Group]
		if !ok {
			group = map[string]any{}
			reading[node.Group] = group
		}
		group[node.Field] = variantValue(result.Value)
	}
	return reading, nil
}

// Close shuts the OPC UA session down.
func (d *Device) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	return d.client.Close(ctx)
}

// variantValue converts a variant into a reading value. Numeric types
// widen to float64 so readings stay uniform across servers; bools and
// strings pass through.
func variantValue(v *ua.Variant) any {
	if v == nil {
		return nil
	}
	switch val := v.Value().(type) {
	case float32:
		return float64(val)
	case float64:
		return val
	case int8:
		return float64(val)
	case uint8:
		return float64(val)
	case int16:
		return float64(val)
	case uint16:
		return float64(val)
	case int32:
		return float64(val)
	case uint32:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	default:
		return val
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
