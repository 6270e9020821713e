// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// Package haas implements the Haas CNC mill device driver. The mill
// speaks a line-oriented macro protocol over its RS-232 link: the
// driver writes a "?Q600 <macro>" query per variable and parses the
// comma-separated reply line.
package haas

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopfloor-works/shopfloor/machine"
	"github.com/shopfloor-works/shopfloor/telemetry"
)

// Compile-time interface check.
var _ machine.Interface = (*Device)(nil)

// lineTerminator closes every macro query on the wire.
const lineTerminator = "\r\n"

// replyValueField is the index of the value in the comma-separated
// reply ("MACRO, <name>, <value>").
const replyValueField = 2

// maxValueLength caps the parsed value text. Controller replies pad
// values with trailing garbage past this width.
const maxValueLength = 8

// minReplyLength separates real reply lines from the echo and prompt
// noise the controller interleaves on the serial link.
const minReplyLength = 5

// Query names one controller variable: the Q600 macro number that
// requests it and the reading group and field it lands in.
type Query struct {
	Group string
	Field string
	Macro int
}

// DefaultQueries covers the variables a stock mill exposes: coolant
// level, spindle speed, and the five-axis machine and work coordinate
// sets.
var DefaultQueries = []Query{
	{Group: "levels", Field: "coolant_level", Macro: 1094},
	{Group: "rates", Field: "spindle_speed", Macro: 3027},
	{Group: "machine_coords", Field: "x", Macro: 5021},
	{Group: "machine_coords", Field: "y", Macro: 5022},
	{Group: "machine_coords", Field: "z", Macro: 5023},
	{Group: "machine_coords", Field: "a", Macro: 5024},
	{Group: "machine_coords", Field: "b", Macro: 5025},
	{Group: "work_coords", Field: "x", Macro: 5041},
	{Group: "work_coords", Field: "y", Macro: 5042},
	{Group: "work_coords", Field: "z", Macro: 5043},
	{Group: "work_coords", Field: "a", Macro: 5044},
	{Group: "work_coords", Field: "b", Macro: 5045},
}

// Device queries a Haas controller over a command transport.
type Device struct {
	transport machine.CommandTransport
	queries   []Query
}

// New creates a mill driver over an open transport. A nil or empty
// query table selects DefaultQueries. The driver takes ownership:
// Close closes the transport.
func New(transport machine.CommandTransport, queries []Query) *Device {
	if len(queries) == 0 {
		queries = DefaultQueries
	}
	return &Device{transport: transport, queries: queries}
}

// Poll runs the full query table against the controller and assembles
// one reading. Any transport or parse failure aborts the cycle.
func (d *Device) Poll() (telemetry.Reading, error) {
	reading := telemetry.Reading{}
	for _, q := range d.queries {
		value, err := d.query(q.Macro)
		if err != nil {
			return nil, fmt.Errorf("querying %s.%s: %w", q.Group, q.Field, err)
		}
		group, ok := reading[q.Group]
		if !ok {
			group = map[string]any{}
			reading[q.Group] = group
		}
		group[q.Field] = value
	}
	return reading, nil
}

// Close releases the transport.
func (d *Device) Close() error {
	return d.transport.Close()
}

// query sends one macro request and parses the reply value. Numeric
// values decode as float64; anything else stays a string.
func (d *Device) query(macro int) (any, error) {
	command := fmt.Sprintf("?Q600 %d%s", macro, lineTerminator)
	if err := d.transport.Send([]byte(command)); err != nil {
		return nil, fmt.Errorf("sending macro %d: %w", macro, err)
	}

	// The controller echoes the query and emits blank prompt lines
	// before the reply; skip anything too short to be one.
	var line string
	for {
		raw, err := d.transport.ReadLine()
		if err != nil {
			return nil, fmt.Errorf("reading macro %d reply: %w", macro, err)
		}
		line = string(raw)
		if len(line) >= minReplyLength {
			break
		}
	}

	fields := strings.Split(line, ",")
	if len(fields) <= replyValueField {
		return nil, fmt.Errorf("macro %d reply %q has %d fields: %w",
			macro, line, len(fields), machine.ErrMalformedFrame)
	}
	text := strings.TrimSpace(fields[replyValueField])
	if len(text) > maxValueLength {
		text = text[:maxValueLength]
	}
	if number, err := strconv.ParseFloat(text, 64); err == nil {
		return number, nil
	}
	return text, nil
}
