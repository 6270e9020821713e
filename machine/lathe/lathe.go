// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// Package lathe implements the CNC lathe (Ecoca) device driver. The
// lathe pushes fixed-length binary frames over a Bluetooth link; the
// driver reads one frame per poll cycle from a [machine.ByteTransport]
// and decodes it with the frame codec in this package.
package lathe

import (
	"fmt"

	"github.com/shopfloor-works/shopfloor/machine"
	"github.com/shopfloor-works/shopfloor/telemetry"
)

// Compile-time interface check.
var _ machine.Interface = (*Device)(nil)

// Device reads lathe frames from a byte transport.
type Device struct {
	transport machine.ByteTransport
}

// New creates a lathe driver over an open transport. The driver takes
// ownership: Close closes the transport.
func New(transport machine.ByteTransport) *Device {
	return &Device{transport: transport}
}

// Poll blocks until the lathe sends one frame, then decodes it.
func (d *Device) Poll() (telemetry.Reading, error) {
	frame, err := d.transport.Read(FrameLength)
	if err != nil {
		return nil, fmt.Errorf("reading lathe frame: %w", err)
	}
	return Decode(frame)
}

// Close releases the transport.
func (d *Device) Close() error {
	return d.transport.Close()
}
