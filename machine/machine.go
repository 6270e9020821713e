// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"errors"

	"github.com/shopfloor-works/shopfloor/telemetry"
)

// ErrMalformedFrame indicates a device frame whose structure is wrong:
// a delimiter byte does not match its fixed offset, or the frame has
// the wrong length. Decode errors wrap this sentinel so the poller's
// failure policy can match with errors.Is.
var ErrMalformedFrame = errors.New("malformed frame")

// ErrChecksum indicates a structurally valid frame whose checksum
// field does not match the value derived from its payload.
var ErrChecksum = errors.New("frame checksum mismatch")

// Interface is the single capability a device driver provides: block
// until one reading is available from the hardware. Poll returns the
// decoded reading or an error; the generic poller loop applies the
// machine's failure policy to errors.
type Interface interface {
	Poll() (telemetry.Reading, error)

	// Close releases the underlying transport. After Close, Poll
	// returns errors.
	Close() error
}

// ByteTransport is a blocking byte source for framed binary devices.
// Read returns exactly n bytes or an error (connection-level failures
// included). Implementations wrap Bluetooth sockets, TCP connections,
// or serial ports.
type ByteTransport interface {
	Read(n int) ([]byte, error)
	Close() error
}

// CommandTransport is a request/response transport for line-oriented
// device protocols (the Haas serial link). Send writes one command;
// ReadLine blocks until the device answers with one line.
type CommandTransport interface {
	Send(command []byte) error
	ReadLine() ([]byte, error)
	Close() error
}

// Config is the per-machine configuration the aggregator hands to a
// driver factory. Name doubles as the pub/sub topic and must be
// unique across the machines one aggregator owns.
type Config struct {
	// Name is the machine's unique name and publish topic.
	Name string

	// Driver selects the factory used to construct the device
	// interface ("lathe", "haas", "opcuamill").
	Driver string

	// FailHard selects the decode-failure policy: true terminates the
	// poller on the first poll error, false drops the sample and
	// keeps polling.
	FailHard bool

	// Params carries driver-specific settings (transport parameters,
	// macro tables, node tables) straight from configuration.
	Params map[string]any
}

// Factory constructs a device interface from its configuration. The
// aggregator looks factories up by Config.Driver in an explicit
// registry supplied by the caller — new device types need a new
// factory, not a recompiled aggregator.
type Factory func(cfg Config) (Interface, error)
