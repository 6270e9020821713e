// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package lathe

import (
	"encoding/binary"
	"fmt"

	"github.com/shopfloor-works/shopfloor/machine"
	"github.com/shopfloor-works/shopfloor/telemetry"
)

// The lathe reports its state as a fixed 8-byte frame:
//
//	offset 0    door-open flag (1 byte, 0 = closed)
//	offset 1    field delimiter ','
//	offset 2-3  spindle speed (big-endian uint16)
//	offset 4    field delimiter ','
//	offset 5-6  checksum (big-endian uint16) = flag + spindle speed
//	offset 7    message terminator ';'
//
// Byte order and field widths are a fixed wire contract shared with
// the machine's controller firmware.
const (
	// FrameLength is the exact size of one lathe frame.
	FrameLength = 8

	fieldDelimiter    = ','
	messageTerminator = ';'

	flagOffset            = 0
	firstDelimiterOffset  = 1
	speedOffset           = 2
	secondDelimiterOffset = 4
	checksumOffset        = 5
	terminatorOffset      = 7
)

// Decode validates and decodes one lathe frame into a reading.
// Returns an error wrapping machine.ErrMalformedFrame when the length
// or any delimiter byte is wrong, and machine.ErrChecksum when the
// checksum field does not equal flag + spindle speed.
func Decode(frame []byte) (telemetry.Reading, error) {
	if len(frame) != FrameLength {
		return nil, fmt.Errorf("frame length %d (want %d): %w", len(frame), FrameLength, machine.ErrMalformedFrame)
	}
	for _, position := range []struct {
		offset int
		want   byte
	}{
		{firstDelimiterOffset, fieldDelimiter},
		{secondDelimiterOffset, fieldDelimiter},
		{terminatorOffset, messageTerminator},
	} {
		if got := frame[position.offset]; got != position.want {
			return nil, fmt.Errorf("delimiter at offset %d is %#x (want %q): %w",
				position.offset, got, position.want, machine.ErrMalformedFrame)
		}
	}

	doorOpen := frame[flagOffset] != 0
	spindleSpeed := binary.BigEndian.Uint16(frame[speedOffset : speedOffset+2])
	checksum := binary.BigEndian.Uint16(frame[checksumOffset : checksumOffset+2])

	expected := spindleSpeed
	if doorOpen {
		expected++
	}
	if checksum != expected {
		return nil, fmt.Errorf("checksum %d (derived %d): %w", checksum, expected, machine.ErrChecksum)
	}

	return telemetry.Reading{
		"status": {"door_open": doorOpen},
		"rates":  {"spindle_speed": spindleSpeed},
	}, nil
}

// Encode builds a valid frame from field values. The aggregator never
// encodes frames — the device does — but the mock machine and the
// codec tests need to produce byte-exact frames.
func Encode(doorOpen bool, spindleSpeed uint16) []byte {
	frame := make([]byte, FrameLength)
	if doorOpen {
		frame[flagOffset] = 1
	}
	frame[firstDelimiterOffset] = fieldDelimiter
	binary.BigEndian.PutUint16(frame[speedOffset:speedOffset+2], spindleSpeed)
	frame[secondDelimiterOffset] = fieldDelimiter
	checksum := spindleSpeed
	if doorOpen {
		checksum++
	}
	binary.BigEndian.PutUint16(frame[checksumOffset:checksumOffset+2], checksum)
	frame[terminatorOffset] = messageTerminator
	return frame
}
