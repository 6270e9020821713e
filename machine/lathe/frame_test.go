// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package lathe

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/shopfloor-works/shopfloor/machine"
)

func TestDecodeValidFrames(t *testing.T) {
	tests := []struct {
		name         string
		doorOpen     bool
		spindleSpeed uint16
	}{
		{"door open, high speed", true, 1234},
		{"door closed, low speed", false, 5},
		{"door closed, zero speed", false, 0},
		{"door open, zero speed", true, 0},
		{"door closed, max speed", false, 65535},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, err := Decode(Encode(tt.doorOpen, tt.spindleSpeed))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got := reading["status"]["door_open"]; got != tt.doorOpen {
				t.Errorf("door_open = %v, want %v", got, tt.doorOpen)
			}
			if got := reading["rates"]["spindle_speed"]; got != tt.spindleSpeed {
				t.Errorf("spindle_speed = %v, want %d", got, tt.spindleSpeed)
			}
		})
	}
}

func TestDecodeFieldValueRoundTrip(t *testing.T) {
	// Decoding then re-encoding from the returned fields must
	// reproduce the original frame bytes.
	for _, speed := range []uint16{0, 1, 255, 256, 1234, 65535} {
		for _, door := range []bool{false, true} {
			original := Encode(door, speed)
			reading, err := Decode(original)
			if err != nil {
				t.Fatalf("Decode(door=%v, speed=%d): %v", door, speed, err)
			}
			reencoded := Encode(
				reading["status"]["door_open"].(bool),
				reading["rates"]["spindle_speed"].(uint16),
			)
			if string(reencoded) != string(original) {
				t.Fatalf("round trip mismatch for door=%v speed=%d:\n got %x\nwant %x",
					door, speed, reencoded, original)
			}
		}
	}
}

func TestDecodeRejectsWrongDelimiters(t *testing.T) {
	// Each of the three delimiter positions, independently mutated.
	tests := []struct {
		name   string
		offset int
	}{
		{"first field delimiter", firstDelimiterOffset},
		{"second field delimiter", secondDelimiterOffset},
		{"message terminator", terminatorOffset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := Encode(false, 42)
			frame[tt.offset] = 'X'

			_, err := Decode(frame)
			if !errors.Is(err, machine.ErrMalformedFrame) {
				t.Fatalf("error %v, want ErrMalformedFrame", err)
			}
		})
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	for _, length := range []int{0, 7, 9} {
		_, err := Decode(make([]byte, length))
		if !errors.Is(err, machine.ErrMalformedFrame) {
			t.Fatalf("length %d: error %v, want ErrMalformedFrame", length, err)
		}
	}
}

func TestDecodeRejectsBadChecksum(t *testing.T) {
	tests := []struct {
		name     string
		doorOpen bool
		speed    uint16
		checksum uint16
	}{
		{"checksum zeroed", true, 1234, 0},
		{"checksum off by one", false, 500, 501},
		{"checksum ignores flag", true, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := Encode(tt.doorOpen, tt.speed)
			binary.BigEndian.PutUint16(frame[checksumOffset:checksumOffset+2], tt.checksum)

			_, err := Decode(frame)
			if !errors.Is(err, machine.ErrChecksum) {
				t.Fatalf("error %v, want ErrChecksum", err)
			}
		})
	}
}

func TestDecodeChecksumIncludesFlag(t *testing.T) {
	// flag + speed, not just speed: a frame with the door open and a
	// checksum equal to the bare speed must fail, and one with
	// speed + 1 must pass.
	frame := Encode(true, 250)
	reading, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reading["status"]["door_open"].(bool) {
		t.Fatal("door_open lost in decode")
	}
	if got := binary.BigEndian.Uint16(frame[checksumOffset : checksumOffset+2]); got != 251 {
		t.Fatalf("encoded checksum %d, want 251", got)
	}
}
