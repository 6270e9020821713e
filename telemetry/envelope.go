// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"fmt"

	"github.com/shopfloor-works/shopfloor/lib/codec"
)

// SchemaVersion is the current wire schema version. Bump only for
// incompatible changes; additive fields ride on CBOR's
// ignore-unknown-fields decoding.
const SchemaVersion uint16 = 1

// Envelope is the poller → aggregator payload. The machine name is
// not part of the envelope: it travels as the pub/sub topic.
type Envelope struct {
	SchemaVersion uint16  `cbor:"v"`
	Reading       Reading `cbor:"reading"`
}

// TaggedReading is the aggregator → sink payload: an envelope with
// the source machine name folded in.
type TaggedReading struct {
	SchemaVersion uint16  `cbor:"v"`
	Machine       string  `cbor:"machine"`
	Reading       Reading `cbor:"reading"`
}

// IsSentinel reports whether payload is the shutdown sentinel: a
// zero-length payload that unblocks a pending receive and carries no
// reading.
func IsSentinel(payload []byte) bool {
	return len(payload) == 0
}

// EncodeEnvelope encodes a reading as a current-version envelope.
func EncodeEnvelope(reading Reading) ([]byte, error) {
	payload, err := codec.Marshal(Envelope{
		SchemaVersion: SchemaVersion,
		Reading:       reading,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding reading envelope: %w", err)
	}
	return payload, nil
}

// DecodeEnvelope decodes an envelope payload and returns its reading.
// Fails on sentinel payloads and on schema version mismatches.
func DecodeEnvelope(payload []byte) (Reading, error) {
	if IsSentinel(payload) {
		return nil, fmt.Errorf("decoding envelope: empty payload (sentinel)")
	}
	var envelope Envelope
	if err := codec.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decoding reading envelope: %w", err)
	}
	if envelope.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d (want %d)", envelope.SchemaVersion, SchemaVersion)
	}
	return envelope.Reading, nil
}

// EncodeTagged encodes a reading tagged with its source machine for
// sink delivery.
func EncodeTagged(machine string, reading Reading) ([]byte, error) {
	payload, err := codec.Marshal(TaggedReading{
		SchemaVersion: SchemaVersion,
		Machine:       machine,
		Reading:       reading,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding tagged reading for %q: %w", machine, err)
	}
	return payload, nil
}

// DecodeTagged decodes a sink payload.
func DecodeTagged(payload []byte) (TaggedReading, error) {
	var tagged TaggedReading
	if err := codec.Unmarshal(payload, &tagged); err != nil {
		return TaggedReading{}, fmt.Errorf("decoding tagged reading: %w", err)
	}
	if tagged.SchemaVersion != SchemaVersion {
		return TaggedReading{}, fmt.Errorf("unsupported schema version %d (want %d)", tagged.SchemaVersion, SchemaVersion)
	}
	return tagged, nil
}
