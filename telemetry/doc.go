// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry defines the data model that flows from machine
// pollers through the aggregator to downstream sinks.
//
// A [Reading] is one poll cycle's worth of machine state: categories
// ("status", "rates") mapping field names to scalar values. Readings
// are ephemeral — produced, published, forwarded, and discarded; no
// component stores them.
//
// On the wire a reading travels as a versioned CBOR [Envelope]
// (poller → aggregator, with the machine name carried separately as
// the pub/sub topic) or as a [TaggedReading] (aggregator → sink, with
// the machine name folded into the payload). The schema version field
// lets sinks reject payloads from incompatible producers instead of
// misinterpreting them; CBOR's ignore-unknown-fields decoding covers
// additive evolution within a version.
//
// A zero-length payload is the shutdown sentinel used to unblock a
// pending receive. It is never a valid envelope; check [IsSentinel]
// before decoding.
package telemetry
