// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec wraps CBOR encoding for every shopfloor wire payload.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// The same reading always produces identical bytes, which keeps
// payloads comparable in tests and stable across republish hops.
//
// Decoding accepts standard CBOR and ignores unknown fields so that
// older aggregators can receive envelopes from newer pollers. Any-typed
// targets decode maps as map[string]any; reading field values are
// scalars, so no other container type appears on the wire.
//
// Consumers import only this package, never fxamacker/cbor directly.
package codec
