// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// Package server implements the telemetry aggregator: it binds the
// fan-in subscribe socket, runs one poller per configured machine,
// tags each reading with its source machine, and forwards it to every
// configured sink.
package server
