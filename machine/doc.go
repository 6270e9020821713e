// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// Package machine defines the device-side contract of the shopfloor
// pipeline and the generic polling loop that drives it.
//
// An [Interface] is the single capability a device driver implements:
// block until one reading is available. Concrete drivers (lathe, haas,
// opcuamill) live in subpackages and consume a transport — a
// [ByteTransport] for framed binary devices, a [CommandTransport] for
// request/response line protocols. Transport construction (Bluetooth
// socket, serial port) is outside this module; drivers accept the
// interface.
//
// A [Poller] owns one driver and one publish socket and runs the
// poll → decode → publish loop on its own goroutine. Lifecycle is
// Created → Running → Stopping → Stopped: Start launches the loop,
// Stop asynchronously requests termination (the current blocking poll
// is not interrupted), and Done closes when the loop has exited and
// released its transport and socket. Each poller's resources are
// owned by its goroutine alone; the publish socket is the only way
// data leaves it.
package machine
