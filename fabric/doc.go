// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// Package fabric provides the messaging layer between machine pollers,
// the aggregator, and downstream sinks.
//
// The package defines four socket roles: [PublishSocket] sends
// (topic, payload) pairs from a poller toward the aggregator,
// [SubscribeSocket] is the aggregator's fan-in receive side,
// [SinkSocket] pushes tagged payloads to one downstream consumer, and
// [PullSocket] is the consumer's receive side. [Fabric] constructs
// them. Delivery is at-most-once with no persistence or replay;
// messages from a single publisher arrive in send order, and messages
// from different publishers interleave by arrival.
//
// The production implementation, [ZMQ], maps the roles onto ZeroMQ
// socket types exactly as the deployment wires them: the aggregator
// binds a SUB socket with an empty (subscribe-all) topic filter,
// pollers dial PUB sockets to it, and sink traffic flows over
// PUSH/PULL pairs with the consumer binding. [Memory] implements the
// same interfaces in-process for deterministic tests.
package fabric
