// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import "errors"

// ErrClosed is returned by socket operations after Close. Receive
// loops treat it as the end of the stream rather than a failure.
var ErrClosed = errors.New("fabric: socket closed")

// PublishSocket sends (topic, payload) pairs toward a bound
// subscriber. Topics route; payloads are opaque bytes. Safe for use
// by a single goroutine — each poller owns its publish socket
// exclusively.
type PublishSocket interface {
	Send(topic string, payload []byte) error
	Close() error
}

// SubscribeSocket is the fan-in receive side. Recv blocks until a
// message arrives or the socket is closed (ErrClosed).
type SubscribeSocket interface {
	Recv() (topic string, payload []byte, err error)
	Close() error
}

// SinkSocket pushes payloads to one downstream consumer.
type SinkSocket interface {
	Send(payload []byte) error
	Close() error
}

// PullSocket is a downstream consumer's receive side.
type PullSocket interface {
	Recv() ([]byte, error)
	Close() error
}

// Fabric constructs sockets. Bind operations return the concrete
// endpoint (with any OS-assigned port resolved) that the matching
// dial side should use.
type Fabric interface {
	// BindSubscriber binds the fan-in socket at endpoint and
	// subscribes to all topics. Port 0 requests an OS-assigned port;
	// the returned endpoint is always dialable.
	BindSubscriber(endpoint string) (SubscribeSocket, string, error)

	// DialPublisher connects a publisher to a bound subscriber.
	DialPublisher(endpoint string) (PublishSocket, error)

	// DialSink connects a push socket to a bound consumer.
	DialSink(endpoint string) (SinkSocket, error)

	// BindPull binds a consumer-side receive socket at endpoint.
	BindPull(endpoint string) (PullSocket, string, error)
}
