// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-zeromq/zmq4"
)

// Compile-time interface check.
var _ Fabric = (*ZMQ)(nil)

// ZMQ is the production fabric: ZeroMQ over TCP. The aggregator binds
// a SUB socket with a subscribe-all filter; pollers dial PUB sockets
// to it; sinks are PUSH (aggregator side, dialing) to PULL (consumer
// side, binding).
//
// Endpoints use ZeroMQ notation: "tcp://host:port". Port 0 on a bind
// requests an OS-assigned port; the resolved endpoint is returned.
type ZMQ struct {
	ctx context.Context
}

// NewZMQ creates a ZeroMQ fabric. The context bounds the lifetime of
// every socket created through it.
func NewZMQ(ctx context.Context) *ZMQ {
	return &ZMQ{ctx: ctx}
}

// BindSubscriber binds a SUB socket at endpoint and subscribes to all
// topics (empty prefix filter).
func (f *ZMQ) BindSubscriber(endpoint string) (SubscribeSocket, string, error) {
	socket := zmq4.NewSub(f.ctx)
	if err := socket.Listen(endpoint); err != nil {
		socket.Close()
		return nil, "", fmt.Errorf("binding subscriber at %s: %w", endpoint, err)
	}
	if err := socket.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		socket.Close()
		return nil, "", fmt.Errorf("subscribing to all topics: %w", err)
	}
	resolved, err := resolveEndpoint(endpoint, socket.Addr())
	if err != nil {
		socket.Close()
		return nil, "", err
	}
	return &zmqSubscribe{socket: socket}, resolved, nil
}

// DialPublisher connects a PUB socket to a bound subscriber.
func (f *ZMQ) DialPublisher(endpoint string) (PublishSocket, error) {
	socket := zmq4.NewPub(f.ctx)
	if err := socket.Dial(endpoint); err != nil {
		socket.Close()
		return nil, fmt.Errorf("dialing publisher to %s: %w", endpoint, err)
	}
	return &zmqPublish{socket: socket}, nil
}

// DialSink connects a PUSH socket to a bound consumer.
func (f *ZMQ) DialSink(endpoint string) (SinkSocket, error) {
	socket := zmq4.NewPush(f.ctx)
	if err := socket.Dial(endpoint); err != nil {
		socket.Close()
		return nil, fmt.Errorf("dialing sink at %s: %w", endpoint, err)
	}
	return &zmqSink{socket: socket}, nil
}

// BindPull binds a PULL socket at endpoint.
func (f *ZMQ) BindPull(endpoint string) (PullSocket, string, error) {
	socket := zmq4.NewPull(f.ctx)
	if err := socket.Listen(endpoint); err != nil {
		socket.Close()
		return nil, "", fmt.Errorf("binding pull socket at %s: %w", endpoint, err)
	}
	resolved, err := resolveEndpoint(endpoint, socket.Addr())
	if err != nil {
		socket.Close()
		return nil, "", err
	}
	return &zmqPull{socket: socket}, resolved, nil
}

type zmqPublish struct {
	socket zmq4.Socket
}

func (p *zmqPublish) Send(topic string, payload []byte) error {
	return p.socket.Send(zmq4.NewMsgFrom([]byte(topic), payload))
}

func (p *zmqPublish) Close() error { return p.socket.Close() }

type zmqSubscribe struct {
	socket zmq4.Socket
}

func (s *zmqSubscribe) Recv() (string, []byte, error) {
	msg, err := s.socket.Recv()
	if err != nil {
		return "", nil, err
	}
	if len(msg.Frames) != 2 {
		return "", nil, fmt.Errorf("malformed message: %d frames (want topic + payload)", len(msg.Frames))
	}
	return string(msg.Frames[0]), msg.Frames[1], nil
}

func (s *zmqSubscribe) Close() error { return s.socket.Close() }

type zmqSink struct {
	socket zmq4.Socket
}

func (s *zmqSink) Send(payload []byte) error {
	return s.socket.Send(zmq4.NewMsg(payload))
}

func (s *zmqSink) Close() error { return s.socket.Close() }

type zmqPull struct {
	socket zmq4.Socket
}

func (p *zmqPull) Recv() ([]byte, error) {
	msg, err := p.socket.Recv()
	if err != nil {
		return nil, err
	}
	if len(msg.Frames) == 0 {
		return nil, nil
	}
	return msg.Frames[0], nil
}

func (p *zmqPull) Close() error { return p.socket.Close() }

// resolveEndpoint rewrites a bind endpoint into the endpoint dialers
// should use: the OS-assigned port is taken from the bound address,
// and wildcard hosts become loopback (pollers run alongside the
// aggregator; remote consumers substitute the machine's address).
func resolveEndpoint(endpoint string, bound net.Addr) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	if parsed.Scheme != "tcp" {
		return endpoint, nil
	}

	host := parsed.Hostname()
	if host == "" || host == "*" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	port := parsed.Port()
	if port == "" || port == "0" {
		if bound == nil {
			return "", fmt.Errorf("endpoint %q requested an ephemeral port but the socket reports no address", endpoint)
		}
		tcpAddr, ok := bound.(*net.TCPAddr)
		if !ok {
			return "", fmt.Errorf("unexpected bound address type %T for %q", bound, endpoint)
		}
		port = fmt.Sprintf("%d", tcpAddr.Port)
	}

	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return "tcp://" + host + ":" + port, nil
}
