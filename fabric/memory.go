// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package fabric

import (
	"fmt"
	"sync"
)

// Compile-time interface check.
var _ Fabric = (*Memory)(nil)

// memoryQueueDepth bounds each in-memory socket's buffer. Deep enough
// that tests never block on it; delivery stays FIFO per publisher.
const memoryQueueDepth = 1024

// Memory is an in-process Fabric for tests. Endpoints are plain map
// keys ("mem://aggregator"); binding with an empty endpoint or a
// trailing ":0" allocates a unique one. No network I/O, no slow-joiner
// window: a message sent after DialPublisher returns is received.
type Memory struct {
	mu          sync.Mutex
	subscribers map[string]*memorySubscriber
	pulls       map[string]*memoryPull
	nextID      int
}

// NewMemory creates an empty in-process fabric.
func NewMemory() *Memory {
	return &Memory{
		subscribers: make(map[string]*memorySubscriber),
		pulls:       make(map[string]*memoryPull),
	}
}

type memoryMessage struct {
	topic   string
	payload []byte
}

func (f *Memory) allocateEndpointLocked(endpoint string) string {
	if endpoint != "" && endpoint != ":0" {
		return endpoint
	}
	f.nextID++
	return fmt.Sprintf("mem://%d", f.nextID)
}

// BindSubscriber registers a subscriber endpoint.
func (f *Memory) BindSubscriber(endpoint string) (SubscribeSocket, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	endpoint = f.allocateEndpointLocked(endpoint)
	if _, exists := f.subscribers[endpoint]; exists {
		return nil, "", fmt.Errorf("endpoint %q already bound", endpoint)
	}
	subscriber := &memorySubscriber{
		messages: make(chan memoryMessage, memoryQueueDepth),
		done:     make(chan struct{}),
	}
	f.subscribers[endpoint] = subscriber
	return subscriber, endpoint, nil
}

// DialPublisher connects to a bound subscriber endpoint.
func (f *Memory) DialPublisher(endpoint string) (PublishSocket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	subscriber, ok := f.subscribers[endpoint]
	if !ok {
		return nil, fmt.Errorf("dialing publisher: no subscriber bound at %q", endpoint)
	}
	return &memoryPublisher{target: subscriber}, nil
}

// DialSink connects to a bound pull endpoint.
func (f *Memory) DialSink(endpoint string) (SinkSocket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pull, ok := f.pulls[endpoint]
	if !ok {
		return nil, fmt.Errorf("dialing sink: no consumer bound at %q", endpoint)
	}
	return &memorySink{target: pull}, nil
}

// BindPull registers a consumer endpoint.
func (f *Memory) BindPull(endpoint string) (PullSocket, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	endpoint = f.allocateEndpointLocked(endpoint)
	if _, exists := f.pulls[endpoint]; exists {
		return nil, "", fmt.Errorf("endpoint %q already bound", endpoint)
	}
	pull := &memoryPull{
		payloads: make(chan []byte, memoryQueueDepth),
		done:     make(chan struct{}),
	}
	f.pulls[endpoint] = pull
	return pull, endpoint, nil
}

type memorySubscriber struct {
	messages  chan memoryMessage
	done      chan struct{}
	closeOnce sync.Once
}

func (s *memorySubscriber) Recv() (string, []byte, error) {
	select {
	case msg := <-s.messages:
		return msg.topic, msg.payload, nil
	case <-s.done:
		// Drain anything that raced ahead of Close.
		select {
		case msg := <-s.messages:
			return msg.topic, msg.payload, nil
		default:
			return "", nil, ErrClosed
		}
	}
}

func (s *memorySubscriber) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

type memoryPublisher struct {
	target *memorySubscriber
}

func (p *memoryPublisher) Send(topic string, payload []byte) error {
	// Check done first: with buffer room both select cases are ready
	// after Close, and a random pick would enqueue into a dead queue.
	select {
	case <-p.target.done:
		return ErrClosed
	default:
	}
	select {
	case p.target.messages <- memoryMessage{topic: topic, payload: payload}:
		return nil
	case <-p.target.done:
		return ErrClosed
	}
}

func (p *memoryPublisher) Close() error { return nil }

type memoryPull struct {
	payloads  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (p *memoryPull) Recv() ([]byte, error) {
	select {
	case payload := <-p.payloads:
		return payload, nil
	case <-p.done:
		select {
		case payload := <-p.payloads:
			return payload, nil
		default:
			return nil, ErrClosed
		}
	}
}

func (p *memoryPull) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

type memorySink struct {
	target *memoryPull
}

func (s *memorySink) Send(payload []byte) error {
	select {
	case <-s.target.done:
		return ErrClosed
	default:
	}
	select {
	case s.target.payloads <- payload:
		return nil
	case <-s.target.done:
		return ErrClosed
	}
}

func (s *memorySink) Close() error { return nil }
