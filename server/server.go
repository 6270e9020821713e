// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shopfloor-works/shopfloor/fabric"
	"github.com/shopfloor-works/shopfloor/lib/clock"
	"github.com/shopfloor-works/shopfloor/lib/retry"
	"github.com/shopfloor-works/shopfloor/machine"
	"github.com/shopfloor-works/shopfloor/telemetry"
)

// Options configures one aggregator instance.
type Options struct {
	// Listen is the fan-in subscribe endpoint. A port of 0 requests an
	// OS-assigned port; Endpoint reports the resolved address.
	Listen string

	// Sinks are the downstream push endpoints. Dial order here is
	// forward order on every reading.
	Sinks []string

	// Machines are the per-machine poller configurations.
	Machines []machine.Config

	// Retry overrides the bind/connect retry schedule. The zero value
	// selects retry.DefaultPolicy.
	Retry retry.Policy
}

// Server owns the aggregation pipeline: the bound subscribe socket,
// the sink connections, and one poller per machine. Construction
// opens every socket and device; Start launches the pollers and the
// receive loop; Stop tears the pipeline down asynchronously with Done
// as the join point.
type Server struct {
	endpoint string
	pollers  []*machine.Poller
	logger   *slog.Logger
	metrics  *Metrics

	// mu guards the socket fields, which release nils out from the
	// receive-loop goroutine while Stop may be reading them.
	mu      sync.Mutex
	sub     fabric.SubscribeSocket
	control fabric.PublishSocket
	sinks   []fabric.SinkSocket

	started atomic.Bool
	stopped atomic.Bool
	done    chan struct{}
}

// New builds a server from its configuration: binds the subscribe
// socket, dials every sink and the loopback control publisher with
// bounded retry, and constructs one poller per machine through the
// driver registry. Nothing runs until Start. On error every socket
// and device opened so far is released.
func New(ctx context.Context, opts Options, fab fabric.Fabric, drivers map[string]machine.Factory, clk clock.Clock, logger *slog.Logger, metrics *Metrics) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	policy := opts.Retry
	if policy == (retry.Policy{}) {
		policy = retry.DefaultPolicy
	}

	s := &Server{
		logger:  logger.With("component", "server"),
		metrics: metrics,
		done:    make(chan struct{}),
	}

	err := retry.Do(ctx, clk, policy, func() error {
		sub, endpoint, err := fab.BindSubscriber(opts.Listen)
		if err != nil {
			return err
		}
		s.sub, s.endpoint = sub, endpoint
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("binding subscriber at %s: %w", opts.Listen, err)
	}

	for _, endpoint := range opts.Sinks {
		var sink fabric.SinkSocket
		err := retry.Do(ctx, clk, policy, func() error {
			var err error
			sink, err = fab.DialSink(endpoint)
			return err
		})
		if err != nil {
			s.release()
			return nil, fmt.Errorf("dialing sink %s: %w", endpoint, err)
		}
		s.sinks = append(s.sinks, sink)
	}

	// The control publisher loops back to our own subscribe socket so
	// Stop can unblock a pending receive with the sentinel.
	err = retry.Do(ctx, clk, policy, func() error {
		control, err := fab.DialPublisher(s.endpoint)
		if err != nil {
			return err
		}
		s.control = control
		return nil
	})
	if err != nil {
		s.release()
		return nil, fmt.Errorf("dialing control publisher: %w", err)
	}

	seen := make(map[string]bool, len(opts.Machines))
	for _, cfg := range opts.Machines {
		if seen[cfg.Name] {
			s.release()
			return nil, fmt.Errorf("duplicate machine name %q", cfg.Name)
		}
		seen[cfg.Name] = true

		factory, ok := drivers[cfg.Driver]
		if !ok {
			s.release()
			return nil, fmt.Errorf("machine %q: unknown driver %q", cfg.Name, cfg.Driver)
		}
		device, err := factory(cfg)
		if err != nil {
			s.release()
			return nil, fmt.Errorf("machine %q: %w", cfg.Name, err)
		}

		var publisher fabric.PublishSocket
		err = retry.Do(ctx, clk, policy, func() error {
			var err error
			publisher, err = fab.DialPublisher(s.endpoint)
			return err
		})
		if err != nil {
			_ = device.Close()
			s.release()
			return nil, fmt.Errorf("machine %q: dialing publisher: %w", cfg.Name, err)
		}

		s.pollers = append(s.pollers, machine.NewPoller(cfg.Name, device, publisher, cfg.FailHard, logger))
	}

	return s, nil
}

// Endpoint returns the dialable subscribe endpoint, with any
// OS-assigned port resolved. External publishers (mock machines)
// connect here.
func (s *Server) Endpoint() string { return s.endpoint }

// Start launches every poller and the receive loop. Calling Start
// more than once is a no-op.
func (s *Server) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	for _, p := range s.pollers {
		p.Start()
	}
	s.metrics.PollersRunning.Set(float64(len(s.pollers)))
	s.logger.Info("server running",
		"endpoint", s.endpoint,
		"machines", len(s.pollers),
		"sinks", len(s.sinks),
	)
	go s.run()
}

// Stop asynchronously shuts the pipeline down: it flags the receive
// loop, publishes the shutdown sentinel to unblock a pending receive,
// and requests every poller to stop. Callers join on Done. Safe to
// call at any point after New, including after the receive loop has
// already exited on its own; repeated calls are no-ops.
func (s *Server) Stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}
	for _, p := range s.pollers {
		p.Stop()
	}
	s.mu.Lock()
	control := s.control
	s.mu.Unlock()
	if control == nil {
		// The receive loop already exited and released the sockets;
		// nothing is blocked on a receive.
		return
	}
	if err := control.Send("", nil); err != nil {
		// The loop may have exited between the nil check and the
		// send; the flag alone is then enough.
		s.logger.Warn("sending shutdown sentinel", "error", err)
	}
}

// Done closes when the receive loop has exited and all server-owned
// sockets are released. Never closes if Start was never called.
func (s *Server) Done() <-chan struct{} { return s.done }

func (s *Server) run() {
	defer close(s.done)
	defer func() {
		s.metrics.PollersRunning.Set(0)
		s.release()
		s.logger.Info("server stopped")
	}()

	for {
		topic, payload, err := s.sub.Recv()
		if err != nil {
			if !errors.Is(err, fabric.ErrClosed) && !s.stopped.Load() {
				s.logger.Error("receive failed, shutting down", "error", err)
			}
			return
		}
		if telemetry.IsSentinel(payload) {
			if s.stopped.Load() {
				return
			}
			s.logger.Warn("ignoring stray sentinel payload", "topic", topic)
			continue
		}

		s.metrics.Received.Inc()
		reading, err := telemetry.DecodeEnvelope(payload)
		if err != nil {
			s.metrics.Dropped.Inc()
			s.logger.Warn("dropping undecodable payload", "topic", topic, "error", err)
			continue
		}
		tagged, err := telemetry.EncodeTagged(topic, reading)
		if err != nil {
			s.metrics.Dropped.Inc()
			s.logger.Warn("dropping unencodable reading", "machine", topic, "error", err)
			continue
		}

		for i, sink := range s.sinks {
			if err := sink.Send(tagged); err != nil {
				s.metrics.SinkErrors.Inc()
				s.logger.Error("forwarding to sink failed", "sink", i, "machine", topic, "error", err)
				continue
			}
			s.metrics.Forwarded.Inc()
		}
	}
}

// release closes every server-owned socket. Pollers release their own
// devices and publish sockets when their loops exit.
func (s *Server) release() {
	s.mu.Lock()
	control := s.control
	sinks := s.sinks
	sub := s.sub
	s.control, s.sinks, s.sub = nil, nil, nil
	s.mu.Unlock()

	if control != nil {
		if err := control.Close(); err != nil && !errors.Is(err, fabric.ErrClosed) {
			s.logger.Warn("closing control publisher", "error", err)
		}
	}
	for _, sink := range sinks {
		if err := sink.Close(); err != nil && !errors.Is(err, fabric.ErrClosed) {
			s.logger.Warn("closing sink", "error", err)
		}
	}
	if sub != nil {
		if err := sub.Close(); err != nil && !errors.Is(err, fabric.ErrClosed) {
			s.logger.Warn("closing subscriber", "error", err)
		}
	}
}
