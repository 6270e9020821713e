// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"log/slog"
	"sync/atomic"

	"github.com/shopfloor-works/shopfloor/fabric"
	"github.com/shopfloor-works/shopfloor/telemetry"
)

// Poller runs one machine's poll → publish loop on its own goroutine.
// It exclusively owns its device interface and publish socket; both
// are released when the loop exits.
type Poller struct {
	name      string
	device    Interface
	publisher fabric.PublishSocket
	failHard  bool
	logger    *slog.Logger

	started atomic.Bool
	stopped atomic.Bool
	done    chan struct{}

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewPoller creates a poller in the Created state: transport open,
// publish socket connected, loop not yet running.
func NewPoller(name string, device Interface, publisher fabric.PublishSocket, failHard bool, logger *slog.Logger) *Poller {
	return &Poller{
		name:      name,
		device:    device,
		publisher: publisher,
		failHard:  failHard,
		logger:    logger.With("machine", name),
		done:      make(chan struct{}),
	}
}

// Topic returns the machine name used as the publish topic.
func (p *Poller) Topic() string { return p.name }

// Start launches the poll loop. Calling Start more than once is a
// no-op.
func (p *Poller) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	go p.run()
}

// Stop asynchronously requests termination. The loop finishes its
// current iteration — an in-flight blocking poll is not interrupted —
// then exits. Callers needing a shutdown guarantee wait on Done.
func (p *Poller) Stop() {
	p.stopped.Store(true)
}

// Done closes when the loop has exited and the device and publish
// socket are released. Never closes if Start was never called.
func (p *Poller) Done() <-chan struct{} { return p.done }

// Running reports whether the loop has started and not yet exited.
func (p *Poller) Running() bool {
	if !p.started.Load() {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Published returns the number of readings published so far.
func (p *Poller) Published() uint64 { return p.published.Load() }

// Dropped returns the number of samples dropped under the
// drop-and-continue failure policy.
func (p *Poller) Dropped() uint64 { return p.dropped.Load() }

func (p *Poller) run() {
	defer close(p.done)
	defer func() {
		if err := p.publisher.Close(); err != nil {
			p.logger.Warn("closing publish socket", "error", err)
		}
		if err := p.device.Close(); err != nil {
			p.logger.Warn("closing device", "error", err)
		}
	}()

	p.logger.Info("poller running", "fail_hard", p.failHard)

	for !p.stopped.Load() {
		reading, err := p.device.Poll()
		if err != nil {
			if p.stopped.Load() {
				// A transport torn down during shutdown is not a
				// device failure.
				break
			}
			if p.failHard {
				p.logger.Error("poll failed, terminating poller", "error", err)
				return
			}
			p.dropped.Add(1)
			p.logger.Warn("poll failed, sample dropped", "error", err)
			continue
		}

		payload, err := telemetry.EncodeEnvelope(reading)
		if err != nil {
			if p.failHard {
				p.logger.Error("encoding reading failed, terminating poller", "error", err)
				return
			}
			p.dropped.Add(1)
			p.logger.Warn("encoding reading failed, sample dropped", "error", err)
			continue
		}

		if err := p.publisher.Send(p.name, payload); err != nil {
			p.logger.Error("publish failed, terminating poller", "error", err)
			return
		}
		p.published.Add(1)
	}

	p.logger.Info("poller stopped",
		"published", p.published.Load(),
		"dropped", p.dropped.Load(),
	)
}
