// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package server

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts the aggregator's data path. A nil registerer builds
// working but unregistered collectors, which tests use freely.
type Metrics struct {
	Received       prometheus.Counter
	Forwarded      prometheus.Counter
	Dropped        prometheus.Counter
	SinkErrors     prometheus.Counter
	PollersRunning prometheus.Gauge
}

// NewMetrics builds the aggregator's collectors and registers them on
// reg when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shopfloor",
			Subsystem: "server",
			Name:      "readings_received_total",
			Help:      "Readings received from machine pollers.",
		}),
		Forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shopfloor",
			Subsystem: "server",
			Name:      "readings_forwarded_total",
			Help:      "Tagged readings delivered to sinks, one per sink per reading.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shopfloor",
			Subsystem: "server",
			Name:      "readings_dropped_total",
			Help:      "Payloads dropped for decode or re-encode failures.",
		}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shopfloor",
			Subsystem: "server",
			Name:      "sink_errors_total",
			Help:      "Failed sends to sink sockets.",
		}),
		PollersRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shopfloor",
			Subsystem: "server",
			Name:      "pollers_running",
			Help:      "Machine pollers currently running.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Received, m.Forwarded, m.Dropped, m.SinkErrors, m.PollersRunning)
	}
	return m
}
