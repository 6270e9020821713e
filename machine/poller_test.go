// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package machine

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopfloor-works/shopfloor/lib/testutil"
	"github.com/shopfloor-works/shopfloor/telemetry"
)

// pollResult is one scripted answer from the fake device.
type pollResult struct {
	reading telemetry.Reading
	err     error
}

// scriptedDevice blocks in Poll until the test feeds it a result,
// mirroring a hardware transport that blocks until the machine sends.
type scriptedDevice struct {
	results chan pollResult
	closed  atomic.Bool
}

func newScriptedDevice() *scriptedDevice {
	return &scriptedDevice{results: make(chan pollResult, 16)}
}

func (d *scriptedDevice) Poll() (telemetry.Reading, error) {
	result := <-d.results
	return result.reading, result.err
}

func (d *scriptedDevice) Close() error {
	d.closed.Store(true)
	return nil
}

// sentMessage is one captured publish.
type sentMessage struct {
	topic   string
	payload []byte
}

// capturePublisher records publishes for assertion.
type capturePublisher struct {
	sent   chan sentMessage
	closed atomic.Bool
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{sent: make(chan sentMessage, 16)}
}

func (p *capturePublisher) Send(topic string, payload []byte) error {
	p.sent <- sentMessage{topic: topic, payload: payload}
	return nil
}

func (p *capturePublisher) Close() error {
	p.closed.Store(true)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testReading(speed uint64) telemetry.Reading {
	return telemetry.Reading{
		"status": {"door_open": false},
		"rates":  {"spindle_speed": speed},
	}
}

func TestPollerPublishesReadings(t *testing.T) {
	device := newScriptedDevice()
	publisher := newCapturePublisher()
	poller := NewPoller("lathe_1", device, publisher, false, discardLogger())
	poller.Start()

	want := testReading(1234)
	device.results <- pollResult{reading: want}

	msg := testutil.RequireReceive(t, publisher.sent, 3*time.Second, "published reading")
	if msg.topic != "lathe_1" {
		t.Fatalf("topic %q, want lathe_1", msg.topic)
	}
	got, err := telemetry.DecodeEnvelope(msg.payload)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("reading mismatch:\n got %#v\nwant %#v", got, want)
	}

	poller.Stop()
	device.results <- pollResult{reading: testReading(0)}
	testutil.RequireClosed(t, poller.Done(), 3*time.Second, "poller shutdown")
}

func TestPollerFIFOPerMachine(t *testing.T) {
	device := newScriptedDevice()
	publisher := newCapturePublisher()
	poller := NewPoller("lathe_1", device, publisher, false, discardLogger())
	poller.Start()

	for speed := uint64(1); speed <= 5; speed++ {
		device.results <- pollResult{reading: testReading(speed)}
	}
	for speed := uint64(1); speed <= 5; speed++ {
		msg := testutil.RequireReceive(t, publisher.sent, 3*time.Second, "reading %d", speed)
		got, err := telemetry.DecodeEnvelope(msg.payload)
		if err != nil {
			t.Fatalf("DecodeEnvelope: %v", err)
		}
		if got["rates"]["spindle_speed"] != speed {
			t.Fatalf("out of order: got speed %v, want %d", got["rates"]["spindle_speed"], speed)
		}
	}

	poller.Stop()
	device.results <- pollResult{reading: testReading(0)}
	testutil.RequireClosed(t, poller.Done(), 3*time.Second, "poller shutdown")
}

func TestPollerDropAndContinue(t *testing.T) {
	device := newScriptedDevice()
	publisher := newCapturePublisher()
	poller := NewPoller("lathe_1", device, publisher, false, discardLogger())
	poller.Start()

	const malformed = 5
	for i := 0; i < malformed; i++ {
		device.results <- pollResult{err: fmt.Errorf("frame %d: %w", i, ErrMalformedFrame)}
	}
	// A good reading after the bad run proves the loop survived.
	device.results <- pollResult{reading: testReading(7)}

	testutil.RequireReceive(t, publisher.sent, 3*time.Second, "reading after malformed run")

	if !poller.Running() {
		t.Fatal("poller terminated under drop-and-continue policy")
	}
	if got := poller.Dropped(); got != malformed {
		t.Fatalf("Dropped() = %d, want %d", got, malformed)
	}
	if got := poller.Published(); got != 1 {
		t.Fatalf("Published() = %d, want 1", got)
	}

	poller.Stop()
	device.results <- pollResult{reading: testReading(0)}
	testutil.RequireClosed(t, poller.Done(), 3*time.Second, "poller shutdown")
}

func TestPollerFailHardTerminatesOnFirstError(t *testing.T) {
	device := newScriptedDevice()
	publisher := newCapturePublisher()
	poller := NewPoller("lathe_1", device, publisher, true, discardLogger())
	poller.Start()

	device.results <- pollResult{err: errors.New("bad delimiter: " + ErrMalformedFrame.Error())}

	testutil.RequireClosed(t, poller.Done(), 3*time.Second, "fail-hard termination")
	if got := poller.Published(); got != 0 {
		t.Fatalf("Published() = %d, want 0", got)
	}
	if poller.Running() {
		t.Fatal("Running() true after termination")
	}
}

func TestPollerReleasesResourcesOnExit(t *testing.T) {
	device := newScriptedDevice()
	publisher := newCapturePublisher()
	poller := NewPoller("lathe_1", device, publisher, true, discardLogger())
	poller.Start()

	device.results <- pollResult{err: errors.New("device unplugged")}
	testutil.RequireClosed(t, poller.Done(), 3*time.Second, "poller exit")

	if !device.closed.Load() {
		t.Fatal("device not closed after poller exit")
	}
	if !publisher.closed.Load() {
		t.Fatal("publish socket not closed after poller exit")
	}
}

func TestPollerStartIsIdempotent(t *testing.T) {
	device := newScriptedDevice()
	publisher := newCapturePublisher()
	poller := NewPoller("lathe_1", device, publisher, false, discardLogger())
	poller.Start()
	poller.Start() // second call must not spawn a second loop

	device.results <- pollResult{reading: testReading(1)}
	testutil.RequireReceive(t, publisher.sent, 3*time.Second, "single reading")

	select {
	case extra := <-publisher.sent:
		t.Fatalf("unexpected second publish on topic %q", extra.topic)
	case <-time.After(100 * time.Millisecond):
	}

	poller.Stop()
	device.results <- pollResult{reading: testReading(0)}
	testutil.RequireClosed(t, poller.Done(), 3*time.Second, "poller shutdown")
}
