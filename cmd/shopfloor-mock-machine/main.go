// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

// shopfloor-mock-machine publishes synthetic lathe readings to a
// running aggregator at a fixed interval. Each reading is generated
// by encoding and decoding a real lathe frame, so the wire codec is
// exercised end to end.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/shopfloor-works/shopfloor/fabric"
	"github.com/shopfloor-works/shopfloor/lib/version"
	"github.com/shopfloor-works/shopfloor/machine/lathe"
	"github.com/shopfloor-works/shopfloor/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var endpoint string
	var machineName string
	var interval time.Duration
	var count int
	var showVersion bool

	flagSet := pflag.NewFlagSet("shopfloor-mock-machine", pflag.ContinueOnError)
	flagSet.StringVar(&endpoint, "endpoint", "", "aggregator subscribe endpoint to publish to (required)")
	flagSet.StringVar(&machineName, "machine", "mock_lathe", "machine name used as the publish topic")
	flagSet.DurationVar(&interval, "interval", time.Second, "delay between readings")
	flagSet.IntVar(&count, "count", 0, "number of readings to publish (0 = until interrupted)")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		version.Print("shopfloor-mock-machine")
		return nil
	}
	if endpoint == "" {
		return errors.New("--endpoint is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher, err := fabric.NewZMQ(ctx).DialPublisher(endpoint)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", endpoint, err)
	}
	defer publisher.Close()

	logger.Info("publishing", "endpoint", endpoint, "machine", machineName, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	published := 0
	for count == 0 || published < count {
		select {
		case <-ctx.Done():
			logger.Info("interrupted", "published", published)
			return nil
		case <-ticker.C:
		}

		// Round-trip a real frame so published readings match what a
		// live lathe produces.
		frame := lathe.Encode(rand.Intn(4) == 0, uint16(rand.Intn(3000)))
		reading, err := lathe.Decode(frame)
		if err != nil {
			return fmt.Errorf("decoding generated frame: %w", err)
		}
		payload, err := telemetry.EncodeEnvelope(reading)
		if err != nil {
			return fmt.Errorf("encoding envelope: %w", err)
		}
		if err := publisher.Send(machineName, payload); err != nil {
			return fmt.Errorf("publishing reading: %w", err)
		}
		published++
	}

	logger.Info("done", "published", published)
	return nil
}
